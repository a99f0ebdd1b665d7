package game

import (
	"time"

	"guacamole/internal/config"
)

// FPSLimiter paces the frame loop to config.GetFPSLimit.
type FPSLimiter struct {
	next time.Time
}

// NewFPSLimiter creates a new FPS limiter
func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{}
}

// Wait blocks until the next frame is due. idle caps the rate at 30 frames
// per second regardless of the configured limit.
func (f *FPSLimiter) Wait(idle bool) {
	effectiveLimit := config.GetFPSLimit()
	if idle && (effectiveLimit == 0 || effectiveLimit > 30) {
		effectiveLimit = 30
	}

	if effectiveLimit <= 0 {
		f.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(effectiveLimit)

	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	if remaining := time.Until(f.next); remaining > 0 {
		time.Sleep(remaining)
	}

	// resync after a hitch instead of bursting to catch up
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}
