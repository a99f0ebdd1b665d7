package config

import "sync"

const (
	minStreamRange = 1
	maxStreamRange = 16
)

// StreamSettings holds the settings the frame loop reads every frame.
type StreamSettings struct {
	mu          sync.RWMutex
	streamRange int // in chunks, full extent of the requested cube minus one
	fpsLimit    int // 0 means unlimited
}

var globalStreamSettings = &StreamSettings{
	streamRange: 4,
	fpsLimit:    60,
}

// GetStreamRange returns the current stream range in chunks.
func GetStreamRange() int {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.streamRange
}

// SetStreamRange sets the stream range in chunks.
func SetStreamRange(r int) {
	globalStreamSettings.mu.Lock()
	defer globalStreamSettings.mu.Unlock()

	// Clamp to reasonable values
	if r < minStreamRange {
		r = minStreamRange
	}
	if r > maxStreamRange {
		r = maxStreamRange
	}

	globalStreamSettings.streamRange = r
}

// RequestedChunks returns how many coordinates one frame asks for at range r.
func RequestedChunks(r int) int {
	side := r + 1
	return side * side * side
}

// GetFPSLimit returns the frame cap, 0 for none.
func GetFPSLimit() int {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.fpsLimit
}

// SetFPSLimit sets the frame cap. Negative values disable it.
func SetFPSLimit(limit int) {
	globalStreamSettings.mu.Lock()
	defer globalStreamSettings.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	globalStreamSettings.fpsLimit = limit
}
