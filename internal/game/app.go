// Package game runs the headless frame loop: move the viewer, stream chunks,
// build the draw list.
package game

import (
	"context"
	"log"
	"time"

	"guacamole/internal/profiling"
)

// slowFrame is the processing time above which a frame is logged.
const slowFrame = 16 * time.Millisecond

type App struct {
	session    *Session
	fpsLimiter *FPSLimiter
	lastTime   time.Time

	// MaxFrames stops Run after that many frames. Zero runs until cancelled.
	MaxFrames int
	frames    int
}

func NewApp(s *Session) *App {
	return &App{
		session:    s,
		fpsLimiter: NewFPSLimiter(),
		lastTime:   time.Now(),
	}
}

// Run ticks until ctx is done, MaxFrames is reached or a frame fails.
func (a *App) Run(ctx context.Context) error {
	for a.MaxFrames == 0 || a.frames < a.MaxFrames {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := a.tick(); err != nil {
			return err
		}
	}
	return nil
}

// Frames returns the number of completed frames.
func (a *App) Frames() int {
	return a.frames
}

func (a *App) tick() error {
	profiling.ResetFrame()
	startTick := time.Now()
	now := time.Now()
	dt := now.Sub(a.lastTime).Seconds()
	a.lastTime = now

	if err := a.session.Update(dt); err != nil {
		return err
	}
	a.session.Render()
	a.frames++

	processingDuration := time.Since(startTick)
	if processingDuration > slowFrame {
		log.Printf("Slow frame: %v. Top tasks: %s", processingDuration, profiling.TopN(5))
	}

	idle := a.session.Speed == 0 && a.session.Pipeline().Stats().InFlight() == 0
	a.fpsLimiter.Wait(idle)
	return nil
}
