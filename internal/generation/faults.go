package generation

import (
	"errors"
	"fmt"
	"log"

	"guacamole/internal/world"
)

var (
	// ErrSyncFault is matched by every SyncFault.
	ErrSyncFault = errors.New("synchronization fault")
	// ErrDeviceFault is matched by every DeviceFault.
	ErrDeviceFault = errors.New("device fault")
	// ErrStopped is returned by Request after the pipeline was closed or
	// faulted.
	ErrStopped = errors.New("generation pipeline stopped")
)

// SyncFault reports a lock that could not be taken in time or a queue used
// after it was closed. The worker cannot make progress past one.
type SyncFault struct {
	Op     string
	Reason string
}

func (e *SyncFault) Error() string {
	return fmt.Sprintf("work queue %s: %s", e.Op, e.Reason)
}

func (e *SyncFault) Is(target error) bool { return target == ErrSyncFault }

// DeviceFault wraps a GPU error raised while generating a chunk.
type DeviceFault struct {
	Stage string
	Coord world.ChunkCoord
	Err   error
}

func (e *DeviceFault) Error() string {
	return fmt.Sprintf("%s chunk %v: %v", e.Stage, e.Coord, e.Err)
}

func (e *DeviceFault) Is(target error) bool { return target == ErrDeviceFault }

func (e *DeviceFault) Unwrap() error { return e.Err }

// ExitOnFault is the default fault handler. Every pipeline fault is fatal.
func ExitOnFault(err error) {
	log.Fatalf("generation: fatal: %v", err)
}
