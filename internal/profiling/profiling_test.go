package profiling

import (
	"strings"
	"testing"
	"time"
)

func TestTrackAccumulatesPerFrame(t *testing.T) {
	ResetFrame()
	for i := 0; i < 3; i++ {
		Track("test.op")()
	}
	if n := Calls("test.op"); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
	if _, ok := Snapshot()["test.op"]; !ok {
		t.Fatal("snapshot missing test.op")
	}

	ResetFrame()
	if n := Calls("test.op"); n != 0 {
		t.Fatalf("calls after reset = %d, want 0", n)
	}
}

func TestTopNOrdersByDuration(t *testing.T) {
	ResetFrame()
	mu.Lock()
	frameTotals["fast"] = time.Millisecond
	frameCalls["fast"] = 1
	frameTotals["slow"] = 3*time.Millisecond + 500*time.Microsecond
	frameCalls["slow"] = 2
	mu.Unlock()
	defer ResetFrame()

	got := TopN(1)
	if got != "slow:3.5ms(2)" {
		t.Fatalf("TopN(1) = %q", got)
	}
	if all := TopN(10); !strings.HasSuffix(all, "fast:1ms(1)") {
		t.Fatalf("TopN(10) = %q", all)
	}
}
