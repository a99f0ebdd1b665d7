package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Per-frame CPU timing. The frame loop calls ResetFrame at the top of every
// frame and reads TopN when a frame runs long.

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)
	frameCalls  = make(map[string]int)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("subsystem.Operation")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		frameCalls[name]++
		mu.Unlock()
	}
}

// ResetFrame clears current per-frame totals.
func ResetFrame() {
	mu.Lock()
	clear(frameTotals)
	clear(frameCalls)
	mu.Unlock()
}

// Snapshot returns a copy of current per-frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// Calls returns how many times name was tracked this frame.
func Calls(name string) int {
	mu.Lock()
	defer mu.Unlock()
	return frameCalls[name]
}

// TopN formats the n most expensive entries of the current frame.
// Example: "world.ChunkStreamer.Update:4.2ms(1), world.ChunkStore.Find:2.1ms(125)"
func TopN(n int) string {
	mu.Lock()
	type entry struct {
		name  string
		dur   time.Duration
		calls int
	}
	list := make([]entry, 0, len(frameTotals))
	for k, v := range frameTotals {
		list = append(list, entry{name: k, dur: v, calls: frameCalls[k]})
	}
	mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].dur != list[j].dur {
			return list[i].dur > list[j].dur
		}
		return list[i].name < list[j].name
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		parts = append(parts, e.name+":"+formatMs(e.dur)+"("+strconv.Itoa(e.calls)+")")
	}
	return strings.Join(parts, ", ")
}

// formatMs keeps one decimal and drops ".0".
func formatMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000.0
	return strings.TrimSuffix(strconv.FormatFloat(ms, 'f', 1, 64), ".0") + "ms"
}
