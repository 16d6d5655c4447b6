package antminer

import (
	"fmt"

	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

// Legacy firmware dumps repeating groups (hashboards, fans) into one flat
// map with numeric key suffixes, and the suffix the populated range starts
// at moves between firmware revisions. The resolvers below probe a small
// fixed set of candidate starts and accept the first one showing a
// non-zero value; an all-zero map falls back to the documented default.
// Resolution runs once per collection pass per group. The offset is in
// fact stable per physical unit, so this re-scan is redundant work, but
// it is a handful of map probes on a response already in hand.

const (
	defaultBoardOffset = 1
	defaultFanOffset   = 3

	boardStride = 5
	fanStride   = 4
)

// resolveBoardOffset locates the first chain_acn slot of the populated
// board range. Observed starts are 1, 6 and 11.
func resolveBoardOffset(stats map[string]any) int {
	for _, start := range []int{1, 6, 11} {
		for i := 0; i < boardStride; i++ {
			key := fmt.Sprintf("chain_acn%d", start+i)
			if v, ok := telemetry.Num(stats, key); ok && v != 0 {
				return start
			}
		}
	}
	return defaultBoardOffset
}

// resolveFanOffset locates the first fan slot carrying a reading.
// Observed populated ranges begin at fan3 or fan7; the probe windows
// start two slots earlier, which is why the accepted offset is the
// candidate plus two.
func resolveFanOffset(stats map[string]any) int {
	for _, start := range []int{1, 5} {
		for i := 0; i < fanStride; i++ {
			key := fmt.Sprintf("fan%d", start+i)
			if v, ok := telemetry.Num(stats, key); ok && v != 0 {
				return start + 2
			}
		}
	}
	return defaultFanOffset
}
