// Package timeline holds the snapshot value types the analysis engines
// operate on, plus the interval index primitives shared by the matcher
// and the QC checks. Snapshots are populated once per run from the host
// session; nothing in this package touches a live host handle.
package timeline

import "sort"

// Interval is one placed item on a track, in timeline frames.
// Start/End follow the host convention: End is exclusive for duration
// arithmetic, but containment queries treat both bounds as inclusive.
type Interval struct {
	Name     string
	Track    string
	Start    int
	End      int
	Duration int
}

// Range is a bare (start, end) span used by merge-and-scan gap detection.
type Range struct {
	Start int
	End   int
}

// FindContaining returns the first interval whose [Start, End] contains
// point, inclusive on both bounds. First match wins: overlapping source
// ranges are possible and earlier entries take precedence.
func FindContaining(point int, intervals []Interval) (Interval, bool) {
	for _, iv := range intervals {
		if iv.Start <= point && point <= iv.End {
			return iv, true
		}
	}
	return Interval{}, false
}

// MergeRanges sorts ranges by start and merges overlapping or touching
// neighbours. The input slice is not modified.
func MergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
		} else {
			merged = append(merged, r)
		}
	}
	return merged
}
