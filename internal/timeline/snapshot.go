package timeline

import (
	"fmt"
	"sort"
	"strings"
)

// OptBool is a best-effort boolean property. Known is false when the
// host could not report the value for this item; checks that depend on
// it must skip the item rather than guess.
type OptBool struct {
	Known bool
	Value bool
}

// OptInt is a best-effort integer property.
type OptInt struct {
	Known bool
	Value int
}

// Item is one track item as read from the host, before filtering.
type Item struct {
	Name        string
	Start       int
	End         int
	Duration    int
	LeftOffset  int
	RightOffset OptInt
	Enabled     OptBool

	// HasMedia is false for adjustment layers, generators and other
	// items with no backing media pool clip.
	HasMedia     bool
	SourceTC     string
	FilePath     string
	SourceFrames OptInt
}

// Track is a snapshot of one timeline track.
type Track struct {
	Kind    string // "video" or "audio"
	Index   int    // 1-based, host convention
	Name    string
	Enabled bool
	Items   []Item
}

// Info describes the timeline a set of tracks was read from.
type Info struct {
	Name       string
	FrameRate  float64
	StartFrame int
	EndFrame   int
	StartTC    string
}

// Label renders the host-style track label, e.g. "V1" or "A2".
func (t Track) Label() string {
	prefix := "V"
	if t.Kind == "audio" {
		prefix = "A"
	}
	return fmt.Sprintf("%s%d", prefix, t.Index)
}

// adjustmentMarker appears in the names the host assigns to adjustment
// and marker pseudo-clips.
const adjustmentMarker = "Adjustment"

// transitionName is the literal name the host gives transition pseudo-clips.
const transitionName = "Transition"

// Filter is a composable item-exclusion predicate; it reports true when
// the item should be dropped from a snapshot.
type Filter func(Item) bool

// PrefixFilter drops items whose name starts with any of the configured
// prefixes. Matching is case sensitive.
func PrefixFilter(prefixes []string) Filter {
	return func(it Item) bool {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(it.Name, p) {
				return true
			}
		}
		return false
	}
}

// AdjustmentFilter drops items with no backing media or whose name
// carries the adjustment marker.
func AdjustmentFilter() Filter {
	return func(it Item) bool {
		if !it.HasMedia {
			return true
		}
		return strings.Contains(it.Name, adjustmentMarker)
	}
}

// BlankNameFilter drops items with an empty or whitespace-only name.
func BlankNameFilter() Filter {
	return func(it Item) bool {
		return strings.TrimSpace(it.Name) == ""
	}
}

// TransitionFilter drops transition pseudo-clips by their literal name.
func TransitionFilter() Filter {
	return func(it Item) bool {
		return it.Name == transitionName
	}
}

// Snapshot returns the track's items sorted by start position with all
// given filters applied. The track itself is not modified.
func Snapshot(t Track, filters ...Filter) []Interval {
	var out []Interval
	for _, it := range t.Items {
		if excluded(it, filters) {
			continue
		}
		out = append(out, Interval{
			Name:     it.Name,
			Track:    t.Label(),
			Start:    it.Start,
			End:      it.End,
			Duration: it.Duration,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Items returns the track's raw items sorted by start with filters
// applied, for checks that need offsets or media state.
func Items(t Track, filters ...Filter) []Item {
	var out []Item
	for _, it := range t.Items {
		if excluded(it, filters) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func excluded(it Item, filters []Filter) bool {
	for _, f := range filters {
		if f(it) {
			return true
		}
	}
	return false
}
