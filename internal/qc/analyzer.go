// Package qc scans timeline snapshots for structural editorial problems:
// uncovered video, flash frames, audio overlaps and gaps, disabled and
// offline content. Every check is a pure function over read-only
// snapshots; the analyzer just runs them in a fixed order and
// concatenates their findings.
package qc

import (
	"fmt"
	"os"
	"sort"

	"github.com/cutroom/cutroom-agent/internal/settings"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// Analyzer runs the configured checks over one timeline's snapshots.
type Analyzer struct {
	cfg   settings.Settings
	info  timeline.Info
	video []timeline.Track
	audio []timeline.Track

	// fileExists is swapped in tests; offline detection must not need
	// real media on disk to be testable.
	fileExists func(string) bool
}

// New builds an analyzer over the given snapshots.
func New(cfg settings.Settings, info timeline.Info, video, audio []timeline.Track) *Analyzer {
	return &Analyzer{
		cfg:   cfg,
		info:  info,
		video: video,
		audio: audio,
		fileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Run executes every enabled check and returns the concatenated issue
// list in check order. Running twice over unchanged snapshots yields an
// identical, identically ordered list.
func (a *Analyzer) Run() []Issue {
	var issues []Issue

	issues = append(issues, a.checkVideoGaps()...)
	issues = append(issues, a.checkFlashFrames()...)
	if a.cfg.CheckAudioOverlap {
		issues = append(issues, a.checkSameTrackOverlaps()...)
		issues = append(issues, a.checkCrossTrackOverlaps()...)
	}
	if a.cfg.CheckAudioGaps {
		issues = append(issues, a.checkAudioGaps()...)
	}
	if a.cfg.CheckDisabledClips {
		issues = append(issues, a.checkDisabled()...)
	}
	if a.cfg.CheckOfflineMedia {
		issues = append(issues, a.checkOfflineMedia()...)
	}
	if a.cfg.CheckSourceEnd {
		issues = append(issues, a.checkSourceEnd()...)
	}

	return issues
}

// videoFilters excludes non-content items from structural video checks.
// Prefix exclusion deliberately does not apply to video: a prefixed
// video clip still covers frames.
func (a *Analyzer) videoFilters() []timeline.Filter {
	filters := []timeline.Filter{timeline.BlankNameFilter(), timeline.TransitionFilter()}
	if a.cfg.IgnoreAdjustmentClips {
		filters = append(filters, timeline.AdjustmentFilter())
	}
	return filters
}

func (a *Analyzer) audioFilters() []timeline.Filter {
	filters := []timeline.Filter{
		timeline.PrefixFilter(a.cfg.IgnorePrefixes),
		timeline.BlankNameFilter(),
		timeline.TransitionFilter(),
	}
	if a.cfg.IgnoreAdjustmentClips {
		filters = append(filters, timeline.AdjustmentFilter())
	}
	return filters
}

func (a *Analyzer) ignoredTrack(t timeline.Track) bool {
	for _, name := range a.cfg.IgnoreTrackNames {
		if t.Name == name {
			return true
		}
	}
	return false
}

func (a *Analyzer) checkVideoGaps() []Issue {
	start, end := a.info.StartFrame, a.info.EndFrame

	var ranges []timeline.Range
	for _, t := range a.video {
		for _, iv := range timeline.Snapshot(t, a.videoFilters()...) {
			ranges = append(ranges, timeline.Range{Start: iv.Start, End: iv.End})
		}
	}

	if len(ranges) == 0 {
		return []Issue{{
			Type:     TypeVideoGap,
			Severity: SeverityError,
			Start:    start,
			End:      end,
			Duration: end - start,
			Message:  "No video clips on timeline",
		}}
	}

	merged := timeline.MergeRanges(ranges)
	var issues []Issue

	if merged[0].Start > start {
		d := merged[0].Start - start
		issues = append(issues, Issue{
			Type:     TypeVideoGap,
			Severity: SeverityError,
			Start:    start,
			End:      merged[0].Start,
			Duration: d,
			Message:  fmt.Sprintf("Gap at timeline start (%d frames)", d),
		})
	}

	for i := 0; i < len(merged)-1; i++ {
		if merged[i].End < merged[i+1].Start {
			d := merged[i+1].Start - merged[i].End
			issues = append(issues, Issue{
				Type:     TypeVideoGap,
				Severity: SeverityError,
				Start:    merged[i].End,
				End:      merged[i+1].Start,
				Duration: d,
				Message:  fmt.Sprintf("Video gap (%d frames)", d),
			})
		}
	}

	if last := merged[len(merged)-1]; last.End < end {
		d := end - last.End
		issues = append(issues, Issue{
			Type:     TypeVideoGap,
			Severity: SeverityWarning,
			Start:    last.End,
			End:      end,
			Duration: d,
			Message:  fmt.Sprintf("Gap at timeline end (%d frames)", d),
		})
	}

	return issues
}

func (a *Analyzer) checkFlashFrames() []Issue {
	var issues []Issue

	flag := func(iv timeline.Interval) {
		issues = append(issues, Issue{
			Type:     TypeFlashFrame,
			Severity: SeverityWarning,
			Start:    iv.Start,
			End:      iv.End,
			Duration: iv.Duration,
			Track:    iv.Track,
			Clip:     iv.Name,
			Message:  fmt.Sprintf("Flash frame on %s: %q (%d frames)", iv.Track, iv.Name, iv.Duration),
		})
	}

	for _, t := range a.video {
		for _, iv := range timeline.Snapshot(t, a.videoFilters()...) {
			if iv.Duration < a.cfg.FlashFrameThreshold {
				flag(iv)
			}
		}
	}
	for _, t := range a.audio {
		for _, iv := range timeline.Snapshot(t, a.audioFilters()...) {
			if iv.Duration < a.cfg.FlashFrameThreshold {
				flag(iv)
			}
		}
	}
	return issues
}

func (a *Analyzer) checkSameTrackOverlaps() []Issue {
	var issues []Issue

	for _, t := range a.audio {
		items := timeline.Snapshot(t, a.audioFilters()...)
		for i := 0; i < len(items)-1; i++ {
			cur, next := items[i], items[i+1]
			if cur.End > next.Start {
				overlap := cur.End - next.Start
				issues = append(issues, Issue{
					Type:     TypeAudioOverlap,
					Severity: SeverityError,
					Start:    next.Start,
					End:      cur.End,
					Duration: overlap,
					Track:    t.Label(),
					Message: fmt.Sprintf("Audio overlap on %s: %q and %q (%d frames)",
						t.Label(), cur.Name, next.Name, overlap),
				})
			}
		}
	}
	return issues
}

func (a *Analyzer) checkCrossTrackOverlaps() []Issue {
	// One globally start-sorted list across all enabled tracks. The
	// inner scan may break at other.Start >= cur.End only because of
	// that global ordering.
	var all []timeline.Interval
	for _, t := range a.audio {
		if !t.Enabled || a.ignoredTrack(t) {
			continue
		}
		all = append(all, timeline.Snapshot(t, a.audioFilters()...)...)
	}
	sortByStart(all)

	seen := make(map[string]bool)
	var issues []Issue

	for i, cur := range all {
		for j := i + 1; j < len(all); j++ {
			other := all[j]
			if other.Start >= cur.End {
				break
			}
			if other.Track == cur.Track {
				continue
			}

			overlapStart := other.Start
			overlapEnd := cur.End
			if other.End < overlapEnd {
				overlapEnd = other.End
			}

			key := fmt.Sprintf("%d|%s|%s", overlapStart, cur.Track, other.Track)
			if seen[key] {
				continue
			}
			seen[key] = true

			issues = append(issues, Issue{
				Type:     TypeAudioOverlap,
				Severity: SeverityWarning,
				Start:    overlapStart,
				End:      overlapEnd,
				Duration: overlapEnd - overlapStart,
				Track:    cur.Track + "/" + other.Track,
				Message: fmt.Sprintf("Audio overlap across %s and %s: %q and %q (%d frames)",
					cur.Track, other.Track, cur.Name, other.Name, overlapEnd-overlapStart),
			})
		}
	}
	return issues
}

func (a *Analyzer) checkAudioGaps() []Issue {
	var issues []Issue

	for _, t := range a.audio {
		if !t.Enabled || a.ignoredTrack(t) {
			continue
		}
		items := timeline.Snapshot(t, a.audioFilters()...)
		for i := 0; i < len(items)-1; i++ {
			gap := items[i+1].Start - items[i].End
			if gap >= a.cfg.MinAudioGapFrames {
				issues = append(issues, Issue{
					Type:     TypeAudioGap,
					Severity: SeverityInfo,
					Start:    items[i].End,
					End:      items[i+1].Start,
					Duration: gap,
					Track:    t.Label(),
					Message:  fmt.Sprintf("Audio gap on %s: %d frames between clips", t.Label(), gap),
				})
			}
		}
	}
	return issues
}

func (a *Analyzer) checkDisabled() []Issue {
	var issues []Issue

	for _, t := range a.video {
		for _, it := range timeline.Items(t) {
			// Unknown enabled state excludes the item from this check.
			if !it.Enabled.Known || it.Enabled.Value {
				continue
			}
			issues = append(issues, Issue{
				Type:     TypeDisabledClip,
				Severity: SeverityInfo,
				Start:    it.Start,
				End:      it.End,
				Duration: it.Duration,
				Track:    t.Label(),
				Clip:     it.Name,
				Message:  fmt.Sprintf("Disabled clip on %s: %q", t.Label(), it.Name),
			})
		}
	}

	for _, t := range a.audio {
		if t.Enabled {
			continue
		}
		issues = append(issues, Issue{
			Type:     TypeMutedTrack,
			Severity: SeverityWarning,
			Track:    t.Label(),
			Message:  fmt.Sprintf("Audio track %s is muted/disabled", t.Label()),
		})
	}
	return issues
}

func (a *Analyzer) checkOfflineMedia() []Issue {
	var issues []Issue

	for _, t := range a.video {
		for _, it := range timeline.Items(t) {
			if !it.HasMedia {
				continue
			}
			if it.FilePath != "" && a.fileExists(it.FilePath) {
				continue
			}
			issues = append(issues, Issue{
				Type:     TypeOfflineMedia,
				Severity: SeverityError,
				Start:    it.Start,
				End:      it.End,
				Duration: it.Duration,
				Track:    t.Label(),
				Clip:     it.Name,
				Message:  fmt.Sprintf("Offline media on %s: %q", t.Label(), it.Name),
			})
		}
	}
	return issues
}

// sourceEndSlack is how close to the source tail a trim may sit before
// it gets flagged.
const sourceEndSlack = 2

func (a *Analyzer) checkSourceEnd() []Issue {
	var issues []Issue

	for _, t := range a.video {
		for _, it := range timeline.Items(t) {
			if !it.HasMedia || !it.SourceFrames.Known || !it.RightOffset.Known {
				continue
			}
			if it.RightOffset.Value > sourceEndSlack {
				continue
			}
			issues = append(issues, Issue{
				Type:     TypeSourceEnd,
				Severity: SeverityInfo,
				Start:    it.Start,
				End:      it.End,
				Duration: it.Duration,
				Track:    t.Label(),
				Clip:     it.Name,
				Message: fmt.Sprintf("Clip at source end on %s: %q (right offset: %d frames)",
					t.Label(), it.Name, it.RightOffset.Value),
			})
		}
	}
	return issues
}

func sortByStart(ivs []timeline.Interval) {
	// Stable so equal starts keep track order.
	sort.SliceStable(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
}
