// Package align matches reference audio clips against multitrack source
// recordings by timecode and places the matching video on the timeline.
// The reference timeline's first audio track carries the editorial truth:
// each item's source in-point, resolved to an absolute source frame,
// must fall inside exactly one multitrack clip's timecode span.
package align

import (
	"context"
	"log/slog"
	"sort"

	"github.com/cutroom/cutroom-agent/internal/host"
	"github.com/cutroom/cutroom-agent/internal/timecode"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// MultitrackClip is one long-form source recording and the absolute
// source timecode span it covers. Immutable for the duration of a run.
type MultitrackClip struct {
	Name    string
	TCStart int
	TCEnd   int
}

// Directive asks for one placement: the matched multitrack clip, where
// it goes on the timeline, and how far into the source it starts.
type Directive struct {
	ClipName      string
	RefName       string
	TimelineStart int
	Duration      int
	SourceOffset  int
	SourceTC      string
}

// Tally accounts for every reference clip: each one lands in exactly
// one bucket.
type Tally struct {
	Matched           int `json:"matched"`
	SkippedByFilter   int `json:"skipped_by_filter"`
	SkippedNoMedia    int `json:"skipped_no_media"`
	SkippedNoTimecode int `json:"skipped_no_timecode"`
	Unmatched         int `json:"unmatched"`
	Placed            int `json:"placed"`
	PlaceFailed       int `json:"place_failed"`
}

// BuildClips converts bin clips into multitrack spans, parsing their
// declared start/end timecode at the timeline rate. Clips without a
// usable timecode are dropped and counted, never fatal.
func BuildClips(clips []host.Clip, rate float64, logger *slog.Logger) ([]MultitrackClip, int) {
	var out []MultitrackClip
	skipped := 0

	for _, c := range clips {
		start, okStart := timecode.Parse(c.StartTC, rate)
		end, okEnd := timecode.Parse(c.EndTC, rate)
		if !okStart || !okEnd {
			skipped++
			if logger != nil {
				logger.Warn("multitrack clip has no usable timecode", "clip", c.Name)
			}
			continue
		}
		out = append(out, MultitrackClip{Name: c.Name, TCStart: start, TCEnd: end})
	}
	return out, skipped
}

// Match resolves each reference audio item to a placement directive.
// Directives come back sorted by timeline start so placement follows the
// original editorial order, not matching order.
func Match(refs []timeline.Item, clips []MultitrackClip, rate float64, ignorePrefixes []string, logger *slog.Logger) ([]Directive, Tally) {
	var tally Tally
	var directives []Directive

	// Containment lookups run against the clip spans in declared order;
	// with overlapping recordings the first listed clip wins.
	spans := make([]timeline.Interval, len(clips))
	for i, c := range clips {
		spans[i] = timeline.Interval{Name: c.Name, Start: c.TCStart, End: c.TCEnd}
	}

	skipByPrefix := timeline.PrefixFilter(ignorePrefixes)

	for _, ref := range refs {
		if skipByPrefix(ref) {
			tally.SkippedByFilter++
			if logger != nil {
				logger.Info("skipped by prefix", "clip", ref.Name)
			}
			continue
		}
		if !ref.HasMedia {
			tally.SkippedNoMedia++
			continue
		}

		startFrames, ok := timecode.Parse(ref.SourceTC, rate)
		if !ok {
			tally.SkippedNoTimecode++
			continue
		}
		sourceFrame := startFrames + ref.LeftOffset

		span, found := timeline.FindContaining(sourceFrame, spans)
		if !found {
			tally.Unmatched++
			if logger != nil {
				logger.Warn("no multitrack match", "clip", ref.Name, "source_tc", timecode.Format(sourceFrame, rate))
			}
			continue
		}

		tally.Matched++
		directives = append(directives, Directive{
			ClipName:      span.Name,
			RefName:       ref.Name,
			TimelineStart: ref.Start,
			Duration:      ref.Duration,
			SourceOffset:  sourceFrame - span.Start,
			SourceTC:      timecode.Format(sourceFrame, rate),
		})
		if logger != nil {
			logger.Info("matched", "clip", ref.Name, "multitrack", span.Name)
		}
	}

	sort.SliceStable(directives, func(i, j int) bool {
		return directives[i].TimelineStart < directives[j].TimelineStart
	})
	return directives, tally
}

// Place appends every directive to the target video track, creating
// tracks up to the configured index first. A rejected append is counted
// and the remaining directives are still attempted.
func Place(ctx context.Context, sess host.Session, directives []Directive, trackIndex int, logger *slog.Logger) (placed, failed int, err error) {
	for sess.TrackCount("video") < trackIndex {
		if err := sess.AddTrack("video"); err != nil {
			return 0, 0, err
		}
	}

	for _, d := range directives {
		p := host.Placement{
			ClipName:    d.ClipName,
			TrackIndex:  trackIndex,
			StartFrame:  d.SourceOffset,
			EndFrame:    d.SourceOffset + d.Duration,
			RecordFrame: d.TimelineStart,
		}
		if err := sess.Append(ctx, p); err != nil {
			if ctx.Err() != nil {
				return placed, failed, ctx.Err()
			}
			failed++
			if logger != nil {
				logger.Warn("placement rejected", "clip", d.ClipName, "ref", d.RefName, "error", err)
			}
			continue
		}
		placed++
		if logger != nil {
			logger.Info("placed", "clip", d.ClipName, "record_frame", d.TimelineStart)
		}
	}
	return placed, failed, nil
}
