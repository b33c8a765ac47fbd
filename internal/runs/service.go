// Package runs orchestrates the two analysis pipelines over a host
// session: timeline QC and multitrack alignment. Each run reads the
// committed settings once, operates on snapshots only, and leaves a
// persistent run record with its rendered report.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cutroom/cutroom-agent/internal/align"
	"github.com/cutroom/cutroom-agent/internal/apperr"
	"github.com/cutroom/cutroom-agent/internal/host"
	"github.com/cutroom/cutroom-agent/internal/metrics"
	"github.com/cutroom/cutroom-agent/internal/qc"
	"github.com/cutroom/cutroom-agent/internal/report"
	"github.com/cutroom/cutroom-agent/internal/settings"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type Service struct {
	repo     Repository
	settings *settings.Store
	logger   *slog.Logger
}

func NewService(repo Repository, settingsStore *settings.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, settings: settingsStore, logger: logger}
}

// RunQC analyzes the session's current timeline and returns the
// completed run with its issues. Faults from the taxonomy are recorded
// on the run and returned; they never panic or abort the agent.
func (s *Service) RunQC(ctx context.Context, sess host.Session) (*Run, []qc.Issue, error) {
	cfg := s.settings.Current()
	run := s.newRun(KindQC, sess)
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return run, nil, err
	}

	info, err := sess.Timeline()
	if err != nil {
		return run, nil, s.fail(ctx, run, err)
	}
	run.Timeline = info.Name
	run.FrameRate = info.FrameRate

	video, err := sess.Tracks("video")
	if err != nil {
		return run, nil, s.fail(ctx, run, err)
	}
	audio, err := sess.Tracks("audio")
	if err != nil {
		return run, nil, s.fail(ctx, run, err)
	}

	s.logger.Info("analyzing timeline",
		"timeline", info.Name,
		"frame_rate", info.FrameRate,
		"video_tracks", len(video),
		"audio_tracks", len(audio),
	)

	issues := qc.New(cfg, info, video, audio).Run()
	summary := report.Summarize(issues)

	run.Errors = summary.Errors
	run.Warnings = summary.Warnings
	run.Infos = summary.Infos
	run.Report = report.Render(issues, info)
	run.Status = StatusCompleted

	if err := s.repo.UpdateRun(ctx, run); err != nil {
		return run, issues, err
	}
	if err := s.repo.InsertIssues(ctx, run.ID, report.Sort(issues)); err != nil {
		return run, issues, err
	}

	metrics.RunsTotal.WithLabelValues(KindQC, run.Status).Inc()
	metrics.IssuesTotal.WithLabelValues(string(qc.SeverityError)).Add(float64(summary.Errors))
	metrics.IssuesTotal.WithLabelValues(string(qc.SeverityWarning)).Add(float64(summary.Warnings))
	metrics.IssuesTotal.WithLabelValues(string(qc.SeverityInfo)).Add(float64(summary.Infos))

	if summary.Errors > 0 {
		s.logger.Warn("action required", "errors", summary.Errors)
	} else {
		s.logger.Info("timeline passed QC", "warnings", summary.Warnings, "infos", summary.Infos)
	}
	return run, issues, nil
}

// RunAlign matches the reference timeline's first audio track against
// the multitrack bin and places the results on the configured video
// track. binName selects the multitrack bin; empty means the
// deterministic default.
func (s *Service) RunAlign(ctx context.Context, sess host.Session, binName string) (*Run, align.Tally, error) {
	cfg := s.settings.Current()
	run := s.newRun(KindAlign, sess)
	var tally align.Tally
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return run, tally, err
	}

	info, err := sess.Timeline()
	if err != nil {
		return run, tally, s.fail(ctx, run, err)
	}
	run.Timeline = info.Name
	run.FrameRate = info.FrameRate

	bin, err := s.selectBin(sess, binName)
	if err != nil {
		return run, tally, s.fail(ctx, run, err)
	}
	s.logger.Info("selected multitrack bin", "bin", bin.Path, "clips", bin.ClipCount)

	clips, err := sess.BinClips(bin.Path)
	if err != nil {
		return run, tally, s.fail(ctx, run, err)
	}
	multitrack, noTC := align.BuildClips(clips, info.FrameRate, s.logger)
	if len(multitrack) == 0 {
		return run, tally, s.fail(ctx, run,
			fmt.Errorf("%w: no clips with valid timecode in bin %q", apperr.ErrPrecondition, bin.Name))
	}
	if noTC > 0 {
		s.logger.Warn("clips without timecode in bin", "count", noTC)
	}

	audio, err := sess.Tracks("audio")
	if err != nil {
		return run, tally, s.fail(ctx, run, err)
	}
	if len(audio) == 0 || len(audio[0].Items) == 0 {
		return run, tally, s.fail(ctx, run,
			fmt.Errorf("%w: no audio clips on track 1; is this the reference timeline?", apperr.ErrPrecondition))
	}

	refs := timeline.Items(audio[0])
	s.logger.Info("matching reference clips", "count", len(refs), "multitrack_clips", len(multitrack))

	directives, tally := align.Match(refs, multitrack, info.FrameRate, cfg.IgnorePrefixes, s.logger)
	run.Skipped = tally.SkippedByFilter + tally.SkippedNoMedia + tally.SkippedNoTimecode
	run.Unmatched = tally.Unmatched

	if len(directives) > 0 {
		if cfg.CreateNewTimeline {
			name := info.Name + cfg.NewTimelineSuffix
			if err := sess.CreateTimeline(name); err != nil {
				return run, tally, s.fail(ctx, run, err)
			}
			s.logger.Info("created timeline", "name", name)
		}

		placed, failed, err := align.Place(ctx, sess, directives, cfg.VideoTrackIndex, s.logger)
		tally.Placed = placed
		tally.PlaceFailed = failed
		if err != nil {
			return run, tally, s.fail(ctx, run, err)
		}

		if placed > 0 {
			// Park the playhead on the first placement for review.
			if err := sess.SetPlayhead(directives[0].TimelineStart); err != nil {
				s.logger.Warn("could not move playhead", "error", err)
			}
		}
	}

	run.Placed = tally.Placed
	run.Failed = tally.PlaceFailed
	run.Report = alignReport(sess.ProjectName(), info, tally)
	run.Status = StatusCompleted

	if err := s.repo.UpdateRun(ctx, run); err != nil {
		return run, tally, err
	}

	metrics.RunsTotal.WithLabelValues(KindAlign, run.Status).Inc()
	metrics.PlacementsTotal.WithLabelValues("placed").Add(float64(tally.Placed))
	metrics.PlacementsTotal.WithLabelValues("failed").Add(float64(tally.PlaceFailed))

	s.logger.Info("align run complete",
		"placed", tally.Placed,
		"skipped", run.Skipped,
		"unmatched", tally.Unmatched,
		"failed", tally.PlaceFailed,
	)
	return run, tally, nil
}

// GetRun returns one stored run, or nil when unknown.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.repo.ListRuns(ctx, limit)
}

// Issues returns the stored findings of a QC run in report order.
func (s *Service) Issues(ctx context.Context, runID string) ([]qc.Issue, error) {
	return s.repo.ListIssues(ctx, runID)
}

func (s *Service) newRun(kind string, sess host.Session) *Run {
	now := time.Now()
	return &Run{
		ID:        NewID(),
		Kind:      kind,
		Status:    StatusRunning,
		Project:   sess.ProjectName(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fail records the fault on the run and hands it back to the caller,
// who decides how to present it. Storage problems are logged, not
// layered on top of the original fault.
func (s *Service) fail(ctx context.Context, run *Run, cause error) error {
	run.Status = StatusFailed
	run.Error = cause.Error()
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		s.logger.Error("could not record failed run", "run_id", run.ID, "error", err)
	}
	metrics.RunsTotal.WithLabelValues(run.Kind, StatusFailed).Inc()
	s.logger.Error("run failed", "run_id", run.ID, "kind", run.Kind, "error", cause)
	return cause
}

// selectBin resolves the multitrack bin. An explicit name must exist;
// with no name the bin called TRACKS is used, case insensitively.
func (s *Service) selectBin(sess host.Session, name string) (host.Bin, error) {
	bins, err := sess.Bins()
	if err != nil {
		return host.Bin{}, err
	}

	if name == "" {
		for _, b := range bins {
			if strings.EqualFold(b.Name, host.DefaultMultitrackBin) {
				return b, nil
			}
		}
		return host.Bin{}, fmt.Errorf("%w: no bin named %q; rename your multitrack bin or pass one explicitly",
			apperr.ErrSelection, host.DefaultMultitrackBin)
	}

	for _, b := range bins {
		if b.Path == name || strings.EqualFold(b.Name, name) {
			return b, nil
		}
	}
	return host.Bin{}, fmt.Errorf("%w: bin %q not found", apperr.ErrSelection, name)
}

// IsFault reports whether err belongs to the run fault taxonomy, as
// opposed to an infrastructure error.
func IsFault(err error) bool {
	for _, target := range []error{
		apperr.ErrConnection, apperr.ErrPrecondition, apperr.ErrSelection,
		apperr.ErrData, apperr.ErrPlacement,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func alignReport(project string, info timeline.Info, tally align.Tally) string {
	order := []string{"Clips placed", "Skipped by filter", "No media link", "No timecode", "No TC match", "Placement failed"}
	values := map[string]int{
		"Clips placed":      tally.Placed,
		"Skipped by filter": tally.SkippedByFilter,
		"No media link":     tally.SkippedNoMedia,
		"No timecode":       tally.SkippedNoTimecode,
		"No TC match":       tally.Unmatched,
		"Placement failed":  tally.PlaceFailed,
	}
	return report.RenderAlign(project, info.Name, info.FrameRate, values, order)
}
