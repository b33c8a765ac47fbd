package qc

import (
	"reflect"
	"testing"

	"github.com/cutroom/cutroom-agent/internal/settings"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

func item(name string, start, end int) timeline.Item {
	return timeline.Item{
		Name:     name,
		Start:    start,
		End:      end,
		Duration: end - start,
		HasMedia: true,
		FilePath: "/media/" + name,
	}
}

func videoTrack(index int, items ...timeline.Item) timeline.Track {
	return timeline.Track{Kind: "video", Index: index, Name: "", Enabled: true, Items: items}
}

func audioTrack(index int, items ...timeline.Item) timeline.Track {
	return timeline.Track{Kind: "audio", Index: index, Name: "", Enabled: true, Items: items}
}

func analyzer(cfg settings.Settings, info timeline.Info, video, audio []timeline.Track) *Analyzer {
	a := New(cfg, info, video, audio)
	a.fileExists = func(string) bool { return true }
	return a
}

func issuesOfType(issues []Issue, typ Type) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Type == typ {
			out = append(out, is)
		}
	}
	return out
}

func TestVideoGaps_MergeAndScan(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 500, FrameRate: 25}
	video := []timeline.Track{videoTrack(1,
		item("a", 0, 100), item("b", 100, 250), item("c", 400, 500),
	)}

	issues := analyzer(settings.Default(), info, video, nil).Run()
	gaps := issuesOfType(issues, TypeVideoGap)

	if len(gaps) != 1 {
		t.Fatalf("got %d gap issues, want exactly 1: %+v", len(gaps), gaps)
	}
	g := gaps[0]
	if g.Start != 250 || g.End != 400 || g.Duration != 150 {
		t.Fatalf("gap = {%d %d %d}, want {250 400 150}", g.Start, g.End, g.Duration)
	}
	if g.Severity != SeverityError {
		t.Fatalf("inter-clip gap severity = %s, want ERROR", g.Severity)
	}
}

func TestVideoGaps_StartAndEnd(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 300}
	video := []timeline.Track{videoTrack(1, item("a", 50, 200))}

	gaps := issuesOfType(analyzer(settings.Default(), info, video, nil).Run(), TypeVideoGap)
	if len(gaps) != 2 {
		t.Fatalf("got %d gaps, want start + end: %+v", len(gaps), gaps)
	}
	if gaps[0].Start != 0 || gaps[0].Severity != SeverityError {
		t.Fatalf("start gap = %+v, want ERROR at 0", gaps[0])
	}
	if gaps[1].Start != 200 || gaps[1].Severity != SeverityWarning {
		t.Fatalf("end gap = %+v, want WARNING at 200", gaps[1])
	}
}

func TestVideoGaps_NoClipsAtAll(t *testing.T) {
	info := timeline.Info{StartFrame: 100, EndFrame: 600}

	gaps := issuesOfType(analyzer(settings.Default(), info, []timeline.Track{videoTrack(1)}, nil).Run(), TypeVideoGap)
	if len(gaps) != 1 {
		t.Fatalf("got %d issues, want 1", len(gaps))
	}
	g := gaps[0]
	if g.Severity != SeverityError || g.Start != 100 || g.End != 600 || g.Duration != 500 {
		t.Fatalf("empty-timeline issue = %+v", g)
	}
}

func TestVideoGaps_CrossTrackCoverage(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 200}
	video := []timeline.Track{
		videoTrack(1, item("a", 0, 120)),
		videoTrack(2, item("b", 100, 200)),
	}

	gaps := issuesOfType(analyzer(settings.Default(), info, video, nil).Run(), TypeVideoGap)
	if len(gaps) != 0 {
		t.Fatalf("tracks jointly cover the timeline, got %+v", gaps)
	}
}

func TestFlashFrames_StrictThreshold(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 100}
	video := []timeline.Track{videoTrack(1,
		item("cover", 0, 95),
		item("short", 95, 97),  // duration 2 < 3
		item("exact", 97, 100), // duration 3, not flagged
	)}

	flashes := issuesOfType(analyzer(settings.Default(), info, video, nil).Run(), TypeFlashFrame)
	if len(flashes) != 1 {
		t.Fatalf("got %d flash issues, want 1: %+v", len(flashes), flashes)
	}
	f := flashes[0]
	if f.Clip != "short" || f.Severity != SeverityWarning || f.Track != "V1" {
		t.Fatalf("flash issue = %+v", f)
	}
}

func TestFlashFrames_AudioPrefixExcluded(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 100}
	video := []timeline.Track{videoTrack(1, item("Sample short", 0, 2), item("cover", 2, 100))}
	audio := []timeline.Track{audioTrack(1, item("Sample short", 0, 2))}

	flashes := issuesOfType(analyzer(settings.Default(), info, video, audio).Run(), TypeFlashFrame)
	if len(flashes) != 1 || flashes[0].Track != "V1" {
		// Prefix filtering applies to audio, not to video coverage items.
		t.Fatalf("flash issues = %+v, want only the V1 clip", flashes)
	}
}

func TestSameTrackAudioOverlap(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 100}
	video := []timeline.Track{videoTrack(1, item("cover", 0, 100))}
	audio := []timeline.Track{audioTrack(1, item("a", 0, 60), item("b", 50, 100))}

	overlaps := issuesOfType(analyzer(settings.Default(), info, video, audio).Run(), TypeAudioOverlap)
	if len(overlaps) != 1 {
		t.Fatalf("got %d overlaps, want 1: %+v", len(overlaps), overlaps)
	}
	o := overlaps[0]
	if o.Start != 50 || o.End != 60 || o.Duration != 10 || o.Severity != SeverityError {
		t.Fatalf("overlap = %+v", o)
	}
}

func TestCrossTrackOverlap_Dedupe(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 100}
	video := []timeline.Track{videoTrack(1, item("cover", 0, 100))}
	audio := []timeline.Track{
		audioTrack(1, item("a", 0, 20)),
		audioTrack(2, item("b", 10, 30)),
	}

	overlaps := issuesOfType(analyzer(settings.Default(), info, video, audio).Run(), TypeAudioOverlap)
	if len(overlaps) != 1 {
		t.Fatalf("overlap [10,20] across A1/A2 must yield exactly one issue, got %+v", overlaps)
	}
	o := overlaps[0]
	if o.Start != 10 || o.End != 20 || o.Severity != SeverityWarning {
		t.Fatalf("cross-track overlap = %+v", o)
	}
}

func TestAudioGaps(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 200}
	video := []timeline.Track{videoTrack(1, item("cover", 0, 200))}
	audio := []timeline.Track{audioTrack(1,
		item("a", 0, 50),
		item("b", 51, 100), // gap 1 < 2, ignored
		item("c", 110, 200),
	)}

	gaps := issuesOfType(analyzer(settings.Default(), info, video, audio).Run(), TypeAudioGap)
	if len(gaps) != 1 {
		t.Fatalf("got %d audio gaps, want 1: %+v", len(gaps), gaps)
	}
	g := gaps[0]
	if g.Start != 100 || g.End != 110 || g.Duration != 10 || g.Severity != SeverityInfo {
		t.Fatalf("audio gap = %+v", g)
	}
}

func TestAudioGaps_IgnoredTrackName(t *testing.T) {
	cfg := settings.Default()
	cfg.IgnoreTrackNames = []string{"Music"}

	info := timeline.Info{StartFrame: 0, EndFrame: 200}
	video := []timeline.Track{videoTrack(1, item("cover", 0, 200))}
	music := audioTrack(1, item("a", 0, 50), item("b", 150, 200))
	music.Name = "Music"

	gaps := issuesOfType(analyzer(cfg, info, video, []timeline.Track{music}).Run(), TypeAudioGap)
	if len(gaps) != 0 {
		t.Fatalf("ignored track must produce no gap issues: %+v", gaps)
	}
}

func TestDisabledAndMuted(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 100}

	disabled := item("off", 0, 50)
	disabled.Enabled = timeline.OptBool{Known: true, Value: false}
	unknown := item("mystery", 50, 100)

	video := []timeline.Track{videoTrack(1, disabled, unknown, item("cover", 0, 100))}
	muted := audioTrack(1, item("a", 0, 100))
	muted.Enabled = false

	issues := analyzer(settings.Default(), info, video, []timeline.Track{muted}).Run()

	dis := issuesOfType(issues, TypeDisabledClip)
	if len(dis) != 1 || dis[0].Clip != "off" || dis[0].Severity != SeverityInfo {
		t.Fatalf("disabled issues = %+v", dis)
	}

	mut := issuesOfType(issues, TypeMutedTrack)
	if len(mut) != 1 || mut[0].Track != "A1" || mut[0].Severity != SeverityWarning {
		t.Fatalf("muted issues = %+v", mut)
	}
}

func TestOfflineMedia(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 100}

	missing := item("gone", 0, 50)
	missing.FilePath = "/media/missing.mov"
	empty := item("pathless", 50, 100)
	empty.FilePath = ""

	a := New(settings.Default(), info, []timeline.Track{videoTrack(1, missing, empty, item("cover", 0, 100))}, nil)
	a.fileExists = func(path string) bool { return path == "/media/cover" }

	offline := issuesOfType(a.Run(), TypeOfflineMedia)
	if len(offline) != 2 {
		t.Fatalf("got %d offline issues, want 2: %+v", len(offline), offline)
	}
	for _, o := range offline {
		if o.Severity != SeverityError {
			t.Fatalf("offline severity = %s, want ERROR", o.Severity)
		}
	}
}

func TestSourceEnd_OptIn(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 100}

	trimmed := item("tail", 0, 100)
	trimmed.SourceFrames = timeline.OptInt{Known: true, Value: 500}
	trimmed.RightOffset = timeline.OptInt{Known: true, Value: 1}
	video := []timeline.Track{videoTrack(1, trimmed)}

	// Default off.
	if got := issuesOfType(analyzer(settings.Default(), info, video, nil).Run(), TypeSourceEnd); len(got) != 0 {
		t.Fatalf("source-end check must be opt-in, got %+v", got)
	}

	cfg := settings.Default()
	cfg.CheckSourceEnd = true
	got := issuesOfType(analyzer(cfg, info, video, nil).Run(), TypeSourceEnd)
	if len(got) != 1 || got[0].Severity != SeverityInfo {
		t.Fatalf("source-end issues = %+v", got)
	}
}

func TestSourceEnd_UnknownPropertiesSkipped(t *testing.T) {
	cfg := settings.Default()
	cfg.CheckSourceEnd = true
	info := timeline.Info{StartFrame: 0, EndFrame: 100}

	noOffset := item("no-offset", 0, 100)
	noOffset.SourceFrames = timeline.OptInt{Known: true, Value: 500}

	got := issuesOfType(analyzer(cfg, info, []timeline.Track{videoTrack(1, noOffset)}, nil).Run(), TypeSourceEnd)
	if len(got) != 0 {
		t.Fatalf("item with unknown right offset must be skipped, got %+v", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	info := timeline.Info{StartFrame: 0, EndFrame: 500}
	video := []timeline.Track{videoTrack(1, item("a", 0, 100), item("b", 95, 97), item("c", 400, 500))}
	audio := []timeline.Track{
		audioTrack(1, item("x", 0, 60), item("y", 50, 200)),
		audioTrack(2, item("z", 55, 300)),
	}

	a := analyzer(settings.Default(), info, video, audio)
	first := a.Run()
	second := a.Run()

	if !reflect.DeepEqual(first, second) {
		t.Fatal("two runs over unchanged snapshots must produce identical issue lists")
	}
	if len(first) == 0 {
		t.Fatal("scenario should produce issues")
	}
}
