package host

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cutroom/cutroom-agent/internal/apperr"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// DefaultMultitrackBin is the bin auto-selected when the caller does not
// name one; the match is case insensitive.
const DefaultMultitrackBin = "TRACKS"

// projectDoc is the on-disk shape of a project dump.
type projectDoc struct {
	ProjectName string      `json:"project_name"`
	Timeline    timelineDoc `json:"timeline"`
	RootBin     binDoc      `json:"root_bin"`
}

type timelineDoc struct {
	Name        string     `json:"name"`
	FrameRate   float64    `json:"frame_rate"`
	StartFrame  int        `json:"start_frame"`
	EndFrame    int        `json:"end_frame"`
	StartTC     string     `json:"start_tc"`
	VideoTracks []trackDoc `json:"video_tracks"`
	AudioTracks []trackDoc `json:"audio_tracks"`
}

type trackDoc struct {
	Name    string    `json:"name"`
	Enabled *bool     `json:"enabled,omitempty"`
	Items   []itemDoc `json:"items"`
}

type itemDoc struct {
	Name        string `json:"name"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Duration    int    `json:"duration"`
	LeftOffset  int    `json:"left_offset"`
	RightOffset *int   `json:"right_offset,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
	Media       *Clip  `json:"media,omitempty"`
}

type binDoc struct {
	Name  string   `json:"name"`
	Clips []Clip   `json:"clips,omitempty"`
	Bins  []binDoc `json:"bins,omitempty"`
}

// ProjectFile is a Session backed by a project dump on disk. Mutations
// are applied to the in-memory graph and remembered, so a run's
// placements can be inspected afterwards or written back out.
type ProjectFile struct {
	path string
	doc  projectDoc

	// placements records every accepted Append in call order.
	placements []Placement
	playhead   int
}

// LoadProject reads and decodes a project dump. A missing or malformed
// file is a connection-class fault: the host is simply not there.
func LoadProject(path string) (*ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrConnection, path, err)
	}

	var doc projectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperr.ErrConnection, path, err)
	}

	return &ProjectFile{path: path, doc: doc}, nil
}

// ParseProject decodes a project dump from raw JSON, for callers that
// receive the dump over the API rather than from disk.
func ParseProject(data []byte) (*ProjectFile, error) {
	var doc projectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode project dump: %v", apperr.ErrConnection, err)
	}
	return &ProjectFile{doc: doc}, nil
}

func (p *ProjectFile) ProjectName() string {
	return p.doc.ProjectName
}

func (p *ProjectFile) Timeline() (timeline.Info, error) {
	tl := p.doc.Timeline
	if tl.Name == "" {
		return timeline.Info{}, fmt.Errorf("%w: no timeline open", apperr.ErrPrecondition)
	}
	return timeline.Info{
		Name:       tl.Name,
		FrameRate:  tl.FrameRate,
		StartFrame: tl.StartFrame,
		EndFrame:   tl.EndFrame,
		StartTC:    tl.StartTC,
	}, nil
}

func (p *ProjectFile) Bins() ([]Bin, error) {
	var bins []Bin
	collectBins(&p.doc.RootBin, "", &bins)
	if len(bins) == 0 {
		return nil, fmt.Errorf("%w: no bins with clips", apperr.ErrPrecondition)
	}
	return bins, nil
}

func collectBins(b *binDoc, parent string, out *[]Bin) {
	path := b.Name
	if parent != "" {
		path = parent + "/" + b.Name
	}
	if len(b.Clips) > 0 {
		*out = append(*out, Bin{Name: b.Name, Path: path, ClipCount: len(b.Clips)})
	}
	for i := range b.Bins {
		collectBins(&b.Bins[i], path, out)
	}
}

func (p *ProjectFile) BinClips(path string) ([]Clip, error) {
	b := p.findBin(&p.doc.RootBin, "", path)
	if b == nil {
		return nil, fmt.Errorf("%w: bin %q not found", apperr.ErrSelection, path)
	}
	return b.Clips, nil
}

func (p *ProjectFile) findBin(b *binDoc, parent, want string) *binDoc {
	path := b.Name
	if parent != "" {
		path = parent + "/" + b.Name
	}
	if path == want || b.Name == want {
		return b
	}
	for i := range b.Bins {
		if found := p.findBin(&b.Bins[i], path, want); found != nil {
			return found
		}
	}
	return nil
}

func (p *ProjectFile) Tracks(kind string) ([]timeline.Track, error) {
	docs, err := p.trackDocs(kind)
	if err != nil {
		return nil, err
	}

	tracks := make([]timeline.Track, 0, len(*docs))
	for i, td := range *docs {
		track := timeline.Track{
			Kind:    kind,
			Index:   i + 1,
			Name:    td.Name,
			Enabled: td.Enabled == nil || *td.Enabled,
		}
		for _, it := range td.Items {
			item := timeline.Item{
				Name:       it.Name,
				Start:      it.Start,
				End:        it.End,
				Duration:   it.Duration,
				LeftOffset: it.LeftOffset,
			}
			if it.RightOffset != nil {
				item.RightOffset = timeline.OptInt{Known: true, Value: *it.RightOffset}
			}
			if it.Enabled != nil {
				item.Enabled = timeline.OptBool{Known: true, Value: *it.Enabled}
			}
			if it.Media != nil {
				item.HasMedia = true
				item.SourceTC = it.Media.StartTC
				item.FilePath = it.Media.FilePath
				if it.Media.Frames > 0 {
					item.SourceFrames = timeline.OptInt{Known: true, Value: it.Media.Frames}
				}
				if it.Media.Offline {
					item.FilePath = ""
				}
			}
			track.Items = append(track.Items, item)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (p *ProjectFile) TrackCount(kind string) int {
	docs, err := p.trackDocs(kind)
	if err != nil {
		return 0
	}
	return len(*docs)
}

func (p *ProjectFile) AddTrack(kind string) error {
	docs, err := p.trackDocs(kind)
	if err != nil {
		return err
	}
	label := "V"
	if kind == "audio" {
		label = "A"
	}
	*docs = append(*docs, trackDoc{Name: fmt.Sprintf("%s%d", label, len(*docs)+1)})
	return nil
}

func (p *ProjectFile) trackDocs(kind string) (*[]trackDoc, error) {
	switch kind {
	case "video":
		return &p.doc.Timeline.VideoTracks, nil
	case "audio":
		return &p.doc.Timeline.AudioTracks, nil
	default:
		return nil, fmt.Errorf("%w: unknown track kind %q", apperr.ErrData, kind)
	}
}

// CreateTimeline replaces the current timeline with an empty one that
// copies its frame rate, bounds origin and start timecode.
func (p *ProjectFile) CreateTimeline(name string) error {
	cur := p.doc.Timeline
	if cur.Name == "" {
		return fmt.Errorf("%w: no timeline to copy settings from", apperr.ErrPrecondition)
	}
	p.doc.Timeline = timelineDoc{
		Name:       name,
		FrameRate:  cur.FrameRate,
		StartFrame: cur.StartFrame,
		EndFrame:   cur.StartFrame,
		StartTC:    cur.StartTC,
	}
	return nil
}

func (p *ProjectFile) Append(ctx context.Context, pl Placement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clip := p.findClip(&p.doc.RootBin, pl.ClipName)
	if clip == nil {
		return fmt.Errorf("%w: clip %q not in media pool", apperr.ErrPlacement, pl.ClipName)
	}
	if pl.TrackIndex < 1 || pl.TrackIndex > len(p.doc.Timeline.VideoTracks) {
		return fmt.Errorf("%w: video track %d does not exist", apperr.ErrPlacement, pl.TrackIndex)
	}
	if pl.EndFrame <= pl.StartFrame {
		return fmt.Errorf("%w: empty source range for %q", apperr.ErrPlacement, pl.ClipName)
	}

	duration := pl.EndFrame - pl.StartFrame
	track := &p.doc.Timeline.VideoTracks[pl.TrackIndex-1]
	track.Items = append(track.Items, itemDoc{
		Name:       clip.Name,
		Start:      pl.RecordFrame,
		End:        pl.RecordFrame + duration,
		Duration:   duration,
		LeftOffset: pl.StartFrame,
		Media:      clip,
	})
	if end := pl.RecordFrame + duration; end > p.doc.Timeline.EndFrame {
		p.doc.Timeline.EndFrame = end
	}

	p.placements = append(p.placements, pl)
	return nil
}

func (p *ProjectFile) findClip(b *binDoc, name string) *Clip {
	for i := range b.Clips {
		if b.Clips[i].Name == name {
			return &b.Clips[i]
		}
	}
	for i := range b.Bins {
		if c := p.findClip(&b.Bins[i], name); c != nil {
			return c
		}
	}
	return nil
}

func (p *ProjectFile) SetPlayhead(frame int) error {
	if frame < 0 {
		frame = 0
	}
	p.playhead = frame
	return nil
}

// Playhead reports the current timecode position set by the last run.
func (p *ProjectFile) Playhead() int {
	return p.playhead
}

// Placements returns every placement accepted so far, in call order.
func (p *ProjectFile) Placements() []Placement {
	return p.placements
}

// Save writes the mutated project graph back to the dump it was loaded
// from, for the host side to replay.
func (p *ProjectFile) Save() error {
	if p.path == "" {
		return fmt.Errorf("%w: project was not loaded from a file", apperr.ErrConnection)
	}
	data, err := json.MarshalIndent(p.doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0644)
}
