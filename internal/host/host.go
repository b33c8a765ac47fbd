// Package host is the boundary to the NLE. The agent never talks to a
// live scripting API; it consumes a project dump (the JSON export of the
// host's project, timeline and media pool object graph) and applies
// mutations to that graph, which the host side replays.
package host

import (
	"context"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// Clip is one media pool clip as declared by the host.
type Clip struct {
	Name     string `json:"name"`
	StartTC  string `json:"start_tc"`
	EndTC    string `json:"end_tc"`
	FilePath string `json:"file_path"`
	Frames   int    `json:"frames"`
	Offline  bool   `json:"offline"`
}

// Bin is a media pool folder that contains at least one clip.
type Bin struct {
	Name      string
	Path      string
	ClipCount int
}

// Placement asks the host to append one source clip to a timeline track.
// StartFrame/EndFrame are offsets into the source clip; RecordFrame is
// the destination timeline position.
type Placement struct {
	ClipName    string `json:"clip_name"`
	TrackIndex  int    `json:"track_index"`
	StartFrame  int    `json:"start_frame"`
	EndFrame    int    `json:"end_frame"`
	RecordFrame int    `json:"record_frame"`
}

// Session exposes the host capabilities the engines consume and the
// mutations they hand back. Implementations must be safe to drive from
// a single goroutine per run.
type Session interface {
	ProjectName() string

	// Timeline describes the current timeline. Returns
	// apperr.ErrPrecondition when none is open.
	Timeline() (timeline.Info, error)

	// Bins enumerates media pool folders recursively, keeping only
	// those with clips, in depth-first order.
	Bins() ([]Bin, error)

	// BinClips lists the clips of the bin at the given path.
	BinClips(path string) ([]Clip, error)

	// Tracks returns snapshots of all tracks of the given kind
	// ("video" or "audio"), 1-based, in index order.
	Tracks(kind string) ([]timeline.Track, error)

	// TrackCount reports the number of tracks of the given kind.
	TrackCount(kind string) int

	// AddTrack appends a new track of the given kind.
	AddTrack(kind string) error

	// CreateTimeline makes a new empty timeline with the current
	// timeline's rate and start timecode and switches to it.
	CreateTimeline(name string) error

	// Append places a source clip on the current timeline. A rejected
	// append returns apperr.ErrPlacement.
	Append(ctx context.Context, p Placement) error

	// SetPlayhead moves the current timecode position.
	SetPlayhead(frame int) error
}
