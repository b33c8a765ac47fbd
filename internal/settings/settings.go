// Package settings holds the flat key-value options blob that drives
// both the aligner and the QC checks. The file is only written at an
// explicit commit; a loaded value never changes under a running
// analysis.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Filename is the settings blob inside the agent data directory.
const Filename = "settings.json"

// Settings is the recognized option set. Unknown keys in the file are
// ignored; missing keys keep their defaults.
type Settings struct {
	VideoTrackIndex       int      `json:"video_track_index"`
	IgnorePrefixes        []string `json:"ignore_prefixes"`
	FlashFrameThreshold   int      `json:"flash_frame_threshold"`
	CheckAudioGaps        bool     `json:"check_audio_gaps"`
	MinAudioGapFrames     int      `json:"min_audio_gap_frames"`
	IgnoreTrackNames      []string `json:"ignore_track_names"`
	IgnoreAdjustmentClips bool     `json:"ignore_adjustment_clips"`
	CheckOfflineMedia     bool     `json:"check_offline_media"`
	CheckSourceEnd        bool     `json:"check_source_end"`
	CheckAudioOverlap     bool     `json:"check_audio_overlap"`
	CheckDisabledClips    bool     `json:"check_disabled_clips"`
	CreateNewTimeline     bool     `json:"create_new_timeline"`
	NewTimelineSuffix     string   `json:"new_timeline_suffix"`
}

// Default returns the option set the original workflow ships with.
func Default() Settings {
	return Settings{
		VideoTrackIndex:       1,
		IgnorePrefixes:        []string{"Sample", "Fade"},
		FlashFrameThreshold:   3,
		CheckAudioGaps:        true,
		MinAudioGapFrames:     2,
		IgnoreTrackNames:      []string{},
		IgnoreAdjustmentClips: true,
		CheckOfflineMedia:     true,
		CheckSourceEnd:        false,
		CheckAudioOverlap:     true,
		CheckDisabledClips:    true,
		CreateNewTimeline:     false,
		NewTimelineSuffix:     " - ALIGNED",
	}
}

// Validate checks option ranges before a commit is accepted.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.VideoTrackIndex, validation.Required, validation.Min(1), validation.Max(99)),
		validation.Field(&s.FlashFrameThreshold, validation.Min(0), validation.Max(1000)),
		validation.Field(&s.MinAudioGapFrames, validation.Min(0), validation.Max(100000)),
		validation.Field(&s.NewTimelineSuffix, validation.Length(0, 64)),
	)
}

// Load reads the settings blob at path. A missing file yields defaults;
// a malformed file is an error so a bad edit never silently degrades to
// defaults.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Default(), fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Save validates and commits the settings blob to path.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
