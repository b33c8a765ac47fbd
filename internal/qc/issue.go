package qc

// Severity ranks an issue for the report summary.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Type categorizes an issue. Values match the host-side vocabulary and
// are stored verbatim in run history.
type Type string

const (
	TypeVideoGap     Type = "VIDEO_GAP"
	TypeFlashFrame   Type = "FLASH_FRAME"
	TypeAudioOverlap Type = "AUDIO_OVERLAP"
	TypeAudioGap     Type = "AUDIO_GAP"
	TypeDisabledClip Type = "DISABLED_CLIP"
	TypeMutedTrack   Type = "MUTED_TRACK"
	TypeOfflineMedia Type = "OFFLINE_MEDIA"
	TypeSourceEnd    Type = "SOURCE_END"
)

// Issue is one QC finding. Issues are immutable once created and are
// never suppressed after the fact: false positives are handled by
// filtering the input snapshots, not by deleting findings.
type Issue struct {
	Type     Type     `json:"type"`
	Severity Severity `json:"severity"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Duration int      `json:"duration"`
	Track    string   `json:"track,omitempty"`
	Clip     string   `json:"clip,omitempty"`
	Message  string   `json:"message"`
}
