package runs

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindQC    = "qc"
	KindAlign = "align"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one align or QC pass over a project, as stored in history.
type Run struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Status    string  `json:"status"`
	Project   string  `json:"project,omitempty"`
	Timeline  string  `json:"timeline,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`

	// QC severity counts.
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`

	// Align accounting.
	Placed    int `json:"placed"`
	Skipped   int `json:"skipped"`
	Unmatched int `json:"unmatched"`
	Failed    int `json:"failed"`

	Report    string    `json:"-"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewID() string {
	return uuid.NewString()
}
