package api

import (
	"encoding/json"
	"time"

	"github.com/cutroom/cutroom-agent/internal/qc"
	"github.com/cutroom/cutroom-agent/internal/runs"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State     string       `json:"state"`
	LastError string       `json:"last_error,omitempty"`
	RunsTotal int          `json:"runs_total"`
	ActiveRun *RunResponse `json:"active_run,omitempty"`
	LastRun   *RunResponse `json:"last_run,omitempty"`
}

// QCRequest carries the project dump to analyze.
type QCRequest struct {
	Project json.RawMessage `json:"project"`
}

// AlignRequest carries the project dump plus an optional multitrack bin
// override; an empty bin means the default.
type AlignRequest struct {
	Project json.RawMessage `json:"project"`
	Bin     string          `json:"bin,omitempty"`
}

type RunResponse struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Status    string  `json:"status"`
	Project   string  `json:"project,omitempty"`
	Timeline  string  `json:"timeline,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
	Errors    int     `json:"errors"`
	Warnings  int     `json:"warnings"`
	Infos     int     `json:"infos"`
	Placed    int     `json:"placed"`
	Skipped   int     `json:"skipped"`
	Unmatched int     `json:"unmatched"`
	Failed    int     `json:"failed"`
	Error     string  `json:"error,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type IssuesResponse struct {
	Issues []qc.Issue `json:"issues"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RunToResponse(r *runs.Run) RunResponse {
	return RunResponse{
		ID:        r.ID,
		Kind:      r.Kind,
		Status:    r.Status,
		Project:   r.Project,
		Timeline:  r.Timeline,
		FrameRate: r.FrameRate,
		Errors:    r.Errors,
		Warnings:  r.Warnings,
		Infos:     r.Infos,
		Placed:    r.Placed,
		Skipped:   r.Skipped,
		Unmatched: r.Unmatched,
		Failed:    r.Failed,
		Error:     r.Error,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
}
