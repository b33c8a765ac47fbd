package runs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cutroom/cutroom-agent/internal/db"
	"github.com/cutroom/cutroom-agent/internal/qc"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func TestRunRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	run := &Run{
		ID:        NewID(),
		Kind:      KindQC,
		Status:    StatusCompleted,
		Project:   "Doc Cut",
		Timeline:  "Reel 1",
		FrameRate: 25,
		Errors:    2,
		Warnings:  1,
		Report:    "report body",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() returned nil for stored run")
	}
	if got.Kind != KindQC || got.Project != "Doc Cut" || got.Errors != 2 || got.Report != "report body" {
		t.Errorf("GetRun() = %+v", got)
	}

	got.Status = StatusFailed
	got.Error = "host went away"
	if err := repo.UpdateRun(ctx, got); err != nil {
		t.Fatalf("UpdateRun() error = %v", err)
	}
	updated, err := repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() after update error = %v", err)
	}
	if updated.Status != StatusFailed || updated.Error != "host went away" {
		t.Errorf("updated run = %+v", updated)
	}
}

func TestGetRunUnknown(t *testing.T) {
	repo := testRepo(t)
	got, err := repo.GetRun(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetRun(unknown) = %+v, want nil", got)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		run := &Run{
			ID:        NewID(),
			Kind:      KindAlign,
			Status:    StatusCompleted,
			Project:   "p",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
	}

	runs, err := repo.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns(2) returned %d runs", len(runs))
	}
	if !runs[0].CreatedAt.After(runs[1].CreatedAt) {
		t.Errorf("runs not newest first: %v then %v", runs[0].CreatedAt, runs[1].CreatedAt)
	}
}

func TestIssuesRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	run := &Run{ID: NewID(), Kind: KindQC, Status: StatusCompleted, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	issues := []qc.Issue{
		{Type: qc.TypeVideoGap, Severity: qc.SeverityError, Start: 100, End: 150, Duration: 50, Track: "V1", Message: "gap"},
		{Type: qc.TypeFlashFrame, Severity: qc.SeverityWarning, Start: 200, End: 202, Duration: 2, Track: "V1", Clip: "flash", Message: "short clip"},
	}
	if err := repo.InsertIssues(ctx, run.ID, issues); err != nil {
		t.Fatalf("InsertIssues() error = %v", err)
	}

	got, err := repo.ListIssues(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListIssues() returned %d issues, want 2", len(got))
	}
	if got[0].Type != qc.TypeVideoGap || got[0].Start != 100 || got[0].Track != "V1" {
		t.Errorf("issue[0] = %+v", got[0])
	}
	if got[1].Severity != qc.SeverityWarning || got[1].Clip != "flash" {
		t.Errorf("issue[1] = %+v", got[1])
	}

	other, err := repo.ListIssues(ctx, "other-run")
	if err != nil {
		t.Fatalf("ListIssues(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListIssues(other) = %+v, want empty", other)
	}
}

func TestConfigUpsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	got, err := repo.GetConfig(ctx, "auth_token")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got != "" {
		t.Errorf("GetConfig(unset) = %q, want empty", got)
	}

	if err := repo.SetConfig(ctx, "auth_token", "abc"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "def"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}

	got, err = repo.GetConfig(ctx, "auth_token")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got != "def" {
		t.Errorf("GetConfig() = %q, want %q", got, "def")
	}
}
