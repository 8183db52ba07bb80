package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"imgsim/internal/ledger"
	"imgsim/internal/scoring"
	"imgsim/internal/testsupport"
)

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("reopen ledger: %v", err)
	}
	defer reopened.Close()

	if reopened.Path() != cfg.LedgerPath() {
		t.Fatalf("path = %q, want %q", reopened.Path(), cfg.LedgerPath())
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := ledger.Run{
		ID:          "run-1",
		Stages:      []string{"extract", "index"},
		RootDir:     cfg.Paths.RootDir,
		StartedAt:   started,
		Collections: 2,
	}
	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	run.FinishedAt = started.Add(time.Minute)
	run.Completed = 1
	run.Failed = 1
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || got.Completed != 1 || got.Failed != 1 || got.Collections != 2 {
		t.Fatalf("unexpected run %+v", got)
	}
	if len(got.Stages) != 2 || got.Stages[1] != "index" {
		t.Fatalf("unexpected stages %v", got.Stages)
	}
	if !got.FinishedAt.Equal(run.FinishedAt) {
		t.Fatalf("finished_at = %v, want %v", got.FinishedAt, run.FinishedAt)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new"} {
		if err := store.StartRun(ctx, ledger.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}
	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Fatalf("expected newest run only, got %+v", runs)
	}
}

func TestStageRecordsAndCollectionStates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.StartRun(ctx, ledger.Run{ID: "run-1"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	records := []ledger.StageRecord{
		{RunID: "run-1", Collection: "07101", Stage: "extract", Outcome: "completed", CacheHit: true},
		{RunID: "run-1", Collection: "07101", Stage: "index", Outcome: "failed", Reason: "engine exited with status 2"},
	}
	for _, rec := range records {
		if err := store.RecordStage(ctx, rec); err != nil {
			t.Fatalf("RecordStage: %v", err)
		}
	}

	got, err := store.StageRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("StageRecords: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 stage records, got %d", len(got))
	}
	if !got[0].CacheHit || got[0].Reason != "" {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].Outcome != "failed" || got[1].Reason == "" {
		t.Fatalf("unexpected second record %+v", got[1])
	}

	state := ledger.CollectionState{RunID: "run-1", Collection: "07101", State: "extracted"}
	if err := store.RecordCollection(ctx, state); err != nil {
		t.Fatalf("RecordCollection: %v", err)
	}
	state.State = "failed"
	state.Reason = "index failed"
	if err := store.RecordCollection(ctx, state); err != nil {
		t.Fatalf("RecordCollection update: %v", err)
	}
	states, err := store.CollectionStates(ctx, "run-1")
	if err != nil {
		t.Fatalf("CollectionStates: %v", err)
	}
	if len(states) != 1 || states[0].State != "failed" || states[0].Reason != "index failed" {
		t.Fatalf("unexpected states %+v", states)
	}
}

func TestRecordScoresReplacesAndLatestScores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b"} {
		if err := store.StartRun(ctx, ledger.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
	}

	first := []scoring.Record{{RelatedImage: "x.jpg", CustomScore: 1}}
	if err := store.RecordScores(ctx, "run-a", "07101", "q.jpg", first); err != nil {
		t.Fatalf("RecordScores run-a: %v", err)
	}
	second := []scoring.Record{
		{RelatedImage: "b.jpg", CustomScore: 15, Title: "Harbour"},
		{RelatedImage: "c.jpg", CustomScore: 2},
	}
	if err := store.RecordScores(ctx, "run-b", "07101", "q.jpg", first); err != nil {
		t.Fatalf("RecordScores run-b: %v", err)
	}
	if err := store.RecordScores(ctx, "run-b", "07101", "q.jpg", second); err != nil {
		t.Fatalf("RecordScores run-b replace: %v", err)
	}

	set, err := store.LatestScores(ctx, "07101", "")
	if err != nil {
		t.Fatalf("LatestScores: %v", err)
	}
	if set.RunID != "run-b" || set.Query != "q.jpg" {
		t.Fatalf("unexpected set %+v", set)
	}
	if len(set.Records) != 2 || set.Records[0].RelatedImage != "b.jpg" || set.Records[0].Title != "Harbour" {
		t.Fatalf("unexpected records %+v", set.Records)
	}

	if _, err := store.LatestScores(ctx, "07101", "other.jpg"); !errors.Is(err, ledger.ErrNoScores) {
		t.Fatalf("expected ErrNoScores, got %v", err)
	}
}
