package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEngineInvocation(t *testing.T) {
	before := testutil.ToFloat64(EngineInvocationsTotal.WithLabelValues("extract", EngineOK))

	RecordEngineInvocation("extract", EngineOK, 250*time.Millisecond)

	after := testutil.ToFloat64(EngineInvocationsTotal.WithLabelValues("extract", EngineOK))
	if after != before+1 {
		t.Fatalf("expected counter to increment by one, got %v -> %v", before, after)
	}
}

func TestRecordCacheHitAndStageOutcome(t *testing.T) {
	beforeHit := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("index"))
	beforeOutcome := testutil.ToFloat64(StageOutcomesTotal.WithLabelValues("index", "skipped"))

	RecordCacheHit("index")
	RecordStageOutcome("index", "skipped")

	if got := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("index")); got != beforeHit+1 {
		t.Fatalf("cache hits = %v, want %v", got, beforeHit+1)
	}
	if got := testutil.ToFloat64(StageOutcomesTotal.WithLabelValues("index", "skipped")); got != beforeOutcome+1 {
		t.Fatalf("stage outcomes = %v, want %v", got, beforeOutcome+1)
	}
}

func TestRecordScoreRecords(t *testing.T) {
	beforeEmitted := testutil.ToFloat64(ScoreRecordsTotal.WithLabelValues("emitted"))
	beforeFiltered := testutil.ToFloat64(ScoreRecordsTotal.WithLabelValues("filtered"))

	RecordScoreRecords(3, 2, 0)

	if got := testutil.ToFloat64(ScoreRecordsTotal.WithLabelValues("emitted")); got != beforeEmitted+3 {
		t.Fatalf("emitted = %v, want %v", got, beforeEmitted+3)
	}
	if got := testutil.ToFloat64(ScoreRecordsTotal.WithLabelValues("filtered")); got != beforeFiltered+2 {
		t.Fatalf("filtered = %v, want %v", got, beforeFiltered+2)
	}
}

func TestWriteTextfile(t *testing.T) {
	RecordCollection("rendered")
	path := filepath.Join(t.TempDir(), "nested", "imgsim.prom")

	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "imgsim_collections_total") {
		t.Fatalf("expected collections metric in textfile, got:\n%s", data)
	}
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	if err := WriteTextfile(""); err != nil {
		t.Fatalf("expected no-op for empty path, got %v", err)
	}
}
