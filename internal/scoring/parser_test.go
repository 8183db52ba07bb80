package scoring_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"imgsim/internal/groundtruth"
	"imgsim/internal/logging"
	"imgsim/internal/metadata"
	"imgsim/internal/scoring"
	"imgsim/internal/services"
	"imgsim/internal/testsupport"
)

const traceHeader = "# match trace\nindex matched inliers weight lthr gthr gscore score\n"

func pairsFor(query string, candidates ...string) []groundtruth.Pair {
	row := groundtruth.Row{Query: query, Matches: candidates}
	return row.Pairs()
}

func TestParseScenarioFiltersZeroScore(t *testing.T) {
	trace := traceHeader +
		"0 10 8 1.0 0.5 0.5 0.5 1.0\n" +
		"1 5 2 0.0 0.5 0.5 0.0 0.0\n"
	parser := scoring.NewParser(logging.NewNop())

	records, stats, err := parser.Parse(context.Background(), strings.NewReader(trace), pairsFor("A.jpg", "B.jpg", "C.jpg"), nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	rec := records[0]
	if rec.CustomScore != 15.0 {
		t.Fatalf("custom score = %v, want 15.0", rec.CustomScore)
	}
	if rec.QueryImage != "A.jpg" || rec.RelatedImage != "B.jpg" {
		t.Fatalf("unexpected pair %q -> %q", rec.QueryImage, rec.RelatedImage)
	}
	if stats.Lines != 2 || stats.Emitted != 1 || stats.Filtered != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestParseNeverEmitsNoMatchScores(t *testing.T) {
	trace := traceHeader +
		"0 12 9 0.8 0.1 0.1 0.25 0.75\n" +
		"1 7 4 0.6 0.1 0.1 0.2 0.05\n" +
		"2 3 1 0.3 0.1 0.1 0.1 0.0\n" +
		"3 9 6 0.9 0.1 0.1 0.3 1.5\n" +
		"bogus line\n"
	parser := scoring.NewParser(logging.NewNop())
	pairs := pairsFor("q.jpg", "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg")

	records, stats, err := parser.Parse(context.Background(), strings.NewReader(trace), pairs, nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(records) > stats.Lines {
		t.Fatalf("emitted %d records from %d lines", len(records), stats.Lines)
	}
	if stats.Malformed != 1 {
		t.Fatalf("expected one malformed line, got %+v", stats)
	}
	for _, rec := range records {
		if strings.HasPrefix(strconvFormat(rec.FinalScore), "0.0") {
			t.Fatalf("record with no-match score emitted: %+v", rec)
		}
		want := (rec.LocalWeight + rec.GlobalScore) * float64(rec.MatchedPoints)
		if rec.CustomScore != want {
			t.Fatalf("custom score %v != %v", rec.CustomScore, want)
		}
	}
	if len(records) != 2 || records[1].RelatedImage != "4.jpg" {
		t.Fatalf("expected lines to map onto pairs by position, got %+v", records)
	}
}

func TestParseEnrichesFromMetadata(t *testing.T) {
	table, err := metadata.Parse(strings.NewReader("path;external_id;title;uri\ndemo/c/c_B.jpg;/c/B;Bridge;http://example.org/B\n"))
	if err != nil {
		t.Fatalf("metadata.Parse: %v", err)
	}
	trace := traceHeader +
		"4 20 10 1.0 0.1 0.1 1.0 2.0\n" +
		"5 20 10 1.0 0.1 0.1 1.0 2.0\n"
	parser := scoring.NewParser(logging.NewNop())

	records, stats, err := parser.Parse(context.Background(), strings.NewReader(trace), pairsFor("c_A.jpg", "c_B.jpg", "c_Z.jpg"), table)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both records despite lookup miss, got %d", len(records))
	}
	if records[0].Title != "Bridge" || records[0].URI != "http://example.org/B" || records[0].Path != "demo/c/c_B.jpg" {
		t.Fatalf("expected enriched record, got %+v", records[0])
	}
	if records[0].RankIndex != 4 {
		t.Fatalf("rank index = %d, want engine index 4", records[0].RankIndex)
	}
	if records[1].Title != "" || records[1].URI != "" || records[1].ExternalID != "" {
		t.Fatalf("expected empty metadata on miss, got %+v", records[1])
	}
	if stats.Unmatched != 1 {
		t.Fatalf("expected one unmatched lookup, got %+v", stats)
	}
}

func TestParseFileMissingTrace(t *testing.T) {
	parser := scoring.NewParser(logging.NewNop())
	_, _, err := parser.ParseFile(context.Background(), filepath.Join(t.TempDir(), "c-match.txt"), nil, nil)
	if !errors.Is(err, services.ErrCacheInconsistency) {
		t.Fatalf("expected cache inconsistency, got %v", err)
	}
}

func TestParseFileHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c-match.txt")
	testsupport.WriteText(t, path, traceHeader)
	records, stats, err := scoring.NewParser(nil).ParseFile(context.Background(), path, nil, nil)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(records) != 0 || stats.Lines != 0 {
		t.Fatalf("expected no records, got %d (%+v)", len(records), stats)
	}
}

func TestParseKeepsRecordsAfterLongBoundingBoxLine(t *testing.T) {
	var long strings.Builder
	long.WriteString("0 20000 18000 0.9 0.5 0.5 0.4 0.8")
	for i := 0; i < 20000; i++ {
		long.WriteString(" 123.5")
	}
	trace := traceHeader + long.String() + "\n" + "1 10 8 1.0 0.5 0.5 0.5 1.0\n"
	parser := scoring.NewParser(logging.NewNop())

	records, stats, err := parser.Parse(context.Background(), strings.NewReader(trace), pairsFor("q.jpg", "a.jpg", "b.jpg"), nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(records) != 2 || stats.Lines != 2 {
		t.Fatalf("records = %d, stats = %+v", len(records), stats)
	}
	var sawB bool
	for _, rec := range records {
		if rec.RelatedImage == "b.jpg" && rec.MatchedPoints == 10 {
			sawB = true
		}
	}
	if !sawB {
		t.Fatalf("record after the long line was lost: %+v", records)
	}
}
