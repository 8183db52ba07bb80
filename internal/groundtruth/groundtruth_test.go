package groundtruth_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"imgsim/internal/groundtruth"
	"imgsim/internal/services"
	"imgsim/internal/testsupport"
)

func TestParseSkipsBlankLines(t *testing.T) {
	rows, err := groundtruth.Parse(strings.NewReader("a.jpg b.jpg c.jpg\n\n  \nd.jpg\te.jpg\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []groundtruth.Row{
		{Query: "a.jpg", Matches: []string{"b.jpg", "c.jpg"}},
		{Query: "d.jpg", Matches: []string{"e.jpg"}},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %+v, want %+v", rows, want)
	}
}

func TestParseLongCandidateRow(t *testing.T) {
	candidates := make([]string, 20000)
	for i := range candidates {
		candidates[i] = fmt.Sprintf("img_%05d.jpg", i)
	}
	input := "q.jpg " + strings.Join(candidates, " ") + "\nr.jpg s.jpg\n"

	rows, err := groundtruth.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(rows) != 2 || len(rows[0].Matches) != len(candidates) {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[1].Query != "r.jpg" {
		t.Fatalf("second row = %+v", rows[1])
	}
}

func TestSelect(t *testing.T) {
	rows := []groundtruth.Row{{Query: "a.jpg"}, {Query: "d.jpg"}}

	row, err := groundtruth.Select(rows, "")
	if err != nil || row.Query != "a.jpg" {
		t.Fatalf("default select = %+v, %v", row, err)
	}
	row, err = groundtruth.Select(rows, "d.jpg")
	if err != nil || row.Query != "d.jpg" {
		t.Fatalf("named select = %+v, %v", row, err)
	}
	if _, err := groundtruth.Select(rows, "x.jpg"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := groundtruth.Select(nil, ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for empty rows, got %v", err)
	}
}

func TestCheckQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ground-truth-annotations.txt")

	if _, err := groundtruth.CheckQuery(path, []string{"a.jpg"}, ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing file, got %v", err)
	}

	testsupport.WriteText(t, path, "a.jpg b.jpg c.jpg\n")
	row, err := groundtruth.CheckQuery(path, []string{"a.jpg", "b.jpg", "c.jpg"}, "")
	if err != nil {
		t.Fatalf("CheckQuery returned error: %v", err)
	}
	if row.Query != "a.jpg" || len(row.Matches) != 2 {
		t.Fatalf("unexpected row %+v", row)
	}

	_, err = groundtruth.CheckQuery(path, []string{"b.jpg", "c.jpg"}, "")
	if !errors.Is(err, services.ErrNotFound) || !strings.Contains(err.Error(), "a.jpg") {
		t.Fatalf("expected query missing error, got %v", err)
	}
}

func TestSplitIsAsymmetric(t *testing.T) {
	row := groundtruth.Row{Query: "q.jpg", Matches: []string{"1.jpg", "2.jpg", "3.jpg"}}
	matching, nonMatching := groundtruth.Split(row.Pairs())

	wantMatching := []groundtruth.Pair{{Query: "q.jpg", Candidate: "1.jpg"}, {Query: "q.jpg", Candidate: "2.jpg"}}
	wantNonMatching := []groundtruth.Pair{{Query: "q.jpg", Candidate: "1.jpg"}}
	if !reflect.DeepEqual(matching, wantMatching) {
		t.Fatalf("matching = %+v, want %+v", matching, wantMatching)
	}
	if !reflect.DeepEqual(nonMatching, wantNonMatching) {
		t.Fatalf("non-matching = %+v, want %+v", nonMatching, wantNonMatching)
	}

	if m, n := groundtruth.Split(nil); m != nil || n != nil {
		t.Fatalf("expected empty split, got %v %v", m, n)
	}
}

func TestWritePairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ann", "c-matching-pairs.txt")
	pairs := []groundtruth.Pair{{Query: "q.jpg", Candidate: "1.jpg"}, {Query: "q.jpg", Candidate: "2.jpg"}}
	if err := groundtruth.WritePairs(path, pairs); err != nil {
		t.Fatalf("WritePairs returned error: %v", err)
	}
	if got := testsupport.ReadText(t, path); got != "q.jpg 1.jpg\nq.jpg 2.jpg\n" {
		t.Fatalf("unexpected pair file %q", got)
	}
}
