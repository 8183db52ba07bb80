package metadata_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"imgsim/internal/metadata"
	"imgsim/internal/services"
)

const sampleTable = `path;external_id;title;uri
demo/07101/07101_O_1.jpg;/07101/O_1;Portrait of a Lady;http://example.org/item/07101/O_1
demo/07101/07101_O_2.jpg;/07101/O_2;Harbour at Dusk;
demo/07101/07101_O_2.jpg;/07101/O_2;Duplicate Row;http://example.org/dup
demo/07101/custom.jpg;/07101/X_9;Renamed Item;http://example.org/x9;custom.jpg
`

func TestDerivedFileName(t *testing.T) {
	tests := []struct {
		id, ext, want string
	}{
		{"/07101/O_1", ".jpg", "07101_O_1.jpg"},
		{"907101/a/b", ".png", "07101_a_b.png"},
		{`\07101\O_1_`, ".jpg", "07101_O_1_.jpg"},
		{"", ".jpg", ""},
	}
	for _, tc := range tests {
		if got := metadata.DerivedFileName(tc.id, tc.ext); got != tc.want {
			t.Fatalf("DerivedFileName(%q, %q) = %q, want %q", tc.id, tc.ext, got, tc.want)
		}
	}
}

func TestLookupFirstMatchWins(t *testing.T) {
	table, err := metadata.Parse(strings.NewReader(sampleTable))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if table.Len() != 4 {
		t.Fatalf("expected header to be skipped, got %d rows", table.Len())
	}

	entry, err := table.Lookup("07101_O_2.jpg")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if entry.Title != "Harbour at Dusk" || entry.URI != "" {
		t.Fatalf("expected first matching row, got %+v", entry)
	}

	entry, err = table.Lookup("custom.jpg")
	if err != nil || entry.ExternalID != "/07101/X_9" {
		t.Fatalf("expected explicit file name column to match, got %+v %v", entry, err)
	}
}

func TestLookupMissLeavesEntryEmpty(t *testing.T) {
	table, err := metadata.Parse(strings.NewReader(sampleTable))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	entry, err := table.Lookup("unknown.jpg")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if entry != (metadata.Entry{}) {
		t.Fatalf("expected empty entry, got %+v", entry)
	}
}

func TestLoadMissingFile(t *testing.T) {
	table, err := metadata.Load(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if table == nil || table.Len() != 0 {
		t.Fatalf("expected empty table, got %+v", table)
	}
}
