// Package metadata reads a collection's semicolon-delimited metadata table and
// resolves image file names to their catalogue entries.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"imgsim/internal/services"
)

// Entry is one catalogue row.
type Entry struct {
	Path       string `json:"path"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	// FileName is the optional fifth column. When empty the file name is
	// derived from ExternalID at lookup time.
	FileName string `json:"file_name,omitempty"`
}

// Table holds the rows of one collection in file order.
type Table struct {
	entries []Entry
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Parse reads a `path;external_id;title;uri[;derived_filename]` table. A
// leading header row is recognised by its first column being "path". Rows
// with fewer than two columns are skipped.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	table := &Table{}
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrParse, "", "read metadata", "", err)
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), "path") {
				continue
			}
		}
		if len(record) < 2 {
			continue
		}
		table.entries = append(table.entries, Entry{
			Path:       field(record, 0),
			ExternalID: field(record, 1),
			Title:      field(record, 2),
			URI:        field(record, 3),
			FileName:   field(record, 4),
		})
	}
	return table, nil
}

// Load parses the table at path. A missing file yields an empty table and
// an ErrNotFound error so callers can log it and continue.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Table{}, services.Wrap(services.ErrNotFound, "", "load metadata", filepath.Base(path), err)
		}
		return &Table{}, fmt.Errorf("open metadata: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

// DerivedFileName maps an external id to the image file name it was
// downloaded as: the leading character is dropped, forward and back
// slashes become underscores, and ext is appended.
func DerivedFileName(externalID, ext string) string {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return ""
	}
	_, size := firstRune(id)
	id = id[size:]
	return pathSeparators.Replace(id) + ext
}

// Lookup returns the first row whose file name matches fileName.
func (t *Table) Lookup(fileName string) (Entry, error) {
	if t == nil || fileName == "" {
		return Entry{}, services.Wrap(services.ErrNotFound, "", "metadata lookup", fileName, nil)
	}
	ext := filepath.Ext(fileName)
	for _, entry := range t.entries {
		name := entry.FileName
		if name == "" {
			name = DerivedFileName(entry.ExternalID, ext)
		}
		if name == fileName {
			return entry, nil
		}
	}
	return Entry{}, services.Wrap(services.ErrNotFound, "", "metadata lookup", fileName, nil)
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func firstRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}
