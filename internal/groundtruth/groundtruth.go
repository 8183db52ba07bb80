// Package groundtruth reads ground-truth and retrieval trace files and builds
// the image pair lists handed to the engine's match operation.
//
// Both files share one format: each non-blank line holds a query image
// followed by its matching (or retrieved) images, separated by whitespace.
package groundtruth

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"imgsim/internal/fileutil"
	"imgsim/internal/services"
)

// Row is one query line.
type Row struct {
	Query   string
	Matches []string
}

// Pair is one (query, candidate) comparison.
type Pair struct {
	Query     string
	Candidate string
}

// maxRowBytes bounds one row; retrieval rows list every candidate.
const maxRowBytes = 16 * 1024 * 1024

// Parse reads rows from r, skipping blank lines.
func Parse(r io.Reader) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRowBytes)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, Row{Query: fields[0], Matches: fields[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Read parses the file at path. A missing file is reported as ErrNotFound.
func Read(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "", "read query file", filepath.Base(path), err)
		}
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer file.Close()
	rows, err := Parse(file)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "", "read query file", filepath.Base(path), err)
	}
	return rows, nil
}

// Select returns the row for query, or the first row when query is empty.
func Select(rows []Row, query string) (Row, error) {
	if len(rows) == 0 {
		return Row{}, services.Wrap(services.ErrNotFound, "", "select query", "query file has no rows", nil)
	}
	if query == "" {
		return rows[0], nil
	}
	for _, row := range rows {
		if row.Query == query {
			return row, nil
		}
	}
	return Row{}, services.Wrap(services.ErrNotFound, "", "select query", fmt.Sprintf("no row for query %q", query), nil)
}

// CheckQuery reads the query file at path, selects the query row, and
// verifies the query image is one of the collection's images.
func CheckQuery(path string, images []string, query string) (Row, error) {
	rows, err := Read(path)
	if err != nil {
		return Row{}, err
	}
	row, err := Select(rows, query)
	if err != nil {
		return Row{}, err
	}
	if !slices.Contains(images, row.Query) {
		return Row{}, services.Wrap(services.ErrNotFound, "", "check query", fmt.Sprintf("query image %q is not in the collection", row.Query), nil)
	}
	return row, nil
}

// Pairs expands a row into (query, candidate) pairs in rank order.
func (r Row) Pairs() []Pair {
	pairs := make([]Pair, 0, len(r.Matches))
	for _, candidate := range r.Matches {
		pairs = append(pairs, Pair{Query: r.Query, Candidate: candidate})
	}
	return pairs
}

// Split divides pairs into the matching list (all but the last pair) and the
// non-matching list (the first pair only).
func Split(pairs []Pair) (matching, nonMatching []Pair) {
	if len(pairs) == 0 {
		return nil, nil
	}
	matching = append([]Pair(nil), pairs[:len(pairs)-1]...)
	nonMatching = []Pair{pairs[0]}
	return matching, nonMatching
}

// WritePairs stores pairs one per line as "<query> <candidate>".
func WritePairs(path string, pairs []Pair) error {
	var buf bytes.Buffer
	for _, pair := range pairs {
		buf.WriteString(pair.Query)
		buf.WriteByte(' ')
		buf.WriteString(pair.Candidate)
		buf.WriteByte('\n')
	}
	if err := fileutil.WriteAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pair file: %w", err)
	}
	return nil
}
