package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"

	"imgsim/internal/artifacts"
	"imgsim/internal/config"
	"imgsim/internal/fileutil"
	"imgsim/internal/scoring"
	"imgsim/internal/textutil"
)

// Document is one ranked result for a query image.
type Document struct {
	Collection string           `json:"collection"`
	Query      string           `json:"query_image"`
	Records    []scoring.Record `json:"records"`
}

// Renderer writes documents into the results directory.
type Renderer struct {
	columns   int
	overwrite bool
	store     *artifacts.Store
}

// New returns a renderer for the configured grid width.
func New(cfg config.Render, store *artifacts.Store) *Renderer {
	columns := cfg.Columns
	if columns <= 0 {
		columns = 4
	}
	return &Renderer{columns: columns, overwrite: cfg.Overwrite, store: store}
}

// Paths returns the document and sidecar locations for doc.
func (r *Renderer) Paths(doc Document) (string, string) {
	return r.store.RenderPath(doc.Collection, doc.Query), r.store.SidecarPath(doc.Collection, doc.Query)
}

// Write renders doc and its JSON sidecar. An existing document for the same
// query is left untouched unless overwrite is configured; the returned bool
// reports whether anything was written.
func (r *Renderer) Write(doc Document) (bool, error) {
	docPath, sidecarPath := r.Paths(doc)
	if !r.overwrite && r.store.Exists(docPath) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(docPath), 0o755); err != nil {
		return false, fmt.Errorf("create results directory: %w", err)
	}

	var page bytes.Buffer
	if err := r.Render(&page, doc, filepath.Dir(docPath)); err != nil {
		return false, err
	}
	sidecar, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode sidecar: %w", err)
	}
	if err := fileutil.WriteAtomic(docPath, page.Bytes(), 0o644); err != nil {
		return false, err
	}
	if err := fileutil.WriteAtomic(sidecarPath, append(sidecar, '\n'), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// Render writes the HTML page for doc. Image links are made relative to
// baseDir, the directory the page will be stored in.
func (r *Renderer) Render(w io.Writer, doc Document, baseDir string) error {
	imageDir := r.store.CollectionDir(doc.Collection)
	cells := make([]cell, 0, len(doc.Records))
	for _, rec := range doc.Records {
		cells = append(cells, cell{
			Record: rec,
			Src:    relativeSrc(baseDir, filepath.Join(imageDir, rec.RelatedImage)),
			Title:  textutil.DisplayTitle(rec.Title),
		})
	}
	view := page{
		Collection: doc.Collection,
		Query:      doc.Query,
		QuerySrc:   relativeSrc(baseDir, filepath.Join(imageDir, doc.Query)),
		Columns:    r.columns,
		CellWidth:  100 / r.columns,
		Cells:      cells,
		Rows:       chunk(cells, r.columns),
	}
	if err := pageTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// ReadSidecar loads the records written next to a rendered document.
func ReadSidecar(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode sidecar: %w", err)
	}
	return doc, nil
}

type cell struct {
	scoring.Record
	Src   string
	Title string
}

type page struct {
	Collection string
	Query      string
	QuerySrc   string
	Columns    int
	CellWidth  int
	Cells      []cell
	Rows       [][]cell
}

func chunk(cells []cell, size int) [][]cell {
	var rows [][]cell
	for start := 0; start < len(cells); start += size {
		end := min(start+size, len(cells))
		rows = append(rows, cells[start:end])
	}
	return rows
}

func relativeSrc(baseDir, target string) string {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
