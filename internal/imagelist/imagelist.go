// Package imagelist enumerates the images of a collection and writes the list
// file the engine reads.
package imagelist

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"imgsim/internal/fileutil"
)

// Builder filters directory entries against an extension allow-list.
type Builder struct {
	extensions []string
	sorted     bool
}

// New returns a builder for the given extensions. Matching is a
// case-sensitive suffix check, so ".jpg" does not admit "photo.JPG".
func New(extensions []string, sorted bool) *Builder {
	return &Builder{extensions: append([]string(nil), extensions...), sorted: sorted}
}

// Build returns the allowed image file names in dir. Without sorting the
// order is whatever the directory listing yields.
func (b *Builder) Build(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read collection directory: %w", err)
	}
	images := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if b.Allowed(entry.Name()) {
			images = append(images, entry.Name())
		}
	}
	if b.sorted {
		slices.Sort(images)
	}
	return images, nil
}

// Allowed reports whether name carries one of the allowed extensions.
func (b *Builder) Allowed(name string) bool {
	for _, ext := range b.extensions {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return true
		}
	}
	return false
}

// Write stores images one per line at path, replacing any previous list.
func Write(path string, images []string) error {
	var buf bytes.Buffer
	for _, image := range images {
		buf.WriteString(image)
		buf.WriteByte('\n')
	}
	if err := fileutil.WriteAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write image list: %w", err)
	}
	return nil
}
