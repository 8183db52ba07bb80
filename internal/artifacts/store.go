package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"imgsim/internal/config"
)

// Kind names an artifact produced or consumed by a pipeline stage.
type Kind string

const (
	KindImageList        Kind = "image_list"
	KindIndex            Kind = "index"
	KindGroundTruth      Kind = "ground_truth"
	KindRetrievalTrace   Kind = "retrieval_trace"
	KindMatchTrace       Kind = "match_trace"
	KindMatchingPairs    Kind = "matching_pairs"
	KindNonMatchingPairs Kind = "non_matching_pairs"
	KindMetadata         Kind = "metadata"
)

const (
	indexLocalSuffix  = ".local"
	indexGlobalSuffix = ".global"
	renderExtension   = ".html"
	sidecarExtension  = ".json"
)

// Store resolves artifact paths for collections under one input root.
type Store struct {
	datasetDir    string
	annotationDir string
	resultsDir    string
	names         config.Artifacts
}

// New builds a store from the effective configuration.
func New(cfg *config.Config) *Store {
	return &Store{
		datasetDir:    cfg.DatasetPath(),
		annotationDir: cfg.AnnotationPath(),
		resultsDir:    cfg.ResultsDir(),
		names:         cfg.Artifacts,
	}
}

// DatasetDir returns the directory holding one sub-directory per collection.
func (s *Store) DatasetDir() string { return s.datasetDir }

// AnnotationDir returns the directory for list, pair, and index files.
func (s *Store) AnnotationDir() string { return s.annotationDir }

// CollectionDir returns the image directory for a collection. The engine
// receives it as the dataset path.
func (s *Store) CollectionDir(collection string) string {
	return filepath.Join(s.datasetDir, collection)
}

// Exists reports whether path exists. Any stat failure, including a missing
// parent directory, reads as absent.
func (s *Store) Exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Path returns the location of a collection-scoped artifact. Unknown kinds
// resolve to an empty path.
func (s *Store) Path(collection string, kind Kind) string {
	switch kind {
	case KindImageList:
		return filepath.Join(s.annotationDir, collection+"-"+s.names.ImageListName)
	case KindIndex:
		return filepath.Join(s.annotationDir, collection+"-"+s.names.IndexName)
	case KindMatchingPairs:
		return filepath.Join(s.annotationDir, collection+"-matching-pairs.txt")
	case KindNonMatchingPairs:
		return filepath.Join(s.annotationDir, collection+"-non-matching-pairs.txt")
	case KindGroundTruth:
		return filepath.Join(s.CollectionDir(collection), s.names.GroundTruthName)
	case KindRetrievalTrace:
		return filepath.Join(s.CollectionDir(collection), collection+s.names.RetrievalTraceSuffix)
	case KindMatchTrace:
		return filepath.Join(s.CollectionDir(collection), collection+s.names.MatchTraceSuffix)
	case KindMetadata:
		return filepath.Join(s.CollectionDir(collection), collection+s.names.MetadataSuffix)
	default:
		return ""
	}
}

// FeaturePath returns the feature file the engine writes for image.
func (s *Store) FeaturePath(collection, image string) string {
	return filepath.Join(s.CollectionDir(collection), stem(image)+s.names.FeatureSuffix)
}

// FeaturesExtracted reports whether the feature file of the first listed
// image exists. Later images are not checked, so partial extraction goes
// undetected.
func (s *Store) FeaturesExtracted(collection string, images []string) bool {
	if len(images) == 0 {
		return false
	}
	return s.Exists(s.FeaturePath(collection, images[0]))
}

// IndexFiles returns the local and global files the engine writes for the
// collection index.
func (s *Store) IndexFiles(collection string) (string, string) {
	base := s.Path(collection, KindIndex)
	return base + indexLocalSuffix, base + indexGlobalSuffix
}

// Indexed reports whether either index file exists.
func (s *Store) Indexed(collection string) bool {
	local, global := s.IndexFiles(collection)
	return s.Exists(local) || s.Exists(global)
}

// Has reports whether a collection-scoped artifact exists.
func (s *Store) Has(collection string, kind Kind) bool {
	return s.Exists(s.Path(collection, kind))
}

// RenderPath returns the ranked result document for a query image.
func (s *Store) RenderPath(collection, query string) string {
	return filepath.Join(s.resultsDir, collection, stem(query)+renderExtension)
}

// SidecarPath returns the JSON record file written next to the document.
func (s *Store) SidecarPath(collection, query string) string {
	return filepath.Join(s.resultsDir, collection, stem(query)+sidecarExtension)
}

// Collections lists the sub-directories of the dataset directory in name
// order. A missing dataset directory is returned as os.ErrNotExist.
func (s *Store) Collections() ([]string, error) {
	entries, err := os.ReadDir(s.datasetDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, nil
	}
	return names, nil
}

// LayoutError reports which required directory of the input root is missing.
func (s *Store) LayoutError() error {
	for _, dir := range []string{s.datasetDir, s.annotationDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return &os.PathError{Op: "stat", Path: dir, Err: errors.New("not a directory")}
		}
	}
	return nil
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
