package artifacts_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"imgsim/internal/artifacts"
	"imgsim/internal/config"
	"imgsim/internal/testsupport"
)

func TestPathIsPureFunctionOfCollectionAndKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.New(cfg)
	ann := cfg.AnnotationPath()
	coll := filepath.Join(cfg.DatasetPath(), "07101")

	tests := map[artifacts.Kind]string{
		artifacts.KindImageList:        filepath.Join(ann, "07101-image_list.txt"),
		artifacts.KindIndex:            filepath.Join(ann, "07101-index"),
		artifacts.KindMatchingPairs:    filepath.Join(ann, "07101-matching-pairs.txt"),
		artifacts.KindNonMatchingPairs: filepath.Join(ann, "07101-non-matching-pairs.txt"),
		artifacts.KindGroundTruth:      filepath.Join(coll, "ground-truth-annotations.txt"),
		artifacts.KindRetrievalTrace:   filepath.Join(coll, "07101-retrieval.txt"),
		artifacts.KindMatchTrace:       filepath.Join(coll, "07101-match.txt"),
		artifacts.KindMetadata:         filepath.Join(coll, "07101.csv"),
		artifacts.Kind("unknown"):      "",
	}
	for kind, want := range tests {
		if got := store.Path("07101", kind); got != want {
			t.Fatalf("Path(%s) = %q, want %q", kind, got, want)
		}
	}
	if got, want := store.FeaturePath("07101", "07101_O_1.jpg"), filepath.Join(coll, "07101_O_1.DB.cdvs"); got != want {
		t.Fatalf("FeaturePath = %q, want %q", got, want)
	}
	if got, want := store.RenderPath("07101", "q.jpg"), filepath.Join(cfg.ResultsDir(), "07101", "q.html"); got != want {
		t.Fatalf("RenderPath = %q, want %q", got, want)
	}
}

func TestExistsTreatsMissingDirectoryAsAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.New(cfg)

	if store.Exists(filepath.Join(t.TempDir(), "missing", "dir", "file")) {
		t.Fatal("expected missing path to be absent")
	}
	if store.Exists("") {
		t.Fatal("expected empty path to be absent")
	}
	if store.Has("nope", artifacts.KindGroundTruth) {
		t.Fatal("expected artifact of missing collection to be absent")
	}
}

func TestFeaturesExtractedChecksFirstImageOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCollection("c", "a.jpg", "b.jpg"))
	store := artifacts.New(cfg)
	images := []string{"a.jpg", "b.jpg"}

	if store.FeaturesExtracted("c", images) {
		t.Fatal("expected no features before extraction")
	}
	testsupport.WriteText(t, store.FeaturePath("c", "a.jpg"), "x")
	if !store.FeaturesExtracted("c", images) {
		t.Fatal("expected first feature file to satisfy the proxy")
	}
	if store.FeaturesExtracted("c", nil) {
		t.Fatal("expected empty image list to report not extracted")
	}
}

func TestIndexedAcceptsEitherFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.New(cfg)

	if store.Indexed("c") {
		t.Fatal("expected no index")
	}
	_, global := store.IndexFiles("c")
	testsupport.WriteText(t, global, "g")
	if !store.Indexed("c") {
		t.Fatal("expected global index file to count as indexed")
	}
}

func TestCollections(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithCollection("b"),
		testsupport.WithCollection("a"),
		testsupport.WithCollection(".hidden"),
	)
	testsupport.WriteText(t, filepath.Join(cfg.DatasetPath(), "stray.txt"), "x")
	store := artifacts.New(cfg)

	names, err := store.Collections()
	if err != nil {
		t.Fatalf("Collections returned error: %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("collections = %v, want %v", names, want)
	}
	if err := store.LayoutError(); err != nil {
		t.Fatalf("expected valid layout, got %v", err)
	}
}

func TestLayoutErrorMissingDataset(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.RootDir = t.TempDir()
	store := artifacts.New(&cfg)
	if err := store.LayoutError(); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := store.Collections(); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
