package pipeline

import (
	"context"

	"imgsim/internal/artifacts"
	"imgsim/internal/engine"
	"imgsim/internal/groundtruth"
	"imgsim/internal/services"
)

type retrieveHandler struct {
	deps Deps
}

func (h *retrieveHandler) Name() Stage { return StageRetrieve }

// Execute queries the index with the ground-truth query image and writes
// the retrieval trace. A missing ground-truth file, or a query image absent
// from the collection, skips the stage.
func (h *retrieveHandler) Execute(ctx context.Context, coll *Collection) (Result, error) {
	images, err := h.deps.listImages(StageRetrieve, coll)
	if err != nil {
		return Result{}, err
	}
	store := h.deps.Store
	groundTruth := store.Path(coll.Name, artifacts.KindGroundTruth)
	row, err := groundtruth.CheckQuery(groundTruth, images, coll.Query)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, string(StageRetrieve), "check query", "ground truth unusable", err)
	}
	if !store.Indexed(coll.Name) {
		return Result{}, services.Wrap(services.ErrNotFound, string(StageRetrieve), "check index", "index missing; run the index stage first", nil)
	}

	trace := store.Path(coll.Name, artifacts.KindRetrievalTrace)
	if store.Exists(trace) {
		return Result{CacheHit: true, Detail: "retrieval trace present for " + row.Query}, nil
	}

	index := store.Path(coll.Name, artifacts.KindIndex)
	args := h.deps.Engine.Settings().RetrieveArgs(index, groundTruth, store.CollectionDir(coll.Name), store.AnnotationDir(), trace)
	if _, err := h.deps.invoke(ctx, StageRetrieve, engine.OpRetrieve, args); err != nil {
		return Result{}, err
	}
	if !store.Exists(trace) {
		return Result{}, services.Wrap(services.ErrCacheInconsistency, string(StageRetrieve), "check trace", "engine succeeded without writing the retrieval trace", nil)
	}
	return Result{Detail: "retrieved candidates for " + row.Query}, nil
}
