package pipeline

import (
	"context"
	"fmt"

	"imgsim/internal/engine"
)

type extractHandler struct {
	deps Deps
}

func (h *extractHandler) Name() Stage { return StageExtract }

// Execute writes the image list and extracts features unless the first
// image's feature file already exists.
func (h *extractHandler) Execute(ctx context.Context, coll *Collection) (Result, error) {
	listPath, images, err := h.deps.writeImageList(StageExtract, coll)
	if err != nil {
		return Result{}, err
	}
	store := h.deps.Store
	if store.FeaturesExtracted(coll.Name, images) {
		return Result{CacheHit: true, Detail: fmt.Sprintf("features present for %d images", len(images))}, nil
	}

	args := h.deps.Engine.Settings().ExtractArgs(listPath, store.CollectionDir(coll.Name), store.AnnotationDir())
	if _, err := h.deps.invoke(ctx, StageExtract, engine.OpExtract, args); err != nil {
		return Result{}, err
	}
	return Result{Detail: fmt.Sprintf("extracted %d images", len(images))}, nil
}
