package pipeline

import (
	"context"

	"imgsim/internal/artifacts"
	"imgsim/internal/engine"
)

type indexHandler struct {
	deps Deps
}

func (h *indexHandler) Name() Stage { return StageIndex }

// Execute writes the image list and builds the index unless either index
// file already exists.
func (h *indexHandler) Execute(ctx context.Context, coll *Collection) (Result, error) {
	listPath, _, err := h.deps.writeImageList(StageIndex, coll)
	if err != nil {
		return Result{}, err
	}
	store := h.deps.Store
	if store.Indexed(coll.Name) {
		return Result{CacheHit: true, Detail: "index present"}, nil
	}

	index := store.Path(coll.Name, artifacts.KindIndex)
	args := h.deps.Engine.Settings().IndexArgs(listPath, index, store.CollectionDir(coll.Name), store.AnnotationDir())
	if _, err := h.deps.invoke(ctx, StageIndex, engine.OpIndex, args); err != nil {
		return Result{}, err
	}
	return Result{Detail: "index built"}, nil
}
