package pipeline

import (
	"context"
	"errors"
	"fmt"

	"imgsim/internal/artifacts"
	"imgsim/internal/engine"
	"imgsim/internal/groundtruth"
	"imgsim/internal/logging"
	"imgsim/internal/metadata"
	"imgsim/internal/metrics"
	"imgsim/internal/render"
	"imgsim/internal/scoring"
	"imgsim/internal/services"
)

type matchHandler struct {
	deps Deps
}

func (h *matchHandler) Name() Stage { return StageMatch }

// Execute pairs the query with its retrieved candidates, runs the match
// operation unless the match trace exists, then scores, ranks, and renders.
// Scoring and rendering run on every pass; the renderer itself refuses to
// replace an existing document.
func (h *matchHandler) Execute(ctx context.Context, coll *Collection) (Result, error) {
	images, err := h.deps.listImages(StageMatch, coll)
	if err != nil {
		return Result{}, err
	}
	store := h.deps.Store
	retrieval := store.Path(coll.Name, artifacts.KindRetrievalTrace)
	row, err := groundtruth.CheckQuery(retrieval, images, coll.Query)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, string(StageMatch), "check query", "retrieval output unusable; run the retrieve stage first", err)
	}
	pairs := row.Pairs()
	if len(pairs) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, string(StageMatch), "build pairs", fmt.Sprintf("no candidates retrieved for %s", row.Query), nil)
	}

	matching, nonMatching := groundtruth.Split(pairs)
	matchingPath := store.Path(coll.Name, artifacts.KindMatchingPairs)
	nonMatchingPath := store.Path(coll.Name, artifacts.KindNonMatchingPairs)
	if err := groundtruth.WritePairs(matchingPath, matching); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, string(StageMatch), "write pairs", matchingPath, err)
	}
	if err := groundtruth.WritePairs(nonMatchingPath, nonMatching); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, string(StageMatch), "write pairs", nonMatchingPath, err)
	}

	trace := store.Path(coll.Name, artifacts.KindMatchTrace)
	cacheHit := store.Exists(trace)
	if !cacheHit {
		args := h.deps.Engine.Settings().MatchArgs(matchingPath, nonMatchingPath, store.CollectionDir(coll.Name), store.AnnotationDir(), trace)
		if _, err := h.deps.invoke(ctx, StageMatch, engine.OpMatch, args); err != nil {
			return Result{}, err
		}
	}

	logger := logging.WithContext(ctx, h.deps.Logger)
	table, err := metadata.Load(store.Path(coll.Name, artifacts.KindMetadata))
	if err != nil {
		hint := "add a semicolon-delimited metadata table to enrich results"
		if !errors.Is(err, services.ErrNotFound) {
			hint = "check the metadata table format"
		}
		logging.WarnWithContext(ctx, logger, "collection metadata unavailable", "metadata_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "results carry no titles or links"),
		)
	}

	records, stats, err := h.deps.Parser.ParseFile(ctx, trace, pairs, table)
	if err != nil {
		return Result{}, err
	}
	metrics.RecordScoreRecords(stats.Emitted, stats.Filtered, stats.Malformed)

	ranked := scoring.Rank(records)
	doc := render.Document{Collection: coll.Name, Query: row.Query, Records: ranked}
	written, err := h.deps.Renderer.Write(doc)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, string(StageMatch), "render", "write result document", err)
	}
	docPath, _ := h.deps.Renderer.Paths(doc)
	if !written {
		logger.Info("result document exists; not overwritten",
			logging.String("document", docPath),
			logging.String(logging.FieldEventType, "render_skip"),
		)
	}

	return Result{
		CacheHit: cacheHit,
		Query:    row.Query,
		Detail:   fmt.Sprintf("%d records from %d trace lines for %s", stats.Emitted, stats.Lines, row.Query),
		Document: docPath,
		Rendered: written,
		Records:  ranked,
		Stats:    stats,
	}, nil
}
