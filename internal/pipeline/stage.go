package pipeline

import (
	"context"
	"fmt"
	"strings"

	"imgsim/internal/scoring"
	"imgsim/internal/services"
)

// Stage names one pipeline stage.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageIndex    Stage = "index"
	StageRetrieve Stage = "retrieve"
	StageMatch    Stage = "match"
)

// SelectorAll runs every stage in order.
const SelectorAll = "all"

// Stages lists every stage in execution order.
var Stages = []Stage{StageExtract, StageIndex, StageRetrieve, StageMatch}

// ParseStages resolves a stage selector into the stages to run.
func ParseStages(selector string) ([]Stage, error) {
	selector = strings.ToLower(strings.TrimSpace(selector))
	if selector == "" || selector == SelectorAll {
		return append([]Stage(nil), Stages...), nil
	}
	for _, stage := range Stages {
		if string(stage) == selector {
			return []Stage{stage}, nil
		}
	}
	return nil, services.Wrap(services.ErrConfiguration, "", "parse stage selector",
		fmt.Sprintf("unknown stage %q (want extract, index, retrieve, match, or all)", selector), nil)
}

// Collection is the unit of work handed to every stage.
type Collection struct {
	Name string
	// Query selects the query row of the ground-truth and retrieval files.
	// Empty selects the first row.
	Query string
	// Images is filled by the first stage that lists the collection.
	Images []string
}

// Result describes what a stage did.
type Result struct {
	CacheHit bool
	Detail   string
	// Match only.
	Query    string
	Document string
	Rendered bool
	Records  []scoring.Record
	Stats    scoring.Stats
}

// Handler is the contract every stage implements.
type Handler interface {
	Name() Stage
	Execute(ctx context.Context, coll *Collection) (Result, error)
}

// Handlers builds the handlers for stages in the order given.
func Handlers(stages []Stage, deps Deps) ([]Handler, error) {
	handlers := make([]Handler, 0, len(stages))
	for _, stage := range stages {
		handler, err := NewHandler(stage, deps)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, handler)
	}
	return handlers, nil
}

// NewHandler returns the handler for stage.
func NewHandler(stage Stage, deps Deps) (Handler, error) {
	switch stage {
	case StageExtract:
		return &extractHandler{deps: deps}, nil
	case StageIndex:
		return &indexHandler{deps: deps}, nil
	case StageRetrieve:
		return &retrieveHandler{deps: deps}, nil
	case StageMatch:
		return &matchHandler{deps: deps}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, string(stage), "build handler", "unknown stage", nil)
	}
}

// summary is attached to stage-completed log lines.
func (r Result) summary() string {
	if r.Detail != "" {
		return r.Detail
	}
	if r.CacheHit {
		return "cache hit"
	}
	return "done"
}
