package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"imgsim/internal/artifacts"
	"imgsim/internal/config"
	"imgsim/internal/engine"
	"imgsim/internal/imagelist"
	"imgsim/internal/logging"
	"imgsim/internal/render"
	"imgsim/internal/scoring"
	"imgsim/internal/services"
)

// Deps carries the collaborators shared by every stage.
type Deps struct {
	Store    *artifacts.Store
	Engine   engine.Runner
	Images   *imagelist.Builder
	Parser   *scoring.Parser
	Renderer *render.Renderer
	Logger   *slog.Logger
}

// NewDeps wires stage collaborators from the configuration.
func NewDeps(cfg *config.Config, runner engine.Runner, logger *slog.Logger) Deps {
	store := artifacts.New(cfg)
	logger = logging.NewComponentLogger(logger, "pipeline")
	return Deps{
		Store:    store,
		Engine:   runner,
		Images:   imagelist.New(cfg.Artifacts.ImageExtensions, cfg.Pipeline.SortImageList),
		Parser:   scoring.NewParser(logger),
		Renderer: render.New(cfg.Render, store),
		Logger:   logger,
	}
}

// listImages enumerates the collection once per collection and caches the
// result on coll.
func (d Deps) listImages(stage Stage, coll *Collection) ([]string, error) {
	if coll.Images != nil {
		return coll.Images, nil
	}
	dir := d.Store.CollectionDir(coll.Name)
	images, err := d.Images.Build(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, string(stage), "list images", "collection directory missing", err)
		}
		return nil, services.Wrap(services.ErrConfiguration, string(stage), "list images", dir, err)
	}
	if len(images) == 0 {
		return nil, services.Wrap(services.ErrValidation, string(stage), "list images", "collection has no images with an allowed extension", nil)
	}
	coll.Images = images
	return images, nil
}

// writeImageList lists the collection and stores the image list artifact.
func (d Deps) writeImageList(stage Stage, coll *Collection) (string, []string, error) {
	images, err := d.listImages(stage, coll)
	if err != nil {
		return "", nil, err
	}
	path := d.Store.Path(coll.Name, artifacts.KindImageList)
	if err := imagelist.Write(path, images); err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, string(stage), "write image list", path, err)
	}
	return path, images, nil
}

// invoke runs op and turns a non-zero exit into an engine invocation error.
func (d Deps) invoke(ctx context.Context, stage Stage, op engine.Operation, args []string) (engine.Result, error) {
	result, err := d.Engine.Run(ctx, op, args)
	if err != nil {
		return result, err
	}
	if !result.OK() {
		return result, services.Wrap(services.ErrExternalTool, string(stage), string(op),
			fmt.Sprintf("engine exited with status %d", result.ExitStatus), nil)
	}
	return result, nil
}
