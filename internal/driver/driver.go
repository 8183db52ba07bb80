package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"imgsim/internal/config"
	"imgsim/internal/ledger"
	"imgsim/internal/logging"
	"imgsim/internal/metrics"
	"imgsim/internal/pipeline"
	"imgsim/internal/scoring"
	"imgsim/internal/services"
)

// Recorder persists run history. *ledger.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run ledger.Run) error
	FinishRun(ctx context.Context, run ledger.Run) error
	RecordStage(ctx context.Context, rec ledger.StageRecord) error
	RecordCollection(ctx context.Context, state ledger.CollectionState) error
	RecordScores(ctx context.Context, runID, collection, query string, records []scoring.Record) error
}

// Options selects what a run processes.
type Options struct {
	Stages []pipeline.Stage
	// Collections restricts the run to the named collections. Empty means
	// every collection under the dataset directory.
	Collections []string
	Query       string
}

// CollectionReport is the result of one collection.
type CollectionReport struct {
	Name     string
	State    State
	Reason   string
	Outcomes []pipeline.Outcome
}

// Summary is the result of one run.
type Summary struct {
	RunID       string
	Stages      []pipeline.Stage
	Collections []CollectionReport
	Completed   int
	Skipped     int
	Failed      int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Driver runs the pipeline over the collections of the input root.
type Driver struct {
	cfg      *config.Config
	deps     pipeline.Deps
	recorder Recorder
	logger   *slog.Logger
	workers  int
	newID    func() string
}

// New constructs a driver. recorder may be nil to disable the ledger.
func New(cfg *config.Config, deps pipeline.Deps, recorder Recorder, logger *slog.Logger) *Driver {
	return &Driver{
		cfg:      cfg,
		deps:     deps,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "driver"),
		workers:  max(cfg.Pipeline.Workers, 1),
		newID:    uuid.NewString,
	}
}

// Run processes every selected collection. The returned error is reserved
// for problems with the input root itself; per-collection failures are
// reported in the summary.
func (d *Driver) Run(ctx context.Context, opts Options) (Summary, error) {
	if len(opts.Stages) == 0 {
		opts.Stages = pipeline.Stages
	}
	if err := d.deps.Store.LayoutError(); err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "", "check input root",
			"input root must contain the dataset and annotation directories", err)
	}
	handlers, err := pipeline.Handlers(opts.Stages, d.deps)
	if err != nil {
		return Summary{}, err
	}
	names, missing, err := d.selectCollections(opts.Collections)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		RunID:     d.newID(),
		Stages:    opts.Stages,
		StartedAt: time.Now(),
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("stages", joinStages(opts.Stages)),
		logging.Int("collections", len(names)),
		logging.Int("workers", d.workers),
	)
	d.startRun(ctx, summary, len(names)+len(missing))

	reports := make([]CollectionReport, len(names))
	var group errgroup.Group
	group.SetLimit(d.workers)
	for i, name := range names {
		group.Go(func() error {
			reports[i] = d.runCollection(ctx, summary.RunID, name, opts.Query, handlers)
			return nil
		})
	}
	_ = group.Wait()

	for _, name := range missing {
		report := CollectionReport{Name: name, State: StateSkipped, Reason: "collection not found under the dataset directory"}
		logging.WarnWithContext(ctx, logger, "collection skipped", "collection_missing",
			logging.String(logging.FieldCollection, name),
			logging.String(logging.FieldErrorHint, "check the --collection name against the dataset directory"),
		)
		d.recordCollection(ctx, summary.RunID, report)
		reports = append(reports, report)
	}

	summary.Collections = reports
	summary.FinishedAt = time.Now()
	for _, report := range reports {
		switch report.State {
		case StateSkipped:
			summary.Skipped++
		case StateFailed:
			summary.Failed++
		default:
			summary.Completed++
		}
		metrics.RecordCollection(string(report.State))
	}
	d.finishRun(ctx, summary)

	if err := metrics.WriteTextfile(d.cfg.Metrics.TextfilePath); err != nil {
		logging.WarnWithContext(ctx, logger, "metrics export failed", "metrics_export",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path"),
			logging.String(logging.FieldImpact, "metrics for this run are not exported"),
		)
	}

	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("completed", summary.Completed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (d *Driver) selectCollections(filter []string) ([]string, []string, error) {
	names, err := d.deps.Store.Collections()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, services.Wrap(services.ErrConfiguration, "", "list collections", "dataset directory missing", err)
		}
		return nil, nil, services.Wrap(services.ErrConfiguration, "", "list collections", d.deps.Store.DatasetDir(), err)
	}
	if len(filter) == 0 {
		return names, nil, nil
	}
	var selected, missing []string
	for _, want := range filter {
		want = strings.TrimSpace(want)
		if want == "" || slices.Contains(selected, want) || slices.Contains(missing, want) {
			continue
		}
		if slices.Contains(names, want) {
			selected = append(selected, want)
		} else {
			missing = append(missing, want)
		}
	}
	return selected, missing, nil
}

func (d *Driver) runCollection(ctx context.Context, runID, name, query string, handlers []pipeline.Handler) (report CollectionReport) {
	ctx = services.WithCollection(ctx, name)
	logger := logging.WithContext(ctx, d.logger)
	tracker := NewTracker()
	report = CollectionReport{Name: name}
	defer func() {
		report.State = tracker.State()
		report.Reason = tracker.Reason()
		d.recordCollection(ctx, runID, report)
		logger.Info("collection finished",
			logging.String(logging.FieldEventType, "collection_complete"),
			logging.String("state", string(report.State)),
			logging.String("reason", report.Reason),
		)
	}()

	if err := ctx.Err(); err != nil {
		tracker.Stop(services.OutcomeSkipped, "cancelled")
		return report
	}
	lock, err := lockCollection(ctx, d.cfg.LockDir(), name)
	if err != nil {
		_, message := services.Details(err)
		tracker.Stop(services.FailureKind(err), message)
		return report
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release collection lock", logging.Error(err))
		}
	}()

	coll := &pipeline.Collection{Name: name, Query: query}
	for _, handler := range handlers {
		outcome := pipeline.Run(ctx, d.deps.Logger, handler, coll)
		report.Outcomes = append(report.Outcomes, outcome)
		d.recordStage(ctx, runID, name, outcome)

		if outcome.Kind != services.OutcomeCompleted {
			tracker.Stop(outcome.Kind, fmt.Sprintf("%s: %s", outcome.Stage, outcome.Reason))
			return report
		}
		for _, next := range statesAfter(outcome.Stage) {
			if err := tracker.Advance(next); err != nil {
				logger.Debug("state transition ignored", logging.Error(err))
			}
		}
		if outcome.Stage == pipeline.StageMatch {
			d.recordScores(ctx, runID, name, outcome.Result)
		}
	}
	return report
}

func (d *Driver) startRun(ctx context.Context, summary Summary, collections int) {
	if d.recorder == nil {
		return
	}
	run := ledger.Run{
		ID:          summary.RunID,
		Stages:      stageNames(summary.Stages),
		RootDir:     d.cfg.Paths.RootDir,
		StartedAt:   summary.StartedAt,
		Collections: collections,
	}
	if err := d.recorder.StartRun(ctx, run); err != nil {
		d.ledgerWarning(ctx, "record run start", err)
	}
}

func (d *Driver) finishRun(ctx context.Context, summary Summary) {
	if d.recorder == nil {
		return
	}
	run := ledger.Run{
		ID:          summary.RunID,
		FinishedAt:  summary.FinishedAt,
		Collections: len(summary.Collections),
		Completed:   summary.Completed,
		Skipped:     summary.Skipped,
		Failed:      summary.Failed,
	}
	// The run may have been cancelled; the ledger write must still land.
	if err := d.recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		d.ledgerWarning(ctx, "record run finish", err)
	}
}

func (d *Driver) recordStage(ctx context.Context, runID, collection string, outcome pipeline.Outcome) {
	if d.recorder == nil {
		return
	}
	rec := ledger.StageRecord{
		RunID:      runID,
		Collection: collection,
		Stage:      string(outcome.Stage),
		Outcome:    string(outcome.Kind),
		CacheHit:   outcome.CacheHit,
		Reason:     outcome.Reason,
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
	}
	if err := d.recorder.RecordStage(context.WithoutCancel(ctx), rec); err != nil {
		d.ledgerWarning(ctx, "record stage outcome", err)
	}
}

func (d *Driver) recordCollection(ctx context.Context, runID string, report CollectionReport) {
	if d.recorder == nil {
		return
	}
	state := ledger.CollectionState{
		RunID:      runID,
		Collection: report.Name,
		State:      string(report.State),
		Reason:     report.Reason,
	}
	if err := d.recorder.RecordCollection(context.WithoutCancel(ctx), state); err != nil {
		d.ledgerWarning(ctx, "record collection state", err)
	}
}

func (d *Driver) recordScores(ctx context.Context, runID, collection string, result pipeline.Result) {
	if d.recorder == nil || result.Query == "" {
		return
	}
	if err := d.recorder.RecordScores(context.WithoutCancel(ctx), runID, collection, result.Query, result.Records); err != nil {
		d.ledgerWarning(ctx, "record scores", err)
	}
}

func (d *Driver) ledgerWarning(ctx context.Context, op string, err error) {
	logging.WarnWithContext(ctx, logging.WithContext(ctx, d.logger), "ledger write failed", "ledger_write",
		logging.String(logging.FieldOperation, op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		logging.String(logging.FieldImpact, "run history is incomplete"),
	)
}

func stageNames(stages []pipeline.Stage) []string {
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, string(stage))
	}
	return names
}

func joinStages(stages []pipeline.Stage) string {
	return strings.Join(stageNames(stages), ",")
}
