package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"imgsim/internal/config"
	"imgsim/internal/deps"
	"imgsim/internal/driver"
	"imgsim/internal/engine"
	"imgsim/internal/ledger"
	"imgsim/internal/logging"
	"imgsim/internal/notifications"
	"imgsim/internal/pipeline"
	"imgsim/internal/preflight"
)

type runFlags struct {
	collections []string
	query       string
	jsonOutput  bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.collections, "collection", nil, "Restrict the run to a collection (repeatable)")
	cmd.Flags().StringVar(&f.query, "query", "", "Query image to select from the ground-truth and retrieval files")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print the run summary as JSON")
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [extract|index|retrieve|match|all]",
		Short: "Run pipeline stages over every collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector := pipeline.SelectorAll
			if len(args) == 1 {
				selector = args[0]
			}
			return runPipeline(cmd, ctx, selector, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	short := map[string]string{
		string(pipeline.StageExtract):  "Extract descriptors for every collection",
		string(pipeline.StageIndex):    "Build the retrieval index for every collection",
		string(pipeline.StageRetrieve): "Query each collection index with its ground-truth image",
		string(pipeline.StageMatch):    "Match, score, rank, and render every collection",
		pipeline.SelectorAll:           "Run every stage in order",
	}
	selectors := []string{
		string(pipeline.StageExtract),
		string(pipeline.StageIndex),
		string(pipeline.StageRetrieve),
		string(pipeline.StageMatch),
		pipeline.SelectorAll,
	}
	commands := make([]*cobra.Command, 0, len(selectors))
	for _, selector := range selectors {
		var flags runFlags
		cmd := &cobra.Command{
			Use:   selector,
			Short: short[selector],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(cmd, ctx, selector, flags)
			},
		}
		flags.register(cmd)
		commands = append(commands, cmd)
	}
	return commands
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, selector string, flags runFlags) error {
	stages, err := pipeline.ParseStages(selector)
	if err != nil {
		return err
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	if missing := missingEngineBinaries(preflight.CheckEngine(cfg), stages); len(missing) > 0 {
		return fmt.Errorf("engine binaries missing: %s (set engine.bin_dir or run `imgsim preflight`)", strings.Join(missing, ", "))
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	drv := driver.New(cfg, pipeline.NewDeps(cfg, client, logger), store, logger)
	summary, err := drv.Run(signalCtx, driver.Options{
		Stages:      stages,
		Collections: flags.collections,
		Query:       strings.TrimSpace(flags.query),
	})
	if err != nil {
		return err
	}
	notifyRun(context.WithoutCancel(signalCtx), cfg, logger, summary)

	if flags.jsonOutput {
		return writeJSON(cmd, summaryView(summary))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d completed, %d skipped, %d failed (%s)\n",
		summary.RunID, summary.Completed, summary.Skipped, summary.Failed,
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	if len(summary.Collections) == 0 {
		fmt.Fprintln(out, "No collections found")
		return nil
	}
	rows := make([][]string, 0, len(summary.Collections))
	for _, report := range summary.Collections {
		rows = append(rows, []string{report.Name, string(report.State), stageTrail(report), report.Reason})
	}
	fmt.Fprintln(out, renderTable([]string{"Collection", "State", "Stages", "Reason"}, rows, nil, shouldColorize(out)))
	if signalCtx.Err() != nil {
		return context.Canceled
	}
	return nil
}

func notifyRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, summary driver.Summary) {
	report := notifications.RunReport{
		RunID:     summary.RunID,
		Completed: summary.Completed,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Duration:  summary.FinishedAt.Sub(summary.StartedAt),
	}
	for _, stage := range summary.Stages {
		report.Stages = append(report.Stages, string(stage))
	}
	for _, coll := range summary.Collections {
		if coll.State == driver.StateFailed {
			report.FailedCollections = append(report.FailedCollections, coll.Name)
		}
	}
	if err := notifications.NewService(cfg).NotifyRunCompleted(ctx, report); err != nil {
		logging.WarnWithContext(ctx, logger, "run notification failed", "notification",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func missingEngineBinaries(statuses []deps.Status, stages []pipeline.Stage) []string {
	var names []string
	for _, status := range deps.Missing(statuses) {
		if slices.Contains(stages, pipeline.Stage(status.Name)) {
			names = append(names, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
		}
	}
	return names
}

func stageTrail(report driver.CollectionReport) string {
	parts := make([]string, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		label := string(outcome.Kind)
		if outcome.CacheHit {
			label = "cached"
		}
		parts = append(parts, fmt.Sprintf("%s:%s", outcome.Stage, label))
	}
	return strings.Join(parts, " ")
}

type runSummaryView struct {
	RunID       string                 `json:"run_id"`
	Stages      []string               `json:"stages"`
	Completed   int                    `json:"completed"`
	Skipped     int                    `json:"skipped"`
	Failed      int                    `json:"failed"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
	Collections []collectionReportView `json:"collections"`
}

type collectionReportView struct {
	Name   string            `json:"name"`
	State  string            `json:"state"`
	Reason string            `json:"reason,omitempty"`
	Stages []stageReportView `json:"stages"`
}

type stageReportView struct {
	Stage    string `json:"stage"`
	Outcome  string `json:"outcome"`
	CacheHit bool   `json:"cache_hit"`
	Reason   string `json:"reason,omitempty"`
}

func summaryView(summary driver.Summary) runSummaryView {
	view := runSummaryView{
		RunID:      summary.RunID,
		Completed:  summary.Completed,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}
	for _, stage := range summary.Stages {
		view.Stages = append(view.Stages, string(stage))
	}
	for _, report := range summary.Collections {
		coll := collectionReportView{Name: report.Name, State: string(report.State), Reason: report.Reason}
		for _, outcome := range report.Outcomes {
			coll.Stages = append(coll.Stages, stageReportView{
				Stage:    string(outcome.Stage),
				Outcome:  string(outcome.Kind),
				CacheHit: outcome.CacheHit,
				Reason:   outcome.Reason,
			})
		}
		view.Collections = append(view.Collections, coll)
	}
	return view
}
