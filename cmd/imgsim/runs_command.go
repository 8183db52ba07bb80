package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"imgsim/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					runDuration(run),
					strings.Join(run.Stages, ","),
					strconv.Itoa(run.Completed),
					strconv.Itoa(run.Skipped),
					strconv.Itoa(run.Failed),
				})
			}
			headers := []string{"Run", "Started", "Duration", "Stages", "Done", "Skipped", "Failed"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(headers, rows, aligns, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-collection stage outcomes of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runID := strings.TrimSpace(args[0])
			records, err := store.StageRecords(cmd.Context(), runID)
			if err != nil {
				return err
			}
			states, err := store.CollectionStates(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, struct {
					Stages      []ledger.StageRecord     `json:"stages"`
					Collections []ledger.CollectionState `json:"collections"`
				}{records, states})
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 && len(states) == 0 {
				return fmt.Errorf("run %s not found", runID)
			}
			stageRows := make([][]string, 0, len(records))
			for _, rec := range records {
				stageRows = append(stageRows, []string{
					rec.Collection,
					rec.Stage,
					rec.Outcome,
					yesNo(rec.CacheHit),
					rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond).String(),
					rec.Reason,
				})
			}
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderTable([]string{"Collection", "Stage", "Outcome", "Cached", "Duration", "Reason"}, stageRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}, colorize))

			stateRows := make([][]string, 0, len(states))
			for _, state := range states {
				stateRows = append(stateRows, []string{state.Collection, state.State, state.Reason})
			}
			fmt.Fprintln(out, renderTable([]string{"Collection", "State", "Reason"}, stateRows, nil, colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

func openLedger(ctx *commandContext) (*ledger.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

func runDuration(run ledger.Run) string {
	if run.FinishedAt.IsZero() {
		return "running"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
