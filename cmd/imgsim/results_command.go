package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"imgsim/internal/ledger"
	"imgsim/internal/scoring"
	"imgsim/internal/textutil"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var query string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "results <collection>",
		Short: "Show the latest ranked results stored for a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			collection := strings.TrimSpace(args[0])
			set, err := store.LatestScores(cmd.Context(), collection, strings.TrimSpace(query))
			if err != nil {
				if errors.Is(err, ledger.ErrNoScores) {
					return fmt.Errorf("no stored results for collection %s; run `imgsim match --collection %s` first", collection, collection)
				}
				return err
			}
			records := set.Records
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			if jsonOutput {
				return writeJSON(cmd, struct {
					RunID      string           `json:"run_id"`
					Collection string           `json:"collection"`
					Query      string           `json:"query_image"`
					Records    []scoring.Record `json:"records"`
				}{set.RunID, set.Collection, set.Query, records})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Collection %s, query %s (run %s)\n", set.Collection, set.Query, set.RunID)
			if len(records) == 0 {
				fmt.Fprintln(out, "No candidate scored above the no-match threshold")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for i, rec := range records {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					rec.RelatedImage,
					strconv.Itoa(rec.MatchedPoints),
					formatFloat(rec.CustomScore),
					formatFloat(rec.GlobalScore),
					formatFloat(rec.FinalScore),
					textutil.DisplayTitle(rec.Title),
					yesNo(rec.URI != ""),
				})
			}
			headers := []string{"#", "Image", "Matched", "Custom", "Global", "Final", "Title", "Link"}
			aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Query image (default: most recent query)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many records")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
