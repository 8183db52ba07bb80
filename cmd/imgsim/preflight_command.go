package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"imgsim/internal/deps"
	"imgsim/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check engine binaries and directory access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckEngine(cfg)
			binaryRows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				detail := status.Detail
				if detail == "" {
					detail = status.Description
				}
				binaryRows = append(binaryRows, []string{status.Name, status.Command, yesNo(status.Available), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Engine", "Command", "Available", "Detail"}, binaryRows, nil, colorize))

			checks := preflight.RunAll(cfg)
			dirRows := make([][]string, 0, len(checks))
			for _, check := range checks {
				dirRows = append(dirRows, []string{check.Name, yesNo(check.Passed), check.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Passed", "Detail"}, dirRows, nil, colorize))

			if len(deps.Missing(statuses)) > 0 || !preflight.Passed(checks) {
				return errors.New("preflight checks failed")
			}
			fmt.Fprintln(out, "All preflight checks passed")
			return nil
		},
	}
}
