package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediaproc/internal/deps"
	"mediaproc/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that the external tools processors invoke are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, status := range statuses {
				kind := statusOK
				message := status.Path
				switch {
				case !status.Available && status.Optional:
					kind = statusWarn
					message = status.Detail + " (optional)"
				case !status.Available:
					kind = statusError
					message = status.Detail
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}
			for _, check := range preflight.RunAll(cfg) {
				kind := statusOK
				switch {
				case !check.Passed && check.Optional:
					kind = statusWarn
				case !check.Passed:
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprint(out, renderTable(
				[]string{"Tool", "Command", "Used by", "Purpose"},
				buildDepsRows(statuses),
				nil,
			))
			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				return fmt.Errorf("missing required tools: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func buildDepsRows(statuses []deps.Status) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status.Name, status.Command, strings.Join(status.Variants, ", "), status.Description})
	}
	return rows
}
