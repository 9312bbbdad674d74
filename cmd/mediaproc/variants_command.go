package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediaproc/internal/processor"
)

func newVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "variants",
		Short:       "List processor variants and the dispatch keys that select them",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Variant", "Keys", "Outputs", "Extras", "Keeps original", "Async budget"},
				buildVariantRows(processor.Descriptors()),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func buildVariantRows(entries []processor.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		keys := strings.Join(entry.Keys, ", ")
		if keys == "" {
			keys = "(fallback)"
		}
		outputs := orDash(strings.Join(entry.Descriptor.Outputs, ", "))
		if entry.Descriptor.InPlace {
			outputs += " (in place)"
		}
		rows = append(rows, []string{
			entry.Variant.String(),
			keys,
			outputs,
			orDash(strings.Join(entry.Descriptor.Extras, ", ")),
			yesNo(entry.Descriptor.KeepsOriginal),
			entry.Descriptor.Time.String(),
		})
	}
	return rows
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
