package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediaproc/internal/config"
	"mediaproc/internal/queue"
	"mediaproc/internal/staging"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the processing queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Hash", "Variant", "Status", "Created", "Error"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|hash>",
		Short: "Show details for a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				ref := strings.TrimSpace(args[0])
				var item *queue.Item
				var err error
				if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
					item, err = store.GetByID(cmd.Context(), id)
				}
				if err == nil && item == nil {
					item, err = store.GetByHash(cmd.Context(), ref)
				}
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item %s not found", ref)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderItemDetail(item, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return rejected items to pending and degraded items to servable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				updated, err := store.Retry(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				if updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed items to retry")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d item(s)\n", updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Removed item %d\n", id)
					} else {
						fmt.Fprintf(out, "Item %d not found\n", id)
					}
				}
				return pruneUploads(cmd, cfg, store)
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items, optionally only those in the given statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var removed int64
				if len(statuses) == 0 {
					removed, err = store.Clear(cmd.Context())
				} else {
					removed, err = store.ClearStatuses(cmd.Context(), statuses...)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queue items\n", removed)
				return pruneUploads(cmd, cfg, store)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Only clear items in this status (repeatable)")
	return cmd
}

// pruneUploads deletes staged uploads no remaining item references.
func pruneUploads(cmd *cobra.Command, cfg *config.Config, store *queue.Store) error {
	items, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	active := make(map[string]struct{}, len(items))
	for _, item := range items {
		active[item.Hash] = struct{}{}
	}
	result := staging.CleanOrphaned(cmd.Context(), cfg.UploadDir(), active, 0, nil)
	if len(result.Removed) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d staged upload(s)\n", len(result.Removed))
	}
	for _, failure := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "prune %s: %v\n", failure.Path, failure.Error)
	}
	return nil
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown queue status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
