package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mediaproc/internal/config"
	"mediaproc/internal/queue"
	"mediaproc/internal/workflow"
)

type submitFlags struct {
	category string
	hash     string
	stage    bool
}

func (f *submitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.category, "category", "k", "", "Dispatch key selecting the processor (e.g. video, image/png)")
	cmd.Flags().StringVar(&f.hash, "hash", "", "Override the content hash used to name derived files")
	cmd.Flags().BoolVar(&f.stage, "stage", false, "Copy the file into the storage upload directory before queueing")
	_ = cmd.MarkFlagRequired("category")
}

func (f *submitFlags) submission(path string) workflow.Submission {
	return workflow.Submission{Path: path, Category: f.category, Hash: f.hash, Stage: f.stage}
}

// submit queues a file; a duplicate hash yields the existing item.
func submit(cmd *cobra.Command, mgr *workflow.Manager, sub workflow.Submission) (*queue.Item, error) {
	item, err := mgr.Enqueue(cmd.Context(), sub)
	if errors.Is(err, queue.ErrDuplicate) && item != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Hash %s already queued as item %d\n", item.Hash, item.ID)
		return item, nil
	}
	return item, err
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run both processing phases for a file immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(_ *config.Config, _ *queue.Store, mgr *workflow.Manager) error {
				item, err := submit(cmd, mgr, flags.submission(args[0]))
				if err != nil {
					return err
				}
				processed, procErr := mgr.ProcessNow(cmd.Context(), item.ID)
				if processed != nil {
					fmt.Fprint(cmd.OutOrStdout(), renderItemDetail(processed, shouldColorize(cmd.OutOrStdout())))
				}
				if procErr != nil && processed != nil && processed.Status == queue.StatusDegraded {
					fmt.Fprintln(cmd.OutOrStdout(), "Sync artifacts remain servable")
					return nil
				}
				return procErr
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "enqueue <file>...",
		Short: "Queue files for the background worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(_ *config.Config, _ *queue.Store, mgr *workflow.Manager) error {
				out := cmd.OutOrStdout()
				var failed int
				for _, path := range args {
					item, err := submit(cmd, mgr, flags.submission(path))
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
						continue
					}
					fmt.Fprintf(out, "Queued %s as item %d (%s, hash %s)\n", path, item.ID, item.Variant, item.Hash)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files could not be queued", failed, len(args))
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
