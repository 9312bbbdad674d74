package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediaproc/internal/daemon"
	"mediaproc/internal/deps"
	"mediaproc/internal/logging"
	"mediaproc/internal/preflight"
	"mediaproc/internal/queue"
	"mediaproc/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drain the queue in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
				return fmt.Errorf("preflight: %s: %s", failed[0].Name, failed[0].Detail)
			}
			for _, status := range deps.Missing(deps.CheckBinaries(deps.Requirements(cfg))) {
				logging.WarnWithContext(logger, "required tool unavailable", "dependency_missing",
					logging.String("tool", status.Name),
					logging.String("detail", status.Detail),
					logging.String(logging.FieldImpact, "variants using this tool will reject or degrade"),
					logging.String(logging.FieldErrorHint, "install the tool or set its path under [tools]"),
				)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}

			mgr := workflow.NewManager(cfg, store, logger)
			d, err := daemon.New(cfg, store, logger, mgr)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Worker running (queue %s); press Ctrl+C to stop\n", store.Path())
			<-runCtx.Done()
			d.Stop()
			fmt.Fprintln(cmd.OutOrStdout(), "Worker stopped")
			return nil
		},
	}
}
