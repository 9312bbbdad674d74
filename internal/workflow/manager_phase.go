package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediaproc/internal/logging"
	"mediaproc/internal/manifest"
	"mediaproc/internal/metrics"
	"mediaproc/internal/processor"
	"mediaproc/internal/queue"
	"mediaproc/internal/services"
)

func (m *Manager) processItem(ctx context.Context, lane *laneState, laneLogger *slog.Logger, item *queue.Item) error {
	phaseCtx := withPhaseContext(ctx, lane, item, uuid.NewString())
	logger := logging.WithContext(phaseCtx, laneLogger).With(
		logging.String(logging.FieldHash, item.Hash),
		logging.String(logging.FieldVariant, item.Variant),
	)

	proc, err := m.processorFor(item, logger)
	if err != nil {
		m.failItem(phaseCtx, logger, item, lane, err, 0)
		return err
	}

	m.setLastItem(item)
	switch lane.kind {
	case laneAsync:
		return m.runAsync(phaseCtx, logger, item, proc)
	default:
		return m.runSync(phaseCtx, logger, item, proc)
	}
}

func (m *Manager) processorFor(item *queue.Item, logger *slog.Logger) (processor.Processor, error) {
	meta, err := item.Metadata()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "decode metadata", "stored metadata is unreadable", err)
	}
	variant, err := processor.ParseVariant(item.Variant)
	if err != nil {
		variant = processor.Lookup(item.Category)
	}
	job := processor.Job{
		Hash:       item.Hash,
		Source:     item.SourcePath,
		Extension:  item.Extension,
		StorageDir: m.cfg.Paths.StorageDir,
		Metadata:   meta,
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	env := processor.Env{
		Runner:   m.runner,
		Tools:    m.tools,
		Logger:   logger,
		Observer: m.recorder,
	}
	return processor.New(variant, job, env), nil
}

func (m *Manager) runSync(ctx context.Context, logger *slog.Logger, item *queue.Item, proc processor.Processor) error {
	lane := m.lane(laneSync)
	start := time.Now()
	logger.Info("sync phase started",
		logging.String(logging.FieldEventType, "phase_start"),
		logging.String("source_file", item.SourcePath),
	)

	pending := processor.Begin(proc)
	err := m.heartbeat.Run(ctx, item.ID, func() error {
		_, syncErr := pending.Sync(ctx)
		return syncErr
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			m.rollback(ctx, logger, item, lane)
			return err
		}
		m.discardRejected(logger, item, proc)
		m.recorder.ObservePhase(proc.Variant().String(), metrics.PhaseSync, metrics.OutcomeFailure, elapsed)
		m.failItem(ctx, logger, item, lane, err, elapsed)
		return err
	}

	item.Status = queue.SuccessStatus(lane.processing)
	item.SyncDuration = elapsed
	item.ErrorMessage = ""
	item.ErrorKind = ""
	item.ProgressMessage = "Servable"
	item.LastHeartbeat = nil
	if err := item.SetArtifacts(proc.Artifacts()); err != nil {
		return m.persistFailure(logger, err)
	}
	if err := item.SetSideFiles(proc.SideFiles()); err != nil {
		return m.persistFailure(logger, err)
	}
	if err := m.store.Update(context.WithoutCancel(ctx), item); err != nil {
		return m.persistFailure(logger, fmt.Errorf("persist sync result: %w", err))
	}

	m.recorder.ObservePhase(proc.Variant().String(), metrics.PhaseSync, metrics.OutcomeSuccess, elapsed)
	logger.Info("sync phase completed",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.String("next_status", string(item.Status)),
		logging.Int("artifacts", len(item.Artifacts())),
		logging.Int("side_files", len(item.SideFiles())),
		logging.Duration("phase_duration", elapsed),
	)
	m.setLastItem(item)
	return nil
}

func (m *Manager) runAsync(ctx context.Context, logger *slog.Logger, item *queue.Item, proc processor.Processor) error {
	lane := m.lane(laneAsync)
	servable, err := processor.Resume(proc, queue.StatusServable.ProcessorState())
	if err != nil {
		m.failItem(ctx, logger, item, lane, err, 0)
		return err
	}

	budget := m.cfg.AsyncBudget(proc.Descriptor().Time)
	asyncCtx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		asyncCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	start := time.Now()
	logger.Info("async phase started",
		logging.String(logging.FieldEventType, "phase_start"),
		logging.Duration("time_budget", budget),
	)
	err = m.heartbeat.Run(ctx, item.ID, func() error {
		return servable.Async(asyncCtx)
	})
	elapsed := time.Since(start)
	item.AsyncDuration = elapsed

	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		m.rollback(ctx, logger, item, lane)
		return err
	}

	variant := proc.Variant().String()
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, services.ErrTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		m.recorder.ObservePhase(variant, metrics.PhaseAsync, outcome, elapsed)
		m.failItem(ctx, logger, item, lane, err, elapsed)
		return err
	}

	report := manifest.Reconcile(item.Artifacts())
	if !report.Complete() {
		missing := services.Wrap(services.ErrNotFound, "async", variant,
			"declared artifacts missing: "+strings.Join(report.Missing, ", "), nil)
		m.recorder.ObservePhase(variant, metrics.PhaseAsync, metrics.OutcomeIncomplete, elapsed)
		m.failItem(ctx, logger, item, lane, missing, elapsed)
		return missing
	}

	item.Status = queue.SuccessStatus(lane.processing)
	item.ErrorMessage = ""
	item.ErrorKind = ""
	item.ProgressMessage = "Completed"
	item.LastHeartbeat = nil
	if err := m.store.Update(context.WithoutCancel(ctx), item); err != nil {
		return m.persistFailure(logger, fmt.Errorf("persist async result: %w", err))
	}

	m.recorder.ObservePhase(variant, metrics.PhaseAsync, metrics.OutcomeSuccess, elapsed)
	logger.Info("async phase completed",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.String("next_status", string(item.Status)),
		logging.Duration("phase_duration", elapsed),
	)
	m.setLastItem(item)
	return nil
}

// discardRejected removes everything a failed sync may have written. The
// upload itself is never removed, even when it lives in the storage directory.
func (m *Manager) discardRejected(logger *slog.Logger, item *queue.Item, proc processor.Processor) {
	paths := slices.Concat(proc.Artifacts(), proc.SideFiles(), []string{processor.StylesheetPath(proc.Job())})
	paths = slices.DeleteFunc(paths, func(path string) bool { return path == item.SourcePath })
	if err := manifest.Discard(paths); err != nil {
		logging.WarnWithContext(logger, "failed to discard rejected artifacts", "discard_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove leftover files under the storage directory"),
			logging.String(logging.FieldImpact, "partial artifacts remain on disk"),
		)
	}
}

func (m *Manager) failItem(ctx context.Context, logger *slog.Logger, item *queue.Item, lane *laneState, phaseErr error, elapsed time.Duration) {
	details := services.Details(phaseErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = fmt.Sprintf("%s phase failed", lane.phase())
	}

	item.Status = queue.FailureStatus(lane.processing)
	item.ErrorMessage = message
	item.ErrorKind = string(details.Kind)
	item.ProgressMessage = ""
	item.LastHeartbeat = nil
	if lane.kind == laneSync {
		item.SyncDuration = elapsed
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "phase_failure"),
		logging.String("resolved_status", string(item.Status)),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String("error_operation", details.Operation),
		logging.Duration("phase_duration", elapsed),
	}
	if details.Hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, details.Hint))
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(phaseErr))
	}
	if item.Status.Servable() {
		logging.WarnWithContext(logger, "async phase failed; sync artifacts remain servable", "phase_failure", attrs...)
	} else {
		logger.Error("sync phase failed; file rejected", logging.Args(attrs...)...)
	}

	if err := m.store.Update(context.WithoutCancel(ctx), item); err != nil {
		logger.Error("failed to persist phase failure", logging.Error(err))
	}
	m.setLastError(phaseErr)
	m.setLastItem(item)
}

// rollback returns an interrupted item to the status its lane claims from.
func (m *Manager) rollback(ctx context.Context, logger *slog.Logger, item *queue.Item, lane *laneState) {
	item.Status = lane.from
	item.ProgressMessage = queue.DaemonStopReason
	item.LastHeartbeat = nil
	if err := m.store.Update(context.WithoutCancel(ctx), item); err != nil {
		logger.Error("failed to roll back interrupted item", logging.Error(err))
		return
	}
	logger.Info("phase interrupted by shutdown",
		logging.String(logging.FieldEventType, "phase_interrupted"),
		logging.String("next_status", string(item.Status)),
	)
}

func (m *Manager) persistFailure(logger *slog.Logger, err error) error {
	logger.Error("failed to persist phase result", logging.Error(err))
	m.setLastError(err)
	return err
}
