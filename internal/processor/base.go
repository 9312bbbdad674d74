package processor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"mediaproc/internal/invocation"
	"mediaproc/internal/logging"
)

// Processor is one variant bound to one Job.
type Processor interface {
	Variant() Variant
	Descriptor() Descriptor
	Job() Job
	// Sync runs the mandatory phase. Any error rejects the input.
	Sync(ctx context.Context) error
	// Async runs the optional phase. Errors leave sync artifacts servable.
	Async(ctx context.Context) error
	// Artifacts lists the primary manifest: original copy, outputs, extras.
	Artifacts() []string
	// SideFiles lists extracted fonts, the stylesheet, and subtitle tracks
	// written by the last Sync.
	SideFiles() []string
}

type base struct {
	variant   Variant
	job       Job
	env       Env
	logger    *slog.Logger
	sideFiles []string
}

func newBase(variant Variant, job Job, env Env) base {
	logger := logging.NewComponentLogger(env.Logger, "processor").With(
		logging.String(logging.FieldVariant, variant.String()),
		logging.String(logging.FieldHash, job.Hash),
	)
	return base{variant: variant, job: job, env: env, logger: logger}
}

func (b *base) Variant() Variant { return b.variant }

func (b *base) Descriptor() Descriptor { return DescriptorFor(b.variant) }

func (b *base) Job() Job { return b.job }

func (b *base) SideFiles() []string { return slices.Clone(b.sideFiles) }

// declared maps the descriptor's manifest onto paths.
func (b *base) declared() []string {
	desc := b.Descriptor()
	var paths []string
	if desc.KeepsOriginal {
		paths = append(paths, b.job.Path(b.job.Ext()))
	}
	for _, tag := range desc.Outputs {
		if desc.InPlace {
			tag = b.job.Ext()
		}
		paths = append(paths, b.job.Path(tag))
	}
	for _, tag := range desc.Extras {
		paths = append(paths, b.job.Path(tag))
	}
	return dedupe(paths)
}

// run binds tmpl to the job and executes it.
func (b *base) run(ctx context.Context, tmpl invocation.Template, opts ...invocation.Option) (invocation.Result, error) {
	cmd := tmpl.Bind(b.env.Tools, b.job.params(), opts...)
	return b.exec(ctx, cmd)
}

func (b *base) exec(ctx context.Context, cmd invocation.Command) (invocation.Result, error) {
	logging.WithContext(ctx, b.logger).Debug("running step",
		logging.String("step", cmd.Name),
		logging.String("tool", cmd.Label()),
	)
	result, err := b.env.Runner.Run(ctx, cmd)
	if err != nil {
		return result, fmt.Errorf("%s %s: %w", b.variant, cmd.Name, err)
	}
	return result, nil
}

func (b *base) runAll(ctx context.Context, steps []invocation.Template) error {
	for _, step := range steps {
		if _, err := b.run(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, path := range paths {
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}
