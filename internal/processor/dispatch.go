package processor

import (
	"log/slog"
	"slices"

	"mediaproc/internal/invocation"
	"mediaproc/internal/logging"
)

var dispatchTable = map[string]Variant{
	"video":            VariantVideo,
	"audio":            VariantAudio,
	"image":            VariantImage,
	"image/png":        VariantPNG,
	"image/jpeg":       VariantJPEG,
	"image/svg+xml":    VariantSVG,
	"image/x-gimp-xcf": VariantXCF,
}

// Lookup resolves a category or MIME key by exact match. Unknown keys map to
// VariantDefault, whose Sync always rejects the input.
func Lookup(key string) Variant {
	if v, ok := dispatchTable[key]; ok {
		return v
	}
	return VariantDefault
}

// Keys lists the dispatch keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(dispatchTable))
	for key := range dispatchTable {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// KeysFor lists the dispatch keys that select v.
func KeysFor(v Variant) []string {
	var keys []string
	for _, key := range Keys() {
		if dispatchTable[key] == v {
			keys = append(keys, key)
		}
	}
	return keys
}

// Env carries the collaborators shared by every processor.
type Env struct {
	Runner   invocation.Runner
	Tools    invocation.Tools
	Logger   *slog.Logger
	Observer Observer
}

// Observer receives extraction statistics.
type Observer interface {
	ObserveFontRules(count int)
}

// Dispatch is Lookup followed by New.
func Dispatch(key string, job Job, env Env) Processor {
	return New(Lookup(key), job, env)
}

// New binds variant to job.
func New(variant Variant, job Job, env Env) Processor {
	if env.Logger == nil {
		env.Logger = logging.NewNop()
	}
	if env.Runner == nil {
		env.Runner = invocation.NewExecRunner(env.Logger)
	}
	b := newBase(variant, job, env)

	switch variant {
	case VariantVideo:
		return &videoProcessor{base: b}
	case VariantAudio:
		return &stepProcessor{base: b, plan: audioPlan}
	case VariantImage:
		return &stepProcessor{base: b, plan: imagePlan}
	case VariantPNG:
		return &stepProcessor{base: b, plan: pngPlan}
	case VariantJPEG:
		return &stepProcessor{base: b, plan: jpegPlan}
	case VariantSVG:
		return &stepProcessor{base: b, plan: svgPlan}
	case VariantXCF:
		return &stepProcessor{base: b, plan: xcfPlan}
	default:
		b.variant = VariantDefault
		return &defaultProcessor{base: b}
	}
}
