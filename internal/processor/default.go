package processor

import (
	"context"
	"fmt"
)

type defaultProcessor struct {
	base
}

func (p *defaultProcessor) Sync(context.Context) error {
	return fmt.Errorf("%s: %w", p.job.Hash, ErrUnrecognisedFormat)
}

func (p *defaultProcessor) Async(context.Context) error { return nil }

func (p *defaultProcessor) Artifacts() []string { return nil }
