package processor

import (
	"context"

	"mediaproc/internal/invocation"
)

// plan is a variant whose phases are fixed template sequences.
type plan struct {
	sync  []invocation.Template
	async []invocation.Template
}

var (
	audioPlan = plan{
		sync:  []invocation.Template{copyOriginal, audioMP3},
		async: []invocation.Template{audioOGG},
	}
	imagePlan = plan{
		sync:  []invocation.Template{copyOriginal, imageConvert},
		async: []invocation.Template{optimizePNG},
	}
	pngPlan = plan{
		sync:  []invocation.Template{copyOriginal},
		async: []invocation.Template{optimizePNG},
	}
	jpegPlan = plan{
		sync: []invocation.Template{optimizeJPEG},
	}
	svgPlan = plan{
		sync:  []invocation.Template{copyOriginal},
		async: []invocation.Template{tidySVG},
	}
	xcfPlan = plan{
		sync:  []invocation.Template{copyOriginal, flattenXCF},
		async: []invocation.Template{optimizePNG},
	}
)

type stepProcessor struct {
	base
	plan plan
}

func (p *stepProcessor) Sync(ctx context.Context) error {
	if err := p.job.Validate(); err != nil {
		return err
	}
	return p.runAll(ctx, p.plan.sync)
}

func (p *stepProcessor) Async(ctx context.Context) error {
	return p.runAll(ctx, p.plan.async)
}

func (p *stepProcessor) Artifacts() []string {
	return p.declared()
}
