package processor

import (
	"context"

	"mediaproc/internal/invocation"
)

type videoProcessor struct {
	base
}

func (p *videoProcessor) streamMap() invocation.StreamMap {
	meta := p.job.Metadata
	return invocation.StreamMap{Video: meta.HasVideo, Audio: meta.HasAudio}
}

func (p *videoProcessor) Sync(ctx context.Context) error {
	if err := p.job.Validate(); err != nil {
		return err
	}
	p.sideFiles = nil
	if _, err := p.run(ctx, copyOriginal); err != nil {
		return err
	}
	if p.job.Metadata.HasVideo {
		if _, err := p.run(ctx, videoThumbnail); err != nil {
			return err
		}
	}
	maps := p.streamMap()
	if _, err := p.run(ctx, videoMP4, maps); err != nil {
		return err
	}
	if _, err := p.run(ctx, videoWebM, maps); err != nil {
		return err
	}
	if p.job.Metadata.HasFonts || p.job.Metadata.HasSubtitles {
		p.sideFiles = p.extract(ctx)
	}
	return ctx.Err()
}

func (p *videoProcessor) Async(ctx context.Context) error {
	_, err := p.run(ctx, videoOGV, p.streamMap())
	return err
}

// Artifacts omits the thumbnail when the input has no video stream.
func (p *videoProcessor) Artifacts() []string {
	paths := p.declared()
	if p.job.Metadata.HasVideo {
		return paths
	}
	thumb := p.job.Path("png")
	out := paths[:0]
	for _, path := range paths {
		if path != thumb {
			out = append(out, path)
		}
	}
	return out
}
