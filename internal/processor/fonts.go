package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"mediaproc/internal/logging"
	"mediaproc/internal/probe"
)

var subtitleExtensions = map[string]string{
	"ssa": ".ass",
	"srt": ".srt",
	"vtt": ".vtt",
}

// SubtitleExtension maps a subtitle codec name to the side-file extension.
func SubtitleExtension(codec string) (string, bool) {
	ext, ok := subtitleExtensions[codec]
	return ext, ok
}

type dumpedFont struct {
	ordinal int
	path    string
}

// FontFace is the subset of font metadata a stylesheet rule needs.
type FontFace struct {
	Family    string
	Subfamily string
}

// ParseFontInfo reads otfinfo --info output. Only lines starting exactly with
// "Family:" or "Subfamily:" are used; values are trimmed of spaces and tabs.
func ParseFontInfo(lines []string) FontFace {
	var face FontFace
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "Family:"):
			face.Family = strings.Trim(line[len("Family:"):], " \t")
		case strings.HasPrefix(line, "Subfamily:"):
			face.Subfamily = strings.Trim(line[len("Subfamily:"):], " \t")
		}
	}
	return face
}

// FontFaceRule renders one @font-face rule for the font dumped with ordinal.
// A missing family omits the font-family declaration.
func FontFaceRule(hash string, ordinal int, face FontFace) string {
	var b strings.Builder
	b.WriteString("@font-face{")
	if face.Family != "" {
		fmt.Fprintf(&b, "font-family: %s;", cssString(face.Family))
	}
	fmt.Fprintf(&b, "src:url(\"/%s\");", attachmentName(hash, ordinal))
	switch face.Subfamily {
	case "SemiBold":
		b.WriteString("font-weight: 600;")
	case "Bold":
		b.WriteString("font-weight: bold;")
	case "Italic":
		b.WriteString("font-style: italic;")
	}
	b.WriteString("}")
	return b.String()
}

// cssString quotes s as a CSS string literal. Control characters become hex
// escapes terminated by a space.
func cssString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func attachmentName(hash string, ordinal int) string {
	return fmt.Sprintf("%s_attachment_%d", hash, ordinal)
}

// StylesheetPath is where the font stylesheet for a job is written.
func StylesheetPath(job Job) string {
	return job.Stem() + "_fonts.css"
}

// extract dumps fonts and the first recognised subtitle track, then writes
// the stylesheet. Failures are logged and skipped; the returned paths are the
// side files that were written.
func (p *videoProcessor) extract(ctx context.Context) []string {
	logger := logging.WithContext(ctx, p.logger)
	var (
		fonts     []dumpedFont
		written   []string
		subtitled bool
	)

	for _, stream := range p.job.Metadata.Streams {
		if ctx.Err() != nil {
			return written
		}
		switch stream.Type {
		case probe.StreamFont:
			ordinal := len(fonts)
			target := filepath.Join(p.job.StorageDir, attachmentName(p.job.Hash, ordinal))
			cmd := fontDump.Bind(p.env.Tools, p.job.params(), attachmentDump{index: stream.Index, target: target})
			cmd.Produces = []string{target}
			if _, err := p.exec(ctx, cmd); err != nil {
				logging.WarnWithContext(logger, "font dump failed", "font_dump_failed",
					logging.Int("stream_index", stream.Index),
					logging.Error(err),
					logging.String(logging.FieldImpact, "font will be missing from the stylesheet"),
				)
				continue
			}
			fonts = append(fonts, dumpedFont{ordinal: ordinal, path: target})
		case probe.StreamSubtitle:
			if subtitled || stream.Info == nil {
				continue
			}
			ext, ok := SubtitleExtension(stream.Info.CodecName)
			if !ok {
				logger.Debug("skipping subtitle stream with unsupported codec",
					logging.Int("stream_index", stream.Index),
					logging.String("codec", stream.Info.CodecName),
				)
				continue
			}
			subtitled = true
			tmpl := subtitleDump(ext)
			if _, err := p.run(ctx, tmpl); err != nil {
				logging.WarnWithContext(logger, "subtitle extraction failed", "subtitle_extract_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "subtitle track will not be available"),
				)
				continue
			}
			written = append(written, p.job.Stem()+ext)
		}
	}

	for _, font := range fonts {
		if fileExists(font.path) {
			written = append(written, font.path)
		}
	}
	if len(fonts) == 0 {
		return written
	}

	css, rules := p.stylesheet(ctx, fonts)
	path := StylesheetPath(p.job)
	if err := renameio.WriteFile(path, []byte(css), 0o644); err != nil {
		logging.WarnWithContext(logger, "font stylesheet write failed", "stylesheet_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "embedded fonts will not be styled"),
		)
		return written
	}
	if p.env.Observer != nil {
		p.env.Observer.ObserveFontRules(rules)
	}
	logger.Debug("font stylesheet written", logging.String("path", path), logging.Int("rules", rules))
	return append(written, path)
}

func (p *videoProcessor) stylesheet(ctx context.Context, fonts []dumpedFont) (string, int) {
	logger := logging.WithContext(ctx, p.logger)
	var (
		css   strings.Builder
		rules int
	)
	for _, font := range fonts {
		result, err := p.exec(ctx, fontInfo(p.env.Tools, font.path))
		if err != nil {
			logging.WarnWithContext(logger, "font inspection failed", "font_inspect_failed",
				logging.String("path", font.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "font omitted from stylesheet"),
			)
			continue
		}
		css.WriteString(FontFaceRule(p.job.Hash, font.ordinal, ParseFontInfo(result.Stdout)))
		rules++
	}
	return css.String(), rules
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
