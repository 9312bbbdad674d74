package invocation

import (
	"strings"
)

// Placeholders recognised inside template arguments.
const (
	PlaceholderInput = "{input}"
	PlaceholderStem  = "{stem}"
	PlaceholderExt   = "{ext}"
)

// Params carries the values substituted into a template.
type Params struct {
	Input string
	Stem  string
	Ext   string
}

func (p Params) replacer() *strings.Replacer {
	return strings.NewReplacer(
		PlaceholderInput, p.Input,
		PlaceholderStem, p.Stem,
		PlaceholderExt, p.Ext,
	)
}

// Expand substitutes the placeholders in value.
func (p Params) Expand(value string) string {
	return p.replacer().Replace(value)
}

// Option contributes an argument group between a template's Args and Tail.
type Option interface {
	Args() []string
}

// StreamMap selects the first video and/or audio stream of input 0.
type StreamMap struct {
	Video bool
	Audio bool
}

// Args renders the -map flags in video, audio order.
func (m StreamMap) Args() []string {
	var args []string
	if m.Video {
		args = append(args, "-map", "0:v:0")
	}
	if m.Audio {
		args = append(args, "-map", "0:a:0")
	}
	return args
}

// Template is a fixed command contract for one external tool.
type Template struct {
	// Name identifies the step in logs and metrics (for example "mp4").
	Name string
	// Tool is the logical tool name resolved through Tools.
	Tool string
	Args []string
	// Tail follows any option arguments; output paths usually live here.
	Tail []string
	// Produces lists the files the command is expected to write.
	Produces      []string
	IgnoreNonZero bool
}

// Bind resolves the tool binary and substitutes params into every argument.
func (t Template) Bind(tools Tools, params Params, opts ...Option) Command {
	r := params.replacer()
	args := make([]string, 0, len(t.Args)+len(t.Tail)+4)
	for _, arg := range t.Args {
		args = append(args, r.Replace(arg))
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		args = append(args, opt.Args()...)
	}
	for _, arg := range t.Tail {
		args = append(args, r.Replace(arg))
	}
	var produces []string
	for _, path := range t.Produces {
		produces = append(produces, r.Replace(path))
	}
	return Command{
		Name:          t.Name,
		Tool:          tools.Resolve(t.Tool),
		Args:          args,
		Produces:      produces,
		IgnoreNonZero: t.IgnoreNonZero,
	}
}

// Tools maps logical tool names to binaries.
type Tools map[string]string

// Resolve returns the configured binary for name, or name itself.
func (t Tools) Resolve(name string) string {
	if binary := strings.TrimSpace(t[name]); binary != "" {
		return binary
	}
	return name
}
