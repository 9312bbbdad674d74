package processor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"mediaproc/internal/invocation"
	"mediaproc/internal/probe"
	"mediaproc/internal/processor"
	"mediaproc/internal/testsupport"
)

type fontRuleCounter struct{ total int }

func (c *fontRuleCounter) ObserveFontRules(count int) { c.total += count }

func fontStream(index int) probe.StreamInfo {
	return probe.StreamInfo{Type: probe.StreamFont, Index: index, Info: &probe.StreamDetail{CodecName: "ttf"}}
}

func subtitleStream(index int, codec string) probe.StreamInfo {
	return probe.StreamInfo{Type: probe.StreamSubtitle, Index: index, Info: &probe.StreamDetail{CodecName: codec}}
}

func otfinfoByOrdinal(subfamilies map[string]string) func(invocation.Command) []string {
	return func(cmd invocation.Command) []string {
		if cmd.Name != "font-info" {
			return nil
		}
		path := cmd.Args[len(cmd.Args)-1]
		for suffix, subfamily := range subfamilies {
			if strings.HasSuffix(path, suffix) {
				return []string{
					"Family:              Open Sans",
					"Subfamily:           " + subfamily,
					"Full name:           Open Sans " + subfamily,
				}
			}
		}
		return nil
	}
}

func TestFontOrdinalsFollowStreamOrder(t *testing.T) {
	meta := avMetadata()
	meta.HasFonts = true
	meta.Streams = append(meta.Streams, fontStream(3), subtitleStream(4, "ass"), fontStream(5), fontStream(7))

	runner := &testsupport.FakeRunner{}
	job := newJob(t, "mkv", meta)
	proc := processor.Dispatch("video", job, processor.Env{Runner: runner})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	dumps := runner.Named("font-dump")
	if len(dumps) != 3 {
		t.Fatalf("expected three font dumps, got %d", len(dumps))
	}
	for i, index := range []string{"3", "5", "7"} {
		target := filepath.Join(job.StorageDir, testHash+"_attachment_"+string(rune('0'+i)))
		want := []string{"-y", "-dump_attachment:" + index, target, "-i", job.Source}
		if !slices.Equal(dumps[i].Args, want) {
			t.Fatalf("dump %d args\n got %q\nwant %q", i, dumps[i].Args, want)
		}
		if !dumps[i].IgnoreNonZero {
			t.Fatalf("dump %d must ignore nonzero exit", i)
		}
		if _, err := os.Stat(target); err != nil {
			t.Fatalf("expected %s to exist: %v", target, err)
		}
	}
	if len(runner.Named("subtitle")) != 0 {
		t.Fatal("codec ass is not a recognised subtitle codec")
	}
}

func TestSubtitleCodecMapping(t *testing.T) {
	cases := []struct {
		codec string
		ext   string
	}{
		{"ssa", ".ass"},
		{"srt", ".srt"},
		{"vtt", ".vtt"},
		{"hdmv_pgs_subtitle", ""},
		{"subrip", ""},
	}
	for _, tc := range cases {
		t.Run(tc.codec, func(t *testing.T) {
			meta := avMetadata()
			meta.HasSubtitles = true
			meta.Streams = append(meta.Streams, subtitleStream(2, tc.codec))

			runner := &testsupport.FakeRunner{}
			job := newJob(t, "mkv", meta)
			proc := processor.Dispatch("video", job, processor.Env{Runner: runner})
			if err := proc.Sync(context.Background()); err != nil {
				t.Fatalf("Sync: %v", err)
			}

			subs := runner.Named("subtitle")
			if tc.ext == "" {
				if len(subs) != 0 {
					t.Fatalf("expected no subtitle dump, got %v", subs)
				}
				if len(proc.SideFiles()) != 0 {
					t.Fatalf("expected no side files, got %v", proc.SideFiles())
				}
				return
			}
			if len(subs) != 1 {
				t.Fatalf("expected one subtitle dump, got %d", len(subs))
			}
			want := []string{"-y", "-i", job.Source, "-map", "0:s:0", job.Stem() + tc.ext}
			if !slices.Equal(subs[0].Args, want) {
				t.Fatalf("subtitle args %q, want %q", subs[0].Args, want)
			}
			if !slices.Equal(proc.SideFiles(), []string{job.Stem() + tc.ext}) {
				t.Fatalf("unexpected side files %v", proc.SideFiles())
			}
			if ext, ok := processor.SubtitleExtension(tc.codec); !ok || ext != tc.ext {
				t.Fatalf("SubtitleExtension(%q) = %q, %v", tc.codec, ext, ok)
			}
		})
	}
}

func TestDecoderSubtitleNamesAreExtracted(t *testing.T) {
	cases := []struct {
		codec string
		ext   string
	}{
		{"ass", ".ass"},
		{"subrip", ".srt"},
		{"webvtt", ".vtt"},
		{"ssa", ".ass"},
	}
	for _, tc := range cases {
		t.Run(tc.codec, func(t *testing.T) {
			payload := `{"streams": [
  {"index": 0, "codec_name": "h264", "codec_type": "video"},
  {"index": 1, "codec_name": "aac", "codec_type": "audio"},
  {"index": 2, "codec_name": "` + tc.codec + `", "codec_type": "subtitle"}
]}`
			result, err := probe.Parse([]byte(payload))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			runner := &testsupport.FakeRunner{}
			job := newJob(t, "mkv", probe.FromResult(result))
			proc := processor.Dispatch("video", job, processor.Env{Runner: runner})
			if err := proc.Sync(context.Background()); err != nil {
				t.Fatalf("Sync: %v", err)
			}

			want := job.Stem() + tc.ext
			if _, err := os.Stat(want); err != nil {
				t.Fatalf("expected subtitle side file %s: %v", want, err)
			}
			if !slices.Equal(proc.SideFiles(), []string{want}) {
				t.Fatalf("unexpected side files %v", proc.SideFiles())
			}
		})
	}
}

func TestOnlyFirstRecognisedSubtitleIsDumped(t *testing.T) {
	meta := avMetadata()
	meta.HasSubtitles = true
	meta.Streams = append(meta.Streams, subtitleStream(2, "srt"), subtitleStream(3, "vtt"), probe.StreamInfo{Type: probe.StreamSubtitle, Index: 4})

	runner := &testsupport.FakeRunner{}
	proc := processor.Dispatch("video", newJob(t, "mkv", meta), processor.Env{Runner: runner})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := len(runner.Named("subtitle")); got != 1 {
		t.Fatalf("expected a single subtitle dump, got %d", got)
	}
}

func TestStylesheetSynthesis(t *testing.T) {
	meta := avMetadata()
	meta.HasFonts = true
	meta.Streams = append(meta.Streams, fontStream(2), fontStream(3), fontStream(4), fontStream(5))

	counter := &fontRuleCounter{}
	runner := &testsupport.FakeRunner{Outputs: otfinfoByOrdinal(map[string]string{
		"_attachment_0": "Bold",
		"_attachment_1": "Italic",
		"_attachment_2": "SemiBold",
		"_attachment_3": "Regular",
	})}
	job := newJob(t, "mkv", meta)
	proc := processor.Dispatch("video", job, processor.Env{Runner: runner, Observer: counter})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	data, err := os.ReadFile(processor.StylesheetPath(job))
	if err != nil {
		t.Fatalf("read stylesheet: %v", err)
	}
	want := `@font-face{font-family: "Open Sans";src:url("/` + testHash + `_attachment_0");font-weight: bold;}` +
		`@font-face{font-family: "Open Sans";src:url("/` + testHash + `_attachment_1");font-style: italic;}` +
		`@font-face{font-family: "Open Sans";src:url("/` + testHash + `_attachment_2");font-weight: 600;}` +
		`@font-face{font-family: "Open Sans";src:url("/` + testHash + `_attachment_3");}`
	if string(data) != want {
		t.Fatalf("stylesheet\n got %s\nwant %s", data, want)
	}
	if counter.total != 4 {
		t.Fatalf("expected 4 rules observed, got %d", counter.total)
	}
	if !slices.Contains(proc.SideFiles(), processor.StylesheetPath(job)) {
		t.Fatalf("expected stylesheet in side files: %v", proc.SideFiles())
	}
	for _, cmd := range runner.Named("font-info") {
		if cmd.Args[0] != "--info" || !strings.HasPrefix(cmd.Args[1], job.StorageDir) {
			t.Fatalf("unexpected font-info args %q", cmd.Args)
		}
	}
}

type failSecondFontInfo struct {
	testsupport.FakeRunner
	calls int
}

func (r *failSecondFontInfo) Run(ctx context.Context, cmd invocation.Command) (invocation.Result, error) {
	if cmd.Name == "font-info" {
		r.calls++
		if r.calls == 2 {
			return invocation.Result{ExitCode: 1}, errors.New("otfinfo: not an OpenType font")
		}
		return invocation.Result{Stdout: []string{"Family:\tBody", "Subfamily:\tItalic"}}, nil
	}
	return r.FakeRunner.Run(ctx, cmd)
}

func TestFontInspectionFailureIsRecovered(t *testing.T) {
	meta := avMetadata()
	meta.HasFonts = true
	meta.Streams = append(meta.Streams, fontStream(2), fontStream(3), fontStream(4))

	runner := &failSecondFontInfo{}
	job := newJob(t, "mkv", meta)
	proc := processor.Dispatch("video", job, processor.Env{Runner: runner})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("font failures must not fail sync: %v", err)
	}
	data, err := os.ReadFile(processor.StylesheetPath(job))
	if err != nil {
		t.Fatalf("read stylesheet: %v", err)
	}
	css := string(data)
	if strings.Count(css, "@font-face") != 2 {
		t.Fatalf("expected two rules, got %s", css)
	}
	if strings.Contains(css, "_attachment_1") {
		t.Fatalf("failed font should be skipped: %s", css)
	}
	if !strings.Contains(css, `_attachment_2");font-style: italic;}`) {
		t.Fatalf("expected later fonts to keep their ordinal: %s", css)
	}
}

func TestFontDumpStartFailureIsRecovered(t *testing.T) {
	meta := avMetadata()
	meta.HasFonts = true
	meta.Streams = append(meta.Streams, fontStream(2))

	runner := &testsupport.FakeRunner{Failures: map[string]error{"font-dump": errors.New("exec: ffmpeg: not found")}}
	job := newJob(t, "mkv", meta)
	proc := processor.Dispatch("video", job, processor.Env{Runner: runner})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := os.Stat(processor.StylesheetPath(job)); !os.IsNotExist(err) {
		t.Fatalf("expected no stylesheet without dumped fonts: %v", err)
	}
	if len(runner.Named("font-info")) != 0 {
		t.Fatal("expected no inspection without dumped fonts")
	}
}

func TestParseFontInfo(t *testing.T) {
	face := processor.ParseFontInfo([]string{
		"Family:\t \tDejaVu Sans\t",
		"Subfamily:  Bold ",
		"Preferred family: Ignored",
		"family: lowercase ignored",
		"  Family: indented ignored",
	})
	if face.Family != "DejaVu Sans" {
		t.Fatalf("unexpected family %q", face.Family)
	}
	if face.Subfamily != "Bold" {
		t.Fatalf("unexpected subfamily %q", face.Subfamily)
	}
	if empty := processor.ParseFontInfo(nil); empty != (processor.FontFace{}) {
		t.Fatalf("expected empty face, got %+v", empty)
	}
}

func TestFontFamilyIsCSSEscaped(t *testing.T) {
	cases := map[string]string{
		"Open Sans":          `font-family: "Open Sans";`,
		"Open \"Sans\"\\x\t": `font-family: "Open \"Sans\"\\x\9 ";`,
		"Line\nBreak":        `font-family: "Line\a Break";`,
		"Noto Sans 日本語":      `font-family: "Noto Sans 日本語";`,
	}
	for family, want := range cases {
		rule := processor.FontFaceRule("h", 0, processor.FontFace{Family: family})
		if !strings.Contains(rule, want) {
			t.Fatalf("family %q: expected %s in %s", family, want, rule)
		}
	}
}

func TestFontFaceRuleDeclarations(t *testing.T) {
	cases := []struct {
		subfamily string
		want      string
		absent    []string
	}{
		{"Bold", "font-weight: bold;", []string{"font-style", "600"}},
		{"Italic", "font-style: italic;", []string{"font-weight"}},
		{"SemiBold", "font-weight: 600;", []string{"font-style", "bold;"}},
		{"Bold Italic", "", []string{"font-weight", "font-style"}},
		{"bold", "", []string{"font-weight", "font-style"}},
	}
	for _, tc := range cases {
		rule := processor.FontFaceRule("h", 1, processor.FontFace{Family: "F", Subfamily: tc.subfamily})
		if tc.want != "" && !strings.Contains(rule, tc.want) {
			t.Fatalf("%s: expected %q in %s", tc.subfamily, tc.want, rule)
		}
		for _, absent := range tc.absent {
			if strings.Contains(rule, absent) {
				t.Fatalf("%s: unexpected %q in %s", tc.subfamily, absent, rule)
			}
		}
		if !strings.Contains(rule, `src:url("/h_attachment_1");`) {
			t.Fatalf("unexpected src in %s", rule)
		}
	}
	if rule := processor.FontFaceRule("h", 0, processor.FontFace{}); strings.Contains(rule, "font-family") {
		t.Fatalf("missing family should omit font-family: %s", rule)
	}
}
