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
	"mediaproc/internal/services"
	"mediaproc/internal/testsupport"
)

const testHash = "Zm9vYmFy"

func newJob(t *testing.T, ext string, meta probe.Metadata) processor.Job {
	t.Helper()
	upload := filepath.Join(t.TempDir(), "upload."+ext)
	testsupport.WriteFile(t, upload, 16)
	storage := filepath.Join(t.TempDir(), "storage")
	if err := os.MkdirAll(storage, 0o755); err != nil {
		t.Fatalf("mkdir storage: %v", err)
	}
	return processor.Job{Hash: testHash, Source: upload, Extension: ext, StorageDir: storage, Metadata: meta}
}

func storageFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read storage: %v", err)
	}
	var files []string
	for _, entry := range entries {
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(files)
	return files
}

func avMetadata() probe.Metadata {
	return probe.Metadata{
		HasVideo: true,
		HasAudio: true,
		Streams: []probe.StreamInfo{
			{Type: probe.StreamVideo, Index: 0},
			{Type: probe.StreamAudio, Index: 1},
		},
	}
}

func TestLookupIsTotal(t *testing.T) {
	known := map[string]processor.Variant{
		"video":            processor.VariantVideo,
		"audio":            processor.VariantAudio,
		"image":            processor.VariantImage,
		"image/png":        processor.VariantPNG,
		"image/jpeg":       processor.VariantJPEG,
		"image/svg+xml":    processor.VariantSVG,
		"image/x-gimp-xcf": processor.VariantXCF,
	}
	for key, want := range known {
		if got := processor.Lookup(key); got != want {
			t.Fatalf("Lookup(%q) = %s, want %s", key, got, want)
		}
	}
	for _, key := range []string{"", "VIDEO", "image/gif", "application/pdf", " video", "default"} {
		if got := processor.Lookup(key); got != processor.VariantDefault {
			t.Fatalf("Lookup(%q) = %s, want default", key, got)
		}
	}
	if len(processor.Keys()) != len(known) {
		t.Fatalf("unexpected key count %d", len(processor.Keys()))
	}
}

func TestDefaultVariantRejects(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	job := newJob(t, "bin", probe.Metadata{})
	proc := processor.Dispatch("application/x-unknown", job, processor.Env{Runner: runner})

	err := proc.Sync(context.Background())
	if !errors.Is(err, processor.ErrUnrecognisedFormat) {
		t.Fatalf("expected ErrUnrecognisedFormat, got %v", err)
	}
	if !errors.Is(err, services.ErrUnrecognisedFormat) {
		t.Fatalf("expected services marker, got %v", err)
	}
	if len(runner.Commands()) != 0 {
		t.Fatalf("expected no invocations, got %v", runner.Names())
	}
	if len(proc.Artifacts()) != 0 {
		t.Fatalf("expected empty manifest, got %v", proc.Artifacts())
	}
	if files := storageFiles(t, job.StorageDir); len(files) != 0 {
		t.Fatalf("expected zero artifacts, got %v", files)
	}
}

func TestManifestMatchesWrittenFiles(t *testing.T) {
	cases := []struct {
		key string
		ext string
	}{
		{"video", "mkv"},
		{"audio", "flac"},
		{"image", "bmp"},
		{"image/png", "png"},
		{"image/jpeg", "jpg"},
		{"image/jpeg", "jpeg"},
		{"image/svg+xml", "svg"},
		{"image/x-gimp-xcf", "xcf"},
	}
	for _, tc := range cases {
		t.Run(tc.ext, func(t *testing.T) {
			runner := &testsupport.FakeRunner{}
			job := newJob(t, tc.ext, avMetadata())
			proc := processor.Dispatch(tc.key, job, processor.Env{Runner: runner})

			if err := proc.Sync(context.Background()); err != nil {
				t.Fatalf("Sync: %v", err)
			}
			if err := proc.Async(context.Background()); err != nil {
				t.Fatalf("Async: %v", err)
			}

			want := append([]string(nil), proc.Artifacts()...)
			slices.Sort(want)
			if got := storageFiles(t, job.StorageDir); !slices.Equal(got, want) {
				t.Fatalf("written files %v, manifest %v", got, want)
			}
		})
	}
}

func TestVideoEndToEnd(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	job := newJob(t, "mkv", avMetadata())
	handle := processor.Begin(processor.Dispatch("video", job, processor.Env{Runner: runner}))

	servable, err := handle.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	stem := job.Stem()
	afterSync := []string{stem + ".mkv", stem + ".mp4", stem + ".png", stem + ".webm"}
	if got := storageFiles(t, job.StorageDir); !slices.Equal(got, afterSync) {
		t.Fatalf("after sync got %v, want %v", got, afterSync)
	}

	if err := servable.Async(context.Background()); err != nil {
		t.Fatalf("Async: %v", err)
	}
	afterAsync := []string{stem + ".mkv", stem + ".mp4", stem + ".ogv", stem + ".png", stem + ".webm"}
	if got := storageFiles(t, job.StorageDir); !slices.Equal(got, afterAsync) {
		t.Fatalf("after async got %v, want %v", got, afterAsync)
	}
	if _, err := os.Stat(processor.StylesheetPath(job)); !os.IsNotExist(err) {
		t.Fatalf("expected no stylesheet, stat err %v", err)
	}
	wantSteps := []string{"copy", "thumbnail", "mp4", "webm", "ogv"}
	if got := runner.Names(); !slices.Equal(got, wantSteps) {
		t.Fatalf("steps %v, want %v", got, wantSteps)
	}
	if servable.State() != processor.StateAsyncDone {
		t.Fatalf("unexpected state %s", servable.State())
	}
}

func TestVideoCommandContracts(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	job := newJob(t, "mkv", avMetadata())
	tools := invocation.Tools{"ffmpeg": "/opt/bin/ffmpeg"}
	proc := processor.Dispatch("video", job, processor.Env{Runner: runner, Tools: tools})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := proc.Async(context.Background()); err != nil {
		t.Fatalf("Async: %v", err)
	}

	stem := job.Stem()
	in := job.Source
	want := map[string][]string{
		"copy":      {in, stem + ".mkv"},
		"thumbnail": {"-y", "-i", in, "-vframes", "1", "-map", "0:v:0", stem + ".png"},
		"mp4": {"-y", "-i", in, "-vcodec", "libx264", "-movflags", "faststart", "-acodec", "libfdk_aac",
			"-pix_fmt", "yuv420p", "-profile:v", "baseline", "-preset", "slower", "-crf", "18",
			"-vf", "scale=trunc(in_w/2)*2:trunc(in_h/2)*2", "-map", "0:v:0", "-map", "0:a:0", stem + ".mp4"},
		"webm": {"-y", "-i", in, "-c:v", "libvpx", "-c:a", "libvorbis", "-pix_fmt", "yuv420p",
			"-quality", "good", "-b:v", "2M", "-crf", "5", "-map", "0:v:0", "-map", "0:a:0", stem + ".webm"},
		"ogv": {"-y", "-i", in, "-q:v", "5", "-pix_fmt", "yuv420p", "-acodec", "libvorbis", "-vcodec", "libtheora",
			"-map", "0:v:0", "-map", "0:a:0", stem + ".ogv"},
	}
	for _, cmd := range runner.Commands() {
		args, ok := want[cmd.Name]
		if !ok {
			t.Fatalf("unexpected command %s", cmd.Name)
		}
		if !slices.Equal(cmd.Args, args) {
			t.Fatalf("%s args\n got %q\nwant %q", cmd.Name, cmd.Args, args)
		}
		if cmd.Name != "copy" && cmd.Tool != "/opt/bin/ffmpeg" {
			t.Fatalf("%s: expected configured ffmpeg, got %q", cmd.Name, cmd.Tool)
		}
	}
}

func TestVideoAudioOnlyMapsAudio(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	job := newJob(t, "webm", probe.Metadata{HasAudio: true})
	proc := processor.Dispatch("video", job, processor.Env{Runner: runner})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(runner.Named("thumbnail")) != 0 {
		t.Fatal("expected no thumbnail without a video stream")
	}
	mp4 := runner.Named("mp4")[0]
	joined := strings.Join(mp4.Args, " ")
	if strings.Contains(joined, "0:v:0") || !strings.Contains(joined, "-map 0:a:0 "+job.Stem()+".mp4") {
		t.Fatalf("unexpected stream maps: %s", joined)
	}
	if slices.Contains(proc.Artifacts(), job.Path("png")) {
		t.Fatalf("thumbnail should not be declared without video: %v", proc.Artifacts())
	}
}

func TestOtherVariantCommands(t *testing.T) {
	cases := []struct {
		key   string
		ext   string
		steps map[string][]string
	}{
		{"audio", "wav", map[string][]string{
			"mp3": {"-y", "-i", "{in}", "-acodec", "libmp3lame", "-q:a", "0", "-map", "0:a:0", "{stem}.mp3"},
			"ogg": {"-y", "-i", "{in}", "-acodec", "libvorbis", "-q:a", "10", "-map", "0:a:0", "{stem}.ogg"},
		}},
		{"image", "bmp", map[string][]string{
			"png":     {"{in}", "{stem}.png"},
			"optipng": {"-o5", "{stem}.png"},
		}},
		{"image/jpeg", "jpeg", map[string][]string{
			"jpegtran": {"-optimize", "-perfect", "-copy", "none", "-outfile", "{stem}.jpeg", "{in}"},
		}},
		{"image/svg+xml", "svg", map[string][]string{
			"tidy": {"-asxml", "-xml", "--hide-comments", "1", "--wrap", "0", "--quiet", "--write-back", "1", "{in}"},
		}},
		{"image/x-gimp-xcf", "xcf", map[string][]string{
			"png": {"{in}", "-o", "{stem}.png"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			runner := &testsupport.FakeRunner{}
			job := newJob(t, tc.ext, probe.Metadata{HasAudio: true})
			proc := processor.Dispatch(tc.key, job, processor.Env{Runner: runner})
			if err := proc.Sync(context.Background()); err != nil {
				t.Fatalf("Sync: %v", err)
			}
			if err := proc.Async(context.Background()); err != nil {
				t.Fatalf("Async: %v", err)
			}
			for name, tmpl := range tc.steps {
				cmds := runner.Named(name)
				if len(cmds) != 1 {
					t.Fatalf("expected one %s command, got %d", name, len(cmds))
				}
				want := make([]string, len(tmpl))
				for i, arg := range tmpl {
					arg = strings.ReplaceAll(arg, "{in}", job.Source)
					want[i] = strings.ReplaceAll(arg, "{stem}", job.Stem())
				}
				if !slices.Equal(cmds[0].Args, want) {
					t.Fatalf("%s args\n got %q\nwant %q", name, cmds[0].Args, want)
				}
			}
		})
	}
}

func TestSyncFailurePropagatesInvocationError(t *testing.T) {
	invErr := &invocation.InvocationError{Name: "mp4", Tool: "ffmpeg", ExitCode: 1, Stderr: []string{"Unknown encoder"}}
	runner := &testsupport.FakeRunner{Failures: map[string]error{"mp4": invErr}}
	job := newJob(t, "mkv", avMetadata())
	handle := processor.Begin(processor.Dispatch("video", job, processor.Env{Runner: runner}))

	servable, err := handle.Sync(context.Background())
	if servable != nil {
		t.Fatal("expected no servable handle after failed sync")
	}
	var got *invocation.InvocationError
	if !errors.As(err, &got) || got.Stderr[0] != "Unknown encoder" {
		t.Fatalf("expected invocation error with stderr, got %v", err)
	}
	if handle.State() != processor.StateSyncFailed {
		t.Fatalf("unexpected state %s", handle.State())
	}
	if slices.Contains(runner.Names(), "webm") {
		t.Fatal("expected later steps to be skipped")
	}
}

func TestAsyncFailureKeepsFileServable(t *testing.T) {
	runner := &testsupport.FakeRunner{Failures: map[string]error{"ogg": errors.New("exit status 1")}}
	job := newJob(t, "flac", probe.Metadata{HasAudio: true})
	servable, err := processor.Begin(processor.Dispatch("audio", job, processor.Env{Runner: runner})).Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := servable.Async(context.Background()); err == nil {
		t.Fatal("expected async error")
	}
	if servable.State() != processor.StateAsyncFailed || !servable.State().Servable() {
		t.Fatalf("expected servable async-failed state, got %s", servable.State())
	}
	if _, err := os.Stat(job.Path("mp3")); err != nil {
		t.Fatalf("expected sync artifact to remain: %v", err)
	}
}

func TestJobValidation(t *testing.T) {
	job := newJob(t, "png", probe.Metadata{})
	job.Hash = "../escape"
	err := processor.Dispatch("image/png", job, processor.Env{Runner: &testsupport.FakeRunner{}}).Sync(context.Background())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestJPEGKeepsUploadExtension(t *testing.T) {
	if !processor.DescriptorFor(processor.VariantJPEG).InPlace {
		t.Fatal("expected jpeg outputs to be in place")
	}
	if processor.DescriptorFor(processor.VariantPNG).InPlace {
		t.Fatal("expected png outputs to use their format tag")
	}

	runner := &testsupport.FakeRunner{}
	job := newJob(t, "jpeg", probe.Metadata{})
	proc := processor.Dispatch("image/jpeg", job, processor.Env{Runner: runner})
	if err := proc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	want := job.Stem() + ".jpeg"
	if got := proc.Artifacts(); !slices.Equal(got, []string{want}) {
		t.Fatalf("unexpected artifacts %v", got)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected %s on disk: %v", want, err)
	}
	if _, err := os.Stat(job.Stem() + ".jpg"); !os.IsNotExist(err) {
		t.Fatalf("expected no .jpg derivative, got %v", err)
	}
}

func TestDescriptors(t *testing.T) {
	entries := processor.Descriptors()
	if len(entries) != len(processor.Variants()) {
		t.Fatalf("expected an entry per variant, got %d", len(entries))
	}
	video := processor.DescriptorFor(processor.VariantVideo)
	if video.Time.Seconds() != 300 || !slices.Equal(video.Outputs, []string{"mp4", "webm", "ogv"}) || !slices.Equal(video.Extras, []string{"png"}) {
		t.Fatalf("unexpected video descriptor %+v", video)
	}
	video.Outputs[0] = "mutated"
	if processor.DescriptorFor(processor.VariantVideo).Outputs[0] != "mp4" {
		t.Fatal("expected descriptor copies")
	}
	for _, entry := range entries {
		if entry.Descriptor.Time <= 0 {
			t.Fatalf("%s: expected positive time budget", entry.Variant)
		}
		if entry.Variant != processor.VariantDefault && len(entry.Keys) == 0 {
			t.Fatalf("%s: expected dispatch keys", entry.Variant)
		}
	}
	for _, v := range processor.Variants() {
		parsed, err := processor.ParseVariant(v.String())
		if err != nil || parsed != v {
			t.Fatalf("ParseVariant(%q) = %v, %v", v.String(), parsed, err)
		}
	}
	if _, err := processor.ParseVariant("gif"); err == nil {
		t.Fatal("expected unknown variant error")
	}
}
