package manifest_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"mediaproc/internal/manifest"
	"mediaproc/internal/testsupport"
)

func TestReconcileSplitsPresentAndMissing(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "h.mp4")
	testsupport.WriteFile(t, present, 8)
	missing := filepath.Join(dir, "h.ogv")
	subdir := filepath.Join(dir, "h.webm")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	report := manifest.Reconcile([]string{present, missing, subdir})
	if !slices.Equal(report.Present, []string{present}) {
		t.Fatalf("unexpected present %v", report.Present)
	}
	if !slices.Equal(report.Missing, []string{missing, subdir}) {
		t.Fatalf("unexpected missing %v", report.Missing)
	}
	if report.Complete() {
		t.Fatal("expected incomplete report")
	}
	if !manifest.Reconcile(nil).Complete() {
		t.Fatal("empty manifest should be complete")
	}
}

func TestDiscardRemovesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "h.mkv")
	b := filepath.Join(dir, "h_fonts.css")
	testsupport.WriteFile(t, a, 4)
	testsupport.WriteFile(t, b, 4)

	if err := manifest.Discard([]string{a, b, filepath.Join(dir, "absent"), ""}); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	for _, path := range []string{a, b} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err %v", path, err)
		}
	}
}
