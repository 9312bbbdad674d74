package deps

import (
	"os"
	"path/filepath"
	"testing"

	"mediaproc/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured command, got %#v", results[2])
	}
}

func TestRequirementsCoverConfiguredTools(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)

	byName := make(map[string]Requirement, len(reqs))
	for _, req := range reqs {
		byName[req.Name] = req
	}
	for name, binary := range cfg.ToolPaths() {
		req, ok := byName[name]
		if !ok {
			t.Fatalf("tool %s has no requirement", name)
		}
		if req.Command != binary {
			t.Fatalf("tool %s: expected command %q, got %q", name, binary, req.Command)
		}
	}
	if !byName["otfinfo"].Optional {
		t.Fatal("otfinfo only improves stylesheets and should be optional")
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Requirement: Requirement{Name: "ffmpeg"}, Available: true},
		{Requirement: Requirement{Name: "tidy"}},
		{Requirement: Requirement{Name: "otfinfo", Optional: true}},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "tidy" {
		t.Fatalf("expected only tidy missing, got %#v", missing)
	}
}
