package workflow_test

import (
	"context"
	"testing"
	"time"

	"mediaproc/internal/config"
	"mediaproc/internal/probe"
	"mediaproc/internal/queue"
	"mediaproc/internal/testsupport"
	"mediaproc/internal/workflow"
)

type harness struct {
	cfg     *config.Config
	store   *queue.Store
	runner  *testsupport.FakeRunner
	manager *workflow.Manager
}

func newHarness(t *testing.T, runner *testsupport.FakeRunner, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	if runner == nil {
		runner = &testsupport.FakeRunner{}
	}
	manager := workflow.NewManager(cfg, store, nil,
		workflow.WithRunner(runner),
		workflow.WithPollInterval(10*time.Millisecond),
	)
	return &harness{cfg: cfg, store: store, runner: runner, manager: manager}
}

func (h *harness) enqueue(t *testing.T, hash, category, ext string, meta probe.Metadata) *queue.Item {
	t.Helper()
	return testsupport.NewItem(t, h.store, h.cfg, hash, category, ext, meta)
}

func (h *harness) reload(t *testing.T, id int64) *queue.Item {
	t.Helper()
	item, err := h.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item == nil {
		t.Fatalf("item %d disappeared", id)
	}
	return item
}

func (h *harness) waitForStatus(t *testing.T, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		item := h.reload(t, id)
		if item.Status == want {
			return item
		}
		time.Sleep(10 * time.Millisecond)
	}
	item := h.reload(t, id)
	t.Fatalf("item %d: timed out waiting for %s, last status %s (%s)", id, want, item.Status, item.ErrorMessage)
	return nil
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

func audioMetadata() probe.Metadata {
	return probe.Metadata{HasAudio: true, Streams: []probe.StreamInfo{{Type: probe.StreamAudio, Index: 0}}}
}
