package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mediaproc/internal/probe"
	"mediaproc/internal/processor"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSyncing   Status = "syncing"
	StatusRejected  Status = "rejected"
	StatusServable  Status = "servable"
	StatusImproving Status = "improving"
	StatusDegraded  Status = "degraded"
	StatusCompleted Status = "completed"
)

// DaemonStopReason is the progress message set when in-flight items are
// returned to their lane because the daemon stopped.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusSyncing,
	StatusRejected,
	StatusServable,
	StatusImproving,
	StatusDegraded,
	StatusCompleted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusSyncing:   {},
	StatusImproving: {},
}

type statusTransition struct {
	from Status
	to   Status
}

// rollbackTransitions return an interrupted phase to the status its lane claims from.
var rollbackTransitions = []statusTransition{
	{from: StatusSyncing, to: StatusPending},
	{from: StatusImproving, to: StatusServable},
}

// retryTransitions re-arm failed phases. A degraded item keeps its sync
// artifacts, so only the async phase runs again.
var retryTransitions = []statusTransition{
	{from: StatusRejected, to: StatusPending},
	{from: StatusDegraded, to: StatusServable},
}

var processorStates = map[Status]processor.State{
	StatusPending:   processor.StatePending,
	StatusSyncing:   processor.StateSyncRunning,
	StatusRejected:  processor.StateSyncFailed,
	StatusServable:  processor.StateSyncDone,
	StatusImproving: processor.StateAsyncRunning,
	StatusDegraded:  processor.StateAsyncFailed,
	StatusCompleted: processor.StateAsyncDone,
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus attempts to map a string into a known queue status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// IsProcessing reports whether a phase is actively running for the status.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// ProcessorState maps the persisted status onto the processing state machine.
func (s Status) ProcessorState() processor.State {
	if state, ok := processorStates[s]; ok {
		return state
	}
	return processor.StatePending
}

// Servable reports whether the item's artifacts may be served.
func (s Status) Servable() bool {
	return s.ProcessorState().Servable()
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Servable   int
	Rejected   int
	Degraded   int
	Completed  int
}

// Item represents one uploaded file persisted in SQLite.
type Item struct {
	ID         int64
	Hash       string
	SourcePath string
	// Extension is stored without the leading dot.
	Extension string
	// Category is the dispatch key the item was enqueued with.
	Category        string
	Variant         string
	Status          Status
	MetadataJSON    string
	ArtifactsJSON   string
	SideFilesJSON   string
	ErrorMessage    string
	ErrorKind       string
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
	SyncDuration    time.Duration
	AsyncDuration   time.Duration
}

// Metadata decodes the probed stream summary stored with the item.
func (i Item) Metadata() (probe.Metadata, error) {
	return probe.Decode(i.MetadataJSON)
}

// SetMetadata encodes meta onto the item.
func (i *Item) SetMetadata(meta probe.Metadata) error {
	payload, err := meta.Encode()
	if err != nil {
		return err
	}
	i.MetadataJSON = payload
	return nil
}

// Artifacts returns the declared manifest recorded after sync.
func (i Item) Artifacts() []string {
	return decodePaths(i.ArtifactsJSON)
}

// SideFiles returns the font, stylesheet, and subtitle files written during sync.
func (i Item) SideFiles() []string {
	return decodePaths(i.SideFilesJSON)
}

// SetArtifacts records the declared manifest.
func (i *Item) SetArtifacts(paths []string) error {
	encoded, err := encodePaths(paths)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	i.ArtifactsJSON = encoded
	return nil
}

// SetSideFiles records extraction output.
func (i *Item) SetSideFiles(paths []string) error {
	encoded, err := encodePaths(paths)
	if err != nil {
		return fmt.Errorf("encode side files: %w", err)
	}
	i.SideFilesJSON = encoded
	return nil
}

// IsProcessing reports whether the item is currently claimed by a lane.
func (i Item) IsProcessing() bool {
	return i.Status.IsProcessing()
}

func decodePaths(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil
	}
	return paths
}

func encodePaths(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	payload, err := json.Marshal(paths)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
