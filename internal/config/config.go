package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StorageDir  string `toml:"storage_dir"`
	LogDir      string `toml:"log_dir"`
	MetricsFile string `toml:"metrics_file"`
}

// Tools names the external binaries invoked by processors. Values may be bare
// names resolved through PATH or absolute paths.
type Tools struct {
	FFmpeg   string `toml:"ffmpeg"`
	FFprobe  string `toml:"ffprobe"`
	Copy     string `toml:"cp"`
	Convert  string `toml:"convert"`
	OptiPNG  string `toml:"optipng"`
	JPEGTran string `toml:"jpegtran"`
	Tidy     string `toml:"tidy"`
	XCF2PNG  string `toml:"xcf2png"`
	OTFInfo  string `toml:"otfinfo"`
}

// Workflow contains configuration for daemon timing, lanes, and time budgets.
type Workflow struct {
	QueuePollInterval  int     `toml:"queue_poll_interval"`
	ErrorRetryInterval int     `toml:"error_retry_interval"`
	HeartbeatInterval  int     `toml:"heartbeat_interval"`
	HeartbeatTimeout   int     `toml:"heartbeat_timeout"`
	SyncWorkers        int     `toml:"sync_workers"`
	AsyncWorkers       int     `toml:"async_workers"`
	EnforceTimeBudget  bool    `toml:"enforce_time_budget"`
	TimeBudgetScale    float64 `toml:"time_budget_scale"`
	KillGraceSeconds   int     `toml:"kill_grace_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediaproc.
//
// Configuration sections by subsystem:
//   - Paths: derived artifact storage, logs/queue database, metrics textfile
//   - Tools: external binaries used by the processor variants
//   - Workflow: lane sizes, polling intervals, heartbeats, async time budgets
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediaproc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.UploadDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Paths.MetricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.Paths.MetricsFile), 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the processing state database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.LogDir, "queue.db")
}

// UploadDir is where enqueue --stage keeps its copies of uploads.
func (c *Config) UploadDir() string {
	return filepath.Join(c.Paths.StorageDir, ".uploads")
}

// LockPath returns the single-instance lock file used by the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "mediaproc.lock")
}

// ToolPaths maps the logical tool names used in command templates to the
// configured binaries.
func (c *Config) ToolPaths() map[string]string {
	return map[string]string{
		"ffmpeg":   c.Tools.FFmpeg,
		"ffprobe":  c.Tools.FFprobe,
		"cp":       c.Tools.Copy,
		"convert":  c.Tools.Convert,
		"optipng":  c.Tools.OptiPNG,
		"jpegtran": c.Tools.JPEGTran,
		"tidy":     c.Tools.Tidy,
		"xcf2png":  c.Tools.XCF2PNG,
		"otfinfo":  c.Tools.OTFInfo,
	}
}

// FFprobeBinary returns the ffprobe executable used for metadata inspection.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return defaultFFprobe
	}
	return c.Tools.FFprobe
}

// PollInterval returns the queue polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.QueuePollInterval) * time.Second
}

// RetryInterval returns the back-off used after a lane error.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Workflow.ErrorRetryInterval) * time.Second
}

// HeartbeatEvery returns the heartbeat interval as a duration.
func (c *Config) HeartbeatEvery() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// HeartbeatStaleAfter returns how long a processing item may go without a heartbeat.
func (c *Config) HeartbeatStaleAfter() time.Duration {
	return time.Duration(c.Workflow.HeartbeatTimeout) * time.Second
}

// KillGrace returns the delay between SIGTERM and SIGKILL for cancelled tools.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.Workflow.KillGraceSeconds) * time.Second
}

// AsyncBudget scales a processor's declared time budget. A zero result means the
// budget is not enforced.
func (c *Config) AsyncBudget(declared time.Duration) time.Duration {
	if !c.Workflow.EnforceTimeBudget || declared <= 0 {
		return 0
	}
	return time.Duration(float64(declared) * c.Workflow.TimeBudgetScale)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
