package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageDir == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositive([]namedValue{
		{"workflow.queue_poll_interval", c.Workflow.QueuePollInterval},
		{"workflow.error_retry_interval", c.Workflow.ErrorRetryInterval},
		{"workflow.heartbeat_interval", c.Workflow.HeartbeatInterval},
		{"workflow.heartbeat_timeout", c.Workflow.HeartbeatTimeout},
		{"workflow.sync_workers", c.Workflow.SyncWorkers},
		{"workflow.async_workers", c.Workflow.AsyncWorkers},
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.KillGraceSeconds < 0 {
		return errors.New("workflow.kill_grace_seconds must be >= 0")
	}
	if c.Workflow.EnforceTimeBudget && c.Workflow.TimeBudgetScale <= 0 {
		return errors.New("workflow.time_budget_scale must be positive when workflow.enforce_time_budget is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

type namedValue struct {
	key   string
	value int
}

func ensurePositive(values []namedValue) error {
	for _, v := range values {
		if v.value <= 0 {
			return fmt.Errorf("%s must be positive", v.key)
		}
	}
	return nil
}
