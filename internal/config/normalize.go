package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("MEDIAPROC_STORAGE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StorageDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.StorageDir, err = expandPath(strings.TrimSpace(c.Paths.StorageDir)); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MetricsFile, err = expandPath(strings.TrimSpace(c.Paths.MetricsFile)); err != nil {
		return fmt.Errorf("paths.metrics_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	defaults := defaultTools()
	fields := []struct {
		value    *string
		fallback string
	}{
		{&c.Tools.FFmpeg, defaults.FFmpeg},
		{&c.Tools.FFprobe, defaults.FFprobe},
		{&c.Tools.Copy, defaults.Copy},
		{&c.Tools.Convert, defaults.Convert},
		{&c.Tools.OptiPNG, defaults.OptiPNG},
		{&c.Tools.JPEGTran, defaults.JPEGTran},
		{&c.Tools.Tidy, defaults.Tidy},
		{&c.Tools.XCF2PNG, defaults.XCF2PNG},
		{&c.Tools.OTFInfo, defaults.OTFInfo},
	}
	for _, field := range fields {
		*field.value = strings.TrimSpace(*field.value)
		if *field.value == "" {
			*field.value = field.fallback
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
