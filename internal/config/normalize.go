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
	c.normalizeEngine()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		c.Paths.JournalPath = defaultJournalPath
	}
	if c.Paths.JournalPath, err = expandPath(strings.TrimSpace(c.Paths.JournalPath)); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	return nil
}

// normalizeEngine applies env overrides only when the file left the default
// binary in place, so an explicit config value wins.
func (c *Config) normalizeEngine() {
	c.Engine.FFmpeg = strings.TrimSpace(c.Engine.FFmpeg)
	if c.Engine.FFmpeg == "" || c.Engine.FFmpeg == defaultFFmpeg {
		if value, ok := os.LookupEnv(envFFmpeg); ok && strings.TrimSpace(value) != "" {
			c.Engine.FFmpeg = strings.TrimSpace(value)
		}
	}
	if c.Engine.FFmpeg == "" {
		c.Engine.FFmpeg = defaultFFmpeg
	}

	c.Engine.FFprobe = strings.TrimSpace(c.Engine.FFprobe)
	if c.Engine.FFprobe == "" || c.Engine.FFprobe == defaultFFprobe {
		if value, ok := os.LookupEnv(envFFprobe); ok && strings.TrimSpace(value) != "" {
			c.Engine.FFprobe = strings.TrimSpace(value)
		}
	}
	if c.Engine.FFprobe == "" {
		c.Engine.FFprobe = defaultFFprobe
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
