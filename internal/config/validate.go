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
	if err := c.validateSTT(); err != nil {
		return err
	}
	if err := c.validateMinutes(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.MediaDir == "" {
		return errors.New("paths.media_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateSTT() error {
	if c.STT.BaseURL == "" {
		return errors.New("stt.base_url must be set")
	}
	if c.STT.TimeoutSeconds <= 0 {
		return errors.New("stt.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMinutes() error {
	if !c.Minutes.Enabled {
		return nil
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set when minutes.enabled is true")
	}
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set when minutes.enabled is true")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.StageTimeoutSeconds <= 0 {
		return errors.New("pipeline.stage_timeout_seconds must be positive")
	}
	if c.Pipeline.RetryMaxAttempts < 1 {
		return errors.New("pipeline.retry_max_attempts must be at least 1")
	}
	if c.Pipeline.RetryBaseDelaySeconds < 0 {
		return errors.New("pipeline.retry_base_delay_seconds must not be negative")
	}
	if c.Pipeline.RetryMaxDelaySeconds < c.Pipeline.RetryBaseDelaySeconds {
		return errors.New("pipeline.retry_max_delay_seconds must be at least the base delay")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
