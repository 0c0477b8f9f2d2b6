package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	expansions := []struct {
		name  string
		field *string
	}{
		{"paths.media_dir", &c.Paths.MediaDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, exp := range expansions {
		expanded, err := expandPath(*exp.field)
		if err != nil {
			return fmt.Errorf("expand %s: %w", exp.name, err)
		}
		*exp.field = expanded
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.STT.BaseURL = strings.TrimSpace(c.STT.BaseURL)
	c.STT.APIKey = strings.TrimSpace(c.STT.APIKey)
	c.STT.Model = strings.TrimSpace(c.STT.Model)
	c.STT.Language = strings.TrimSpace(c.STT.Language)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
