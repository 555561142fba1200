// Package config loads lazyhg configuration from YAML, hg config and CLI overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	log "github.com/chmouel/lazyhg/internal/log"
	"github.com/chmouel/lazyhg/internal/theme"
	"github.com/chmouel/lazyhg/internal/utils"
)

// AppConfig defines the lazyhg configuration options.
type AppConfig struct {
	HgPath            string
	DebugLog          string
	Theme             string // Theme name: see AvailableThemes in internal/theme
	ShowParent        bool   // Query and show the Parent Changes group (default: true)
	ShowIcons         bool   // Render Nerd Font icons next to files (default: true)
	ShowIgnored       bool   // Include ignored files in Untracked Files (default: false)
	AutoRefresh       bool   // Refresh when the repository changes on disk (default: true)
	RefreshDebounceMs int
	MaxDiffChars      int
	Pager             string

	// Sources lists where values were read from, in application order.
	Sources []string `yaml:"-"`
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		HgPath:            "hg",
		ShowParent:        true,
		ShowIcons:         true,
		ShowIgnored:       false,
		AutoRefresh:       true,
		RefreshDebounceMs: 600,
		MaxDiffChars:      200000,
	}
}

// RefreshDebounce returns the watcher debounce as a duration.
func (c *AppConfig) RefreshDebounce() time.Duration {
	return time.Duration(c.RefreshDebounceMs) * time.Millisecond
}

func coerceBool(value any, defaultVal bool) bool {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		text := strings.ToLower(strings.TrimSpace(v))
		switch text {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	case []any:
		if len(v) > 0 {
			return coerceBool(v[len(v)-1], defaultVal)
		}
	}
	return defaultVal
}

func coerceInt(value any, defaultVal int) int {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return defaultVal
	case int:
		return v
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return defaultVal
		}
		if i, err := strconv.Atoi(text); err == nil {
			return i
		}
	case []any:
		if len(v) > 0 {
			return coerceInt(v[len(v)-1], defaultVal)
		}
	}
	return defaultVal
}

// coerceString returns the last value for multi-valued keys.
func coerceString(value any, defaultVal string) string {
	switch v := value.(type) {
	case nil:
		return defaultVal
	case string:
		return strings.TrimSpace(v)
	case []any:
		if len(v) > 0 {
			return coerceString(v[len(v)-1], defaultVal)
		}
		return defaultVal
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// applyConfig overlays the keys present in data onto cfg.
func applyConfig(cfg *AppConfig, data map[string]any) {
	if v, ok := data["hg_path"]; ok {
		cfg.HgPath = coerceString(v, cfg.HgPath)
		if cfg.HgPath == "" {
			cfg.HgPath = "hg"
		}
	}
	if v, ok := data["debug_log"]; ok {
		cfg.DebugLog = coerceString(v, cfg.DebugLog)
	}
	if v, ok := data["theme"]; ok {
		cfg.Theme = theme.NormalizeThemeName(coerceString(v, ""))
	}
	if v, ok := data["pager"]; ok {
		cfg.Pager = coerceString(v, cfg.Pager)
	}

	cfg.ShowParent = coerceBool(data["show_parent"], cfg.ShowParent)
	cfg.ShowIcons = coerceBool(data["show_icons"], cfg.ShowIcons)
	cfg.ShowIgnored = coerceBool(data["show_ignored"], cfg.ShowIgnored)
	cfg.AutoRefresh = coerceBool(data["auto_refresh"], cfg.AutoRefresh)

	if debounce := coerceInt(data["refresh_debounce_ms"], cfg.RefreshDebounceMs); debounce > 0 {
		cfg.RefreshDebounceMs = debounce
	}
	if maxChars := coerceInt(data["max_diff_chars"], cfg.MaxDiffChars); maxChars >= 0 {
		cfg.MaxDiffChars = maxChars
	}
}

func parseConfig(data map[string]any) *AppConfig {
	cfg := DefaultConfig()
	applyConfig(cfg, data)
	return cfg
}

func getConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// ConfigDir returns the directory holding lazyhg's config file.
func ConfigDir() string {
	return filepath.Clean(filepath.Join(getConfigDir(), "lazyhg"))
}

// LoadConfig reads the YAML config. An explicit configPath must live inside ConfigDir.
func LoadConfig(configPath string) (*AppConfig, error) {
	configBase := ConfigDir()

	var paths []string
	if configPath != "" {
		expanded, err := utils.ExpandPath(configPath)
		if err != nil {
			return DefaultConfig(), err
		}
		absPath, err := filepath.Abs(expanded)
		if err != nil {
			return DefaultConfig(), err
		}
		if !utils.IsPathWithin(configBase, absPath) {
			return DefaultConfig(), fmt.Errorf("config path must reside inside %s", configBase)
		}
		paths = []string{absPath}
	} else {
		paths = []string{
			filepath.Join(configBase, "config.yaml"),
			filepath.Join(configBase, "config.yml"),
		}
	}

	for _, path := range paths {
		// #nosec G304 -- path is constrained to the config directory after validation
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var yamlData map[string]any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
			return DefaultConfig(), nil
		}

		cfg := parseConfig(yamlData)
		cfg.Sources = append(cfg.Sources, path)
		return cfg, nil
	}

	return DefaultConfig(), nil
}

// Load builds the effective configuration: YAML file, then hg config, then CLI overrides.
// A failing hg config lookup is not fatal.
func Load(configPath, repoPath string, overrides []string) (*AppConfig, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}

	hgCfg, err := loadHgConfig(cfg.HgPath, repoPath)
	if err == nil && len(hgCfg) > 0 {
		applyConfig(cfg, hgCfg)
		cfg.Sources = append(cfg.Sources, "hg config")
	}

	if err := cfg.ApplyCLIOverrides(overrides); err != nil {
		return cfg, err
	}

	if cfg.Theme == "" {
		cfg.Theme = theme.Detect()
	}
	return cfg, nil
}

// ApplyCLIOverrides overlays lh.key=value overrides onto the config.
func (c *AppConfig) ApplyCLIOverrides(overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}
	data, err := parseCLIConfigOverrides(overrides)
	if err != nil {
		return err
	}
	applyConfig(c, data)
	c.Sources = append(c.Sources, "command line")
	return nil
}
