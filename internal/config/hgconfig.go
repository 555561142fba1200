package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	hgConfigSection = "lazyhg"
	cliConfigPrefix = "lh."
)

// hgConfigMock allows tests to mock hg config output.
var hgConfigMock func(hgPath string, args []string, repoPath string) (string, error)

// runHgConfig executes hg config and returns raw output.
func runHgConfig(hgPath string, args []string, repoPath string) (string, error) {
	if hgConfigMock != nil {
		return hgConfigMock(hgPath, args, repoPath)
	}

	// #nosec G204 -- hgPath comes from the user's own configuration
	cmd := exec.Command(hgPath, args...)
	if repoPath != "" {
		cmd.Dir = repoPath
	}
	cmd.Env = append(os.Environ(), "HGPLAIN=1")

	output, err := cmd.Output()
	if err != nil {
		// hg config exits 1 when the section is empty
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return string(output), nil
}

// parseHgConfigOutput parses "lazyhg.key=value" lines into a multi-value map.
func parseHgConfigOutput(output string) map[string][]string {
	configMap := make(map[string][]string)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fullKey, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, ok := strings.CutPrefix(strings.TrimSpace(fullKey), hgConfigSection+".")
		if !ok || key == "" {
			continue
		}
		configMap[key] = append(configMap[key], value)
	}
	return configMap
}

// convertHgConfig converts to the format expected by applyConfig.
func convertHgConfig(hgCfg map[string][]string) map[string]any {
	result := make(map[string]any, len(hgCfg))
	for key, values := range hgCfg {
		if len(values) == 0 {
			continue
		}
		if len(values) > 1 {
			anySlice := make([]any, len(values))
			for i, v := range values {
				anySlice[i] = v
			}
			result[key] = anySlice
			continue
		}
		result[key] = values[0]
	}
	return result
}

// loadHgConfig reads the [lazyhg] section as seen from repoPath, so repository hgrc wins over user hgrc.
func loadHgConfig(hgPath, repoPath string) (map[string]any, error) {
	if hgPath == "" {
		hgPath = "hg"
	}
	output, err := runHgConfig(hgPath, []string{"config", hgConfigSection}, repoPath)
	if err != nil {
		return nil, err
	}
	return convertHgConfig(parseHgConfigOutput(output)), nil
}

// parseCLIConfigOverrides parses --config=lh.key=value format.
func parseCLIConfigOverrides(overrides []string) (map[string]any, error) {
	result := make(map[string]any)

	for _, override := range overrides {
		fullKey, value, ok := strings.Cut(override, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config override: %q, expected format: lh.key=value (note: use = not space)", override)
		}

		if !strings.HasPrefix(fullKey, cliConfigPrefix) {
			return nil, fmt.Errorf("config override key must start with '%s': %q", cliConfigPrefix, fullKey)
		}

		key := strings.TrimPrefix(fullKey, cliConfigPrefix)
		if key == "" {
			return nil, fmt.Errorf("empty config key in override: %q", override)
		}

		switch existing := result[key].(type) {
		case nil:
			result[key] = value
		case string:
			result[key] = []any{existing, value}
		case []any:
			result[key] = append(existing, value)
		}
	}

	return result, nil
}
