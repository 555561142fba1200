package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHgConfigOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected map[string][]string
	}{
		{
			name:   "single values",
			output: "lazyhg.theme=nord\nlazyhg.show_parent=false\n",
			expected: map[string][]string{
				"theme":       {"nord"},
				"show_parent": {"false"},
			},
		},
		{
			name:   "values with spaces and equals",
			output: "lazyhg.pager=less -R --pattern=a=b\n",
			expected: map[string][]string{
				"pager": {"less -R --pattern=a=b"},
			},
		},
		{
			name:   "repeated keys",
			output: "lazyhg.theme=dracula\nlazyhg.theme=nord\n",
			expected: map[string][]string{
				"theme": {"dracula", "nord"},
			},
		},
		{
			name:     "other sections and garbage are skipped",
			output:   "ui.username=me\nlazyhg.=x\nnot a line\n",
			expected: map[string][]string{},
		},
		{
			name:     "empty output",
			output:   "",
			expected: map[string][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseHgConfigOutput(tt.output))
		})
	}
}

func TestConvertHgConfig(t *testing.T) {
	result := convertHgConfig(map[string][]string{
		"theme":  {"nord"},
		"pager":  {"less", "more"},
		"unused": {},
	})
	assert.Equal(t, map[string]any{
		"theme": "nord",
		"pager": []any{"less", "more"},
	}, result)
}

func TestLoadHgConfig(t *testing.T) {
	t.Run("uses configured executable", func(t *testing.T) {
		var gotPath string
		hgConfigMock = func(hgPath string, _ []string, _ string) (string, error) {
			gotPath = hgPath
			return "lazyhg.auto_refresh=no\n", nil
		}
		t.Cleanup(func() { hgConfigMock = nil })

		cfg, err := loadHgConfig("chg", "/repo")
		require.NoError(t, err)
		assert.Equal(t, "chg", gotPath)
		assert.Equal(t, map[string]any{"auto_refresh": "no"}, cfg)
	})

	t.Run("empty path falls back to hg", func(t *testing.T) {
		var gotPath string
		hgConfigMock = func(hgPath string, _ []string, _ string) (string, error) {
			gotPath = hgPath
			return "", nil
		}
		t.Cleanup(func() { hgConfigMock = nil })

		cfg, err := loadHgConfig("", "")
		require.NoError(t, err)
		assert.Equal(t, "hg", gotPath)
		assert.Empty(t, cfg)
	})

	t.Run("errors are returned", func(t *testing.T) {
		hgConfigMock = func(string, []string, string) (string, error) {
			return "", errors.New("hg missing")
		}
		t.Cleanup(func() { hgConfigMock = nil })

		_, err := loadHgConfig("hg", "")
		require.Error(t, err)
	})
}

func TestParseCLIConfigOverrides(t *testing.T) {
	t.Run("single and repeated keys", func(t *testing.T) {
		result, err := parseCLIConfigOverrides([]string{
			"lh.theme=nord",
			"lh.pager=a",
			"lh.pager=b",
			"lh.pager=c",
			"lh.hg_path=/opt/hg=1/hg",
		})
		require.NoError(t, err)
		assert.Equal(t, "nord", result["theme"])
		assert.Equal(t, []any{"a", "b", "c"}, result["pager"])
		assert.Equal(t, "/opt/hg=1/hg", result["hg_path"])
	})

	t.Run("missing equals", func(t *testing.T) {
		_, err := parseCLIConfigOverrides([]string{"lh.theme nord"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected format")
	})

	t.Run("wrong prefix", func(t *testing.T) {
		_, err := parseCLIConfigOverrides([]string{"lw.theme=nord"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must start with 'lh.'")
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := parseCLIConfigOverrides([]string{"lh.=x"})
		require.Error(t, err)
	})
}

func TestApplyCLIOverrides(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyCLIOverrides(nil))
	assert.Empty(t, cfg.Sources)

	require.NoError(t, cfg.ApplyCLIOverrides([]string{"lh.show_icons=false", "lh.theme=clean-light"}))
	assert.False(t, cfg.ShowIcons)
	assert.Equal(t, "clean-light", cfg.Theme)
	assert.Equal(t, []string{"command line"}, cfg.Sources)
}
