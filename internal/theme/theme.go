// Package theme provides the colour palettes used by the TUI and the status printer.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chmouel/lazyhg/internal/models"
)

// Theme defines all colors used when drawing resource groups.
type Theme struct {
	Accent    lipgloss.Color
	AccentFg  lipgloss.Color // Foreground color for text on Accent background
	AccentDim lipgloss.Color
	Border    lipgloss.Color
	MutedFg   lipgloss.Color
	TextFg    lipgloss.Color
	Header    lipgloss.Color

	Modified  lipgloss.Color
	Added     lipgloss.Color
	Deleted   lipgloss.Color
	Untracked lipgloss.Color
	Missing   lipgloss.Color
	Conflict  lipgloss.Color
	Ignored   lipgloss.Color
}

// Theme names.
const (
	DraculaName    = "dracula"
	NordName       = "nord"
	CleanLightName = "clean-light"
)

// Dracula returns the Dracula theme (dark background, vibrant colors).
func Dracula() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#BD93F9"), // Purple
		AccentFg:  lipgloss.Color("#282A36"),
		AccentDim: lipgloss.Color("#44475A"), // Current Line / Selection
		Border:    lipgloss.Color("#6272A4"),
		MutedFg:   lipgloss.Color("#6272A4"), // Comment
		TextFg:    lipgloss.Color("#F8F8F2"),
		Header:    lipgloss.Color("#FF79C6"), // Pink
		Modified:  lipgloss.Color("#FFB86C"), // Orange
		Added:     lipgloss.Color("#50FA7B"), // Green
		Deleted:   lipgloss.Color("#FF5555"), // Red
		Untracked: lipgloss.Color("#8BE9FD"), // Cyan
		Missing:   lipgloss.Color("#F1FA8C"), // Yellow
		Conflict:  lipgloss.Color("#FF5555"),
		Ignored:   lipgloss.Color("#6272A4"),
	}
}

// Nord returns the Nord theme.
func Nord() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#88C0D0"),
		AccentFg:  lipgloss.Color("#2E3440"),
		AccentDim: lipgloss.Color("#3B4252"),
		Border:    lipgloss.Color("#4C566A"),
		MutedFg:   lipgloss.Color("#81A1C1"),
		TextFg:    lipgloss.Color("#E5E9F0"),
		Header:    lipgloss.Color("#B48EAD"),
		Modified:  lipgloss.Color("#EBCB8B"),
		Added:     lipgloss.Color("#A3BE8C"),
		Deleted:   lipgloss.Color("#BF616A"),
		Untracked: lipgloss.Color("#8FBCBB"),
		Missing:   lipgloss.Color("#D08770"),
		Conflict:  lipgloss.Color("#BF616A"),
		Ignored:   lipgloss.Color("#4C566A"),
	}
}

// CleanLight returns a neutral theme for light terminals.
func CleanLight() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#0969DA"),
		AccentFg:  lipgloss.Color("#FFFFFF"),
		AccentDim: lipgloss.Color("#DDF4FF"),
		Border:    lipgloss.Color("#D0D7DE"),
		MutedFg:   lipgloss.Color("#6E7781"),
		TextFg:    lipgloss.Color("#24292F"),
		Header:    lipgloss.Color("#8250DF"),
		Modified:  lipgloss.Color("#9A6700"),
		Added:     lipgloss.Color("#1A7F37"),
		Deleted:   lipgloss.Color("#CF222E"),
		Untracked: lipgloss.Color("#0550AE"),
		Missing:   lipgloss.Color("#BC4C00"),
		Conflict:  lipgloss.Color("#CF222E"),
		Ignored:   lipgloss.Color("#8C959F"),
	}
}

// GetTheme returns a theme by name, or Dracula if not found.
func GetTheme(name string) *Theme {
	switch NormalizeThemeName(name) {
	case NordName:
		return Nord()
	case CleanLightName:
		return CleanLight()
	default:
		return Dracula()
	}
}

// NormalizeThemeName lowercases name and returns "" when it is not a known theme.
func NormalizeThemeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case DraculaName, NordName, CleanLightName:
		return name
	default:
		return ""
	}
}

// IsLight returns true if the theme is a light theme.
func IsLight(name string) bool {
	return NormalizeThemeName(name) == CleanLightName
}

// Detect picks a theme from the terminal background.
func Detect() string {
	if lipgloss.HasDarkBackground() {
		return DraculaName
	}
	return CleanLightName
}

// AvailableThemes returns a list of available theme names.
func AvailableThemes() []string {
	return []string{DraculaName, NordName, CleanLightName}
}

// StatusColor returns the colour used for a resource status.
// Unresolved merge entries always use the conflict colour.
func (t *Theme) StatusColor(status models.Status, merge models.MergeStatus) lipgloss.Color {
	if merge == models.MergeStatusUnresolved {
		return t.Conflict
	}
	switch status {
	case models.StatusModified:
		return t.Modified
	case models.StatusAdded, models.StatusRenamed:
		return t.Added
	case models.StatusDeleted:
		return t.Deleted
	case models.StatusUntracked:
		return t.Untracked
	case models.StatusMissing:
		return t.Missing
	case models.StatusIgnored:
		return t.Ignored
	default:
		return t.TextFg
	}
}
