package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"

	"github.com/chmouel/lazyhg/internal/render"
	"github.com/chmouel/lazyhg/internal/theme"
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	count    lipgloss.Style
	selected lipgloss.Style
	status   lipgloss.Style
	errText  lipgloss.Style
	muted    lipgloss.Style
	added    lipgloss.Style
	removed  lipgloss.Style
	hunk     lipgloss.Style
}

func newStyles(th *theme.Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Foreground(th.AccentFg).Background(th.Accent).Bold(true).Padding(0, 1),
		header:   lipgloss.NewStyle().Foreground(th.Header).Bold(true),
		count:    lipgloss.NewStyle().Foreground(th.MutedFg),
		selected: lipgloss.NewStyle().Background(th.AccentDim).Bold(true),
		status:   lipgloss.NewStyle().Foreground(th.TextFg),
		errText:  lipgloss.NewStyle().Foreground(th.Conflict),
		muted:    lipgloss.NewStyle().Foreground(th.MutedFg),
		added:    lipgloss.NewStyle().Foreground(th.Added),
		removed:  lipgloss.NewStyle().Foreground(th.Deleted),
		hunk:     lipgloss.NewStyle().Foreground(th.Accent),
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showDiff {
		return m.diffView()
	}

	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteString("\n")

	if m.help.ShowAll {
		b.WriteString(m.help.View(m.keys))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.listView())
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) titleLine() string {
	title := m.styles.title.Render("lazyhg")
	info := " " + m.repo.Root()
	if m.repo.Merging() {
		info += "  " + m.styles.errText.Render("merge in progress")
	}
	return truncate.StringWithTail(title+m.styles.muted.Render(info), uint(max(m.width, 1)), "…")
}

func (m *Model) listView() string {
	height := m.listHeight()
	var b strings.Builder

	if len(m.rows) == 0 {
		msg := "No changes"
		if m.loading {
			msg = "Loading…"
		}
		b.WriteString(m.styles.muted.Render(msg))
		b.WriteString("\n")
		for i := 1; i < height; i++ {
			b.WriteString("\n")
		}
		return b.String()
	}

	opts := render.Options{
		Theme:     m.theme,
		ShowIcons: m.cfg.ShowIcons,
		Width:     max(m.width-2, 10),
	}
	root := m.repo.Root()
	end := min(len(m.rows), m.offset+height)
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		if r.header {
			b.WriteString(m.styles.header.Render(r.group.Label()))
			b.WriteString(" ")
			b.WriteString(m.styles.count.Render(fmt.Sprintf("(%d)", r.count)))
			b.WriteString("\n")
			continue
		}
		line := "  " + render.Line(r.resource, root, opts)
		if i == m.cursor {
			line = m.styles.selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	for i := end - m.offset; i < height; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) statusLine() string {
	if m.status == "" {
		return ""
	}
	text := truncate.StringWithTail(m.status, uint(max(m.width, 1)), "…")
	if strings.HasPrefix(m.status, "Error:") {
		return m.styles.errText.Render(text)
	}
	return m.styles.status.Render(text)
}

func (m *Model) diffView() string {
	title := m.styles.title.Render("diff") + " " + m.styles.header.Render(m.diffTitle)
	footer := m.styles.muted.Render(fmt.Sprintf("%3.f%%  esc/q close", m.viewport.ScrollPercent()*100))
	return title + "\n" + m.viewport.View() + "\n" + footer
}

// colorDiff styles unified diff lines and wraps them to the window width.
func (m *Model) colorDiff(content string) string {
	width := max(m.width, 20)
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for i, line := range lines {
		line = wrap.String(line, width)
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = m.styles.header.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = m.styles.hunk.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = m.styles.added.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = m.styles.removed.Render(line)
		default:
			lines[i] = line
		}
	}
	return strings.Join(lines, "\n")
}
