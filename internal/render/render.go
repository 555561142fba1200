// Package render prints resource groups for the status and watch commands.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/chmouel/lazyhg/internal/models"
	"github.com/chmouel/lazyhg/internal/scm"
	"github.com/chmouel/lazyhg/internal/theme"
)

const renameArrow = " ← "

// Options controls text rendering.
type Options struct {
	Theme     *theme.Theme
	NoColor   bool
	ShowIcons bool
	// Width truncates lines when positive.
	Width int
}

type styles struct {
	header lipgloss.Style
	count  lipgloss.Style
	muted  lipgloss.Style
	status func(models.Status, models.MergeStatus) lipgloss.Style
}

func newStyles(opts Options) styles {
	if opts.NoColor {
		plain := lipgloss.NewStyle()
		return styles{
			header: plain,
			count:  plain,
			muted:  plain,
			status: func(models.Status, models.MergeStatus) lipgloss.Style { return plain },
		}
	}
	th := opts.Theme
	if th == nil {
		th = theme.Dracula()
	}
	return styles{
		header: lipgloss.NewStyle().Foreground(th.Header).Bold(true),
		count:  lipgloss.NewStyle().Foreground(th.MutedFg),
		muted:  lipgloss.NewStyle().Foreground(th.MutedFg),
		status: func(s models.Status, m models.MergeStatus) lipgloss.Style {
			return lipgloss.NewStyle().Foreground(th.StatusColor(s, m))
		},
	}
}

// Groups writes every non-empty group in presentation order.
func Groups(w io.Writer, groups *scm.StatusGroups, root string, opts Options) error {
	st := newStyles(opts)
	first := true
	for _, g := range groups.All() {
		if g.Len() == 0 {
			continue
		}
		if !first {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		first = false

		header := st.header.Render(g.Label()) + " " + st.count.Render(fmt.Sprintf("(%d)", g.Len()))
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, r := range g.Resources() {
			if _, err := fmt.Fprintln(w, "  "+line(r, root, opts, st)); err != nil {
				return err
			}
		}
	}
	if first {
		_, err := fmt.Fprintln(w, st.muted.Render("No changes"))
		return err
	}
	return nil
}

// Line renders a single resource the way Groups does, without indentation.
func Line(r scm.Resource, root string, opts Options) string {
	return line(r, root, opts, newStyles(opts))
}

func line(r scm.Resource, root string, opts Options, st styles) string {
	var b strings.Builder
	b.WriteString(st.status(r.Status, r.MergeStatus).Render(fmt.Sprintf("%-1s", r.Letter())))
	b.WriteString(" ")

	rel := r.RelPath(root)
	if opts.ShowIcons {
		b.WriteString(iconWithSpace(Icon(rel)))
	}
	b.WriteString(rel)
	if r.Renamed() {
		b.WriteString(st.muted.Render(renameArrow + r.RenameRelPath(root)))
	}
	if marker := mergeMarker(r.MergeStatus); marker != "" {
		b.WriteString(" ")
		b.WriteString(st.status(r.Status, r.MergeStatus).Render(marker))
	}

	out := b.String()
	if opts.Width > 0 {
		out = truncate.StringWithTail(out, uint(opts.Width), "…")
	}
	return out
}

func mergeMarker(m models.MergeStatus) string {
	switch m {
	case models.MergeStatusUnresolved:
		return "[unresolved]"
	case models.MergeStatusResolved:
		return "[resolved]"
	default:
		return ""
	}
}

// Entry is the JSON form of a resource.
type Entry struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Letter string `json:"letter"`
	Merge  string `json:"merge"`
	Rename string `json:"rename,omitempty"`
}

// Document is the JSON form of one generation of groups.
type Document struct {
	Root      string  `json:"root"`
	Conflict  []Entry `json:"conflict"`
	Staging   []Entry `json:"staging"`
	Merge     []Entry `json:"merge"`
	Working   []Entry `json:"working"`
	Untracked []Entry `json:"untracked"`
	Parent    []Entry `json:"parent"`
}

// NewDocument converts groups into their JSON form.
func NewDocument(groups *scm.StatusGroups, root string) Document {
	entries := func(g *scm.ResourceGroup) []Entry {
		out := make([]Entry, 0, g.Len())
		for _, r := range g.Resources() {
			out = append(out, Entry{
				Path:   r.RelPath(root),
				Status: r.Status.String(),
				Letter: r.Letter(),
				Merge:  r.MergeStatus.String(),
				Rename: r.RenameRelPath(root),
			})
		}
		return out
	}
	return Document{
		Root:      root,
		Conflict:  entries(groups.Conflict),
		Staging:   entries(groups.Staging),
		Merge:     entries(groups.Merge),
		Working:   entries(groups.Working),
		Untracked: entries(groups.Untracked),
		Parent:    entries(groups.Parent),
	}
}

// JSON writes groups as an indented JSON document.
func JSON(w io.Writer, groups *scm.StatusGroups, root string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(groups, root))
}
