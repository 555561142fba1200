// Package app implements the lazyhg terminal UI.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chmouel/lazyhg/internal/config"
	"github.com/chmouel/lazyhg/internal/diff"
	log "github.com/chmouel/lazyhg/internal/log"
	"github.com/chmouel/lazyhg/internal/models"
	"github.com/chmouel/lazyhg/internal/repository"
	"github.com/chmouel/lazyhg/internal/scm"
	"github.com/chmouel/lazyhg/internal/theme"
	"github.com/chmouel/lazyhg/internal/watch"
)

// Backend runs the mutating hg commands bound to keys, and provides file content for diffs.
type Backend interface {
	diff.Catter
	Add(ctx context.Context, root string, paths ...string) error
	Forget(ctx context.Context, root string, paths ...string) error
	Revert(ctx context.Context, root string, paths ...string) error
	MarkResolved(ctx context.Context, root string, mark bool, paths ...string) error
}

type (
	refreshedMsg struct {
		groups *scm.StatusGroups
		err    error
	}
	actionDoneMsg struct {
		message string
		err     error
	}
	stagingDoneMsg struct {
		message string
		err     error
	}
	diffLoadedMsg struct {
		title   string
		content string
		err     error
	}
	repoChangedMsg struct{}
)

// row is one line of the list: a group header or a resource.
type row struct {
	header   bool
	group    scm.GroupID
	count    int
	resource scm.Resource
}

// Model is the bubbletea model of the status screen.
type Model struct {
	cfg     *config.AppConfig
	repo    *repository.Repository
	hg      Backend
	watcher *watch.Watcher
	theme   *theme.Theme
	styles  styles

	keys     keyMap
	help     help.Model
	viewport viewport.Model

	groups *scm.StatusGroups
	rows   []row
	cursor int // index into rows; always a resource row when any exists
	offset int

	showDiff  bool
	diffTitle string
	loading   bool
	status    string
	err       error

	// pendingRevert holds the URI waiting for a second revert key press.
	pendingRevert string

	width    int
	height   int
	quitting bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewModel creates the model. watcher may be nil to disable auto refresh.
func NewModel(cfg *config.AppConfig, repo *repository.Repository, hg Backend, watcher *watch.Watcher) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	th := theme.GetTheme(cfg.Theme)
	m := &Model{
		cfg:      cfg,
		repo:     repo,
		hg:       hg,
		watcher:  watcher,
		theme:    th,
		styles:   newStyles(th),
		keys:     defaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		groups:   repo.Groups(),
		width:    80,
		height:   24,
		loading:  true,
		ctx:      ctx,
		cancel:   cancel,
	}
	m.rebuildRows("")
	return m
}

// Init starts the first refresh and the watcher loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.startWatcher())
}

func (m *Model) refreshCmd() tea.Cmd {
	repo := m.repo
	ctx := m.ctx
	return func() tea.Msg {
		groups, err := repo.Refresh(ctx)
		return refreshedMsg{groups: groups, err: err}
	}
}

func (m *Model) startWatcher() tea.Cmd {
	if m.watcher == nil || !m.cfg.AutoRefresh {
		return nil
	}
	if err := m.watcher.Start(); err != nil {
		log.Printf("watcher start: %v", err)
		return nil
	}
	return m.waitForWatchEvent()
}

func (m *Model) waitForWatchEvent() tea.Cmd {
	if m.watcher == nil || !m.cfg.AutoRefresh {
		return nil
	}
	events := m.watcher.Events()
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return repoChangedMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-2)
		m.ensureVisible()
		return m, nil

	case refreshedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.status = refreshErrorText(msg.err)
			return m, nil
		}
		m.err = nil
		if m.status == refreshingText {
			m.status = ""
		}
		// msg.groups may predate a staging change published while it was queued
		m.setGroups(m.repo.Groups())
		return m, nil

	case repoChangedMsg:
		return m, tea.Batch(m.refreshCmd(), m.waitForWatchEvent())

	case actionDoneMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.status = msg.message
		return m, m.refreshCmd()

	case stagingDoneMsg:
		if msg.err != nil {
			if errors.Is(msg.err, repository.ErrMergeInProgress) {
				m.status = "Merge in progress: staging is disabled"
				return m, nil
			}
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.status = msg.message
		m.setGroups(m.repo.Groups())
		return m, nil

	case diffLoadedMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.showDiff = true
		m.diffTitle = msg.title
		m.viewport.SetContent(m.colorDiff(msg.content))
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	pending := m.pendingRevert
	m.pendingRevert = ""

	if m.showDiff {
		if key.Matches(msg, m.keys.Close) {
			m.showDiff = false
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.help.ShowAll {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Close) {
			m.help.ShowAll = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Top):
		m.moveTo(0, 1)
	case key.Matches(msg, m.keys.Bottom):
		m.moveTo(len(m.rows)-1, -1)
	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggleStageCmd()
	case key.Matches(msg, m.keys.StageAll):
		return m, m.stagingCmd(m.repo.StageAll, "Staged all changes")
	case key.Matches(msg, m.keys.UnstageAll):
		return m, m.stagingCmd(m.repo.UnstageAll, "Unstaged all changes")
	case key.Matches(msg, m.keys.Add):
		return m, m.addCmd()
	case key.Matches(msg, m.keys.Forget):
		return m, m.forgetCmd()
	case key.Matches(msg, m.keys.Revert):
		return m, m.revertCmd(pending)
	case key.Matches(msg, m.keys.Resolve):
		return m, m.resolveCmd(true)
	case key.Matches(msg, m.keys.Unresolve):
		return m, m.resolveCmd(false)
	case key.Matches(msg, m.keys.Refresh):
		m.status = refreshingText
		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.Diff):
		return m, m.diffCmd()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.cancel()
	return m, tea.Quit
}

// Selected returns the resource under the cursor.
func (m *Model) Selected() (scm.Resource, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) || m.rows[m.cursor].header {
		return scm.Resource{}, false
	}
	return m.rows[m.cursor].resource, true
}

func (m *Model) setGroups(groups *scm.StatusGroups) {
	selected := ""
	if r, ok := m.Selected(); ok {
		selected = r.URI
	}
	m.groups = groups
	m.rebuildRows(selected)
}

// rebuildRows flattens the groups, keeping the cursor on keepURI when it is still listed.
func (m *Model) rebuildRows(keepURI string) {
	previous := m.cursor
	m.rows = m.rows[:0]
	for _, g := range m.groups.All() {
		if g.Len() == 0 {
			continue
		}
		m.rows = append(m.rows, row{header: true, group: g.ID(), count: g.Len()})
		for _, r := range g.Resources() {
			m.rows = append(m.rows, row{group: g.ID(), resource: r})
		}
	}

	m.cursor = -1
	for i, r := range m.rows {
		if !r.header && r.resource.URI == keepURI && keepURI != "" {
			m.cursor = i
			break
		}
	}
	if m.cursor < 0 {
		m.moveTo(min(max(previous, 0), len(m.rows)-1), 1)
	}
	if m.cursor < 0 {
		m.moveTo(len(m.rows)-1, -1)
	}
	m.ensureVisible()
}

// moveTo places the cursor on the first resource row from idx walking in dir.
func (m *Model) moveTo(idx, dir int) {
	for i := idx; i >= 0 && i < len(m.rows); i += dir {
		if !m.rows[i].header {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
	if len(m.rows) == 0 {
		m.cursor = -1
	}
}

func (m *Model) move(delta int) {
	for i := m.cursor + delta; i >= 0 && i < len(m.rows); i += delta {
		if !m.rows[i].header {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
}

func (m *Model) listHeight() int {
	// title, status line and help line
	return max(1, m.height-3)
}

func (m *Model) ensureVisible() {
	height := m.listHeight()
	if m.cursor < 0 {
		m.offset = 0
		return
	}
	// keep the group header visible when the first resource is selected
	top := m.cursor
	if top > 0 && m.rows[top-1].header {
		top--
	}
	if top < m.offset {
		m.offset = top
	}
	if m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) toggleStageCmd() tea.Cmd {
	r, ok := m.Selected()
	if !ok {
		return nil
	}
	repo := m.repo
	rel := r.RelPath(repo.Root())
	switch r.Group {
	case scm.GroupWorking:
		return m.stagingCmd(func() error { return repo.Stage(r.URI) }, "Staged "+rel)
	case scm.GroupStaging:
		return m.stagingCmd(func() error { return repo.Unstage(r.URI) }, "Unstaged "+rel)
	case scm.GroupUntracked:
		m.status = "Untracked file: press a to add it first"
	default:
		m.status = fmt.Sprintf("Files in %s cannot be staged", r.Group.Label())
	}
	return nil
}

// stagingCmd runs op off the update loop; it may wait behind a refresh in flight.
func (m *Model) stagingCmd(op func() error, message string) tea.Cmd {
	return func() tea.Msg {
		return stagingDoneMsg{message: message, err: op()}
	}
}

func (m *Model) addCmd() tea.Cmd {
	r, ok := m.Selected()
	if !ok {
		return nil
	}
	if r.Status != models.StatusUntracked && r.Status != models.StatusIgnored {
		m.status = "Only untracked files can be added"
		return nil
	}
	root := m.repo.Root()
	rel := r.RelPath(root)
	ctx := m.ctx
	backend := m.hg
	return func() tea.Msg {
		err := backend.Add(ctx, root, rel)
		return actionDoneMsg{message: "Added " + rel, err: err}
	}
}

func (m *Model) forgetCmd() tea.Cmd {
	r, ok := m.Selected()
	if !ok {
		return nil
	}
	switch r.Status {
	case models.StatusUntracked, models.StatusIgnored, models.StatusDeleted:
		m.status = "Only tracked files can be forgotten"
		return nil
	}
	root := m.repo.Root()
	rel := r.RelPath(root)
	ctx := m.ctx
	backend := m.hg
	return func() tea.Msg {
		err := backend.Forget(ctx, root, rel)
		return actionDoneMsg{message: "Forgot " + rel, err: err}
	}
}

// revertCmd asks for confirmation first; pending is the URI confirmed by the previous key press.
func (m *Model) revertCmd(pending string) tea.Cmd {
	r, ok := m.Selected()
	if !ok {
		return nil
	}
	if r.Group == scm.GroupParent {
		m.status = "Parent changes cannot be reverted here"
		return nil
	}
	switch r.Status {
	case models.StatusUntracked, models.StatusIgnored:
		m.status = "Untracked files have nothing to revert"
		return nil
	}
	root := m.repo.Root()
	rel := r.RelPath(root)
	if pending != r.URI {
		m.pendingRevert = r.URI
		m.status = fmt.Sprintf("Press x again to revert %s", rel)
		return nil
	}
	paths := []string{rel}
	if r.Renamed() {
		// reverting only the destination would leave the source removed
		paths = append(paths, r.RenameRelPath(root))
	}
	ctx := m.ctx
	backend := m.hg
	return func() tea.Msg {
		err := backend.Revert(ctx, root, paths...)
		return actionDoneMsg{message: "Reverted " + rel, err: err}
	}
}

func (m *Model) resolveCmd(mark bool) tea.Cmd {
	r, ok := m.Selected()
	if !ok {
		return nil
	}
	if r.MergeStatus == models.MergeStatusNone {
		m.status = "Not part of a merge"
		return nil
	}
	root := m.repo.Root()
	rel := r.RelPath(root)
	ctx := m.ctx
	backend := m.hg
	verb := "resolved"
	if !mark {
		verb = "unresolved"
	}
	return func() tea.Msg {
		err := backend.MarkResolved(ctx, root, mark, rel)
		return actionDoneMsg{message: fmt.Sprintf("Marked %s as %s", rel, verb), err: err}
	}
}

func (m *Model) diffCmd() tea.Cmd {
	r, ok := m.Selected()
	if !ok {
		return nil
	}
	root := m.repo.Root()
	ctx := m.ctx
	backend := m.hg
	maxChars := m.cfg.MaxDiffChars
	title := r.RelPath(root) + r.DiffLabelSuffix
	return func() tea.Msg {
		content, err := diff.ForResource(ctx, backend, root, r, diff.Options{MaxChars: maxChars})
		if err == nil && content == "" {
			content = "No differences"
		}
		return diffLoadedMsg{title: title, content: content, err: err}
	}
}

const refreshingText = "Refreshing…"

func refreshErrorText(err error) string {
	var unknown *scm.UnknownStatusError
	if errors.As(err, &unknown) {
		return "Error: " + unknown.Error()
	}
	return "Error: " + strings.TrimSpace(err.Error())
}
