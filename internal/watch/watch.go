// Package watch turns filesystem activity in an hg repository into refresh signals.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	log "github.com/chmouel/lazyhg/internal/log"
	"github.com/chmouel/lazyhg/internal/models"
)

// DefaultDebounce is the quiet period required before a signal is emitted.
const DefaultDebounce = 600 * time.Millisecond

// Files under .hg that change on every hg invocation, including our own status calls.
var ignoredHgEntries = map[string]struct{}{
	"wlock":                  {},
	"lock":                   {},
	"undo.backup.dirstate":   {},
	"blackbox.log":           {},
	models.StateDirName:      {},
	"last-message.txt":       {},
	"hgrc.lock":              {},
	"undo.backup.dirstate.i": {},
}

// Watcher watches <root>/.hg and every non-hidden directory of the working tree.
type Watcher struct {
	root     string
	hgDir    string
	debounce time.Duration

	mu      sync.Mutex
	started bool
	paths   map[string]struct{}
	timer   *time.Timer

	watcher *fsnotify.Watcher
	events  chan struct{}
	done    chan struct{}
}

// New creates a watcher for root. A non-positive debounce selects DefaultDebounce.
func New(root string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		hgDir:    filepath.Join(root, ".hg"),
		debounce: debounce,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		paths:    make(map[string]struct{}),
	}
}

// Start registers the watches and launches the event loop.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.addWatchDir(w.hgDir)
	w.addWatchTree(w.root)

	go w.run()
	return nil
}

// Events delivers at most one pending signal at a time.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Stop closes the underlying watcher. Further signals are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.started = false
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

// Signal queues a refresh signal unless one is already pending.
func (w *Watcher) Signal() {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// Watched returns the directories currently registered.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	return out
}

// Relevant reports whether a change to path should trigger a refresh.
func (w *Watcher) Relevant(path string) bool {
	if path == w.hgDir {
		return false
	}
	if rel, ok := strings.CutPrefix(path, w.hgDir+string(filepath.Separator)); ok {
		first, _, _ := strings.Cut(rel, string(filepath.Separator))
		if _, skip := ignoredHgEntries[first]; skip {
			return false
		}
		return !strings.HasSuffix(first, ".lock") && !strings.HasPrefix(first, "tmp")
	}
	return true
}

// schedule restarts the debounce window.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.Signal)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.Relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.maybeWatchNewDir(event.Name)
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}

// maybeWatchNewDir follows directories created after Start, at any depth.
func (w *Watcher) maybeWatchNewDir(path string) {
	if w.hidden(path) {
		return
	}
	w.addWatchTree(path)
}

// hidden reports whether path lies outside the root or below a dot directory, .hg included.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// addWatchTree registers dir and every non-hidden directory below it.
func (w *Watcher) addWatchTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("watch: walk %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		w.addWatchDir(path)
		return nil
	})
}

func (w *Watcher) addWatchDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if _, ok := w.paths[path]; ok {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		log.Printf("watch: add %s: %v", path, err)
		return
	}
	w.paths[path] = struct{}{}
}
