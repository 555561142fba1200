// Package repository keeps the current generation of resource groups for one hg root.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	log "github.com/chmouel/lazyhg/internal/log"
	"github.com/chmouel/lazyhg/internal/models"
	"github.com/chmouel/lazyhg/internal/scm"
	"github.com/chmouel/lazyhg/internal/utils"
)

// ErrMergeInProgress is returned by staging operations while a merge is in progress.
var ErrMergeInProgress = errors.New("cannot change staged files while a merge is in progress")

// ErrNotFound is returned when a path is not part of the group an operation reads from.
var ErrNotFound = errors.New("no such resource")

// StatusSource provides the raw status inputs of one refresh.
type StatusSource interface {
	GetStatus(ctx context.Context, root string) ([]models.FileStatus, error)
	GetParentStatus(ctx context.Context, root string) ([]models.FileStatus, error)
	GetRepoStatus(ctx context.Context, root string) (models.RepoStatus, error)
	GetResolveStatus(ctx context.Context, root string, repo models.RepoStatus) ([]models.FileStatus, error)
}

// Options tunes a Repository.
type Options struct {
	// ShowParent enables the parent-relative query. When false the Parent group stays empty.
	ShowParent bool
	// Exists overrides the on-disk existence check used for resolve-only entries.
	Exists func(path string) bool
}

// Repository owns the published StatusGroups of a root and serializes refreshes.
type Repository struct {
	root   string
	source StatusSource
	opts   Options

	// refreshMu queues refreshes and staging changes so they never interleave.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	groups    *scm.StatusGroups
	staging   *scm.ResourceGroup
	merging   bool
	listeners []func(*scm.StatusGroups)
}

type stagingState struct {
	Staged []string `json:"staged"`
}

// Open creates a Repository for root and reloads persisted staging membership.
// Nothing is queried until Refresh is called.
func Open(root string, source StatusSource, opts Options) (*Repository, error) {
	if source == nil {
		return nil, errors.New("repository: nil status source")
	}
	r := &Repository{
		root:    root,
		source:  source,
		opts:    opts,
		groups:  scm.EmptyStatusGroups(),
		staging: scm.NewResourceGroup(scm.GroupStaging, nil),
	}
	staged, err := r.loadStaging()
	if err != nil {
		return nil, err
	}
	r.staging = staged
	return r, nil
}

// Root returns the repository root.
func (r *Repository) Root() string {
	return r.root
}

// Groups returns the currently published generation.
func (r *Repository) Groups() *scm.StatusGroups {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups
}

// Merging reports whether the last successful refresh saw a merge in progress.
func (r *Repository) Merging() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.merging
}

// OnChange registers fn to be called with every newly published generation.
func (r *Repository) OnChange(fn func(*scm.StatusGroups)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// StatePath is where staging membership is persisted.
func (r *Repository) StatePath() string {
	return filepath.Join(r.root, ".hg", models.StateDirName, models.StagingFilename)
}

type snapshot struct {
	files   []models.FileStatus
	parent  []models.FileStatus
	repo    models.RepoStatus
	resolve []models.FileStatus
}

func (r *Repository) fetch(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		files, err := r.source.GetStatus(gctx, r.root)
		snap.files = files
		return err
	})
	if r.opts.ShowParent {
		g.Go(func() error {
			parent, err := r.source.GetParentStatus(gctx, r.root)
			snap.parent = parent
			return err
		})
	}
	g.Go(func() error {
		repo, err := r.source.GetRepoStatus(gctx, r.root)
		if err != nil {
			return err
		}
		snap.repo = repo
		resolve, err := r.source.GetResolveStatus(gctx, r.root, repo)
		snap.resolve = resolve
		return err
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// Refresh queries hg and publishes a new generation of groups.
// On failure the previous generation stays published.
func (r *Repository) Refresh(ctx context.Context) (*scm.StatusGroups, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	snap, err := r.fetch(ctx)
	if err != nil {
		log.Printf("refresh %s: %v", r.root, err)
		return nil, fmt.Errorf("refresh: %w", err)
	}

	r.mu.RLock()
	previous := r.staging
	r.mu.RUnlock()

	groups, err := scm.GroupStatuses(scm.GroupStatusesParams{
		Root:            r.root,
		Staging:         previous,
		FileStatuses:    snap.files,
		ParentStatuses:  snap.parent,
		RepoStatus:      snap.repo,
		ResolveStatuses: snap.resolve,
		Exists:          r.opts.Exists,
	})
	if err != nil {
		log.Printf("classify %s: %v", r.root, err)
		return nil, err
	}

	log.Printf("refresh %s: %d resources, merge=%t", r.root, groups.Total(), snap.repo.IsMerge)
	r.publish(groups, snap.repo.IsMerge)
	return groups, nil
}

func (r *Repository) publish(groups *scm.StatusGroups, merging bool) {
	r.mu.Lock()
	changed := !sameURIs(r.staging, groups.Staging)
	r.groups = groups
	r.staging = groups.Staging
	r.merging = merging
	listeners := make([]func(*scm.StatusGroups), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	if changed {
		if err := r.saveStaging(groups.Staging); err != nil {
			log.Printf("save staging for %s: %v", r.root, err)
		}
	}
	for _, fn := range listeners {
		fn(groups)
	}
}

// Stage moves Working resources into Staging.
func (r *Repository) Stage(uris ...string) error {
	return r.move(uris, scm.GroupWorking, scm.GroupStaging)
}

// Unstage moves Staging resources back into Working.
func (r *Repository) Unstage(uris ...string) error {
	return r.move(uris, scm.GroupStaging, scm.GroupWorking)
}

// StageAll stages every Working resource.
func (r *Repository) StageAll() error {
	return r.move(r.Groups().Working.URIs(), scm.GroupWorking, scm.GroupStaging)
}

// UnstageAll unstages every Staging resource.
func (r *Repository) UnstageAll() error {
	return r.move(r.Groups().Staging.URIs(), scm.GroupStaging, scm.GroupWorking)
}

func (r *Repository) move(uris []string, from, to scm.GroupID) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	if r.Merging() {
		return ErrMergeInProgress
	}
	current := r.Groups()
	source := current.Get(from)
	target := current.Get(to)

	var selected []scm.Resource
	var missing []string
	for _, uri := range uris {
		if res, ok := source.GetResource(uri); ok {
			selected = append(selected, res)
			continue
		}
		if !target.IncludesURI(uri) {
			missing = append(missing, uri)
		}
	}

	if len(selected) > 0 {
		next := current.With(target.Union(selected)).With(source.Except(selected))
		r.publish(next, false)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w in %s: %s", ErrNotFound, from, strings.Join(missing, ", "))
	}
	return nil
}

func (r *Repository) loadStaging() (*scm.ResourceGroup, error) {
	path := r.StatePath()
	// #nosec G304 -- path is built from the repository root and constant names
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return scm.NewResourceGroup(scm.GroupStaging, nil), nil
		}
		return nil, fmt.Errorf("read staging state: %w", err)
	}

	var state stagingState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("ignoring corrupt staging state %s: %v", path, err)
		return scm.NewResourceGroup(scm.GroupStaging, nil), nil
	}

	resources := make([]scm.Resource, 0, len(state.Staged))
	for _, rel := range state.Staged {
		uri := scm.ResolveURI(r.root, rel)
		if !utils.IsPathWithin(r.root, uri) {
			continue
		}
		resources = append(resources, scm.Resource{URI: uri, Status: models.StatusModified})
	}
	return scm.NewResourceGroup(scm.GroupStaging, resources), nil
}

func (r *Repository) saveStaging(staging *scm.ResourceGroup) error {
	state := stagingState{Staged: make([]string, 0, staging.Len())}
	for _, res := range staging.Resources() {
		state.Staged = append(state.Staged, res.RelPath(r.root))
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(r.StatePath(), data)
}

func sameURIs(a, b *scm.ResourceGroup) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, uri := range a.URIs() {
		if !b.IncludesURI(uri) {
			return false
		}
	}
	return true
}
