package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmouel/lazyhg/internal/buildinfo"
	"github.com/chmouel/lazyhg/internal/config"
	"github.com/chmouel/lazyhg/internal/models"
	"github.com/chmouel/lazyhg/internal/render"
)

type fakeBackend struct {
	mu      sync.Mutex
	root    string
	files   []models.FileStatus
	parent  []models.FileStatus
	merge   bool
	resolve []models.FileStatus
	cat     map[string]string
	rootErr error
}

func (f *fakeBackend) Root(_ context.Context, _ string) (string, error) {
	if f.rootErr != nil {
		return "", f.rootErr
	}
	return f.root, nil
}

func (f *fakeBackend) GetStatus(_ context.Context, _ string) ([]models.FileStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files, nil
}

func (f *fakeBackend) GetParentStatus(_ context.Context, _ string) ([]models.FileStatus, error) {
	return f.parent, nil
}

func (f *fakeBackend) GetRepoStatus(_ context.Context, _ string) (models.RepoStatus, error) {
	return models.RepoStatus{IsMerge: f.merge}, nil
}

func (f *fakeBackend) GetResolveStatus(_ context.Context, _ string, repo models.RepoStatus) ([]models.FileStatus, error) {
	if !repo.IsMerge {
		return nil, nil
	}
	return f.resolve, nil
}

func (f *fakeBackend) Cat(_ context.Context, _, rev, path string) (string, error) {
	if content, ok := f.cat[rev+":"+path]; ok {
		return content, nil
	}
	return "", errors.New("no such file in rev")
}

func (f *fakeBackend) Add(_ context.Context, _ string, _ ...string) error { return nil }

func (f *fakeBackend) Forget(_ context.Context, _ string, _ ...string) error { return nil }

func (f *fakeBackend) Revert(_ context.Context, _ string, _ ...string) error { return nil }

func (f *fakeBackend) MarkResolved(_ context.Context, _ string, _ bool, _ ...string) error {
	return nil
}

// setupCLI isolates config lookup and installs backend for every command run.
func setupCLI(t *testing.T, backend *fakeBackend) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PAGER", "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HGRCPATH", os.DevNull)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hg"), 0o750))
	backend.root = root

	orig := newBackend
	newBackend = func(*config.AppConfig) hgBackend { return backend }
	t.Cleanup(func() { newBackend = orig })
	return root
}

func runCLI(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cliApp := newApp()
	cliApp.Writer = &out
	cliApp.ErrWriter = &bytes.Buffer{}
	full := append([]string{"lazyhg", "--repo", root, "--theme", "dracula"}, args...)
	err := cliApp.Run(context.Background(), full)
	return out.String(), err
}

func TestStatusCommandPlain(t *testing.T) {
	backend := &fakeBackend{
		files: []models.FileStatus{
			{Path: "a.txt", Status: "M"},
			{Path: "new.txt", Status: "?"},
		},
		parent: []models.FileStatus{{Path: "p.txt", Status: "A"}},
	}
	root := setupCLI(t, backend)

	out, err := runCLI(t, root, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Changes (1)\n  M a.txt\n")
	assert.Contains(t, out, "Untracked Files (1)\n  ? new.txt\n")
	assert.Contains(t, out, "Parent Changes (1)\n  A p.txt\n")
}

func TestStatusCommandNoParent(t *testing.T) {
	backend := &fakeBackend{
		files:  []models.FileStatus{{Path: "a.txt", Status: "M"}},
		parent: []models.FileStatus{{Path: "p.txt", Status: "A"}},
	}
	root := setupCLI(t, backend)

	out, err := runCLI(t, root, "status", "--no-parent")
	require.NoError(t, err)
	assert.NotContains(t, out, "Parent Changes")
}

func TestStatusCommandJSON(t *testing.T) {
	backend := &fakeBackend{
		files: []models.FileStatus{
			{Path: "b.txt", Status: "A", Rename: "a.txt"},
			{Path: "a.txt", Status: "R"},
		},
	}
	root := setupCLI(t, backend)

	out, err := runCLI(t, root, "st", "--json")
	require.NoError(t, err)

	var doc render.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, root, doc.Root)
	require.Len(t, doc.Working, 2)
	assert.Equal(t, "b.txt", doc.Working[0].Path)
	assert.Equal(t, "renamed", doc.Working[0].Status)
	assert.Equal(t, "a.txt", doc.Working[0].Rename)
	assert.Equal(t, "deleted", doc.Working[1].Status)
	assert.Empty(t, doc.Staging)
}

func TestStatusCommandEmpty(t *testing.T) {
	root := setupCLI(t, &fakeBackend{})

	out, err := runCLI(t, root, "status")
	require.NoError(t, err)
	assert.Equal(t, "No changes\n", out)
}

func TestStageAndUnstagePersist(t *testing.T) {
	backend := &fakeBackend{
		files: []models.FileStatus{
			{Path: "a.txt", Status: "M"},
			{Path: "b.txt", Status: "M"},
		},
	}
	root := setupCLI(t, backend)

	out, err := runCLI(t, root, "stage", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Staged 1 file(s)\n", out)

	out, err = runCLI(t, root, "status", "--json")
	require.NoError(t, err)
	var doc render.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Staging, 1)
	assert.Equal(t, "a.txt", doc.Staging[0].Path)
	require.Len(t, doc.Working, 1)
	assert.Equal(t, "b.txt", doc.Working[0].Path)

	out, err = runCLI(t, root, "unstage", "--all")
	require.NoError(t, err)
	assert.Equal(t, "Unstaged all changes (0 staged)\n", out)

	out, err = runCLI(t, root, "stage", "-a")
	require.NoError(t, err)
	assert.Equal(t, "Staged all changes (2 staged)\n", out)
}

func TestStageCommandErrors(t *testing.T) {
	backend := &fakeBackend{
		files: []models.FileStatus{{Path: "new.txt", Status: "?"}},
	}
	root := setupCLI(t, backend)

	_, err := runCLI(t, root, "stage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files given")

	_, err = runCLI(t, root, "stage", "new.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such resource")
}

func TestStageCommandDuringMerge(t *testing.T) {
	backend := &fakeBackend{
		files:   []models.FileStatus{{Path: "a.txt", Status: "M"}},
		merge:   true,
		resolve: []models.FileStatus{{Path: "a.txt", Status: "R"}},
	}
	root := setupCLI(t, backend)

	_, err := runCLI(t, root, "stage", "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge is in progress")
}

func TestDiffCommand(t *testing.T) {
	backend := &fakeBackend{
		files: []models.FileStatus{{Path: "a.txt", Status: "M"}},
		cat:   map[string]string{".:a.txt": "old\n"},
	}
	root := setupCLI(t, backend)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("new\n"), 0o600))

	out, err := runCLI(t, root, "diff", "a.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/a.txt")
	assert.Contains(t, out, "+++ b/a.txt")
	assert.Contains(t, out, "-old")
	assert.Contains(t, out, "+new")
}

func TestDiffCommandNoChanges(t *testing.T) {
	root := setupCLI(t, &fakeBackend{})

	_, err := runCLI(t, root, "diff", "clean.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean.txt has no changes")

	_, err = runCLI(t, root, "diff")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one FILE")
}

func TestRootErrorIsReported(t *testing.T) {
	backend := &fakeBackend{rootErr: errors.New("not a mercurial repository")}
	root := setupCLI(t, backend)

	_, err := runCLI(t, root, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a mercurial repository")
}

func TestUnknownTheme(t *testing.T) {
	root := setupCLI(t, &fakeBackend{})

	var out bytes.Buffer
	cliApp := newApp()
	cliApp.Writer = &out
	err := cliApp.Run(context.Background(), []string{"lazyhg", "--repo", root, "--theme", "neon", "status"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown theme "neon"`)
}

func TestInvalidConfigOverride(t *testing.T) {
	root := setupCLI(t, &fakeBackend{})

	var out bytes.Buffer
	cliApp := newApp()
	cliApp.Writer = &out
	err := cliApp.Run(context.Background(), []string{"lazyhg", "--repo", root, "--theme", "nord", "-C", "theme=nord", "status"})
	require.Error(t, err)
}

func TestRepoFlagMustBeDirectory(t *testing.T) {
	setupCLI(t, &fakeBackend{})
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := runCLI(t, file, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestVersionCommand(t *testing.T) {
	buildinfo.Set("1.2.3", "abcdef0123456789", "2026-01-01", "tests")
	root := setupCLI(t, &fakeBackend{})

	out, err := runCLI(t, root, "version")
	require.NoError(t, err)
	assert.Equal(t, buildinfo.Get().String()+"\n", out)
	assert.Contains(t, out, "1.2.3")
}

func TestPagerIsLess(t *testing.T) {
	tests := []struct {
		pager string
		want  bool
	}{
		{"less", true},
		{"/usr/bin/less -R", true},
		{"LESS=-R less", true},
		{"more", false},
		{"delta --paging=never", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.pager, func(t *testing.T) {
			assert.Equal(t, tt.want, pagerIsLess(tt.pager))
		})
	}
}

func TestPagerCommandPrefersConfig(t *testing.T) {
	t.Setenv("PAGER", "more")
	assert.Equal(t, "bat", pagerCommand(&config.AppConfig{Pager: " bat "}))
	assert.Equal(t, "more", pagerCommand(&config.AppConfig{}))
}
