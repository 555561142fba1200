// Package hg wraps the Mercurial commands lazyhg needs.
package hg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	log "github.com/chmouel/lazyhg/internal/log"
	"github.com/chmouel/lazyhg/internal/models"
)

const defaultHgPath = "hg"

// LookupPath is used to find executables in PATH. Tests replace it.
var LookupPath = exec.LookPath

// NotifyFn receives ongoing notifications.
type NotifyFn func(message string, severity string)

// NotifyOnceFn reports deduplicated notification messages.
type NotifyOnceFn func(key string, message string, severity string)

// CommandError describes a failed hg invocation.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	command := strings.Join(e.Args, " ")
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", command, e.Stderr)
	}
	return fmt.Sprintf("%s (exit %d)", command, e.ExitCode)
}

// Service runs hg subprocesses on behalf of the UI and the CLI.
type Service struct {
	notify        NotifyFn
	notifyOnce    NotifyOnceFn
	semaphore     chan struct{}
	hgPath        string
	showIgnored   bool
	extraEnv      []string
	commandRunner func(ctx context.Context, name string, args []string, dir string, env []string) ([]byte, []byte, error)
}

// NewService constructs a Service and sets up concurrency limits.
func NewService(notify NotifyFn, notifyOnce NotifyOnceFn) *Service {
	limit := runtime.NumCPU()
	if limit < 4 {
		limit = 4
	}
	if limit > 16 {
		limit = 16
	}

	semaphore := make(chan struct{}, limit)
	for i := 0; i < limit; i++ {
		semaphore <- struct{}{}
	}

	if notify == nil {
		notify = func(string, string) {}
	}
	if notifyOnce == nil {
		notifyOnce = func(string, string, string) {}
	}

	return &Service{
		notify:        notify,
		notifyOnce:    notifyOnce,
		semaphore:     semaphore,
		hgPath:        defaultHgPath,
		extraEnv:      []string{"HGPLAIN=1"},
		commandRunner: runCommand,
	}
}

// SetHgPath overrides the hg executable. Empty restores the default.
func (s *Service) SetHgPath(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultHgPath
	}
	s.hgPath = path
}

// HgPath returns the configured hg executable.
func (s *Service) HgPath() string {
	return s.hgPath
}

// SetShowIgnored makes GetStatus include ignored files.
func (s *Service) SetShowIgnored(show bool) {
	s.showIgnored = show
}

// Available reports whether the hg executable can be found.
func (s *Service) Available() bool {
	_, err := LookupPath(s.hgPath)
	return err == nil
}

func (s *Service) debugf(format string, args ...any) {
	log.Printf(format, args...)
}

func (s *Service) acquireSemaphore() {
	<-s.semaphore
}

func (s *Service) releaseSemaphore() {
	s.semaphore <- struct{}{}
}

func runCommand(ctx context.Context, name string, args []string, dir string, env []string) ([]byte, []byte, error) {
	// #nosec G204 -- the executable is the configured hg binary and arguments are built internally
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), env...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	return out, []byte(stderr.String()), err
}

// Run executes hg with args in cwd. Exit codes listed in okReturncodes are not errors.
func (s *Service) Run(ctx context.Context, args []string, cwd string, okReturncodes ...int) (string, error) {
	if len(okReturncodes) == 0 {
		okReturncodes = []int{0}
	}
	full := append([]string{s.hgPath}, args...)
	command := strings.Join(full, " ")
	s.debugf("run: %s (cwd=%s)", command, cwd)

	s.acquireSemaphore()
	out, stderr, err := s.commandRunner(ctx, s.hgPath, args, cwd, s.extraEnv)
	s.releaseSemaphore()

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			s.debugf("error: %s: %v", command, err)
			return "", fmt.Errorf("run %s: %w", command, err)
		}
		code := exitErr.ExitCode()
		if !slices.Contains(okReturncodes, code) {
			cmdErr := &CommandError{Args: full, ExitCode: code, Stderr: strings.TrimSpace(string(stderr))}
			s.debugf("error: %v", cmdErr)
			return string(out), cmdErr
		}
	}

	s.debugf("ok: %s", command)
	return string(out), nil
}

// RunHg executes hg and reports failures through the notify callbacks instead of returning them.
func (s *Service) RunHg(ctx context.Context, args []string, cwd string, okReturncodes []int, strip, silent bool) string {
	out, err := s.Run(ctx, args, cwd, okReturncodes...)
	if err != nil {
		if !silent {
			key := fmt.Sprintf("hg_fail:%s:%s", cwd, strings.Join(args, " "))
			s.notifyOnce(key, fmt.Sprintf("Command failed: %v", err), "error")
		}
		return ""
	}
	if strip {
		out = strings.TrimSpace(out)
	}
	return out
}

// RunHgChecked runs a mutating hg command and notifies on failure.
func (s *Service) RunHgChecked(ctx context.Context, args []string, cwd, errorPrefix string) error {
	_, err := s.Run(ctx, args, cwd)
	if err != nil {
		message := fmt.Sprintf("%s: %v", errorPrefix, err)
		if errorPrefix == "" {
			message = fmt.Sprintf("command error: %v", err)
		}
		s.notify(message, "error")
		return err
	}
	return nil
}

// Root returns the repository root containing cwd.
func (s *Service) Root(ctx context.Context, cwd string) (string, error) {
	out, err := s.Run(ctx, []string{"root"}, cwd)
	if err != nil {
		return "", fmt.Errorf("not a mercurial repository: %w", err)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return "", fmt.Errorf("hg root returned nothing for %s", cwd)
	}
	return root, nil
}

// GetStatus returns the working-copy status relative to the working parent.
func (s *Service) GetStatus(ctx context.Context, root string) ([]models.FileStatus, error) {
	args := []string{"status", "-C"}
	if s.showIgnored {
		args = append(args, "-i", "-m", "-a", "-r", "-d", "-u")
	}
	out, err := s.Run(ctx, args, root)
	if err != nil {
		return nil, fmt.Errorf("working copy status: %w", err)
	}
	return ParseStatusOutput(out), nil
}

// GetParentStatus returns what the working parent changed relative to its own parent.
func (s *Service) GetParentStatus(ctx context.Context, root string) ([]models.FileStatus, error) {
	out, err := s.Run(ctx, []string{"status", "--change", ".", "-C"}, root)
	if err != nil {
		return nil, fmt.Errorf("parent status: %w", err)
	}
	return ParseStatusOutput(out), nil
}

// GetRepoStatus reports repository-wide state, currently whether a merge is in progress.
func (s *Service) GetRepoStatus(ctx context.Context, root string) (models.RepoStatus, error) {
	out, err := s.Run(ctx, []string{"log", "-r", "p2()", "--template", "{node}\n"}, root)
	if err != nil {
		return models.RepoStatus{}, fmt.Errorf("repository status: %w", err)
	}
	return models.RepoStatus{IsMerge: strings.TrimSpace(out) != ""}, nil
}

// GetResolveStatus lists merge-resolution states. It returns nil outside a merge.
func (s *Service) GetResolveStatus(ctx context.Context, root string, repo models.RepoStatus) ([]models.FileStatus, error) {
	if !repo.IsMerge {
		return nil, nil
	}
	out, err := s.Run(ctx, []string{"resolve", "--list"}, root)
	if err != nil {
		return nil, fmt.Errorf("resolve list: %w", err)
	}
	return ParseResolveOutput(out), nil
}

// Cat returns the content of path (relative to root) at rev.
func (s *Service) Cat(ctx context.Context, root, rev, path string) (string, error) {
	out, err := s.Run(ctx, []string{"cat", "-r", rev, "--", path}, root)
	if err != nil {
		return "", fmt.Errorf("cat %s@%s: %w", path, rev, err)
	}
	return out, nil
}

// Add schedules files for addition.
func (s *Service) Add(ctx context.Context, root string, paths ...string) error {
	return s.RunHgChecked(ctx, append([]string{"add", "--"}, paths...), root, "hg add failed")
}

// Forget stops tracking files without deleting them.
func (s *Service) Forget(ctx context.Context, root string, paths ...string) error {
	return s.RunHgChecked(ctx, append([]string{"forget", "--"}, paths...), root, "hg forget failed")
}

// Revert restores files to their state in the working parent.
func (s *Service) Revert(ctx context.Context, root string, paths ...string) error {
	return s.RunHgChecked(ctx, append([]string{"revert", "--no-backup", "--"}, paths...), root, "hg revert failed")
}

// MarkResolved marks files as resolved, or unresolved when mark is false.
func (s *Service) MarkResolved(ctx context.Context, root string, mark bool, paths ...string) error {
	flag := "--mark"
	if !mark {
		flag = "--unmark"
	}
	return s.RunHgChecked(ctx, append([]string{"resolve", flag, "--"}, paths...), root, "hg resolve failed")
}

// ParseStatusOutput parses hg status -C output.
// A line indented by two spaces names the copy source of the preceding entry.
func ParseStatusOutput(raw string) []models.FileStatus {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	files := make([]models.FileStatus, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "  ") {
			if len(files) > 0 {
				files[len(files)-1].Rename = strings.TrimPrefix(line, "  ")
			}
			continue
		}
		if len(line) < 3 || line[1] != ' ' {
			continue
		}
		files = append(files, models.FileStatus{
			Status: line[:1],
			Path:   line[2:],
		})
	}
	return files
}

// ParseResolveOutput parses hg resolve --list output ("U path" / "R path").
func ParseResolveOutput(raw string) []models.FileStatus {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	files := make([]models.FileStatus, 0, len(lines))
	for _, line := range lines {
		if len(line) < 3 || line[1] != ' ' {
			continue
		}
		files = append(files, models.FileStatus{
			Status: line[:1],
			Path:   line[2:],
		})
	}
	return files
}
