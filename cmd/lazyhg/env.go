package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	urfavecli "github.com/urfave/cli/v3"

	"github.com/chmouel/lazyhg/internal/app"
	"github.com/chmouel/lazyhg/internal/config"
	"github.com/chmouel/lazyhg/internal/hg"
	"github.com/chmouel/lazyhg/internal/log"
	"github.com/chmouel/lazyhg/internal/repository"
	"github.com/chmouel/lazyhg/internal/theme"
	"github.com/chmouel/lazyhg/internal/utils"
)

// hgBackend is everything the commands need from hg.
type hgBackend interface {
	repository.StatusSource
	app.Backend
	Root(ctx context.Context, cwd string) (string, error)
}

// newBackend builds the hg backend; tests replace it.
var newBackend = func(cfg *config.AppConfig) hgBackend {
	svc := hg.NewService(cliNotify, cliNotifyOnce)
	svc.SetHgPath(cfg.HgPath)
	svc.SetShowIgnored(cfg.ShowIgnored)
	return svc
}

// env is the state shared by every command once the repository is located.
type env struct {
	cfg     *config.AppConfig
	backend hgBackend
	repo    *repository.Repository
	root    string
	workDir string
}

// setup loads configuration, locates the repository and opens it.
// tweak runs after configuration is loaded and before the repository is opened.
func setup(ctx context.Context, cmd *urfavecli.Command, tweak func(*config.AppConfig)) (*env, error) {
	debugLog := cmd.String("debug-log")
	if debugLog != "" {
		openDebugLog(debugLog)
	}

	workDir, err := resolveWorkDir(cmd.String("repo"))
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cmd.String("config-file"), workDir, cmd.StringSlice("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if debugLog == "" {
		if cfg.DebugLog != "" {
			openDebugLog(cfg.DebugLog)
		} else {
			// No debug log configured, discard any buffered logs
			_ = log.SetFile("")
		}
	}
	if err := applyThemeConfig(cfg, cmd.String("theme")); err != nil {
		return nil, err
	}
	if tweak != nil {
		tweak(cfg)
	}
	log.Printf("config sources: %v", cfg.Sources)

	backend := newBackend(cfg)
	root, err := backend.Root(ctx, workDir)
	if err != nil {
		return nil, err
	}
	repo, err := repository.Open(root, backend, repository.Options{ShowParent: cfg.ShowParent})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, backend: backend, repo: repo, root: root, workDir: workDir}, nil
}

func resolveWorkDir(repoFlag string) (string, error) {
	if repoFlag == "" {
		return os.Getwd()
	}
	expanded, err := utils.ExpandPath(repoFlag)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("repository path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository path %s is not a directory", abs)
	}
	return abs, nil
}

func openDebugLog(path string) {
	if expanded, err := utils.ExpandPath(path); err == nil {
		path = expanded
	}
	if err := log.SetFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening debug log file %q: %v\n", path, err)
	}
}

// applyThemeConfig validates and applies the --theme flag.
func applyThemeConfig(cfg *config.AppConfig, themeFlag string) error {
	if themeFlag == "" {
		return nil
	}
	normalized := theme.NormalizeThemeName(themeFlag)
	if normalized == "" {
		return fmt.Errorf("unknown theme %q (available: %v)", themeFlag, theme.AvailableThemes())
	}
	cfg.Theme = normalized
	return nil
}

// absPath resolves a file argument against the working directory.
func (e *env) absPath(arg string) string {
	if filepath.IsAbs(arg) {
		return filepath.Clean(arg)
	}
	return filepath.Join(e.workDir, arg)
}

func stdout(cmd *urfavecli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// cliNotify is a notification callback for hg operations in CLI mode.
func cliNotify(message, severity string) {
	if severity == "error" {
		log.Printf("%s", message)
		return
	}
	fmt.Fprintf(os.Stderr, "%s\n", message)
}

// cliNotifyOnce is a notification callback for hg operations that should only fire once.
func cliNotifyOnce(_, message, severity string) {
	cliNotify(message, severity)
}
