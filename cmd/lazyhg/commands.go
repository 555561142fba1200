package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	urfavecli "github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/chmouel/lazyhg/internal/app"
	"github.com/chmouel/lazyhg/internal/buildinfo"
	"github.com/chmouel/lazyhg/internal/config"
	"github.com/chmouel/lazyhg/internal/diff"
	"github.com/chmouel/lazyhg/internal/log"
	"github.com/chmouel/lazyhg/internal/render"
	"github.com/chmouel/lazyhg/internal/scm"
	"github.com/chmouel/lazyhg/internal/theme"
	"github.com/chmouel/lazyhg/internal/watch"
)

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func runTUI(ctx context.Context, cmd *urfavecli.Command) error {
	if cmd.Args().Len() > 0 {
		return fmt.Errorf("unknown command %q", cmd.Args().First())
	}
	e, err := setup(ctx, cmd, nil)
	if err != nil {
		return err
	}

	var watcher *watch.Watcher
	if e.cfg.AutoRefresh {
		watcher = watch.New(e.root, e.cfg.RefreshDebounce())
		defer watcher.Stop()
	}

	model := app.NewModel(e.cfg, e.repo, e.backend, watcher)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func statusCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:    "status",
		Aliases: []string{"st"},
		Usage:   "Print the classified working copy changes",
		Flags:   statusFlags(),
		Action: func(ctx context.Context, cmd *urfavecli.Command) error {
			e, err := setup(ctx, cmd, func(cfg *config.AppConfig) {
				if cmd.Bool("no-parent") {
					cfg.ShowParent = false
				}
			})
			if err != nil {
				return err
			}
			groups, err := e.repo.Refresh(ctx)
			if err != nil {
				return err
			}
			return printGroups(cmd, e, groups)
		},
	}
}

func printGroups(cmd *urfavecli.Command, e *env, groups *scm.StatusGroups) error {
	out := stdout(cmd)
	if cmd.Bool("json") {
		return render.JSON(out, groups, e.root)
	}
	return render.Groups(out, groups, e.root, render.Options{
		Theme:     theme.GetTheme(e.cfg.Theme),
		NoColor:   cmd.Bool("no-color") || !isTerminal(out),
		ShowIcons: e.cfg.ShowIcons && isTerminal(out),
		Width:     terminalWidth(out),
	})
}

func stageCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "stage",
		Usage:     "Move working changes into Staged Changes",
		ArgsUsage: "[FILE...]",
		Flags: []urfavecli.Flag{
			&urfavecli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Stage every working change"},
		},
		Action: func(ctx context.Context, cmd *urfavecli.Command) error {
			return runStaging(ctx, cmd, true)
		},
	}
}

func unstageCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "unstage",
		Usage:     "Move staged changes back to Changes",
		ArgsUsage: "[FILE...]",
		Flags: []urfavecli.Flag{
			&urfavecli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Unstage everything"},
		},
		Action: func(ctx context.Context, cmd *urfavecli.Command) error {
			return runStaging(ctx, cmd, false)
		},
	}
}

func runStaging(ctx context.Context, cmd *urfavecli.Command, stage bool) error {
	all := cmd.Bool("all")
	files := cmd.Args().Slice()
	if !all && len(files) == 0 {
		return errors.New("no files given (use --all to select everything)")
	}

	e, err := setup(ctx, cmd, nil)
	if err != nil {
		return err
	}
	if _, err := e.repo.Refresh(ctx); err != nil {
		return err
	}

	verb := "Unstaged"
	if stage {
		verb = "Staged"
	}

	if all {
		if stage {
			err = e.repo.StageAll()
		} else {
			err = e.repo.UnstageAll()
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "%s all changes (%d staged)\n", verb, e.repo.Groups().Staging.Len())
		return nil
	}

	uris := make([]string, 0, len(files))
	for _, f := range files {
		uris = append(uris, e.absPath(f))
	}
	if stage {
		err = e.repo.Stage(uris...)
	} else {
		err = e.repo.Unstage(uris...)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "%s %d file(s)\n", verb, len(uris))
	return nil
}

func diffCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "diff",
		Usage:     "Show the diff of a changed file",
		ArgsUsage: "FILE",
		Flags: []urfavecli.Flag{
			&urfavecli.BoolFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Diff the parent change of the file"},
			&urfavecli.BoolFlag{Name: "no-pager", Usage: "Write the diff directly to stdout"},
		},
		Action: func(ctx context.Context, cmd *urfavecli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("diff expects exactly one FILE")
			}
			parent := cmd.Bool("parent")
			e, err := setup(ctx, cmd, func(cfg *config.AppConfig) {
				if parent {
					cfg.ShowParent = true
				}
			})
			if err != nil {
				return err
			}
			groups, err := e.repo.Refresh(ctx)
			if err != nil {
				return err
			}

			uri := e.absPath(cmd.Args().First())
			var (
				res   scm.Resource
				found bool
			)
			if parent {
				res, found = groups.Parent.GetResource(uri)
			} else {
				res, found = groups.Find(uri)
			}
			if !found {
				return fmt.Errorf("%s has no changes", cmd.Args().First())
			}

			text, err := diff.ForResource(ctx, e.backend, e.root, res, diff.Options{MaxChars: e.cfg.MaxDiffChars})
			if err != nil {
				return err
			}
			if text == "" {
				text = "No differences\n"
			}

			out := stdout(cmd)
			if !cmd.Bool("no-pager") && isTerminal(out) {
				if pager := pagerCommand(e.cfg); pager != "" {
					return page(pager, text, out)
				}
			}
			_, err = io.WriteString(out, text)
			return err
		},
	}
}

func watchCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "watch",
		Usage: "Print the classified changes every time the repository changes",
		Flags: statusFlags(),
		Action: func(ctx context.Context, cmd *urfavecli.Command) error {
			e, err := setup(ctx, cmd, func(cfg *config.AppConfig) {
				if cmd.Bool("no-parent") {
					cfg.ShowParent = false
				}
			})
			if err != nil {
				return err
			}

			watcher := watch.New(e.root, e.cfg.RefreshDebounce())
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer watcher.Stop()

			show := func() error {
				groups, err := e.repo.Refresh(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					// keep watching, the next change may fix it
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					return nil
				}
				if err := printGroups(cmd, e, groups); err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout(cmd), "---")
				return err
			}

			if err := show(); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					log.Println("watch: repository changed")
					if err := show(); err != nil {
						return err
					}
				}
			}
		},
	}
}

func versionCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(_ context.Context, cmd *urfavecli.Command) error {
			_, err := fmt.Fprintln(stdout(cmd), buildinfo.Get().String())
			return err
		},
	}
}
