// Package main is the entry point for the lazyhg application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	urfavecli "github.com/urfave/cli/v3"

	"github.com/chmouel/lazyhg/internal/buildinfo"
	"github.com/chmouel/lazyhg/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	buildinfo.Set(version, commit, date, builtBy)
	buildinfo.Enrich()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()
	_ = log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *urfavecli.Command {
	return &urfavecli.Command{
		Name:                  "lazyhg",
		Usage:                 "A terminal UI for Mercurial working copy changes",
		Version:               buildinfo.Version(),
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Commands: []*urfavecli.Command{
			statusCommand(),
			stageCommand(),
			unstageCommand(),
			diffCommand(),
			watchCommand(),
			versionCommand(),
		},
		Action: runTUI,
	}
}
