package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/palette-reducer/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Interrupts stop a batch between files; the summary is still printed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := cli.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}
	code := cli.Execute(ctx, info, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}
