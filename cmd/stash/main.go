// Stash - save links now, read them anywhere.
//
// An offline-first CLI for saving links. Saves land locally first and
// sync to the link service when the network allows.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/asteroid-belt/stash/internal/cli"
	"github.com/asteroid-belt/stash/internal/config"
	"github.com/asteroid-belt/stash/internal/log"
	"github.com/asteroid-belt/stash/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := log.Init(filepath.Join(config.DefaultBaseDir(), "logs")); err == nil {
		defer log.Close()
	}

	telemetryClient := telemetry.New()
	defer telemetryClient.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		os.Exit(1)
	}
}
