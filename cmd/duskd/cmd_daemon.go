package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/duskchat/dusk-node/internal/audit"
	"github.com/duskchat/dusk-node/internal/command"
	"github.com/duskchat/dusk-node/internal/metrics"
	"github.com/duskchat/dusk-node/internal/termcolor"
	"github.com/duskchat/dusk-node/internal/voice"
)

// shutdownTimeout bounds how long stop_node's final publish+teardown may
// take once the process has received a termination signal.
const shutdownTimeout = 5 * time.Second

func runDaemon(args []string) {
	if err := doDaemon(args, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doDaemon(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	id, created, err := loadOrCreateIdentity(store)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if created {
		fmt.Fprintf(stdout, "Generated new identity: %s\n", id.PeerID())
	}

	engine, err := loadEngine(store)
	if err != nil {
		return fmt.Errorf("load communities: %w", err)
	}

	app := command.New(command.Config{
		Identity: id,
		CRDT:     engine,
		Store:    store,
		Voice:    voice.New(),
		Metrics:  metrics.New(version, runtime.Version()),
		Audit:    audit.New(slog.Default().Handler()),
		Network:  cfg.Network,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.StartNode(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	fmt.Fprintf(stdout, "duskd running as %s\n", id.PeerID())

	<-ctx.Done()
	fmt.Fprintln(stdout, "shutting down...")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.StopNode(stopCtx)
}
