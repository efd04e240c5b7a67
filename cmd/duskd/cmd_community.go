package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/duskchat/dusk-node/internal/audit"
	"github.com/duskchat/dusk-node/internal/command"
	"github.com/duskchat/dusk-node/internal/metrics"
	"github.com/duskchat/dusk-node/internal/termcolor"
	"github.com/duskchat/dusk-node/internal/voice"
)

func runCommunity(args []string) {
	if len(args) < 1 {
		printCommunityUsage()
		osExit(1)
		return
	}

	switch args[0] {
	case "create":
		runCommunityCreate(args[1:])
	case "join":
		runCommunityJoin(args[1:])
	case "leave":
		runCommunityLeave(args[1:])
	case "list":
		runCommunityList(args[1:])
	case "invite":
		runCommunityInvite(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown community command: %s\n\n", args[0])
		printCommunityUsage()
		osExit(1)
	}
}

func printCommunityUsage() {
	fmt.Println("Usage: duskd community <create|join|leave|list|invite> [options]")
}

// newOfflineApp builds a command.App for subcommands that only need durable
// state (CRDT + storage), not a running swarm. Network side effects on
// these commands silently no-op, same as when daemon hasn't been started.
func newOfflineApp(configFlag string) (*command.App, func(), error) {
	cfg, _, err := loadConfig(configFlag)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	id, _, err := loadOrCreateIdentity(store)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load identity: %w", err)
	}
	engine, err := loadEngine(store)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load communities: %w", err)
	}

	app := command.New(command.Config{
		Identity: id,
		CRDT:     engine,
		Store:    store,
		Voice:    voice.New(),
		Metrics:  metrics.New(version, "offline"),
		Audit:    audit.New(nil),
		Network:  cfg.Network,
	})
	return app, func() { store.Close() }, nil
}

func runCommunityCreate(args []string) {
	if err := doCommunityCreate(args, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doCommunityCreate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("community create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	descFlag := fs.String("description", "", "community description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: community create <name> [--description text]")
	}

	app, closeFn, err := newOfflineApp(*configFlag)
	if err != nil {
		return err
	}
	defer closeFn()

	cid, err := app.CreateCommunity(context.Background(), fs.Arg(0), *descFlag)
	if err != nil {
		return fmt.Errorf("create community: %w", err)
	}
	fmt.Fprintln(stdout, cid)
	return nil
}

func runCommunityJoin(args []string) {
	if err := doCommunityJoin(args, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doCommunityJoin(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("community join", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: community join <invite-code>")
	}

	app, closeFn, err := newOfflineApp(*configFlag)
	if err != nil {
		return err
	}
	defer closeFn()

	cid, err := app.JoinCommunity(context.Background(), fs.Arg(0))
	if err != nil {
		return fmt.Errorf("join community: %w", err)
	}
	fmt.Fprintln(stdout, cid)
	return nil
}

func runCommunityLeave(args []string) {
	if err := doCommunityLeave(args, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doCommunityLeave(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("community leave", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: community leave <community-id>")
	}

	app, closeFn, err := newOfflineApp(*configFlag)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := app.LeaveCommunity(context.Background(), fs.Arg(0)); err != nil {
		return fmt.Errorf("leave community: %w", err)
	}
	fmt.Fprintln(stdout, "left", fs.Arg(0))
	return nil
}

func runCommunityList(args []string) {
	if err := doCommunityList(args, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doCommunityList(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("community list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, closeFn, err := newOfflineApp(*configFlag)
	if err != nil {
		return err
	}
	defer closeFn()

	metas, err := app.ListCommunities()
	if err != nil {
		return fmt.Errorf("list communities: %w", err)
	}
	for _, m := range metas {
		fmt.Fprintf(stdout, "%s\t%s\n", m.CommunityID, m.Name)
	}
	return nil
}

func runCommunityInvite(args []string) {
	if err := doCommunityInvite(args, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doCommunityInvite(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("community invite", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: community invite <community-id>")
	}

	app, closeFn, err := newOfflineApp(*configFlag)
	if err != nil {
		return err
	}
	defer closeFn()

	code, err := app.GenerateInvite(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("generate invite: %w", err)
	}
	fmt.Fprintln(stdout, code)
	return nil
}
