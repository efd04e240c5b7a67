package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/duskchat/dusk-node/internal/termcolor"
)

func runWhoami(args []string) {
	if err := doWhoami(args, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doWhoami(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
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

	id, _, err := loadOrCreateIdentity(store)
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}

	fmt.Fprintln(stdout, id.PeerID().String())
	return nil
}
