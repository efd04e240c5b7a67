package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/duskchat/dusk-node/internal/config"
	"github.com/duskchat/dusk-node/internal/termcolor"
	"github.com/duskchat/dusk-node/internal/validate"
)

func runInit(args []string) {
	if err := doInit(args, os.Stdin, os.Stdout); err != nil {
		termcolor.Red("Error: %v", err)
		osExit(1)
	}
}

func doInit(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dirFlag := fs.String("dir", "", "config directory (default: ~/.config/duskd)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Welcome to Dusk!")
	fmt.Fprintln(stdout)

	configDir := *dirFlag
	if configDir == "" {
		d, err := config.DefaultConfigDir()
		if err != nil {
			return fmt.Errorf("cannot determine config directory: %w", err)
		}
		configDir = d
	}

	configFile := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config already exists: %s\nDelete it first if you want to reinitialize", configFile)
	}

	fmt.Fprintf(stdout, "Creating config directory: %s\n", configDir)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	fmt.Fprintln(stdout)

	reader := bufio.NewReader(stdin)
	fmt.Fprintln(stdout, "Enter relay server address (leave blank to use the compiled-in default)")
	fmt.Fprintln(stdout, "  Full multiaddr:  /ip4/<IP>/tcp/<PORT>/p2p/<PEER_ID>")
	fmt.Fprint(stdout, "> ")
	relayInput, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read input: %w", err)
	}
	relayInput = strings.TrimSpace(relayInput)
	if relayInput != "" {
		if err := validate.RelayAddr(relayInput); err != nil {
			return err
		}
	}
	fmt.Fprintln(stdout)

	dbPath := filepath.Join(configDir, "dusk.db")
	fmt.Fprintln(stdout, "Generating identity...")
	store, err := openStoreAt(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	id, _, err := loadOrCreateIdentity(store)
	if err != nil {
		return fmt.Errorf("failed to generate identity: %w", err)
	}
	fmt.Fprintf(stdout, "Your Peer ID: %s\n", id.PeerID())
	fmt.Fprintln(stdout, "(Share this with peers so they can verify messages from you)")
	fmt.Fprintln(stdout)

	configContent := nodeConfigTemplate(relayInput)
	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(stdout, "Config written to:    %s\n", configFile)
	fmt.Fprintf(stdout, "Identity stored in:   %s\n", dbPath)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Your Peer ID (scan to share):")
	fmt.Fprintln(stdout)
	if q, err := qrcode.New(id.PeerID().String(), qrcode.Medium); err == nil {
		fmt.Fprint(stdout, q.ToSmallString(false))
	}

	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintln(stdout, "  1. Run the node:      duskd daemon")
	fmt.Fprintln(stdout, "  2. Create a community: duskd community create \"my community\"")
	return nil
}

func nodeConfigTemplate(relayAddr string) string {
	var b strings.Builder
	b.WriteString("version: 1\n")
	b.WriteString("identity:\n  key_file: identity.key\n")
	b.WriteString("network:\n  listen_addresses:\n    - /ip4/0.0.0.0/tcp/0\n    - /ip6/::/tcp/0\n  enable_nat_port_map: true\n  enable_hole_punching: true\n")
	b.WriteString("relay:\n  addr: " + relayAddr + "\n")
	b.WriteString("discovery:\n  mdns_enabled: true\n")
	b.WriteString("storage:\n  database_path: dusk.db\n")
	return b.String()
}
