package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD) -X main.buildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)" -o duskd ./cmd/duskd
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		printUsage()
		osExit(1)
		return
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "daemon":
		runDaemon(os.Args[2:])
	case "whoami":
		runWhoami(os.Args[2:])
	case "community":
		runCommunity(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		osExit(1)
	}
}

func printVersion() {
	fmt.Printf("duskd %s (%s) built %s\n", version, commit, buildDate)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: duskd <command> [options]")
	fmt.Println()
	fmt.Println("Setup:")
	fmt.Println("  init                                      Set up duskd configuration and identity")
	fmt.Println()
	fmt.Println("Daemon:")
	fmt.Println("  daemon [--config path]                    Run the node's event loop until signaled")
	fmt.Println()
	fmt.Println("Identity:")
	fmt.Println("  whoami [--config path]                    Show your peer ID")
	fmt.Println()
	fmt.Println("Communities:")
	fmt.Println("  community create <name> [--description]  Create a community, print its ID")
	fmt.Println("  community join <invite-code>              Join a community from an invite code")
	fmt.Println("  community leave <community-id>            Leave a community")
	fmt.Println("  community list                            List communities you belong to")
	fmt.Println("  community invite <community-id>           Print an invite code")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  config validate [--config path]           Validate config")
	fmt.Println("  config show     [--config path]           Show resolved config")
	fmt.Println()
	fmt.Println("All commands support --config <path> to specify a config file.")
	fmt.Println("Without --config, duskd searches: ./duskd.yaml, ~/.config/duskd/config.yaml, /etc/duskd/config.yaml")
	fmt.Println()
	fmt.Println("Get started:  duskd init")
}
