package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(runCmd(signalContext(), nil))
	}
	if os.Args[1] == "--version" {
		fmt.Println(versionLine())
		os.Exit(exitOK)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runCmd(signalContext(), os.Args[2:]))
	case "validate":
		os.Exit(validateCmd(os.Args[2:]))
	case "init":
		os.Exit(initCmd(os.Args[2:]))
	case "status":
		os.Exit(statusCmd(os.Args[2:]))
	case "version":
		fmt.Println(versionLine())
	case "help", "-h", "--help":
		printUsage()
	default:
		if len(os.Args[1]) > 0 && os.Args[1][0] == '-' {
			// Flags without a command mean "run".
			os.Exit(runCmd(signalContext(), os.Args[1:]))
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(exitInvalid)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM. A second signal exits
// immediately.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		<-sigCh
		os.Exit(exitFailure)
	}()
	return ctx
}

func printUsage() {
	fmt.Println(`stagehand

Drives a remote interactive session through its rounds and keeps it going
when the target misbehaves.

Usage:
  stagehand <command> [flags]

Commands:
  run          Run attempts until every round completes (default)
  validate     Check a config file and exit
  init         Write a starter config and a simulated scenario
  status       Show the state of the current or last run
  version      Show the version
  help         Show this message

Examples:
  stagehand init
  stagehand run -simulate scenario.yaml
  stagehand status

Exit codes:
  0  every round completed
  1  the run failed or ran out of restarts
  2  the config is invalid

Run 'stagehand <command> -h' for details.`)
}
