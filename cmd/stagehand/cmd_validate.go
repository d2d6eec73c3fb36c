package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/driver/sim"
)

func validateCmd(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configFile := fs.String("config", "", "Path to config file (default: stagehand.yaml, .yml or .json in the current directory)")
	simulate := fs.String("simulate", "", "Also check this sim scenario")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}
	if *configFile == "" && fs.NArg() > 0 {
		*configFile = fs.Arg(0)
	}
	return validate(*configFile, *simulate, os.Stdout, os.Stderr)
}

func validate(path, simulate string, stdout, stderr io.Writer) int {
	path, cfg, err := loadConfig(config.NewLoader("."), path, simulate)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}
	if simulate != "" {
		if _, err := sim.LoadScenario(simulate); err != nil {
			fmt.Fprintf(stderr, "Invalid scenario %s: %v\n", simulate, err)
			return exitInvalid
		}
	}

	fmt.Fprintf(stdout, "%s is valid: %q, %d round(s), up to %d attempt(s), driver %s\n",
		path, cfg.Name, cfg.GetMaxRounds(), cfg.GetMaxRestarts(), cfg.GetDriverName())
	return exitOK
}
