package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chr1sbest/stagehand/internal/config"
)

type initOptions struct {
	dir   string
	name  string
	force bool
}

func initCmd(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", ".", "Directory to write stagehand.yaml and scenario.yaml into")
	name := fs.String("name", "", "Config name (default: the directory name)")
	force := fs.Bool("force", false, "Overwrite existing files")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}
	return initProject(initOptions{dir: *dir, name: *name, force: *force}, os.Stdout, os.Stderr)
}

func initProject(opts initOptions, stdout, stderr io.Writer) int {
	abs, err := filepath.Abs(opts.dir)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to resolve %s: %v\n", opts.dir, err)
		return exitFailure
	}
	name := opts.name
	if name == "" {
		name = filepath.Base(abs)
	}

	configPath := filepath.Join(abs, config.DefaultFileNames[0])
	scenarioPath := filepath.Join(abs, "scenario.yaml")
	if !opts.force {
		for _, p := range []string{configPath, scenarioPath} {
			if _, err := os.Stat(p); err == nil {
				fmt.Fprintf(stderr, "%s already exists (use -force to overwrite)\n", p)
				return exitFailure
			}
		}
	}

	body, err := renderConfigTemplate(configTemplateData{
		Name:     name,
		Scenario: "scenario.yaml",
		StateDir: config.DefaultStateDir,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to render config: %v\n", err)
		return exitFailure
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		fmt.Fprintf(stderr, "Failed to create %s: %v\n", abs, err)
		return exitFailure
	}
	if err := os.MkdirAll(filepath.Join(abs, config.DefaultStateDir), 0755); err != nil {
		fmt.Fprintf(stderr, "Failed to create state directory: %v\n", err)
		return exitFailure
	}
	files := []struct{ path, body string }{
		{configPath, body},
		{scenarioPath, scenarioTemplate},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.body), 0644); err != nil {
			fmt.Fprintf(stderr, "Failed to write %s: %v\n", f.path, err)
			return exitFailure
		}
	}

	fmt.Fprintf(stdout, "Wrote %s and %s\n", configPath, scenarioPath)
	fmt.Fprintln(stdout, "\nNext:")
	fmt.Fprintln(stdout, "  stagehand validate")
	fmt.Fprintln(stdout, "  stagehand run")
	return exitOK
}
