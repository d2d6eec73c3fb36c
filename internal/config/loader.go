package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileNames are tried in order by LoadDefault.
var DefaultFileNames = []string{"stagehand.yaml", "stagehand.yml", "stagehand.json"}

// ErrNoConfig is returned by LoadDefault when no config file exists.
var ErrNoConfig = errors.New("no config file found")

// Loader handles loading configuration files.
type Loader struct {
	configDir string
}

// NewLoader creates a new config loader.
func NewLoader(configDir string) *Loader {
	return &Loader{configDir: configDir}
}

// LoadFile loads a configuration from a specific file path. The format is
// picked from the extension: .yaml/.yml is YAML, anything else JSON.
// Environment variables are expanded before parsing.
func (l *Loader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, formatFor(path))
}

// Format is a config file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse expands environment variables in data and decodes it.
func Parse(data []byte, format Format) (*Config, error) {
	data, err := ExpandEnvVarsBytes(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return &cfg, nil
}

// LoadAndValidate loads and validates a config file.
func (l *Loader) LoadAndValidate(path string) (*Config, error) {
	cfg, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed for %s:\n%w", path, err)
	}

	return cfg, nil
}

// FindDefault returns the first default config file in the config directory.
func (l *Loader) FindDefault() (string, error) {
	for _, name := range DefaultFileNames {
		path := filepath.Join(l.configDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w in %s (tried %s)", ErrNoConfig, l.configDir, strings.Join(DefaultFileNames, ", "))
}

// LoadDefault loads the default configuration from the config directory.
func (l *Loader) LoadDefault() (*Config, error) {
	path, err := l.FindDefault()
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path)
}
