package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chr1sbest/stagehand/internal/driver"
)

const sampleYAML = `
name: sample
max_rounds: 3
poll_interval: 500ms
load_wait: 3m
locators:
  trigger: "#trigger"
  nested_host: "#host"
  burst_surface: "#surface"
  success_marker: "#done"
checkpoint:
  url: ${SAMPLE_URL:-https://example.test/play}
  entry:
    - locator: "#card"
      settle: 1s
  ready: "#trigger"
burst:
  outer: 10
  inner: 2
  origin: {x: 15, y: 15}
  step: {x: 0, y: 10}
  interval: 10s
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stagehand.yaml", sampleYAML)

	cfg, err := NewLoader(dir).LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sample", cfg.Name)
	assert.Equal(t, 3, cfg.GetMaxRounds())
	assert.Equal(t, 500*time.Millisecond, cfg.GetPollInterval())
	assert.Equal(t, 3*time.Minute, cfg.GetLoadWait())
	assert.Equal(t, "https://example.test/play", cfg.Checkpoint.URL)
	require.Len(t, cfg.Checkpoint.Entry, 1)
	assert.Equal(t, time.Second, cfg.Checkpoint.Entry[0].GetSettle())
	assert.Equal(t, driver.Point{X: 15, Y: 15}, cfg.Burst.Origin)
	assert.Equal(t, driver.Point{X: 15, Y: 35}, cfg.Burst.Position(0, 2))
}

func TestLoadFile_JSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SAMPLE_TRIGGER", "#go")
	path := writeFile(t, dir, "stagehand.json", `{
		"name": "json-config",
		"max_rounds": 2,
		"locators": {"trigger": "${SAMPLE_TRIGGER}"},
		"burst": {"outer": 1, "inner": 1}
	}`)

	cfg, err := NewLoader(dir).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "json-config", cfg.Name)
	assert.Equal(t, "#go", cfg.Locators.Trigger)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown yaml field", "a.yaml", "name: x\nmax_round: 3\n"},
		{"unknown json field", "b.json", `{"name": "x", "stepz": []}`},
		{"malformed json", "c.json", `{"name": `},
		{"missing required env", "d.yaml", "name: ${STAGEHAND_TEST_UNSET:?needed}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := NewLoader(dir).LoadFile(path)
			assert.Error(t, err)
		})
	}

	_, err := NewLoader(dir).LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	_, err := loader.LoadDefault()
	assert.True(t, errors.Is(err, ErrNoConfig))

	writeFile(t, dir, "stagehand.json", `{"name": "from-json"}`)
	writeFile(t, dir, "stagehand.yml", "name: from-yml\n")

	cfg, err := loader.LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "from-yml", cfg.Name, "yaml names are tried first")
}

func TestLoadAndValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", sampleYAML)
	bad := writeFile(t, dir, "bad.yaml", "name: bad\n")

	loader := NewLoader(dir)
	_, err := loader.LoadAndValidate(good)
	require.NoError(t, err)

	_, err = loader.LoadAndValidate(bad)
	require.Error(t, err)
	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestGetters_Defaults(t *testing.T) {
	cfg := &Config{}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"max rounds", cfg.GetMaxRounds(), 1},
		{"max restarts", cfg.GetMaxRestarts(), 10},
		{"sub action ceiling", cfg.GetSubActionFailureCeiling(), 3},
		{"round ceiling", cfg.GetRoundAttemptFailureCeiling(), 3},
		{"trigger ceiling", cfg.GetTriggerTimeoutCeiling(), 3},
		{"entry retries", cfg.GetEntryRetries(), 3},
		{"poll interval", cfg.GetPollInterval(), 5 * time.Second},
		{"load wait", cfg.GetLoadWait(), 3 * time.Minute},
		{"restart backoff", cfg.GetRestartBackoff(), 5 * time.Second},
		{"click retries", cfg.Burst.GetClickRetries(), 2},
		{"burst interval", cfg.Burst.GetInterval(), time.Second},
		{"dismiss target", cfg.Inactivity.GetDismissTarget(), "body"},
		{"dismiss at", cfg.Inactivity.GetDismissAt(), driver.Point{X: 50, Y: 50}},
		{"driver", cfg.GetDriverName(), "sim"},
		{"state dir", cfg.GetStateDir(), ".stagehand"},
		{"tracing", cfg.Telemetry.GetTracing(), "none"},
		{"trigger timeout", cfg.Timeouts.GetTrigger(), 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestGetters_InvalidDurationFallsBack(t *testing.T) {
	cfg := &Config{PollInterval: "soon", LoadWait: "0s", Burst: BurstConfig{ClickRetries: -1}}
	assert.Equal(t, 5*time.Second, cfg.GetPollInterval())
	assert.Zero(t, cfg.GetLoadWait(), "an explicit zero load wait is kept")
	assert.Equal(t, 0, cfg.Burst.GetClickRetries())
}
