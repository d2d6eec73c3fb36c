package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Name: "test",
		Locators: LocatorConfig{
			Trigger:       "#trigger",
			NestedHost:    "#host",
			BurstSurface:  "#surface",
			SuccessMarker: "#done",
		},
		Checkpoint: CheckpointConfig{URL: "https://example.test/play", Ready: "#trigger"},
		Burst:      BurstConfig{Outer: 2, Inner: 2},
	}
}

func TestValidator(t *testing.T) {
	validator := NewValidator([]string{"sim"})

	tests := []struct {
		name       string
		mutate     func(c *Config)
		wantErrors int
		wantFields []string
	}{
		{
			name:       "valid config",
			mutate:     func(c *Config) {},
			wantErrors: 0,
		},
		{
			name:       "missing config name",
			mutate:     func(c *Config) { c.Name = "" },
			wantErrors: 1,
			wantFields: []string{"name"},
		},
		{
			name:       "negative ceiling",
			mutate:     func(c *Config) { c.TriggerTimeoutCeiling = -1 },
			wantErrors: 1,
			wantFields: []string{"trigger_timeout_ceiling"},
		},
		{
			name:       "bad durations",
			mutate:     func(c *Config) { c.LoadWait = "forever"; c.Timeouts.Click = "-1s" },
			wantErrors: 2,
			wantFields: []string{"load_wait", "timeouts.click"},
		},
		{
			name:       "zero poll interval",
			mutate:     func(c *Config) { c.PollInterval = "0s" },
			wantErrors: 1,
			wantFields: []string{"poll_interval"},
		},
		{
			name:       "missing locators",
			mutate:     func(c *Config) { c.Locators = LocatorConfig{} },
			wantErrors: 4,
			wantFields: []string{"locators.trigger", "locators.success_marker"},
		},
		{
			name:       "round end without continue",
			mutate:     func(c *Config) { c.Locators.RoundEnd = "#over" },
			wantErrors: 1,
			wantFields: []string{"locators.round_end"},
		},
		{
			name: "bad entry action",
			mutate: func(c *Config) {
				c.Checkpoint.Entry = []EntryAction{{Settle: "later"}}
			},
			wantErrors: 2,
			wantFields: []string{"locator", "settle"},
		},
		{
			name:       "empty burst",
			mutate:     func(c *Config) { c.Burst = BurstConfig{} },
			wantErrors: 2,
			wantFields: []string{"burst.outer", "burst.inner"},
		},
		{
			name: "log and telemetry",
			mutate: func(c *Config) {
				c.Log = LogConfig{Level: "loud", Format: "xml"}
				c.Telemetry.Tracing = "jaeger"
			},
			wantErrors: 3,
			wantFields: []string{"log.level", "log.format", "telemetry.tracing"},
		},
		{
			name:       "unknown driver",
			mutate:     func(c *Config) { c.Driver.Name = "chrome" },
			wantErrors: 1,
			wantFields: []string{"driver.name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := validator.Validate(cfg)

			if len(errs) != tt.wantErrors {
				t.Errorf("got %d errors, want %d: %v", len(errs), tt.wantErrors, errs)
			}

			for _, field := range tt.wantFields {
				found := false
				for _, e := range errs {
					if e.Field == field {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected error for field %q, got errors: %v", field, errs)
				}
			}
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{
		Field:   "locator",
		Message: "entry action locator is required",
		Context: "checkpoint.entry[0]",
	}

	expected := "locator: entry action locator is required (in checkpoint.entry[0])"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}

	err.Context = ""
	expected = "locator: entry action locator is required"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestValidateConfigConvenience(t *testing.T) {
	assert.NoError(t, ValidateConfig(validConfig()))

	cfg := validConfig()
	cfg.Driver.Name = "anything"
	assert.NoError(t, ValidateConfig(cfg), "no driver restriction")

	err := ValidateConfig(&Config{})
	if err == nil {
		t.Error("expected validation error, got nil")
	}
}
