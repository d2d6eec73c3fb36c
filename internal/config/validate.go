package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/chr1sbest/stagehand/internal/logger"
)

// ValidationError holds details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
	Context string
}

func (e ValidationError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Field, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validator validates configuration files.
type Validator struct {
	knownDrivers []string
}

// NewValidator creates a new config validator. An empty knownDrivers list
// accepts any driver name.
func NewValidator(knownDrivers []string) *Validator {
	return &Validator{knownDrivers: knownDrivers}
}

// Validate checks a config for errors and returns detailed validation errors.
func (v *Validator) Validate(cfg *Config) ValidationErrors {
	var errs ValidationErrors
	add := func(field, msg, context string) {
		errs = append(errs, ValidationError{Field: field, Message: msg, Context: context})
	}

	if cfg.Name == "" {
		add("name", "config name is required", "")
	}

	counts := []struct {
		field string
		value int
	}{
		{"max_rounds", cfg.MaxRounds},
		{"max_restarts", cfg.MaxRestarts},
		{"sub_action_failure_ceiling", cfg.SubActionFailureCeiling},
		{"round_attempt_failure_ceiling", cfg.RoundAttemptFailureCeiling},
		{"trigger_timeout_ceiling", cfg.TriggerTimeoutCeiling},
		{"entry_retries", cfg.EntryRetries},
		{"inactivity.max_per_minute", cfg.Inactivity.MaxPerMinute},
	}
	for _, c := range counts {
		if c.value < 0 {
			add(c.field, "must not be negative", "")
		}
	}

	durations := []struct{ field, value string }{
		{"poll_interval", cfg.PollInterval},
		{"load_wait", cfg.LoadWait},
		{"settle_delay", cfg.SettleDelay},
		{"restart_backoff", cfg.RestartBackoff},
		{"stage_retry_delay", cfg.StageRetryDelay},
		{"trigger_settle", cfg.TriggerSettle},
		{"post_click_settle", cfg.PostClickSettle},
		{"burst.interval", cfg.Burst.Interval},
		{"timeouts.navigate", cfg.Timeouts.Navigate},
		{"timeouts.element", cfg.Timeouts.Element},
		{"timeouts.trigger", cfg.Timeouts.Trigger},
		{"timeouts.click", cfg.Timeouts.Click},
		{"timeouts.reload", cfg.Timeouts.Reload},
		{"timeouts.load", cfg.Timeouts.Load},
		{"timeouts.continue", cfg.Timeouts.Continue},
		{"timeouts.trigger_recheck", cfg.Timeouts.TriggerRecheck},
		{"credentials.refresh_timeout", cfg.Credentials.RefreshTimeout},
	}
	for _, d := range durations {
		if msg := checkDuration(d.value); msg != "" {
			add(d.field, msg, "")
		}
	}
	if cfg.PollInterval != "" && cfg.GetPollInterval() == 0 {
		add("poll_interval", "must be greater than zero", "")
	}

	required := []struct{ field, value string }{
		{"locators.trigger", cfg.Locators.Trigger},
		{"locators.nested_host", cfg.Locators.NestedHost},
		{"locators.burst_surface", cfg.Locators.BurstSurface},
		{"locators.success_marker", cfg.Locators.SuccessMarker},
		{"checkpoint.url", cfg.Checkpoint.URL},
		{"checkpoint.ready", cfg.Checkpoint.Ready},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			add(r.field, "is required", "")
		}
	}
	if (cfg.Locators.RoundEnd == "") != (cfg.Locators.Continue == "") {
		add("locators.round_end", "round_end and continue must be set together", "")
	}

	for i, action := range cfg.Checkpoint.Entry {
		ctx := fmt.Sprintf("checkpoint.entry[%d]", i)
		if action.Locator == "" {
			add("locator", "entry action locator is required", ctx)
		}
		if msg := checkDuration(action.Settle); msg != "" {
			add("settle", msg, ctx)
		}
	}

	if cfg.Burst.Outer < 1 {
		add("burst.outer", "must be at least 1", "")
	}
	if cfg.Burst.Inner < 1 {
		add("burst.inner", "must be at least 1", "")
	}

	if cfg.Log.Level != "" {
		if !logger.IsValidLevel(cfg.Log.Level) {
			add("log.level", fmt.Sprintf("unknown level %q", cfg.Log.Level), "")
		}
	}
	if f := cfg.Log.Format; f != "" && f != string(logger.FormatText) && f != string(logger.FormatJSON) {
		add("log.format", fmt.Sprintf("unknown format %q, expected text or json", f), "")
	}

	switch cfg.Telemetry.GetTracing() {
	case "none", "stdout":
	default:
		add("telemetry.tracing", fmt.Sprintf("unknown exporter %q, expected none or stdout", cfg.Telemetry.Tracing), "")
	}

	if len(v.knownDrivers) > 0 && !v.isKnownDriver(cfg.GetDriverName()) {
		add("driver.name", fmt.Sprintf("unknown driver %q, known drivers: %s", cfg.GetDriverName(), strings.Join(v.knownDrivers, ", ")), "")
	}

	return errs
}

func checkDuration(s string) string {
	if s == "" {
		return ""
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Sprintf("invalid duration %q", s)
	}
	if d < 0 {
		return "must not be negative"
	}
	return ""
}

func (v *Validator) isKnownDriver(name string) bool {
	for _, d := range v.knownDrivers {
		if d == name {
			return true
		}
	}
	return false
}

// ValidateConfig validates cfg without restricting the driver name.
func ValidateConfig(cfg *Config) error {
	errs := NewValidator(nil).Validate(cfg)
	if errs.HasErrors() {
		return errs
	}
	return nil
}
