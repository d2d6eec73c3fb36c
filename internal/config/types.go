package config

import (
	"time"

	"github.com/chr1sbest/stagehand/internal/driver"
)

// Config is a session orchestration configuration loaded from JSON or YAML.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	MaxRounds   int `json:"max_rounds" yaml:"max_rounds"`
	MaxRestarts int `json:"max_restarts,omitempty" yaml:"max_restarts,omitempty"`

	// Escalation ceilings (0 = default).
	SubActionFailureCeiling    int `json:"sub_action_failure_ceiling,omitempty" yaml:"sub_action_failure_ceiling,omitempty"`
	RoundAttemptFailureCeiling int `json:"round_attempt_failure_ceiling,omitempty" yaml:"round_attempt_failure_ceiling,omitempty"`
	TriggerTimeoutCeiling      int `json:"trigger_timeout_ceiling,omitempty" yaml:"trigger_timeout_ceiling,omitempty"`
	EntryRetries               int `json:"entry_retries,omitempty" yaml:"entry_retries,omitempty"`

	// Durations, e.g. "500ms", "3m".
	PollInterval    string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	LoadWait        string `json:"load_wait,omitempty" yaml:"load_wait,omitempty"`
	SettleDelay     string `json:"settle_delay,omitempty" yaml:"settle_delay,omitempty"`
	RestartBackoff  string `json:"restart_backoff,omitempty" yaml:"restart_backoff,omitempty"`
	StageRetryDelay string `json:"stage_retry_delay,omitempty" yaml:"stage_retry_delay,omitempty"`
	TriggerSettle   string `json:"trigger_settle,omitempty" yaml:"trigger_settle,omitempty"`
	PostClickSettle string `json:"post_click_settle,omitempty" yaml:"post_click_settle,omitempty"`

	Locators    LocatorConfig     `json:"locators" yaml:"locators"`
	Checkpoint  CheckpointConfig  `json:"checkpoint" yaml:"checkpoint"`
	Burst       BurstConfig       `json:"burst" yaml:"burst"`
	Inactivity  InactivityConfig  `json:"inactivity,omitempty" yaml:"inactivity,omitempty"`
	Timeouts    TimeoutConfig     `json:"timeouts,omitempty" yaml:"timeouts,omitempty"`
	Log         LogConfig         `json:"log,omitempty" yaml:"log,omitempty"`
	Telemetry   TelemetryConfig   `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	Credentials CredentialsConfig `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Driver      DriverConfig      `json:"driver,omitempty" yaml:"driver,omitempty"`
	StateDir    string            `json:"state_dir,omitempty" yaml:"state_dir,omitempty"`
}

// LocatorConfig names every element the engine looks for.
type LocatorConfig struct {
	Trigger           string `json:"trigger" yaml:"trigger"`
	Loaded            string `json:"loaded,omitempty" yaml:"loaded,omitempty"`
	NestedHost        string `json:"nested_host" yaml:"nested_host"`
	BurstSurface      string `json:"burst_surface" yaml:"burst_surface"`
	SuccessMarker     string `json:"success_marker" yaml:"success_marker"`
	InactivityOverlay string `json:"inactivity_overlay,omitempty" yaml:"inactivity_overlay,omitempty"`
	RoundEnd          string `json:"round_end,omitempty" yaml:"round_end,omitempty"`
	Continue          string `json:"continue,omitempty" yaml:"continue,omitempty"`
}

// CheckpointConfig is where an attempt starts and where recovery returns to.
type CheckpointConfig struct {
	Name           string        `json:"name,omitempty" yaml:"name,omitempty"`
	URL            string        `json:"url" yaml:"url"`
	ExpectLocation string        `json:"expect_location,omitempty" yaml:"expect_location,omitempty"`
	Entry          []EntryAction `json:"entry,omitempty" yaml:"entry,omitempty"`
	Ready          string        `json:"ready" yaml:"ready"`
}

// EntryAction is one click on the way into the checkpoint.
type EntryAction struct {
	Locator string `json:"locator" yaml:"locator"`
	Settle  string `json:"settle,omitempty" yaml:"settle,omitempty"`
}

// BurstConfig is the grid of timed clicks.
type BurstConfig struct {
	Outer         int          `json:"outer" yaml:"outer"`
	Inner         int          `json:"inner" yaml:"inner"`
	Origin        driver.Point `json:"origin" yaml:"origin"`
	Step          driver.Point `json:"step" yaml:"step"`
	Interval      string       `json:"interval,omitempty" yaml:"interval,omitempty"`
	ClickRetries  int          `json:"click_retries,omitempty" yaml:"click_retries,omitempty"`
	LocateRetries int          `json:"locate_retries,omitempty" yaml:"locate_retries,omitempty"`
}

// InactivityConfig controls the corrective click.
type InactivityConfig struct {
	DismissTarget string       `json:"dismiss_target,omitempty" yaml:"dismiss_target,omitempty"`
	DismissAt     driver.Point `json:"dismiss_at,omitempty" yaml:"dismiss_at,omitempty"`
	MaxPerMinute  int          `json:"max_per_minute,omitempty" yaml:"max_per_minute,omitempty"`
}

// TimeoutConfig holds per-call driver timeouts.
type TimeoutConfig struct {
	Navigate       string `json:"navigate,omitempty" yaml:"navigate,omitempty"`
	Element        string `json:"element,omitempty" yaml:"element,omitempty"`
	Trigger        string `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Click          string `json:"click,omitempty" yaml:"click,omitempty"`
	Reload         string `json:"reload,omitempty" yaml:"reload,omitempty"`
	Load           string `json:"load,omitempty" yaml:"load,omitempty"`
	Continue       string `json:"continue,omitempty" yaml:"continue,omitempty"`
	TriggerRecheck string `json:"trigger_recheck,omitempty" yaml:"trigger_recheck,omitempty"`
}

// LogConfig selects the log level, format and optional file.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// TelemetryConfig enables the status server and tracing.
type TelemetryConfig struct {
	Listen  string `json:"listen,omitempty" yaml:"listen,omitempty"`
	Tracing string `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// CredentialsConfig names the command that refreshes an expired session.
type CredentialsConfig struct {
	RefreshCommand string `json:"refresh_command,omitempty" yaml:"refresh_command,omitempty"`
	RefreshTimeout string `json:"refresh_timeout,omitempty" yaml:"refresh_timeout,omitempty"`
}

// DriverConfig selects a registered driver.
type DriverConfig struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Defaults.
const (
	DefaultMaxRounds       = 1
	DefaultMaxRestarts     = 10
	DefaultCeiling         = 3
	DefaultEntryRetries    = 3
	DefaultBurstRetries    = 2
	DefaultDriver          = "sim"
	DefaultStateDir        = ".stagehand"
	DefaultDismissPerMin   = 12
	DefaultTracingExporter = "none"
)

// The target is slow to settle after a round loads.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultLoadWait     = 3 * time.Minute
)

var defaultDismissAt = driver.Point{X: 50, Y: 50}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// GetMaxRounds returns the number of rounds to complete (default 1).
func (c *Config) GetMaxRounds() int { return positiveOr(c.MaxRounds, DefaultMaxRounds) }

// GetMaxRestarts returns the process-level attempt ceiling (default 10).
func (c *Config) GetMaxRestarts() int { return positiveOr(c.MaxRestarts, DefaultMaxRestarts) }

func (c *Config) GetSubActionFailureCeiling() int {
	return positiveOr(c.SubActionFailureCeiling, DefaultCeiling)
}

func (c *Config) GetRoundAttemptFailureCeiling() int {
	return positiveOr(c.RoundAttemptFailureCeiling, DefaultCeiling)
}

func (c *Config) GetTriggerTimeoutCeiling() int {
	return positiveOr(c.TriggerTimeoutCeiling, DefaultCeiling)
}

func (c *Config) GetEntryRetries() int { return positiveOr(c.EntryRetries, DefaultEntryRetries) }

func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.PollInterval, DefaultPollInterval)
}

func (c *Config) GetLoadWait() time.Duration { return parseDuration(c.LoadWait, DefaultLoadWait) }
func (c *Config) GetSettleDelay() time.Duration  { return parseDuration(c.SettleDelay, 2*time.Second) }

func (c *Config) GetRestartBackoff() time.Duration {
	return parseDuration(c.RestartBackoff, 5*time.Second)
}

func (c *Config) GetStageRetryDelay() time.Duration {
	return parseDuration(c.StageRetryDelay, 5*time.Second)
}

func (c *Config) GetTriggerSettle() time.Duration   { return parseDuration(c.TriggerSettle, 0) }
func (c *Config) GetPostClickSettle() time.Duration { return parseDuration(c.PostClickSettle, 0) }

// GetStateDir returns where run state and the lock file live.
func (c *Config) GetStateDir() string {
	if c.StateDir == "" {
		return DefaultStateDir
	}
	return c.StateDir
}

// GetDriverName returns the registered driver to use (default "sim").
func (c *Config) GetDriverName() string {
	if c.Driver.Name == "" {
		return DefaultDriver
	}
	return c.Driver.Name
}

// GetInterval returns the delay between burst clicks.
func (b BurstConfig) GetInterval() time.Duration { return parseDuration(b.Interval, time.Second) }

// GetClickRetries returns extra tries per burst click (default 2).
func (b BurstConfig) GetClickRetries() int {
	if b.ClickRetries < 0 {
		return 0
	}
	if b.ClickRetries == 0 {
		return DefaultBurstRetries
	}
	return b.ClickRetries
}

// GetLocateRetries returns extra tries to find the burst surface (default 2).
func (b BurstConfig) GetLocateRetries() int {
	if b.LocateRetries < 0 {
		return 0
	}
	if b.LocateRetries == 0 {
		return DefaultBurstRetries
	}
	return b.LocateRetries
}

// Position returns the click position for cell (i, j) of the burst grid.
func (b BurstConfig) Position(i, j int) driver.Point {
	return driver.Point{
		X: b.Origin.X + i*b.Step.X,
		Y: b.Origin.Y + j*b.Step.Y,
	}
}

// GetDismissTarget returns the element clicked to dismiss the overlay.
func (i InactivityConfig) GetDismissTarget() string {
	if i.DismissTarget == "" {
		return "body"
	}
	return i.DismissTarget
}

// GetDismissAt returns where the corrective click lands.
func (i InactivityConfig) GetDismissAt() driver.Point {
	if i.DismissAt == (driver.Point{}) {
		return defaultDismissAt
	}
	return i.DismissAt
}

// GetMaxPerMinute caps corrective clicks (default 12).
func (i InactivityConfig) GetMaxPerMinute() int {
	return positiveOr(i.MaxPerMinute, DefaultDismissPerMin)
}

func (t TimeoutConfig) GetNavigate() time.Duration { return parseDuration(t.Navigate, 60*time.Second) }
func (t TimeoutConfig) GetElement() time.Duration  { return parseDuration(t.Element, 30*time.Second) }
func (t TimeoutConfig) GetTrigger() time.Duration  { return parseDuration(t.Trigger, 30*time.Second) }
func (t TimeoutConfig) GetClick() time.Duration    { return parseDuration(t.Click, 10*time.Second) }
func (t TimeoutConfig) GetReload() time.Duration   { return parseDuration(t.Reload, 60*time.Second) }
func (t TimeoutConfig) GetLoad() time.Duration     { return parseDuration(t.Load, 2*time.Minute) }
func (t TimeoutConfig) GetContinue() time.Duration { return parseDuration(t.Continue, 10*time.Second) }

func (t TimeoutConfig) GetTriggerRecheck() time.Duration {
	return parseDuration(t.TriggerRecheck, 5*time.Second)
}

// GetSettle returns how long to wait after the entry click.
func (e EntryAction) GetSettle() time.Duration { return parseDuration(e.Settle, 0) }

// GetRefreshTimeout bounds the credential refresh command.
func (c CredentialsConfig) GetRefreshTimeout() time.Duration {
	return parseDuration(c.RefreshTimeout, 2*time.Minute)
}

// GetTracing returns the trace exporter (none or stdout).
func (t TelemetryConfig) GetTracing() string {
	if t.Tracing == "" {
		return DefaultTracingExporter
	}
	return t.Tracing
}
