package sim

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chr1sbest/stagehand/internal/driver"
)

// Scenario describes a simulated target in YAML. Every session built from
// a scenario starts from the same state.
type Scenario struct {
	Location     string            `yaml:"location"`
	PollInterval string            `yaml:"poll_interval"`
	Elements     []string          `yaml:"elements"`
	Text         map[string]string `yaml:"text"`
	Frames       []FrameSpec       `yaml:"frames"`
	Redirects    map[string]string `yaml:"redirects"`
	OnClick      []RuleSpec        `yaml:"on_click"`
	OnReload     []RuleSpec        `yaml:"on_reload"`
	Failures     []FailureSpec     `yaml:"failures"`
}

// FrameSpec nests a named context under a host element.
type FrameSpec struct {
	Host     string   `yaml:"host"`
	Name     string   `yaml:"name"`
	Elements []string `yaml:"elements"`
}

// RuleSpec is the YAML form of Rule.
type RuleSpec struct {
	Frame    string    `yaml:"frame"`
	Locator  string    `yaml:"locator"`
	Nth      int       `yaml:"nth"`
	Delay    string    `yaml:"delay"`
	Show     []RefSpec `yaml:"show"`
	Hide     []RefSpec `yaml:"hide"`
	Location string    `yaml:"location"`
}

// RefSpec is either a bare locator (page scope) or {frame, locator}.
type RefSpec Ref

// UnmarshalYAML accepts both forms.
func (r *RefSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Locator = driver.Locator(node.Value)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Frame   string `yaml:"frame"`
			Locator string `yaml:"locator"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		r.Scope = raw.Frame
		r.Locator = driver.Locator(raw.Locator)
		return nil
	default:
		return fmt.Errorf("line %d: element reference must be a string or a mapping", node.Line)
	}
}

// FailureSpec injects failures.
type FailureSpec struct {
	Op      string `yaml:"op"`
	Locator string `yaml:"locator"`
	Kind    string `yaml:"kind"`
	Count   int    `yaml:"count"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses YAML scenario data and checks it builds.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if _, err := s.Build(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Build creates a fresh Target in the scenario's initial state.
func (s *Scenario) Build() (*Target, error) {
	var opts []Option
	if s.Location != "" {
		opts = append(opts, WithLocation(s.Location))
	}
	if s.PollInterval != "" {
		d, err := time.ParseDuration(s.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval: %w", err)
		}
		opts = append(opts, WithPollInterval(d))
	}

	t := New(opts...)
	for _, e := range s.Elements {
		t.Show(driver.Locator(e))
	}
	for _, f := range s.Frames {
		if f.Name == "" || f.Host == "" {
			return nil, fmt.Errorf("frame needs both host and name")
		}
		locs := make([]driver.Locator, len(f.Elements))
		for i, e := range f.Elements {
			locs[i] = driver.Locator(e)
		}
		t.AddFrame(driver.Locator(f.Host), f.Name, locs...)
	}
	for loc, text := range s.Text {
		t.SetText(Page(driver.Locator(loc)), text)
	}
	for from, to := range s.Redirects {
		t.Redirect(from, to)
	}
	for i, rs := range s.OnClick {
		r, err := rs.rule()
		if err != nil {
			return nil, fmt.Errorf("on_click[%d]: %w", i, err)
		}
		if r.Locator == "" {
			return nil, fmt.Errorf("on_click[%d]: locator is required", i)
		}
		t.OnClick(r)
	}
	for i, rs := range s.OnReload {
		r, err := rs.rule()
		if err != nil {
			return nil, fmt.Errorf("on_reload[%d]: %w", i, err)
		}
		t.OnReload(r)
	}
	for i, fs := range s.Failures {
		kind := driver.Kind(fs.Kind)
		if kind == "" {
			kind = driver.KindActionTimeout
		}
		switch kind {
		case driver.KindElementNotFound, driver.KindActionTimeout, driver.KindNavigation,
			driver.KindStaleContext, driver.KindUnauthenticated:
		default:
			return nil, fmt.Errorf("failures[%d]: unknown kind %q", i, fs.Kind)
		}
		count := fs.Count
		if count <= 0 {
			count = 1
		}
		t.FailNext(fs.Op, driver.Locator(fs.Locator), driver.NewError(kind, fs.Op, driver.Locator(fs.Locator), nil), count)
	}
	return t, nil
}

func (rs RuleSpec) rule() (Rule, error) {
	r := Rule{
		Scope:    rs.Frame,
		Locator:  driver.Locator(rs.Locator),
		Nth:      rs.Nth,
		Location: rs.Location,
	}
	if rs.Delay != "" {
		d, err := time.ParseDuration(rs.Delay)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid delay: %w", err)
		}
		r.Delay = d
	}
	for _, ref := range rs.Show {
		r.Show = append(r.Show, Ref(ref))
	}
	for _, ref := range rs.Hide {
		r.Hide = append(r.Hide, Ref(ref))
	}
	return r, nil
}

// Factory returns a driver.Factory that builds a fresh Target per session.
func (s *Scenario) Factory() driver.Factory {
	return driver.FactoryFunc(func(ctx context.Context) (driver.Driver, error) {
		t, err := s.Build()
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

// Name is the registry name of the simulated driver.
const Name = "sim"

func init() {
	driver.Register(Name, func(options map[string]string) (driver.Factory, error) {
		path := options["scenario"]
		if path == "" {
			return nil, fmt.Errorf("sim driver requires the scenario option")
		}
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		return s.Factory(), nil
	})
}
