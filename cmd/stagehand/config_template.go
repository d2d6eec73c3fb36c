package main

import (
	"bytes"
	"text/template"
)

type configTemplateData struct {
	Name     string
	Scenario string
	StateDir string
}

const configTemplate = `# stagehand config. Durations use Go syntax ("500ms", "3m").
# ${VAR} and ${VAR:-default} are expanded from the environment.
name: {{.Name}}
description: Starter config driving the simulated target in {{.Scenario}}

max_rounds: 3
max_restarts: 10

sub_action_failure_ceiling: 3
round_attempt_failure_ceiling: 3
trigger_timeout_ceiling: 3
entry_retries: 3

poll_interval: 250ms
load_wait: 2s
settle_delay: 500ms
restart_backoff: 5s
stage_retry_delay: 1s

locators:
  trigger: "#start"
  loaded: "#table"
  nested_host: "#game-host"
  burst_surface: "#board"
  success_marker: "#round-complete"
  inactivity_overlay: "#idle-warning"
  round_end: "#round-over"
  continue: "#continue"

checkpoint:
  name: lobby
  url: ${STAGEHAND_URL:-https://example.test/lobby}
  ready: "#lobby"

burst:
  outer: 3
  inner: 3
  origin: {x: 40, y: 40}
  step: {x: 60, y: 60}
  interval: 200ms

inactivity:
  dismiss_at: {x: 10, y: 10}
  max_per_minute: 12

timeouts:
  navigate: 30s
  element: 10s
  trigger: 10s
  click: 5s
  load: 30s

log:
  level: ${STAGEHAND_LOG_LEVEL:-info}
  file: {{.StateDir}}/stagehand.log

telemetry:
  tracing: none

credentials:
  refresh_command: ${STAGEHAND_REFRESH_COMMAND:-}

driver:
  name: sim
  options:
    scenario: {{.Scenario}}

state_dir: {{.StateDir}}
`

// scenarioTemplate is a target on which every round succeeds after one
// flaky trigger click.
const scenarioTemplate = `location: about:blank
poll_interval: 50ms
elements: ["#lobby", "#start", "#game-host"]
frames:
  - host: "#game-host"
    name: game
    elements: ["#board", "#round-complete"]
on_click:
  - locator: "#start"
    show: ["#table"]
failures:
  - op: click
    locator: "#start"
    kind: action_timeout
    count: 1
`

func renderConfigTemplate(data configTemplateData) (string, error) {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
