package engine

import (
	"fmt"

	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/logger"
)

// CounterKind is a class of failure with its own counter and ceiling.
type CounterKind int

const (
	SubActionFailure CounterKind = iota
	RoundAttemptFailure
	TriggerTimeout
	ProcessRestart
	numCounterKinds
)

func (k CounterKind) String() string {
	switch k {
	case SubActionFailure:
		return "sub_action_failure"
	case RoundAttemptFailure:
		return "round_attempt_failure"
	case TriggerTimeout:
		return "trigger_timeout"
	case ProcessRestart:
		return "process_restart"
	default:
		return fmt.Sprintf("counter(%d)", int(k))
	}
}

// Decision is what the sequencer does after a failure.
type Decision int

const (
	RetryStage Decision = iota
	RetryRound
	RecoverAndRetryRound
	AbortAttempt
	RequestRestart
)

func (d Decision) String() string {
	switch d {
	case RetryStage:
		return "retry_stage"
	case RetryRound:
		return "retry_round"
	case RecoverAndRetryRound:
		return "recover_and_retry_round"
	case AbortAttempt:
		return "abort_attempt"
	case RequestRestart:
		return "request_restart"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Ceilings bounds each failure counter.
type Ceilings struct {
	SubActionFailure    int
	RoundAttemptFailure int
	TriggerTimeout      int
	ProcessRestart      int
}

// CeilingsFromConfig reads the configured ceilings.
func CeilingsFromConfig(cfg *config.Config) Ceilings {
	return Ceilings{
		SubActionFailure:    cfg.GetSubActionFailureCeiling(),
		RoundAttemptFailure: cfg.GetRoundAttemptFailureCeiling(),
		TriggerTimeout:      cfg.GetTriggerTimeoutCeiling(),
		ProcessRestart:      cfg.GetMaxRestarts(),
	}
}

func (c Ceilings) of(kind CounterKind) int {
	var v int
	switch kind {
	case SubActionFailure:
		v = c.SubActionFailure
	case RoundAttemptFailure:
		v = c.RoundAttemptFailure
	case TriggerTimeout:
		v = c.TriggerTimeout
	case ProcessRestart:
		v = c.ProcessRestart
	}
	if v < 1 {
		return 1
	}
	return v
}

// CeilingError reports that a failure counter reached its ceiling.
type CeilingError struct {
	Kind    CounterKind
	Ceiling int
	Err     error
}

func (e *CeilingError) Error() string {
	return fmt.Sprintf("%s ceiling (%d) reached: %v", e.Kind, e.Ceiling, e.Err)
}

func (e *CeilingError) Unwrap() error { return e.Err }

/*
EscalationController maps failures to decisions.

	kind                 below ceiling         reaching ceiling
	SubActionFailure     RetryStage            counts a RoundAttemptFailure:
	                                           RecoverAndRetryRound, or
	                                           AbortAttempt at its ceiling
	RoundAttemptFailure  RetryRound            AbortAttempt
	TriggerTimeout       as SubActionFailure   RequestRestart
	ProcessRestart       RequestRestart        AbortAttempt

Counters count consecutive failures: OnSuccess ends a streak, and so does
the SubActionFailure hand-off, which clears SubActionFailure and
TriggerTimeout so the next failure is retried in place again. A counter is
never incremented past its ceiling, and the decision depends only on the
counters and the kind.
*/
type EscalationController struct {
	state    *RunState
	ceilings Ceilings
	obs      Observer
	log      logger.Logger
}

// NewEscalationController creates a controller over state's counters.
func NewEscalationController(state *RunState, ceilings Ceilings, obs Observer, log logger.Logger) *EscalationController {
	if obs == nil {
		obs = NopObserver{}
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &EscalationController{state: state, ceilings: ceilings, obs: obs, log: log}
}

// Ceiling returns the ceiling for kind.
func (c *EscalationController) Ceiling(kind CounterKind) int {
	return c.ceilings.of(kind)
}

// OnFailure records a failure of kind and decides what happens next.
func (c *EscalationController) OnFailure(kind CounterKind) Decision {
	d := c.record(kind)
	c.obs.DecisionMade(kind.String(), d.String())
	c.log.Debug("escalation decision",
		logger.F("kind", kind.String()),
		logger.F("decision", d.String()),
		logger.F("counters", c.state.Counters()),
	)
	return d
}

// OnSuccess ends the failure streak of kind.
func (c *EscalationController) OnSuccess(kinds ...CounterKind) {
	for _, k := range kinds {
		c.state.reset(k)
	}
}

func (c *EscalationController) record(kind CounterKind) Decision {
	ceiling := c.ceilings.of(kind)
	n, recorded := c.state.bump(kind, ceiling)
	if recorded {
		c.obs.FailureRecorded(kind.String())
	}
	reached := n >= ceiling

	switch kind {
	case TriggerTimeout:
		if reached {
			return RequestRestart
		}
		return c.record(SubActionFailure)

	case SubActionFailure:
		if !reached {
			return RetryStage
		}
		// Handing off to the round tier starts the sub-action streak over.
		c.state.reset(SubActionFailure)
		c.state.reset(TriggerTimeout)
		if c.record(RoundAttemptFailure) == AbortAttempt {
			return AbortAttempt
		}
		return RecoverAndRetryRound

	case RoundAttemptFailure:
		if reached {
			return AbortAttempt
		}
		return RetryRound

	case ProcessRestart:
		if reached {
			return AbortAttempt
		}
		return RequestRestart
	}
	return AbortAttempt
}
