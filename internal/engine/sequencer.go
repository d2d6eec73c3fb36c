package engine

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/logger"
)

type roundOutcome int

const (
	roundCompleted roundOutcome = iota
	roundInterrupted
	roundRetry
	roundRecover
	roundAbort
	roundRestart
	roundStopped
)

// Sequencer drives rounds through their stages until the attempt has
// completed maxRounds, gives up, or asks for a process restart.
type Sequencer struct {
	s      *session
	stages []Stage
}

func newSequencer(s *session) *Sequencer {
	return &Sequencer{s: s, stages: s.stages()}
}

// Run executes rounds until a terminal result.
func (q *Sequencer) Run(ctx context.Context) (AttemptResult, error) {
	s := q.s
	log := s.log.WithFields(logger.F("routine", "sequencer"))

	for {
		if s.state.Terminated() {
			return Aborted, ErrTerminated
		}
		if err := ctx.Err(); err != nil {
			return Aborted, err
		}
		if s.state.RoundsCompleted() >= s.state.MaxRounds() {
			return Completed, nil
		}

		round := s.state.RoundsCompleted() + 1
		outcome, stage, err := q.playRound(ctx, round, log.WithFields(logger.F("round", round)))

		switch outcome {
		case roundCompleted, roundInterrupted:

		case roundRetry:
			if err := s.state.Sleep(ctx, s.cfg.GetStageRetryDelay(), false); err != nil {
				return Aborted, err
			}

		case roundRecover:
			if err := s.recoverUntilReady(ctx, stage.Checkpoint); err != nil {
				return Aborted, err
			}

		case roundRestart:
			// State is per attempt, so this only records the request for the
			// report. The bound across attempts is the runner's process tier.
			s.esc.OnFailure(ProcessRestart)
			log.Warn("requesting process restart", logger.F("error", err))
			return RestartRequested, err

		case roundAbort:
			log.Error("aborting attempt", logger.F("stage", stage.Name), logger.F("error", err))
			return Aborted, err

		case roundStopped:
			return Aborted, err
		}
	}
}

// playRound runs the stages of one round in order.
func (q *Sequencer) playRound(ctx context.Context, round int, log logger.Logger) (roundOutcome, Stage, error) {
	s := q.s
	ctx, span := s.tracer.Start(ctx, "round", trace.WithAttributes(attribute.Int("round", round)))
	defer span.End()

	for i := 0; i < len(q.stages); {
		st := q.stages[i]

		if reason, ok := s.state.takeRestart(); ok {
			log.Info("restart requested, starting round over",
				logger.F("reason", string(reason)),
				logger.F("abandoned_stage", st.Name),
			)
			s.status.Note("round restarted: " + string(reason))
			span.AddEvent("restart", trace.WithAttributes(attribute.String("reason", string(reason))))
			return roundInterrupted, st, nil
		}
		if s.state.Terminated() {
			return roundStopped, st, ErrTerminated
		}

		s.status.Stage(round, s.state.MaxRounds(), st.Name)
		err := q.runStage(ctx, st)
		if err == nil {
			q.stageSucceeded(st)
			i++
			continue
		}

		if errors.Is(err, ErrRestartRequested) {
			continue
		}
		if isStop(ctx, err) {
			return roundStopped, st, err
		}

		if driver.KindOf(err) == driver.KindUnauthenticated {
			return roundAbort, st, err
		}

		kind := st.classify(err)
		d := s.esc.OnFailure(kind)
		if d == RetryStage && !st.Retryable {
			d = RetryRound
		}
		if d == RetryRound && driver.KindOf(err) == driver.KindStaleContext {
			d = RecoverAndRetryRound
		}

		log.Warn("stage failed",
			logger.F("stage", st.Name),
			logger.F("kind", kind.String()),
			logger.F("decision", d.String()),
			logger.F("error", err),
		)

		switch d {
		case RetryStage:
			s.status.Note("retrying " + st.Name)
			if err := s.state.Sleep(ctx, s.cfg.GetStageRetryDelay(), true); err != nil && !errors.Is(err, ErrRestartRequested) {
				return roundStopped, st, err
			}
		case RetryRound:
			return roundRetry, st, err
		case RecoverAndRetryRound:
			return roundRecover, st, err
		case RequestRestart:
			return roundRestart, st, &CeilingError{Kind: TriggerTimeout, Ceiling: s.esc.Ceiling(TriggerTimeout), Err: err}
		default:
			return roundAbort, st, &CeilingError{Kind: RoundAttemptFailure, Ceiling: s.esc.Ceiling(RoundAttemptFailure), Err: err}
		}
	}

	n := s.state.completeRound()
	s.esc.OnSuccess(RoundAttemptFailure)
	s.obs.RoundCompleted(n)
	log.Info("round completed", logger.F("rounds_completed", n), logger.F("max_rounds", s.state.MaxRounds()))
	return roundCompleted, Stage{}, nil
}

func (q *Sequencer) runStage(ctx context.Context, st Stage) (err error) {
	ctx, span := q.s.tracer.Start(ctx, "stage."+st.Name)
	defer func() {
		if err != nil && !errors.Is(err, ErrRestartRequested) {
			span.RecordError(err)
			span.SetStatus(codes.Error, st.Name+" failed")
		}
		span.End()
	}()

	if st.Timeout <= 0 {
		return st.Run(ctx)
	}

	sctx, cancel := context.WithTimeout(ctx, st.Timeout)
	defer cancel()
	err = st.Run(sctx)
	if err != nil && ctx.Err() == nil && errors.Is(sctx.Err(), context.DeadlineExceeded) {
		return driver.NewError(driver.KindActionTimeout, "stage."+st.Name, "", err)
	}
	return err
}

func (q *Sequencer) stageSucceeded(st Stage) {
	switch st.Name {
	case StageTrigger:
		q.s.esc.OnSuccess(TriggerTimeout, SubActionFailure)
	case StageBurst:
		q.s.esc.OnSuccess(SubActionFailure)
	}
}
