package engine

//go:generate mockgen -package=engine -destination=mock_driver_test.go github.com/chr1sbest/stagehand/internal/driver Driver

// Observer receives engine events for metrics and run tracking.
type Observer interface {
	FailureRecorded(kind string)
	DecisionMade(kind, decision string)
	RoundCompleted(round int)
	WatchdogAction(watchdog string)
}

// StatusReporter shows progress to a human.
type StatusReporter interface {
	Stage(round, maxRounds int, stage string)
	Note(msg string)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) FailureRecorded(string)      {}
func (NopObserver) DecisionMade(string, string) {}
func (NopObserver) RoundCompleted(int)          {}
func (NopObserver) WatchdogAction(string)       {}
func (NopObserver) Stage(int, int, string)      {}
func (NopObserver) Note(string)                 {}

// Observers fans events out to several observers.
type Observers []Observer

func (all Observers) FailureRecorded(kind string) {
	for _, o := range all {
		o.FailureRecorded(kind)
	}
}

func (all Observers) DecisionMade(kind, decision string) {
	for _, o := range all {
		o.DecisionMade(kind, decision)
	}
}

func (all Observers) RoundCompleted(round int) {
	for _, o := range all {
		o.RoundCompleted(round)
	}
}

func (all Observers) WatchdogAction(watchdog string) {
	for _, o := range all {
		o.WatchdogAction(watchdog)
	}
}

// StatusReporters fans progress out to several reporters.
type StatusReporters []StatusReporter

func (all StatusReporters) Stage(round, maxRounds int, stage string) {
	for _, s := range all {
		s.Stage(round, maxRounds, stage)
	}
}

func (all StatusReporters) Note(msg string) {
	for _, s := range all {
		s.Note(msg)
	}
}
