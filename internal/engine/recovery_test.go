package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/logger"
)

type fakeElement driver.Locator

func (e fakeElement) Locator() driver.Locator { return driver.Locator(e) }

func newTestSession(cfg *config.Config, drv driver.Driver) (*session, *recorder) {
	rec := &recorder{}
	state := NewRunState(cfg.GetMaxRounds())
	s := &session{
		id:         "test",
		cfg:        cfg,
		drv:        drv,
		state:      state,
		log:        logger.NewNoopLogger(),
		obs:        rec,
		status:     rec,
		tracer:     noop.NewTracerProvider().Tracer(TracerName),
		checkpoint: CheckpointFromConfig(cfg.Checkpoint),
	}
	s.esc = NewEscalationController(state, CeilingsFromConfig(cfg), rec, nil)
	return s, rec
}

func TestRecover_ReloadsAndReenters(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockDriver(ctrl)
	cfg := testConfig()
	s, rec := newTestSession(cfg, m)

	gomock.InOrder(
		m.EXPECT().Reload(gomock.Any(), cfg.Timeouts.GetReload()).Return(nil),
		m.EXPECT().Navigate(gomock.Any(), lobbyURL, cfg.Timeouts.GetNavigate()).Return(nil),
		m.EXPECT().WaitForElement(gomock.Any(), driver.Locator("#lobby"), cfg.Timeouts.GetElement(), true).
			Return(fakeElement("#lobby"), nil),
	)

	require.NoError(t, s.recover(context.Background(), &s.checkpoint))
	assert.Equal(t, []string{"recovering to entry"}, rec.notes)
}

func TestRecoverUntilReady_AbortsAtRoundCeiling(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockDriver(ctrl)
	cfg := testConfig()
	s, _ := newTestSession(cfg, m)

	navErr := driver.NewError(driver.KindNavigation, driver.OpReload, "", nil)
	m.EXPECT().Reload(gomock.Any(), gomock.Any()).Return(navErr).Times(3)

	err := s.recoverUntilReady(context.Background(), &s.checkpoint)

	var ce *CeilingError
	require.True(t, errors.As(err, &ce), "err: %v", err)
	assert.Equal(t, RoundAttemptFailure, ce.Kind)
	assert.ErrorIs(t, err, driver.ErrNavigation)
	assert.Equal(t, 3, s.state.Counter(RoundAttemptFailure))
}

func TestRecoverUntilReady_StopsOnUnauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockDriver(ctrl)
	cfg := testConfig()
	cfg.Checkpoint.ExpectLocation = "/lobby"
	s, _ := newTestSession(cfg, m)

	m.EXPECT().Reload(gomock.Any(), gomock.Any()).Return(nil)
	m.EXPECT().Navigate(gomock.Any(), lobbyURL, gomock.Any()).Return(nil)
	m.EXPECT().CurrentLocation(gomock.Any()).Return("https://sso.test/signin", nil)

	err := s.recoverUntilReady(context.Background(), &s.checkpoint)

	assert.ErrorIs(t, err, driver.ErrUnauthenticated)
	assert.Equal(t, 0, s.state.Counter(RoundAttemptFailure))
}

func TestEnter_NavigationRetriedWithReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockDriver(ctrl)
	cfg := testConfig()
	s, rec := newTestSession(cfg, m)

	navErr := driver.NewError(driver.KindNavigation, driver.OpNavigate, driver.Locator(lobbyURL), errors.New("connection reset"))
	gomock.InOrder(
		m.EXPECT().Navigate(gomock.Any(), lobbyURL, gomock.Any()).Return(navErr),
		m.EXPECT().Reload(gomock.Any(), gomock.Any()).Return(nil),
		m.EXPECT().Navigate(gomock.Any(), lobbyURL, gomock.Any()).Return(nil),
		m.EXPECT().WaitForElement(gomock.Any(), driver.Locator("#lobby"), gomock.Any(), true).
			Return(fakeElement("#lobby"), nil),
	)

	require.NoError(t, s.enter(context.Background()))
	assert.Equal(t, []string{"entry retry 1/3"}, rec.notes)
}

func TestEnter_StopsWhenTerminated(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockDriver(ctrl)
	cfg := testConfig()
	s, _ := newTestSession(cfg, m)

	m.EXPECT().Navigate(gomock.Any(), lobbyURL, gomock.Any()).DoAndReturn(
		func(ctx context.Context, url string, _ time.Duration) error {
			s.state.Terminate()
			return driver.NewError(driver.KindNavigation, driver.OpNavigate, driver.Locator(url), nil)
		})

	err := s.enter(context.Background())
	assert.ErrorIs(t, err, ErrTerminated)
}
