package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alexandrut83/rigdash/rigcloud"
)

// DefaultPollInterval is how often the fallback checks for staleness
const DefaultPollInterval = 10 * time.Second

// RigFetcher fetches the full rig map over HTTP
type RigFetcher interface {
	FetchRigs(ctx context.Context) (map[string]RigEntry, error)
}

// Fallback refetches the rig map when the stream has gone quiet
type Fallback struct {
	ctrl     *Controller
	fetcher  RigFetcher
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewFallback creates a poller for ctrl
func NewFallback(ctrl *Controller, fetcher RigFetcher, interval time.Duration, logger *zap.Logger) *Fallback {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{
		ctrl:     ctrl,
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls every interval until ctx is cancelled
func (f *Fallback) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := f.Poll(ctx); err != nil && ctx.Err() == nil {
				f.logger.Warn("Fallback rig fetch failed", zap.Error(err))
			}
		}
	}
}

// Poll fetches and applies the rig map when the state is stale. It reports
// whether a fetch was made.
func (f *Fallback) Poll(ctx context.Context) (bool, error) {
	if !f.ctrl.Stale(f.now()) {
		return false, nil
	}
	rigs, err := f.fetcher.FetchRigs(ctx)
	if err != nil {
		return true, err
	}
	f.logger.Debug("Applied fallback rig fetch", zap.Int("rigs", len(rigs)))
	return true, f.ctrl.Dispatch(ctx, StateReset{Rigs: rigs})
}

// FrameSink turns stream frames into controller events
type FrameSink struct {
	ctrl   *Controller
	logger *zap.Logger
}

// NewFrameSink creates a sink feeding ctrl
func NewFrameSink(ctrl *Controller, logger *zap.Logger) *FrameSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameSink{ctrl: ctrl, logger: logger}
}

// HandleFrame dispatches the event matching the frame kind
func (s *FrameSink) HandleFrame(ctx context.Context, f rigcloud.Frame) {
	var ev Event
	switch f.Kind {
	case rigcloud.FrameCommandResponse:
		ev = CommandResponded{Response: f.Response}
	case rigcloud.FrameSnapshot:
		ev = StateReset{Rigs: f.Rigs}
	case rigcloud.FrameDelta, rigcloud.FrameLegacy:
		ev = RigUpserted{Rig: f.Rig, Entry: f.Entry}
	default:
		return
	}
	if err := s.ctrl.Dispatch(ctx, ev); err != nil && ctx.Err() == nil {
		s.logger.Warn("Failed to apply frame", zap.Stringer("kind", f.Kind), zap.Error(err))
	}
}
