package usecase

import (
	"context"
	"sync"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	drepo "heliowatch/internal/domain/repository"
	applogger "heliowatch/pkg/logger"

	"github.com/jonboulle/clockwork"
)

// RiskSampler recomputes the global risk index on a fixed tick from the
// latest snapshot, publishes it, and feeds the event tracker. The clock
// is injected so tests can drive ticks deterministically.
type RiskSampler struct {
	snapshot *LatestSnapshot
	tracker  *EventTracker
	pub      drepo.Publisher
	metrics  drepo.Metrics
	logger   *applogger.Logger
	clock    clockwork.Clock
	interval time.Duration
	detCfg   cme.DetectorConfig

	mu      sync.RWMutex
	latest  models.RiskIndex
	hasRisk bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRiskSampler creates a sampler. A nil clock falls back to the real
// clock; publisher may be nil when no bus is configured.
func NewRiskSampler(
	snapshot *LatestSnapshot,
	tracker *EventTracker,
	pub drepo.Publisher,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	clock clockwork.Clock,
	interval time.Duration,
	detCfg cme.DetectorConfig,
) *RiskSampler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RiskSampler{
		snapshot: snapshot,
		tracker:  tracker,
		pub:      pub,
		metrics:  metrics,
		logger:   logger,
		clock:    clock,
		interval: interval,
		detCfg:   detCfg,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *RiskSampler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.Chan():
				s.Tick(ctx)
			}
		}
	}()
}

// Stop halts the tick loop and waits for it to exit.
func (s *RiskSampler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Tick performs one sampling pass. Exported so tests and the on-demand
// refresh path can drive it directly.
func (s *RiskSampler) Tick(ctx context.Context) {
	snap := s.snapshot.Snapshot()

	for _, r := range snap.Readings {
		s.tracker.Observe(r, s.detCfg)
	}

	ri, err := cme.ComputeRisk(snap.Readings)
	if err != nil {
		s.metrics.RecordError("risk_compute")
		s.logger.Warn("risk sampling skipped", applogger.Error(err))
		return
	}

	s.mu.Lock()
	s.latest = ri
	s.hasRisk = true
	s.mu.Unlock()

	s.metrics.RecordRisk(ri.Score, ri.Level)

	if s.pub != nil {
		if err := s.pub.PublishRisk(ctx, &ri); err != nil {
			s.metrics.RecordError("risk_publish")
			s.logger.Error("publish risk index", applogger.Error(err))
		}
	}
}

// Latest returns the most recent risk index, if one has been computed.
func (s *RiskSampler) Latest() (models.RiskIndex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasRisk
}
