// Package scheduler runs the temporal evaluators on their configured cadences
// inside the API process. The same sweeps can also be triggered on demand
// through the pipeline endpoints, so every run must be safe to repeat.
package scheduler

import (
	"context"
	"sync"
	"time"

	"lifeslice/internal/config"
	"lifeslice/internal/logger"
	"lifeslice/internal/services"
)

// Scheduler drives the periodic evaluator sweeps. Temporal checks (scheduled
// and continuous penalties) run on one cadence, component decay on another,
// and the daily reset fires once shortly after midnight in the reference
// timezone.
type Scheduler struct {
	temporalService services.TemporalServicer

	temporalInterval time.Duration
	decayInterval    time.Duration
	loc              *time.Location
	now              func() time.Time

	mu       sync.Mutex
	nextRuns map[string]time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scheduler from the application configuration.
func New(temporalService services.TemporalServicer, cfg *config.Config) *Scheduler {
	return &Scheduler{
		temporalService:  temporalService,
		temporalInterval: cfg.TemporalCheckInterval,
		decayInterval:    cfg.DecayCheckInterval,
		loc:              cfg.Timezone,
		now:              time.Now,
		nextRuns:         make(map[string]time.Time),
	}
}

// Start launches the evaluator loops. It returns immediately; Stop waits for
// the loops to drain.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(3)
	go s.runEvery(ctx, &wg, "temporal", s.temporalInterval, func() {
		s.temporalService.RunScheduledChecks()
		s.temporalService.RunContinuousChecks()
	})
	go s.runEvery(ctx, &wg, "decay", s.decayInterval, func() {
		s.temporalService.RunCompositeDecay()
	})
	go s.runDaily(ctx, &wg)

	go func() {
		wg.Wait()
		close(s.done)
	}()

	logger.Get().Infow("scheduler started",
		"temporal_interval", s.temporalInterval.String(),
		"decay_interval", s.decayInterval.String(),
		"timezone", s.loc.String(),
	)
}

// Stop cancels the loops and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logger.Get().Infow("scheduler stopped")
}

// NextRuns returns the next planned run time of each evaluator loop.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.nextRuns))
	for name, at := range s.nextRuns {
		out[name] = at
	}
	return out
}

func (s *Scheduler) setNextRun(name string, at time.Time) {
	s.mu.Lock()
	s.nextRuns[name] = at
	s.mu.Unlock()
}

// runEvery runs fn on a fixed interval until the context is cancelled. The
// first run happens after one full interval so startup does not race the
// migrations.
func (s *Scheduler) runEvery(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, fn func()) {
	defer wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.setNextRun(name, s.now().Add(interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.setNextRun(name, s.now().Add(interval))
			fn()
		}
	}
}

// nextMidnight returns the first instant of the next day in the reference
// timezone.
func (s *Scheduler) nextMidnight() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.loc)
}

// runDaily fires the daily reset once per day at midnight in the reference
// timezone. A timer is re-armed after each firing instead of a 24h ticker so
// DST transitions keep the reset aligned with the calendar day.
func (s *Scheduler) runDaily(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		next := s.nextMidnight()
		s.setNextRun("daily_reset", next)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.temporalService.RunDailyReset()
		}
	}
}
