package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper closes forms past their deadline. It is the only authoritative
// closure path for expiry.
type Sweeper struct {
	store    *Store
	platform chat.Platform
	closer   *Closer
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	// halted stops new dispatches once Stop began waiting for closures.
	halted  bool
	cancel  context.CancelFunc
	quartz  *cron.Cron
	closing sync.WaitGroup
}

func NewSweeper(store *Store, platform chat.Platform, closer *Closer, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		platform: platform,
		closer:   closer,
		interval: interval,
		now:      time.Now,
	}
}

// Start schedules the sweep. Nothing runs before the platform is ready; the
// first sweep happens as soon as it is.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	if _, err := quartz.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.tick(ctx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.running = true
	s.halted = false
	s.cancel = cancel
	s.quartz = quartz

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-s.platform.Ready():
		}
		s.tick(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.running && ctx.Err() == nil {
			quartz.Start()
		}
	}()

	log.Info().Dur("interval", s.interval).Msg("Expiry sweeper started.")
	return nil
}

func (s *Sweeper) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("An error occurred when sweeping expired forms...")
	}
}

// Sweep dispatches one closure per expired form and returns how many were
// dispatched. It does not wait for them; forms already closing are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	metrics.Sweeps.Inc()

	forms, err := s.store.ListExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, form := range forms {
		if s.closer.InFlight(form.ID) {
			continue
		}
		s.mu.Lock()
		if s.halted {
			s.mu.Unlock()
			break
		}
		s.closing.Add(1)
		s.mu.Unlock()
		dispatched++
		go func(formID string) {
			defer s.closing.Done()
			if err := s.closer.Finish(context.WithoutCancel(ctx), formID, FinishOptions{}); err != nil {
				log.Error().Err(err).Str("form", formID).Msg("An error occurred when closing expired form...")
			}
		}(form.ID)
	}

	metrics.SweepDispatched.Add(float64(dispatched))
	if dispatched > 0 {
		log.Debug().Int("count", dispatched).Msg("Dispatched expired forms for closure.")
	}
	return dispatched, nil
}

// Wait blocks until every dispatched closure returned.
func (s *Sweeper) Wait() {
	s.closing.Wait()
}

// Stop halts the schedule and waits for running closures. Sweeps still in
// progress stop dispatching.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.halted = true
	s.cancel()
	stopped := s.quartz.Stop()
	s.mu.Unlock()

	<-stopped.Done()
	s.Wait()
	log.Info().Msg("Expiry sweeper stopped.")
}
