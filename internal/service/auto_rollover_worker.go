package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/rs/zerolog"
)

// AutoRolloverWorker periodically rolls the previous month into the current one
// for users who enabled automatic reset
type AutoRolloverWorker struct {
	rolloverService *RolloverService
	settingsService *RolloverSettingsService
	logger          zerolog.Logger
	interval        time.Duration
	now             func() time.Time
	stopCh          chan struct{}
	doneCh          chan struct{}
	mu              sync.Mutex
	running         bool
}

// AutoRolloverWorkerConfig holds configuration for the auto-rollover worker
type AutoRolloverWorkerConfig struct {
	Interval time.Duration
}

// DefaultAutoRolloverWorkerConfig returns the default sweep interval
func DefaultAutoRolloverWorkerConfig() AutoRolloverWorkerConfig {
	return AutoRolloverWorkerConfig{Interval: 1 * time.Hour}
}

// NewAutoRolloverWorker creates a new auto-rollover worker
func NewAutoRolloverWorker(
	rolloverService *RolloverService,
	settingsService *RolloverSettingsService,
	logger zerolog.Logger,
	config AutoRolloverWorkerConfig,
) *AutoRolloverWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultAutoRolloverWorkerConfig().Interval
	}

	return &AutoRolloverWorker{
		rolloverService: rolloverService,
		settingsService: settingsService,
		logger:          logger.With().Str("component", "auto_rollover_worker").Logger(),
		interval:        config.Interval,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start begins the background sweep
func (w *AutoRolloverWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().Dur("interval", w.interval).Msg("Starting auto-rollover worker")

	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *AutoRolloverWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping auto-rollover worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Auto-rollover worker stopped")
}

// IsRunning returns whether the worker is currently running
func (w *AutoRolloverWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *AutoRolloverWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.Sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stopCh:
			w.setStopped()
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

func (w *AutoRolloverWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// SweepResult summarizes one pass over all auto-reset users
type SweepResult struct {
	Executed int
	Skipped  int
	Errors   int
}

// Sweep runs the due rollovers once. A user is due when today is on or after
// their reset day and history has no rollover into the current month.
func (w *AutoRolloverWorker) Sweep(ctx context.Context) SweepResult {
	var result SweepResult
	startTime := time.Now()

	candidates, err := w.settingsService.ListAutoResetCandidates(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list users for auto-rollover")
		result.Errors++
		return result
	}

	today := w.now().UTC()
	target := domain.PeriodOf(today)
	source := target.Previous()

	for _, c := range candidates {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Context cancelled, stopping sweep")
			return result
		case <-w.stopCh:
			w.logger.Info().Msg("Stop signal received, stopping sweep")
			return result
		default:
		}

		if today.Day() < c.Settings.ResetDay || c.Settings.HasRolloverInto(target) {
			result.Skipped++
			continue
		}

		svc := w.rolloverService.WithIdentity(StaticIdentity(c.UserID))
		req, err := svc.RequestFromSettings(ctx, source, target)
		if err != nil {
			w.logger.Error().Err(err).Str("user_id", c.UserID.String()).Msg("Failed to build auto-rollover request")
			result.Errors++
			continue
		}

		res, err := svc.Execute(ctx, *req)
		if err != nil && errors.Is(err, domain.ErrNoSourceBudgets) {
			result.Skipped++
			continue
		}
		if err != nil && res == nil {
			w.logger.Error().Err(err).Str("user_id", c.UserID.String()).Msg("Auto-rollover failed")
			result.Errors++
			continue
		}
		if err != nil {
			w.logger.Warn().Err(err).Str("user_id", c.UserID.String()).Msg("Auto-rollover partially failed")
			result.Errors++
		}
		result.Executed++
	}

	w.logger.Info().
		Int("users", len(candidates)).
		Int("executed", result.Executed).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed auto-rollover sweep")

	return result
}
