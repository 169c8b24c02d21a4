package sessionstore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper is implemented by backends that do not expire data on their own.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Housekeeper periodically removes expired sessions from a Sweeper so the
// store does not grow without bound.
type Housekeeper struct {
	Sweeper  Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewHousekeeper returns a Housekeeper for s. A non-positive interval
// defaults to 15 minutes.
func NewHousekeeper(s Sweeper, logger *slog.Logger, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Housekeeper{
		Sweeper:  s,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then every Interval until Stop.
func (h *Housekeeper) Start() {
	h.startOnce.Do(func() {
		h.started = true
		go h.run()
		h.Logger.Info("session housekeeping started", "interval", h.Interval)
	})
}

// Stop ends the worker and waits for an in-flight sweep to finish. It is a
// no-op if Start was never called.
func (h *Housekeeper) Stop() {
	h.stopOnce.Do(func() {
		h.startOnce.Do(func() {})
		if !h.started {
			return
		}
		close(h.stopCh)
		<-h.doneCh
		h.Logger.Info("session housekeeping stopped")
	})
}

func (h *Housekeeper) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	h.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			h.Sweep(context.Background())
		case <-h.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup pass and returns the number of sessions removed.
func (h *Housekeeper) Sweep(ctx context.Context) int64 {
	n, err := h.Sweeper.DeleteExpired(ctx)
	if err != nil {
		h.Logger.ErrorContext(ctx, "failed to delete expired sessions", "error", err)
		return 0
	}
	h.Logger.DebugContext(ctx, "deleted expired sessions", "count", n)
	return n
}
