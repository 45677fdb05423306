package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

// housekeepingBatch caps how many queued deletions one pass retries.
const housekeepingBatch = 100

// HousekeepingService periodically retries blob deletions that failed
// after their metadata was removed.
type HousekeepingService struct {
	Store    store.Store
	Blobs    blob.Storage
	Logger   *slog.Logger
	Interval time.Duration
	Clock    Clock

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// HousekeepingResult summarizes one pass.
type HousekeepingResult struct {
	Attempted int
	Cleared   int
	Failed    int
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 15 minutes.
func NewHousekeepingService(st store.Store, blobs blob.Storage, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &HousekeepingService{
		Store:    st,
		Blobs:    blobs,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress pass.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run immediately on startup
	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce retries up to one batch of queued deletions. Each record is
// independent; a failure only bumps its attempt counter.
func (s *HousekeepingService) RunOnce(ctx context.Context) HousekeepingResult {
	var res HousekeepingResult

	pending, err := s.Store.BlobDeletions().ListBlobDeletions(ctx, housekeepingBatch)
	if err != nil {
		s.Logger.Error("failed to list pending blob deletions", "error", err)
		return res
	}
	if len(pending) == 0 {
		s.Logger.Debug("no pending blob deletions")
		return res
	}

	for _, d := range pending {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++

		if err := s.Blobs.Delete(ctx, d.Handle); err != nil {
			res.Failed++
			s.Logger.Warn("blob deletion retry failed",
				"handle", d.Handle,
				"attempts", d.Attempts+1,
				"error", err,
			)
			if err := s.Store.BlobDeletions().RecordBlobDeletionAttempt(ctx, d.ID, nowFrom(s.Clock)); err != nil {
				s.Logger.Error("failed to record blob deletion attempt", "id", d.ID, "error", err)
			}
			continue
		}

		if err := s.Store.BlobDeletions().DeleteBlobDeletion(ctx, d.ID); err != nil {
			s.Logger.Error("failed to clear blob deletion record", "id", d.ID, "error", err)
			continue
		}
		res.Cleared++
	}

	s.Logger.Info("blob deletion retries completed",
		"attempted", res.Attempted,
		"cleared", res.Cleared,
		"failed", res.Failed,
	)
	return res
}

// Pending lists queued deletions for operators.
func (s *HousekeepingService) Pending(ctx context.Context, actor domain.User, limit int) ([]domain.BlobDeletion, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return s.Store.BlobDeletions().ListBlobDeletions(ctx, limit)
}
