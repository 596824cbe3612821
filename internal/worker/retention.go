package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// RetentionWorker periodically deletes read notifications older than the
// configured retention window. Unread rows are never touched.
type RetentionWorker struct {
	repo            repository.NotificationRepository
	metrics         *metrics.Metrics
	logger          *logger.Logger
	retentionDays   int
	cleanupInterval time.Duration
}

func NewRetentionWorker(
	repo repository.NotificationRepository,
	m *metrics.Metrics,
	l *logger.Logger,
	retentionDays int,
	cleanupInterval time.Duration,
) *RetentionWorker {
	return &RetentionWorker{
		repo:            repo,
		metrics:         m,
		logger:          l.WithComponent("retention_worker"),
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cleanup(ctx); err != nil {
				w.logger.Error(err, "notification cleanup failed")
			}
		}
	}
}

func (w *RetentionWorker) cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete read notifications: %w", err)
	}

	if rows > 0 {
		w.metrics.RetentionDeleted.Add(float64(rows))
		w.logger.WithFields(map[string]interface{}{
			"rows":   rows,
			"cutoff": cutoff,
		}).Info("deleted read notifications")
	}
	return nil
}
