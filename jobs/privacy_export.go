package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stellarsaas/stellar/internal/export"
	jobmetrics "github.com/stellarsaas/stellar/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ExportJob waits out the preparation delay, then publishes the export
// document unless the request was cancelled first.
type ExportJob struct {
	Store   *export.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Delay   time.Duration
	clock   func() time.Time
}

// NewExportJob wires dependencies for the export handler.
func NewExportJob(store *export.Store, logger *slog.Logger, metrics *jobmetrics.Metrics, delay time.Duration) *ExportJob {
	return &ExportJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		Delay:   delay,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes privacy export tasks.
func (j *ExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("privacy export: handler not configured")
	}
	var payload ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.UserID == "" || payload.RequestID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPrivacyExport)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("user_id", payload.UserID), slog.String("request_id", payload.RequestID))
	logger.Info("preparing data export")

	if j.Delay > 0 {
		timer := time.NewTimer(j.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("data export cancelled")
			j.metrics().AddExport("cancelled")
			return nil
		case <-timer.C:
		}
	}

	done, err := j.Store.Complete(ctx, payload.UserID, payload.RequestID, payload.Document, j.now())
	if err != nil {
		resultErr = err
		logger.Error("complete data export", slog.Any("error", err))
		return resultErr
	}
	if !done {
		logger.Info("data export superseded")
		j.metrics().AddExport("cancelled")
		return nil
	}
	logger.Info("data export ready")
	j.metrics().AddExport("ready")
	return nil
}

func (j *ExportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ExportJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
