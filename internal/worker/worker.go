// Package worker runs background jobs dequeued from Redis. Its only job
// today is moving Zoom cloud recordings into S3.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/zoom"
	"github.com/meetballs/backend/pkg/queue"
	"github.com/meetballs/backend/pkg/storage"
)

const downloadTimeout = 10 * time.Minute

// Worker consumes jobs from the queue until its context is cancelled.
type Worker struct {
	queue      *queue.Queue
	s3         *storage.S3
	recordings *zoom.RecordingRepository
	http       *http.Client
	logger     *zap.Logger
}

// New creates a worker.
func New(q *queue.Queue, s3 *storage.S3, recordings *zoom.RecordingRepository, logger *zap.Logger) *Worker {
	return &Worker{
		queue:      q,
		s3:         s3,
		recordings: recordings,
		http:       &http.Client{Timeout: downloadTimeout},
		logger:     logger,
	}
}

// Run blocks processing jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopped")
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		if err := w.process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if retryErr := w.queue.Retry(ctx, job); retryErr != nil {
				w.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(retryErr))
			}
			if job.Attempt >= queue.MaxRetries {
				w.markJobFailed(ctx, job)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeRecordingTransfer:
		var payload queue.RecordingTransferPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return w.transferRecording(ctx, payload)
	default:
		w.logger.Warn("unknown job type", zap.String("type", string(job.Type)))
		return nil
	}
}

// transferRecording streams the recording from Zoom's download URL straight
// into S3, then records the final location.
func (w *Worker) transferRecording(ctx context.Context, payload queue.RecordingTransferPayload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("download recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download recording: status %d", resp.StatusCode)
	}

	key := storage.RecordingKey(payload.MeetingID.String(), payload.RecordingID.String())
	url, err := w.s3.Upload(ctx, key, "video/mp4", resp.Body, resp.ContentLength)
	if err != nil {
		return fmt.Errorf("upload recording: %w", err)
	}

	size := resp.ContentLength
	if size < 0 {
		size = 0
	}
	if err := w.recordings.MarkTransferred(ctx, payload.RecordingID, key, url, size); err != nil {
		return fmt.Errorf("mark transferred: %w", err)
	}
	w.logger.Info("recording transferred",
		zap.String("recording_id", payload.RecordingID.String()),
		zap.String("key", key),
		zap.Int64("size_bytes", size))
	return nil
}

func (w *Worker) markJobFailed(ctx context.Context, job *queue.Job) {
	var payload queue.RecordingTransferPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return
	}
	if err := w.recordings.MarkFailed(ctx, payload.RecordingID); err != nil {
		w.logger.Error("failed to mark recording failed", zap.String("recording_id", payload.RecordingID.String()), zap.Error(err))
	}
}
