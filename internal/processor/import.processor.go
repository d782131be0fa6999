package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/momo-analyzer/internal/ingest"
	"github.com/nimasrn/momo-analyzer/internal/model"
	"github.com/nimasrn/momo-analyzer/internal/queue"
	"github.com/nimasrn/momo-analyzer/internal/services"
	"github.com/nimasrn/momo-analyzer/pkg/logger"
	"github.com/nimasrn/momo-analyzer/pkg/prom"
)

type JobImporter interface {
	ImportJob(ctx context.Context, job *model.ImportJob) (*model.ImportResult, error)
}

// ImportProcessor runs queued import jobs.
type ImportProcessor struct {
	importer    JobImporter
	idempotency *IdempotencyService
}

func NewImportProcessor(importer JobImporter, idempotency *IdempotencyService) *ImportProcessor {
	return &ImportProcessor{
		importer:    importer,
		idempotency: idempotency,
	}
}

func (p *ImportProcessor) GetType() string {
	return "import"
}

// Process returns nil to ack the entry and an error to leave it pending for redelivery.
func (p *ImportProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var job model.ImportJob
	if err := msg.Decode(&job); err != nil {
		// stays pending until the queue dead-letters it
		logger.Error("failed to decode import job", "stream_id", msg.ID, "error", err)
		return fmt.Errorf("decode import job: %w", err)
	}
	if job.ID == "" {
		job.ID = msg.ID
	}

	pc, err := p.idempotency.AcquireProcessingLock(ctx, job.ID)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Info("import job already processed, skipping", "job_id", job.ID)
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		logger.Error("import job gave up", "job_id", job.ID, "error", err)
		prom.IncImportJobs("failed")
		return nil
	case errors.Is(err, ErrLockAcquireFailed):
		return fmt.Errorf("job %s is being processed elsewhere: %w", job.ID, err)
	default:
		return err
	}
	defer func() {
		if pc.Locked() {
			_ = p.idempotency.ReleaseLock(ctx, pc)
		}
	}()

	logger.Info("processing import job",
		"job_id", job.ID,
		"bytes", len(job.Document),
		"attempts", msg.Attempts,
		"is_retry", pc.IsRetry)

	result, err := p.importer.ImportJob(ctx, &job)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidDocument) || errors.Is(err, services.ErrEmptyDocument) {
			// retrying cannot fix the document
			logger.Error("import job rejected", "job_id", job.ID, "error", err)
			if markErr := p.idempotency.MarkSuccess(ctx, pc); markErr != nil {
				logger.Error("failed to mark job done", "job_id", job.ID, "error", markErr)
			}
			return nil
		}
		if markErr := p.idempotency.MarkFailure(ctx, pc, err); markErr != nil {
			logger.Error("failed to mark failure", "job_id", job.ID, "error", markErr)
		}
		return err
	}

	if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
		logger.Error("failed to mark success", "job_id", job.ID, "error", err)
	}

	logger.Info("import job completed",
		"job_id", result.JobID,
		"records", result.Records,
		"entries", result.Entries)
	return nil
}
