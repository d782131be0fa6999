package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/momo-analyzer/internal/ingest"
	"github.com/nimasrn/momo-analyzer/internal/model"
	"github.com/nimasrn/momo-analyzer/internal/parser"
	"github.com/nimasrn/momo-analyzer/pkg/logger"
	"github.com/nimasrn/momo-analyzer/pkg/prom"
)

var (
	ErrEmptyDocument    = errors.New("import document is empty")
	ErrQueueUnavailable = errors.New("import queue is not configured")
)

// JobPublisher is the subset of queue.Queue the import service needs.
type JobPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type ImportService struct {
	store  TransactionStore
	parser *parser.Parser
	queue  JobPublisher
	now    func() time.Time
}

// NewImportService wires the parse pipeline to store. queue may be nil, in which case
// only synchronous imports are available.
func NewImportService(store TransactionStore, p *parser.Parser, queue JobPublisher) *ImportService {
	if p == nil {
		p = parser.NewParser()
	}
	return &ImportService{
		store:  store,
		parser: p,
		queue:  queue,
		now:    time.Now,
	}
}

// Import reads an SMS backup from r, parses it and replaces the stored dataset with the result.
// An unreadable document leaves the store untouched.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*model.ImportResult, error) {
	start := s.now()

	entries, err := ingest.ReadDocument(r)
	if err != nil {
		prom.IncImportJobs("invalid")
		return nil, err
	}

	res := s.parser.Parse(entries)
	if err := s.store.Seed(ctx, res.Records); err != nil {
		prom.IncImportJobs("failed")
		return nil, fmt.Errorf("seed transactions: %w", err)
	}

	result := &model.ImportResult{
		Entries:  res.Entries,
		Records:  res.Count,
		Dropped:  res.DroppedByReason(),
		Duration: s.now().Sub(start),
	}
	s.record(res, result)

	logger.Info("import finished",
		"entries", result.Entries,
		"records", result.Records,
		"dropped_otp", result.Dropped[string(parser.DropReasonOTP)],
		"dropped_no_amount", result.Dropped[string(parser.DropReasonNoAmount)],
		"duration", result.Duration.String())

	return result, nil
}

// ImportJob runs a dequeued job. The job id is carried into the result.
func (s *ImportService) ImportJob(ctx context.Context, job *model.ImportJob) (*model.ImportResult, error) {
	if job == nil || len(job.Document) == 0 {
		return nil, ErrEmptyDocument
	}
	result, err := s.Import(ctx, bytes.NewReader(job.Document))
	if err != nil {
		return nil, err
	}
	result.JobID = job.ID
	return result, nil
}

// Enqueue publishes document as an import job for the processor.
func (s *ImportService) Enqueue(ctx context.Context, document []byte) (*model.ImportJob, error) {
	if len(bytes.TrimSpace(document)) == 0 {
		return nil, ErrEmptyDocument
	}
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}

	job := &model.ImportJob{
		ID:         uuid.NewString(),
		Document:   document,
		Status:     model.ImportStatusQueued,
		EnqueuedAt: s.now().UTC(),
	}
	if _, err := s.queue.PublishJSON(ctx, job, map[string]string{"kind": "import", "job_id": job.ID}); err != nil {
		return nil, fmt.Errorf("enqueue import: %w", err)
	}
	prom.IncImportJobs(string(model.ImportStatusQueued))
	logger.Info("import queued", "job_id", job.ID, "bytes", len(document))

	queued := *job
	queued.Document = nil
	return &queued, nil
}

func (s *ImportService) record(res *parser.Result, result *model.ImportResult) {
	perType := make(map[model.TxType]int)
	for _, r := range res.Records {
		perType[r.Type]++
	}
	for t, n := range perType {
		prom.AddImportRecords(string(t), n)
	}
	for reason, n := range result.Dropped {
		prom.AddImportDropped(reason, n)
	}
	prom.AddImportDuration(result.Duration.Seconds())
	prom.IncImportJobs(string(model.ImportStatusCompleted))
}
