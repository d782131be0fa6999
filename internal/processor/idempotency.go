package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/momo-analyzer/pkg/logger"
	"github.com/nimasrn/momo-analyzer/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("import job already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// KeyStore is the part of redis.RedisAdapter the idempotency guard uses.
type KeyStore interface {
	Set(key string, value []byte, ttl time.Duration) error
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Get(key string) ([]byte, error)
	Del(key string) error
	Exist(key string) (int64, error)
}

type IdempotencyConfig struct {
	LockTTL      time.Duration
	ProcessedTTL time.Duration
	MaxRetries   int

	RetryKeyPrefix     string
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            5 * time.Minute,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "import:retry:",
		LockKeyPrefix:      "import:lock:",
		ProcessedKeyPrefix: "import:processed:",
	}
}

// IdempotencyService makes sure a job id is imported at most once, even when the queue
// redelivers it or two consumers race for it.
type IdempotencyService struct {
	store  KeyStore
	config IdempotencyConfig
}

func NewIdempotencyService(store KeyStore, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		store:  store,
		config: config,
	}
}

// ProcessingContext is held by the consumer that owns the lock for JobID.
type ProcessingContext struct {
	JobID        string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
}

func (pc *ProcessingContext) Locked() bool {
	return pc != nil && pc.lockAcquired
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, jobID string) (*ProcessingContext, error) {
	done, err := s.IsProcessed(ctx, jobID)
	if err != nil {
		// fail open, a rerun replaces the dataset with the same records
		logger.Warn("failed to check processed marker", "job_id", jobID, "error", err)
	} else if done {
		return nil, ErrAlreadyProcessed
	}

	retries, err := s.GetRetryCount(ctx, jobID)
	if err != nil {
		logger.Warn("failed to read retry counter", "job_id", jobID, "error", err)
	}
	if retries >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: job_id=%s, retries=%d", ErrMaxRetriesExceeded, jobID, retries)
	}

	owner := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := s.store.SetNX(s.config.LockKeyPrefix+jobID, owner, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("processing lock acquired", "job_id", jobID, "retry_count", retries, "lock_ttl", s.config.LockTTL)

	return &ProcessingContext{
		JobID:        jobID,
		RetryCount:   retries,
		IsRetry:      retries > 0,
		lockAcquired: true,
	}, nil
}

// MarkSuccess sets the processed marker and clears the lock and retry counter.
func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	if err := s.store.Set(s.config.ProcessedKeyPrefix+pc.JobID, []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	for _, key := range []string{s.config.LockKeyPrefix + pc.JobID, s.config.RetryKeyPrefix + pc.JobID} {
		if err := s.store.Del(key); err != nil {
			logger.Warn("failed to clean up key", "key", key, "error", err)
		}
	}
	pc.lockAcquired = false
	return nil
}

// MarkFailure bumps the retry counter and frees the lock so a redelivery can try again.
func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	retries := pc.RetryCount + 1
	if err := s.store.Set(s.config.RetryKeyPrefix+pc.JobID, []byte(strconv.Itoa(retries)), s.config.ProcessedTTL); err != nil {
		logger.Error("failed to increment retry counter", "job_id", pc.JobID, "error", err)
	}

	err := s.ReleaseLock(ctx, pc)

	logger.Warn("import job failed",
		"job_id", pc.JobID,
		"retry_count", retries,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return err
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if !pc.Locked() {
		return nil
	}
	if err := s.store.Del(s.config.LockKeyPrefix + pc.JobID); err != nil {
		return err
	}
	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, jobID string) (int, error) {
	raw, err := s.store.Get(s.config.RetryKeyPrefix + jobID)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("corrupt retry counter %q: %w", raw, err)
	}
	return n, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, jobID string) (bool, error) {
	n, err := s.store.Exist(s.config.ProcessedKeyPrefix + jobID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
