package services

import (
	"context"

	"github.com/nimasrn/momo-analyzer/internal/model"
)

const maxListLimit = 1000

var ErrNotFound = model.ErrTransactionNotFound

// TransactionStore is satisfied by store.MemoryStore and repository.TransactionRepository.
type TransactionStore interface {
	Seed(ctx context.Context, records []*model.TransactionRecord) error
	List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionRecord, int64, error) // results, totalCount
	Get(ctx context.Context, id int64) (*model.TransactionRecord, error)
	Create(ctx context.Context, rec *model.TransactionRecord) (*model.TransactionRecord, error)
	Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.TransactionRecord, error)
	Delete(ctx context.Context, id int64) error
}

type TransactionService struct {
	store TransactionStore
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{
		store: store,
	}
}

func (s *TransactionService) List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionRecord, int64, error) {
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.List(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	return s.store.Get(ctx, id)
}

func (s *TransactionService) Create(ctx context.Context, p model.TransactionCreateRequest) (*model.TransactionRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, p.Record())
}

func (s *TransactionService) Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.TransactionRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, p)
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
