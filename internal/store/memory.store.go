package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/nimasrn/momo-analyzer/internal/model"
	"github.com/nimasrn/momo-analyzer/pkg/logger"
)

var (
	ErrNotFound      = model.ErrTransactionNotFound
	ErrInvalidRecord = errors.New("invalid transaction record")
)

// Persister saves and restores the whole dataset.
type Persister interface {
	Load() ([]*model.TransactionRecord, error)
	Save(records []*model.TransactionRecord) error
}

// MemoryStore keeps records keyed by id. nextID only moves forward, so ids of deleted
// records are never handed out again.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	records   map[int64]*model.TransactionRecord
	persister Persister
}

func NewMemoryStore(persister Persister) *MemoryStore {
	return &MemoryStore{
		nextID:    1,
		records:   make(map[int64]*model.TransactionRecord),
		persister: persister,
	}
}

// Open restores the dataset from the persister, if any.
func (s *MemoryStore) Open() error {
	if s.persister == nil {
		return nil
	}
	records, err := s.persister.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, maxID := index(records)
	s.records, s.nextID = next, maxID+1
	logger.Info("transactions loaded", "count", len(s.records), "next_id", s.nextID)
	return nil
}

// Seed replaces the dataset. Creates afterwards continue at max(id)+1.
func (s *MemoryStore) Seed(ctx context.Context, records []*model.TransactionRecord) error {
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.ID <= 0 {
			return ErrInvalidRecord
		}
		if _, dup := seen[r.ID]; dup {
			return ErrInvalidRecord
		}
		seen[r.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, maxID := index(records)
	return s.commit(next, maxID+1)
}

func (s *MemoryStore) List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*model.TransactionRecord, 0, len(s.records))
	for _, r := range s.records {
		if f.Type != nil && r.Type != *f.Type {
			continue
		}
		items = append(items, r.Clone())
	}

	sort.Slice(items, func(i, j int) bool {
		if f.Desc {
			return items[i].ID > items[j].ID
		}
		return items[i].ID < items[j].ID
	})

	total := int64(len(items))
	return paginate(items, f.Limit, f.Offset), total, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, rec *model.TransactionRecord) (*model.TransactionRecord, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := rec.Clone()
	stored.ID = s.nextID

	next := s.staged()
	next[stored.ID] = stored
	if err := s.commit(next, stored.ID+1); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	patched := r.Clone()
	p.Apply(patched)
	patched.ID = id

	next := s.staged()
	next[id] = patched
	if err := s.commit(next, s.nextID); err != nil {
		return nil, err
	}
	return patched.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	next := s.staged()
	delete(next, id)
	return s.commit(next, s.nextID)
}

// index copies records into a map keyed by id.
func index(records []*model.TransactionRecord) (map[int64]*model.TransactionRecord, int64) {
	out := make(map[int64]*model.TransactionRecord, len(records))
	var maxID int64
	for _, r := range records {
		out[r.ID] = r.Clone()
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return out, maxID
}

// staged returns a shallow copy of the current records for a pending mutation.
// Records in it are shared with s.records and must be replaced, not modified.
func (s *MemoryStore) staged() map[int64]*model.TransactionRecord {
	next := make(map[int64]*model.TransactionRecord, len(s.records)+1)
	for id, r := range s.records {
		next[id] = r
	}
	return next
}

// commit saves next and only then installs it, so a failed save leaves the store
// unchanged. It must be called with mu held.
func (s *MemoryStore) commit(next map[int64]*model.TransactionRecord, nextID int64) error {
	if s.persister != nil {
		if err := s.persister.Save(sortedByID(next)); err != nil {
			return err
		}
	}
	s.records = next
	s.nextID = nextID
	return nil
}

func sortedByID(records map[int64]*model.TransactionRecord) []*model.TransactionRecord {
	out := make([]*model.TransactionRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate(items []*model.TransactionRecord, limit, offset int) []*model.TransactionRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []*model.TransactionRecord{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
