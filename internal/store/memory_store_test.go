package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nimasrn/momo-analyzer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRecords() []*model.TransactionRecord {
	cp := "John Doe"
	return []*model.TransactionRecord{
		{ID: 1, Type: model.TxTypeIncoming, Amount: 5000, Counterpart: &cp, RawBody: "a"},
		{ID: 2, Type: model.TxTypeOutgoing, Amount: 2000, Fee: 100, RawBody: "b"},
		{ID: 3, Type: model.TxTypeOutgoing, Amount: 700, RawBody: "c"},
	}
}

func TestMemoryStore_SeedAndCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	require.NoError(t, s.Seed(ctx, seedRecords()))

	t.Run("create continues after max id", func(t *testing.T) {
		created, err := s.Create(ctx, &model.TransactionRecord{Type: model.TxTypeDebit, Amount: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(4), created.ID)
	})

	t.Run("deleted ids are not reused", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, 4))
		created, err := s.Create(ctx, &model.TransactionRecord{Type: model.TxTypeDebit, Amount: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(5), created.ID)
	})

	t.Run("seed resets the counter", func(t *testing.T) {
		require.NoError(t, s.Seed(ctx, seedRecords()[:1]))
		created, err := s.Create(ctx, &model.TransactionRecord{Type: model.TxTypeOther, Amount: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), created.ID)
	})

	t.Run("empty store starts at one", func(t *testing.T) {
		fresh := NewMemoryStore(nil)
		created, err := fresh.Create(ctx, &model.TransactionRecord{Type: model.TxTypeOther, Amount: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
	})
}

func TestMemoryStore_SeedRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	assert.ErrorIs(t, s.Seed(ctx, []*model.TransactionRecord{{ID: 0, Amount: 1}}), ErrInvalidRecord)
	assert.ErrorIs(t, s.Seed(ctx, []*model.TransactionRecord{nil}), ErrInvalidRecord)
	assert.ErrorIs(t, s.Seed(ctx, []*model.TransactionRecord{{ID: 1}, {ID: 1}}), ErrInvalidRecord)

	_, err := s.Create(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestMemoryStore_GetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	require.NoError(t, s.Seed(ctx, seedRecords()))

	t.Run("get", func(t *testing.T) {
		r, err := s.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "John Doe", *r.Counterpart)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		r, err := s.Get(ctx, 1)
		require.NoError(t, err)
		*r.Counterpart = "Mallory"
		r.Amount = 1

		again, err := s.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "John Doe", *again.Counterpart)
		assert.Equal(t, int64(5000), again.Amount)
	})

	t.Run("update patches only given fields", func(t *testing.T) {
		amount := int64(2500)
		name := "Jane Smith"
		updated, err := s.Update(ctx, 2, model.TransactionUpdateRequest{Amount: &amount, Counterpart: &name})
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.ID)
		assert.Equal(t, int64(2500), updated.Amount)
		assert.Equal(t, int64(100), updated.Fee)
		assert.Equal(t, "Jane Smith", *updated.Counterpart)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := s.Get(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Update(ctx, 99, model.TransactionUpdateRequest{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, 99), ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, 3))
		_, err := s.Get(ctx, 3)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	require.NoError(t, s.Seed(ctx, seedRecords()))

	t.Run("ascending by id", func(t *testing.T) {
		items, total, err := s.List(ctx, model.TransactionFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 3)
		assert.Equal(t, []int64{1, 2, 3}, ids(items))
	})

	t.Run("filter by type", func(t *testing.T) {
		typ := model.TxTypeOutgoing
		items, total, err := s.List(ctx, model.TransactionFilter{Type: &typ, Desc: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, []int64{3, 2}, ids(items))
	})

	t.Run("pagination", func(t *testing.T) {
		items, total, err := s.List(ctx, model.TransactionFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []int64{2}, ids(items))

		items, _, err = s.List(ctx, model.TransactionFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestMemoryStore_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, &model.TransactionRecord{Type: model.TxTypeOther, Amount: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, total, err := s.List(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)
	for i, r := range items {
		assert.Equal(t, int64(i+1), r.ID)
	}
}

func TestMemoryStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed", "transactions.json")

	s := NewMemoryStore(NewJSONFile(path))
	require.NoError(t, s.Open())
	require.NoError(t, s.Seed(ctx, seedRecords()))
	require.NoError(t, s.Delete(ctx, 3))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"balance_after": null`)

	reopened := NewMemoryStore(NewJSONFile(path))
	require.NoError(t, reopened.Open())

	items, total, err := reopened.List(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []int64{1, 2}, ids(items))

	created, err := reopened.Create(ctx, &model.TransactionRecord{Type: model.TxTypeOther, Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)
}

func TestJSONFile_LoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	records, err := NewJSONFile(filepath.Join(dir, "none.json")).Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = NewJSONFile(bad).Load()
	assert.Error(t, err)

	s := NewMemoryStore(NewJSONFile(bad))
	assert.Error(t, s.Open())
}

func TestJSONFile_WritesBodiesUnescaped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	records := []*model.TransactionRecord{{ID: 1, Type: model.TxTypeOther, Amount: 1, RawBody: "A & B <agent>"}}
	require.NoError(t, NewJSONFile(path).Save(records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"raw_body": "A & B <agent>"`)

	loaded, err := NewJSONFile(path).Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "A & B <agent>", loaded[0].RawBody)
}

type flakyPersister struct {
	fail  bool
	saved []*model.TransactionRecord
}

var errDiskFull = errors.New("disk full")

func (p *flakyPersister) Load() ([]*model.TransactionRecord, error) {
	return nil, nil
}

func (p *flakyPersister) Save(records []*model.TransactionRecord) error {
	if p.fail {
		return errDiskFull
	}
	p.saved = records
	return nil
}

func TestMemoryStore_FailedSaveLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	p := &flakyPersister{}
	s := NewMemoryStore(p)
	require.NoError(t, s.Seed(ctx, []*model.TransactionRecord{{ID: 1, Type: model.TxTypeIncoming, Amount: 5}}))

	p.fail = true

	t.Run("create", func(t *testing.T) {
		_, err := s.Create(ctx, &model.TransactionRecord{Type: model.TxTypeOther, Amount: 7})
		assert.ErrorIs(t, err, errDiskFull)

		_, total, err := s.List(ctx, model.TransactionFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("update", func(t *testing.T) {
		amount := int64(999)
		_, err := s.Update(ctx, 1, model.TransactionUpdateRequest{Amount: &amount})
		assert.ErrorIs(t, err, errDiskFull)

		r, err := s.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(5), r.Amount)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, s.Delete(ctx, 1), errDiskFull)

		_, err := s.Get(ctx, 1)
		assert.NoError(t, err)
	})

	t.Run("seed", func(t *testing.T) {
		assert.ErrorIs(t, s.Seed(ctx, seedRecords()), errDiskFull)

		_, total, err := s.List(ctx, model.TransactionFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("failed create does not consume an id", func(t *testing.T) {
		p.fail = false
		created, err := s.Create(ctx, &model.TransactionRecord{Type: model.TxTypeOther, Amount: 7})
		require.NoError(t, err)
		assert.Equal(t, int64(2), created.ID)
		assert.Equal(t, []int64{1, 2}, ids(p.saved))
	})
}

func ids(items []*model.TransactionRecord) []int64 {
	out := make([]int64, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}
