package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/momo-analyzer/internal/model"
	"github.com/nimasrn/momo-analyzer/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a transaction does not exist.
	ErrNotFound = model.ErrTransactionNotFound
	// ErrInvalidRecord is returned for nil records or seeds without a positive id.
	ErrInvalidRecord = errors.New("invalid transaction record")
)

const (
	seedBatchSize = 200

	// idLockKey names the advisory lock serialising id assignment on postgres.
	idLockKey = 0x6d6f6d6f
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

// Seed replaces the table contents with records, keeping their ids.
func (r *TransactionRepository) Seed(ctx context.Context, records []*model.TransactionRecord) error {
	for _, rec := range records {
		if rec == nil || rec.ID <= 0 {
			return ErrInvalidRecord
		}
	}

	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.lockIDs(ctx); err != nil {
			return err
		}
		if err := r.Write(ctx).Exec("DELETE FROM transactions").Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return r.Write(ctx).CreateInBatches(toTransactionEntities(records), seedBatchSize).Error
	})
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionRecord, int64, error) {
	q := r.Read(ctx).Model(&TransactionEntity{})

	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "id ASC"
	if f.Desc {
		order = "id DESC"
	}
	q = q.Order(order)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var entities []*TransactionEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	entity, err := r.find(ctx, r.Read(ctx), id)
	if err != nil {
		return nil, err
	}
	return toTransactionModel(entity), nil
}

// Create stores rec under MAX(id)+1. Concurrent creates are serialised by lockIDs, so two
// transactions never read the same maximum.
func (r *TransactionRepository) Create(ctx context.Context, rec *model.TransactionRecord) (*model.TransactionRecord, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	entity := toTransactionEntity(rec)
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.lockIDs(ctx); err != nil {
			return err
		}
		var maxID int64
		if err := r.Write(ctx).Model(&TransactionEntity{}).
			Select("COALESCE(MAX(id), 0)").
			Scan(&maxID).Error; err != nil {
			return err
		}
		entity.ID = maxID + 1
		return r.Write(ctx).Create(entity).Error
	})
	if err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.TransactionRecord, error) {
	var updated *model.TransactionRecord
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		entity, err := r.find(ctx, r.Write(ctx), id)
		if err != nil {
			return err
		}

		rec := toTransactionModel(entity)
		p.Apply(rec)
		rec.ID = id

		if err := r.Write(ctx).Save(toTransactionEntity(rec)).Error; err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).Delete(&TransactionEntity{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) find(ctx context.Context, db *gorm.DB, id int64) (*TransactionEntity, error) {
	var entity TransactionEntity
	if err := db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// lockIDs takes a transaction-scoped advisory lock on postgres. It must run inside
// WithinTransaction. sqlite serialises writers on its own.
func (r *TransactionRepository) lockIDs(ctx context.Context) error {
	tx := r.Write(ctx)
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", idLockKey).Error
}
