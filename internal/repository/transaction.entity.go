package repository

import (
	"github.com/nimasrn/momo-analyzer/internal/model"
)

type TransactionEntity struct {
	ID           int64   `db:"id"            gorm:"primaryKey;autoIncrement:false;column:id"`
	TxID         *string `db:"tx_id"         gorm:"column:tx_id;index"`
	Type         string  `db:"type"          gorm:"column:type;not null;index"`
	Amount       int64   `db:"amount"        gorm:"column:amount;not null"`
	Fee          int64   `db:"fee"           gorm:"column:fee;not null;default:0"`
	BalanceAfter *int64  `db:"balance_after" gorm:"column:balance_after"`
	Counterpart  *string `db:"counterpart"   gorm:"column:counterpart"`
	Timestamp    *string `db:"timestamp"     gorm:"column:timestamp"`
	ReadableDate string  `db:"readable_date" gorm:"column:readable_date;not null"`
	RawBody      string  `db:"raw_body"      gorm:"column:raw_body;not null"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.TransactionRecord) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:           m.ID,
		TxID:         m.TxID,
		Type:         string(m.Type),
		Amount:       m.Amount,
		Fee:          m.Fee,
		BalanceAfter: m.BalanceAfter,
		Counterpart:  m.Counterpart,
		Timestamp:    m.Timestamp,
		ReadableDate: m.ReadableDate,
		RawBody:      m.RawBody,
	}
}

func toTransactionModel(e *TransactionEntity) *model.TransactionRecord {
	if e == nil {
		return nil
	}
	return &model.TransactionRecord{
		ID:           e.ID,
		TxID:         e.TxID,
		Type:         model.TxType(e.Type),
		Amount:       e.Amount,
		Fee:          e.Fee,
		BalanceAfter: e.BalanceAfter,
		Counterpart:  e.Counterpart,
		Timestamp:    e.Timestamp,
		ReadableDate: e.ReadableDate,
		RawBody:      e.RawBody,
	}
}

func toTransactionEntities(models []*model.TransactionRecord) []*TransactionEntity {
	entities := make([]*TransactionEntity, len(models))
	for i, m := range models {
		entities[i] = toTransactionEntity(m)
	}
	return entities
}

func toTransactionModels(entities []*TransactionEntity) []*model.TransactionRecord {
	models := make([]*model.TransactionRecord, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
