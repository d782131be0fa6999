package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// TxType is the transaction category a message is tagged with.
type TxType string

const (
	TxTypeIncoming    TxType = "incoming"
	TxTypeBankDeposit TxType = "bank_deposit"
	TxTypeWithdrawal  TxType = "withdrawal"
	TxTypeOutgoing    TxType = "outgoing"
	TxTypeOTP         TxType = "otp" // classifier output only, never stored
	TxTypeDebit       TxType = "debit"
	TxTypeOther       TxType = "other"
)

// Persistable reports whether a record of this type may exist.
func (t TxType) Persistable() bool {
	switch t {
	case TxTypeIncoming, TxTypeBankDeposit, TxTypeWithdrawal, TxTypeOutgoing, TxTypeDebit, TxTypeOther:
		return true
	}
	return false
}

// TransactionRecord is the structured form of one retained SMS.
// Optional fields are pointers and serialise as null, never omitted.
type TransactionRecord struct {
	ID           int64   `json:"id"`
	TxID         *string `json:"tx_id"`
	Type         TxType  `json:"type"`
	Amount       int64   `json:"amount"`
	Fee          int64   `json:"fee"`
	BalanceAfter *int64  `json:"balance_after"`
	Counterpart  *string `json:"counterpart"`
	Timestamp    *string `json:"timestamp"`
	ReadableDate string  `json:"readable_date"`
	RawBody      string  `json:"raw_body"`
}

// Clone returns a deep copy so stored records cannot be mutated through returned values.
func (r *TransactionRecord) Clone() *TransactionRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.TxID = cloneString(r.TxID)
	c.BalanceAfter = cloneInt64(r.BalanceAfter)
	c.Counterpart = cloneString(r.Counterpart)
	c.Timestamp = cloneString(r.Timestamp)
	return &c
}

var (
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrInvalidType   = errors.New("type must be one of incoming, bank_deposit, withdrawal, outgoing, debit, other")
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	ErrInvalidFee    = errors.New("fee must not be negative")
	ErrNotNullable   = errors.New("field cannot be null")
)

// TransactionCreateRequest is the input for creating a record outside the parse pass.
type TransactionCreateRequest struct {
	TxID         *string `json:"tx_id"`
	Type         TxType  `json:"type"`
	Amount       int64   `json:"amount"`
	Fee          int64   `json:"fee"`
	BalanceAfter *int64  `json:"balance_after"`
	Counterpart  *string `json:"counterpart"`
	Timestamp    *string `json:"timestamp"`
	ReadableDate string  `json:"readable_date"`
	RawBody      string  `json:"raw_body"`
}

func (p TransactionCreateRequest) Validate() error {
	if !p.Type.Persistable() {
		return ErrInvalidType
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Fee < 0 {
		return ErrInvalidFee
	}
	return nil
}

// Record builds an unnumbered record; the store assigns the id.
func (p TransactionCreateRequest) Record() *TransactionRecord {
	return &TransactionRecord{
		TxID:         cloneString(p.TxID),
		Type:         p.Type,
		Amount:       p.Amount,
		Fee:          p.Fee,
		BalanceAfter: cloneInt64(p.BalanceAfter),
		Counterpart:  cloneString(p.Counterpart),
		Timestamp:    cloneString(p.Timestamp),
		ReadableDate: p.ReadableDate,
		RawBody:      p.RawBody,
	}
}

// Fields of TransactionRecord that may be cleared back to null.
const (
	FieldTxID         = "tx_id"
	FieldBalanceAfter = "balance_after"
	FieldCounterpart  = "counterpart"
	FieldTimestamp    = "timestamp"
)

// patchable maps each patchable JSON field to whether it may be cleared to null.
var patchable = map[string]bool{
	FieldTxID:         true,
	"type":            false,
	"amount":          false,
	"fee":             false,
	FieldBalanceAfter: true,
	FieldCounterpart:  true,
	FieldTimestamp:    true,
	"readable_date":   false,
	"raw_body":        false,
}

// TransactionUpdateRequest is a partial update. Absent fields are left unchanged, fields
// sent as an explicit JSON null are cleared. id is not patchable.
type TransactionUpdateRequest struct {
	TxID         *string `json:"tx_id"`
	Type         *TxType `json:"type"`
	Amount       *int64  `json:"amount"`
	Fee          *int64  `json:"fee"`
	BalanceAfter *int64  `json:"balance_after"`
	Counterpart  *string `json:"counterpart"`
	Timestamp    *string `json:"timestamp"`
	ReadableDate *string `json:"readable_date"`
	RawBody      *string `json:"raw_body"`

	nulls map[string]bool
}

// UnmarshalJSON decodes the patch and remembers which keys were sent as null.
func (p *TransactionUpdateRequest) UnmarshalJSON(data []byte) error {
	type patch TransactionUpdateRequest
	var v patch
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*p = TransactionUpdateRequest(v)
	for key, raw := range keys {
		if _, ok := patchable[key]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			p.setNull(key)
		}
	}
	return nil
}

// WithNull returns a copy of p that also clears fields.
func (p TransactionUpdateRequest) WithNull(fields ...string) TransactionUpdateRequest {
	prev := p.nulls
	p.nulls = nil
	for f := range prev {
		p.setNull(f)
	}
	for _, f := range fields {
		p.setNull(f)
	}
	return p
}

// Clears reports whether field was sent as null.
func (p TransactionUpdateRequest) Clears(field string) bool {
	return p.nulls[field]
}

func (p *TransactionUpdateRequest) setNull(field string) {
	if p.nulls == nil {
		p.nulls = make(map[string]bool)
	}
	p.nulls[field] = true
}

func (p TransactionUpdateRequest) Validate() error {
	for field := range p.nulls {
		if !patchable[field] {
			return fmt.Errorf("%w: %s", ErrNotNullable, field)
		}
	}
	if p.Type != nil && !p.Type.Persistable() {
		return ErrInvalidType
	}
	if p.Amount != nil && *p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Fee != nil && *p.Fee < 0 {
		return ErrInvalidFee
	}
	return nil
}

// Apply patches r in place.
func (p TransactionUpdateRequest) Apply(r *TransactionRecord) {
	if p.TxID != nil {
		r.TxID = cloneString(p.TxID)
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Fee != nil {
		r.Fee = *p.Fee
	}
	if p.BalanceAfter != nil {
		r.BalanceAfter = cloneInt64(p.BalanceAfter)
	}
	if p.Counterpart != nil {
		r.Counterpart = cloneString(p.Counterpart)
	}
	if p.Timestamp != nil {
		r.Timestamp = cloneString(p.Timestamp)
	}
	if p.ReadableDate != nil {
		r.ReadableDate = *p.ReadableDate
	}
	if p.RawBody != nil {
		r.RawBody = *p.RawBody
	}

	if p.nulls[FieldTxID] {
		r.TxID = nil
	}
	if p.nulls[FieldBalanceAfter] {
		r.BalanceAfter = nil
	}
	if p.nulls[FieldCounterpart] {
		r.Counterpart = nil
	}
	if p.nulls[FieldTimestamp] {
		r.Timestamp = nil
	}
}

// TransactionFilter controls List queries.
type TransactionFilter struct {
	Type   *TxType // equals
	Limit  int     // 0 means all
	Offset int
	Desc   bool // order by id
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
