package parser

import (
	"time"

	"github.com/nimasrn/momo-analyzer/internal/model"
)

// DropReason says which gate removed an entry.
type DropReason string

const (
	DropReasonOTP      DropReason = "otp"
	DropReasonNoAmount DropReason = "no_amount"
)

// Result is the output of one pass over a batch.
type Result struct {
	Records []*model.TransactionRecord
	Count   int
	Entries int
	Dropped map[DropReason]int
}

// DroppedByReason flattens Dropped for serialisation and metrics.
func (r *Result) DroppedByReason() map[string]int {
	out := make(map[string]int, len(r.Dropped))
	for k, v := range r.Dropped {
		out[string(k)] = v
	}
	return out
}

type Option func(*Parser)

// WithLocation sets the zone timestamps are rendered in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithRules replaces the classification rules.
func WithRules(rules []Rule) Option {
	return func(p *Parser) {
		p.rules = rules
	}
}

// Parser owns id assignment and the two filtering gates. It holds no state between calls to Parse.
type Parser struct {
	loc   *time.Location
	rules []Rule
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		loc:   time.Local,
		rules: ClassificationRules,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse runs a single ordered pass over entries.
func (p *Parser) Parse(entries []model.MessageEntry) *Result {
	res := &Result{
		Records: make([]*model.TransactionRecord, 0, len(entries)),
		Entries: len(entries),
		Dropped: map[DropReason]int{
			DropReasonOTP:      0,
			DropReasonNoAmount: 0,
		},
	}

	var nextID int64 = 1
	for _, e := range entries {
		rec, reason := p.assemble(e)
		if rec == nil {
			res.Dropped[reason]++
			continue
		}
		rec.ID = nextID
		nextID++
		res.Records = append(res.Records, rec)
	}

	res.Count = len(res.Records)
	return res
}

// assemble builds an unnumbered record, or reports which gate dropped the entry.
func (p *Parser) assemble(e model.MessageEntry) (*model.TransactionRecord, DropReason) {
	t := classifyWith(p.rules, e.Body)
	if t == model.TxTypeOTP {
		return nil, DropReasonOTP
	}

	amount := ExtractAmount(e.Body)
	if amount == nil {
		return nil, DropReasonNoAmount
	}

	var fee int64
	if f := ExtractFee(e.Body); f != nil {
		fee = *f
	}

	return &model.TransactionRecord{
		TxID:         ExtractTxID(e.Body),
		Type:         t,
		Amount:       *amount,
		Fee:          fee,
		BalanceAfter: ExtractBalance(e.Body),
		Counterpart:  ExtractCounterpart(e.Body, t),
		Timestamp:    NormalizeTimestamp(e.Date, p.loc),
		ReadableDate: e.ReadableDate,
		RawBody:      e.Body,
	}, ""
}
