package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nimasrn/momo-analyzer/internal/model"
)

// Currency is the only currency marker amounts are recognised by.
const Currency = "RWF"

var (
	// 5,000 RWF | 10000RWF
	amountPattern = regexp.MustCompile(`(\d[\d,]*)\s*RWF`)

	// Fee was 100 RWF | fee paid: 1,200 RWF
	feePattern = regexp.MustCompile(`(?i)Fee (?:was|paid)[:\s]*(\d[\d,]*)\s*RWF`)

	// *162*TxId: 9988776* | Financial Transaction Id: 76662021700
	txIDPattern = regexp.MustCompile(`(?:TxId[:\s]*|Financial Transaction Id[:\s]*)(\d+)`)

	// You have received 5,000 RWF from John Doe (*********013)
	senderPattern = regexp.MustCompile(`received\s+\d[\d,]*\s*RWF\s+from\s+([A-Za-z ]+?)\s*\(`)

	// transferred to Samuel Carter (2507...) | payment of 1,000 RWF to Jane Smith 12845 | via agent: Agent Sophia (2507...)
	// The name is a run of capitalised words; it ends at the first space not followed by one.
	recipientPattern = regexp.MustCompile(`(?:transferred to|payment of .+? to|agent: Agent)\s*([A-Z][A-Za-z]*(?: [A-Z][A-Za-z]*)*)`)
)

// BalancePatterns are tried in order; the first match wins.
var BalancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Nn]ew balance[:\s]*(\d[\d,]*)\s*RWF`),
	regexp.MustCompile(`NEW BALANCE\s*:?(\d[\d,]*)\s*RWF`),
	regexp.MustCompile(`new balance:(\d[\d,]*)\s*RWF`),
}

// ExtractAmount returns the first currency amount in body. A zero amount is not a transaction.
func ExtractAmount(body string) *int64 {
	v := firstInt(amountPattern, body)
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// ExtractFee returns the fee stated in body, or nil. Callers default a missing fee to 0.
func ExtractFee(body string) *int64 {
	return firstInt(feePattern, body)
}

// ExtractBalance returns the balance after the transaction, or nil.
func ExtractBalance(body string) *int64 {
	for _, p := range BalancePatterns {
		if v := firstInt(p, body); v != nil {
			return v
		}
	}
	return nil
}

// ExtractCounterpart returns the other party's name. Which phrasing is looked for depends on t.
func ExtractCounterpart(body string, t model.TxType) *string {
	switch t {
	case model.TxTypeIncoming:
		return firstString(senderPattern, body)
	case model.TxTypeOutgoing, model.TxTypeBankDeposit, model.TxTypeWithdrawal:
		return firstString(recipientPattern, body)
	}
	return nil
}

// ExtractTxID returns the provider transaction id, or nil.
func ExtractTxID(body string) *string {
	return firstString(txIDPattern, body)
}

func firstInt(p *regexp.Regexp, body string) *int64 {
	m := p.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	return parseGrouped(m[1])
}

func firstString(p *regexp.Regexp, body string) *string {
	m := p.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	s := strings.TrimSpace(m[1])
	if s == "" {
		return nil
	}
	return &s
}

// parseGrouped parses "12,500" as 12500. Overflow yields nil.
func parseGrouped(s string) *int64 {
	v, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
