package parser

import (
	"regexp"

	"github.com/nimasrn/momo-analyzer/internal/model"
)

// Rule tags a message body with Type when Pattern matches.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Type    model.TxType
}

// ClassificationRules is evaluated top to bottom and the first match wins.
// The order resolves overlaps: an incoming receipt that mentions a debit is still incoming,
// and an OTP message quoting a transfer is outgoing.
var ClassificationRules = []Rule{
	{Name: "incoming_receipt", Pattern: regexp.MustCompile(`You have received`), Type: model.TxTypeIncoming},
	{Name: "bank_deposit", Pattern: regexp.MustCompile(`(?i)bank deposit`), Type: model.TxTypeBankDeposit},
	{Name: "withdrawal", Pattern: regexp.MustCompile(`(?i)withdrawn`), Type: model.TxTypeWithdrawal},
	{Name: "outgoing", Pattern: regexp.MustCompile(`transferred to|Your payment of`), Type: model.TxTypeOutgoing},
	{Name: "one_time_password", Pattern: regexp.MustCompile(`(?i)one-time password`), Type: model.TxTypeOTP},
	{Name: "debit", Pattern: regexp.MustCompile(`(?i)debit`), Type: model.TxTypeDebit},
}

// FallbackType is returned when no rule matches.
const FallbackType = model.TxTypeOther

// Classify returns the type of the first rule in ClassificationRules matching body.
func Classify(body string) model.TxType {
	return classifyWith(ClassificationRules, body)
}

func classifyWith(rules []Rule, body string) model.TxType {
	for _, r := range rules {
		if r.Pattern.MatchString(body) {
			return r.Type
		}
	}
	return FallbackType
}
