package fixtures

import (
	"github.com/nimasrn/momo-analyzer/internal/model"
)

// SMSBackup holds one message of every kind the parser distinguishes.
const SMSBackup = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<smses count="9">
  <sms protocol="0" address="M-Money" date="1715351458724" type="1" body="You have received 2000 RWF from Jane Smith (*********013) at 2024-05-10 16:30:51. Message from debit receiver: . Your new balance:2000 RWF. Financial Transaction Id: 76662021700." readable_date="10 May 2024 4:30:58 PM" />
  <sms protocol="0" address="M-Money" date="1715351506754" type="1" body="TxId: 73214484437. Your payment of 1,000 RWF to Jane Smith 12845 has been completed at 2024-05-10 16:31:39. Your new balance: 1,000 RWF. Fee was 0 RWF." readable_date="10 May 2024 4:31:46 PM" />
  <sms protocol="0" address="M-Money" date="1715445936412" type="1" body="*113*R*A bank deposit of 40000 RWF has been added to your mobile money account at 2024-05-11 18:43:49. Your NEW BALANCE :40400 RWF. Cash Deposit::CASH::::0::250795963036.Thank you for using MTN MobileMoney.*EN#" readable_date="11 May 2024 6:45:36 PM" />
  <sms protocol="0" address="M-Money" date="1716682234000" type="1" body="You Abebe Chala CHEBUDIE (*********036) have via agent: Agent Sophia (250790777777), withdrawn 20000 RWF from your mobile money account: 36521838 at 2024-05-26 02:10:27 and you can now collect your money in cash. Your new balance: 6400 RWF. Fee paid: 350 RWF. Message from agent: 1,TOP 4 SHOP,. Financial Transaction Id: 14106318141." readable_date="26 May 2024 2:10:34 AM" />
  <sms protocol="0" address="M-Money" date="1715452495316" type="1" body="*165*S*10000 RWF transferred to Samuel Carter (250791666666) from 36521838 at 2024-05-11 20:34:47 . Fee was: 100 RWF. New balance: 28300 RWF." readable_date="11 May 2024 8:34:55 PM" />
  <sms protocol="0" address="M-Money" date="1715455000000" type="1" body="Your one-time password is 482913. Do not share it." readable_date="11 May 2024 9:16:40 PM" />
  <sms protocol="0" address="M-Money" date="1715513665000" type="1" body="A transaction of 3400 RWF by DIRECT PAYMENT LTD on your MOMO account was successfully completed at 2024-05-12 13:34:25. Message from debit receiver: . Your new balance:1,300 RWF. Fee was 0 RWF. Financial Transaction Id: 17818959211." readable_date="12 May 2024 1:34:25 PM" />
  <sms protocol="0" address="M-Money" date="1715520000000" type="1" body="Welcome to MoMo, dial *182# to get started." readable_date="12 May 2024 3:20:00 PM" />
  <sms protocol="0" address="M-Money" date="1715523600000" type="1" body="Your airtime bundle of 500 RWF is now active." readable_date="12 May 2024 4:20:00 PM" />
</smses>`

const (
	SMSBackupEntries  = 9
	SMSBackupRecords  = 7
	SMSBackupOTP      = 1
	SMSBackupNoAmount = 1
)

// SMSBackupTypes lists the record types SMSBackup yields, in id order.
var SMSBackupTypes = []model.TxType{
	model.TxTypeIncoming,
	model.TxTypeOutgoing,
	model.TxTypeBankDeposit,
	model.TxTypeWithdrawal,
	model.TxTypeOutgoing,
	model.TxTypeDebit,
	model.TxTypeOther,
}

func NewTestCreateRequest(t model.TxType, amount int64, counterpart string) model.TransactionCreateRequest {
	req := model.TransactionCreateRequest{
		Type:         t,
		Amount:       amount,
		ReadableDate: "1 Jun 2024 10:00:00 AM",
		RawBody:      "manual entry",
	}
	if counterpart != "" {
		req.Counterpart = &counterpart
	}
	return req
}
