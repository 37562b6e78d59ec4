package model

import (
	"github.com/shopspring/decimal"
)

// PI 信用台账 CSV 列名
const (
	LedgerFieldPI             = "PI"
	LedgerFieldFirstMonth     = "First Invoice Month"
	LedgerFieldInitialCredits = "Initial Credits"
	LedgerFieldFirstUsed      = "1st Month Used"
	LedgerFieldSecondUsed     = "2nd Month Used"
)

// PILedgerEntry 单个 PI 的新人信用消耗台账。
// FirstInvoiceMonth 一经写入不再变更；信用只在首月和次月可用，
// FirstMonthUsed + SecondMonthUsed 永远不超过 InitialCredits。
type PILedgerEntry struct {
	PI                string          `json:"pi"`
	FirstInvoiceMonth string          `json:"firstInvoiceMonth"`
	InitialCredits    decimal.Decimal `json:"initialCredits"`
	FirstMonthUsed    decimal.Decimal `json:"firstMonthUsed"`
	SecondMonthUsed   decimal.Decimal `json:"secondMonthUsed"`
}

// Remaining 尚未消耗的信用额度
func (e *PILedgerEntry) Remaining() decimal.Decimal {
	return e.InitialCredits.Sub(e.FirstMonthUsed).Sub(e.SecondMonthUsed)
}
