package model

import (
	"github.com/shopspring/decimal"
)

// 账单 CSV 列名，与上游对账单保持一致
const (
	FieldInvoiceMonth    = "Invoice Month"
	FieldProject         = "Project - Allocation"
	FieldProjectID       = "Project - Allocation ID"
	FieldPI              = "Manager (PI)"
	FieldInvoiceEmail    = "Invoice Email"
	FieldInvoiceAddress  = "Invoice Address"
	FieldInstitution     = "Institution"
	FieldInstitutionCode = "Institution - Specific Code"
	FieldSUHours         = "SU Hours (GBhr or SUhr)"
	FieldSUType          = "SU Type"
	FieldRate            = "Rate"
	FieldCost            = "Cost"
	FieldCredit          = "Credit"
	FieldCreditCode      = "Credit Code"
	FieldBalance         = "Balance"
)

// UsageRecord 当期账单中的一行用量记录
type UsageRecord struct {
	InvoiceMonth    string          `json:"invoiceMonth"`
	Project         string          `json:"project"`
	ProjectID       string          `json:"projectId"`
	PI              string          `json:"pi"`
	InvoiceEmail    string          `json:"invoiceEmail"`
	InvoiceAddress  string          `json:"invoiceAddress"`
	Institution     string          `json:"institution"`
	InstitutionCode string          `json:"institutionCode"`
	SUHours         decimal.Decimal `json:"suHours"`
	SUType          string          `json:"suType"`
	Rate            decimal.Decimal `json:"rate"`
	Cost            decimal.Decimal `json:"cost"`

	// 处理阶段写入的派生列
	Credit     *decimal.Decimal `json:"credit,omitempty"`
	CreditCode string           `json:"creditCode,omitempty"`
	Balance    decimal.Decimal  `json:"balance"`

	// 处理标记，不导出到 CSV
	MissingPI bool `json:"-"`
	Billable  bool `json:"-"`
}

// HasCredit 该行是否已获得抵扣
func (r *UsageRecord) HasCredit() bool {
	return r.Credit != nil && !r.Credit.IsZero()
}
