package model

import "time"

type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// InvoiceRun 一次完整的月度账单处理记录
type InvoiceRun struct {
	ID             string    `json:"id"`
	InvoiceMonth   string    `json:"invoiceMonth"`
	Status         RunStatus `json:"status"`
	SourceFiles    int       `json:"sourceFiles"`
	TotalRows      int       `json:"totalRows"`
	BillableRows   int       `json:"billableRows"`
	CreditedRows   int       `json:"creditedRows"`
	TotalCost      string    `json:"totalCost"`
	TotalCredit    string    `json:"totalCredit"`
	TotalBalance   string    `json:"totalBalance"`
	OutputDir      string    `json:"outputDir"`
	UploadedToS3   bool      `json:"uploadedToS3"`
	FailureMessage string    `json:"failureMessage,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TimedProject 在指定月份区间内不计费的项目
type TimedProject struct {
	ID         string    `json:"id"`
	Project    string    `json:"project"`
	StartMonth string    `json:"startMonth"` // YYYY-MM
	EndMonth   string    `json:"endMonth"`   // YYYY-MM，闭区间
	CreatedAt  time.Time `json:"createdAt"`
}

type ProcessRunRequest struct {
	InvoiceMonth string   `json:"invoiceMonth" binding:"required"`
	CSVFiles     []string `json:"csvFiles"`
	FetchFromS3  bool     `json:"fetchFromS3"`
	UploadToS3   bool     `json:"uploadToS3"`
}
