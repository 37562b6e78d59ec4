package repository

import (
	"database/sql"
	"time"

	"invoicemanager/internal/database"
	"invoicemanager/internal/model"

	"github.com/google/uuid"
)

type RunRepositoryInterface interface {
	Create(run *model.InvoiceRun) error
	GetByID(id string) (*model.InvoiceRun, error)
	List(limit int) ([]*model.InvoiceRun, error)
	ListByMonth(invoiceMonth string) ([]*model.InvoiceRun, error)
}

var _ RunRepositoryInterface = (*RunRepository)(nil)

// RunRepository 记录每次账单处理的结果，用于审计和排查
type RunRepository struct{}

func NewRunRepository() *RunRepository {
	return &RunRepository{}
}

const runColumns = `id, invoice_month, status, source_files, total_rows, billable_rows,
	credited_rows, total_cost, total_credit, total_balance, output_dir, uploaded_to_s3,
	failure_message, created_at`

func (r *RunRepository) Create(run *model.InvoiceRun) error {
	db := database.GetDB()
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now()

	_, err := db.Exec(
		`INSERT INTO invoice_runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InvoiceMonth, run.Status, run.SourceFiles, run.TotalRows, run.BillableRows,
		run.CreditedRows, run.TotalCost, run.TotalCredit, run.TotalBalance, run.OutputDir,
		run.UploadedToS3, run.FailureMessage, run.CreatedAt,
	)
	return err
}

func scanRun(scan func(dest ...any) error) (*model.InvoiceRun, error) {
	run := &model.InvoiceRun{}
	err := scan(
		&run.ID, &run.InvoiceMonth, &run.Status, &run.SourceFiles, &run.TotalRows, &run.BillableRows,
		&run.CreditedRows, &run.TotalCost, &run.TotalCredit, &run.TotalBalance, &run.OutputDir,
		&run.UploadedToS3, &run.FailureMessage, &run.CreatedAt,
	)
	return run, err
}

func (r *RunRepository) GetByID(id string) (*model.InvoiceRun, error) {
	db := database.GetDB()
	row := db.QueryRow(`SELECT `+runColumns+` FROM invoice_runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *RunRepository) List(limit int) ([]*model.InvoiceRun, error) {
	if limit <= 0 {
		limit = 50
	}
	db := database.GetDB()
	rows, err := db.Query(
		`SELECT `+runColumns+` FROM invoice_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

func (r *RunRepository) ListByMonth(invoiceMonth string) ([]*model.InvoiceRun, error) {
	db := database.GetDB()
	rows, err := db.Query(
		`SELECT `+runColumns+` FROM invoice_runs WHERE invoice_month = ? ORDER BY created_at DESC`,
		invoiceMonth,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

func collectRuns(rows *sql.Rows) ([]*model.InvoiceRun, error) {
	var runs []*model.InvoiceRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
