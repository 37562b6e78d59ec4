package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
)

// ErrLedgerFileNotFound 台账文件缺失。台账是跨月状态，文件缺失时
// 继续处理会把所有老 PI 当成新人重新发放信用，必须中止。
var ErrLedgerFileNotFound = errors.New("repository: PI credit ledger file not found")

type PILedgerRepositoryInterface interface {
	Load() (*credits.Ledger, error)
	Save(ledger *credits.Ledger) error
}

var _ PILedgerRepositoryInterface = (*PILedgerRepository)(nil)

// PILedgerRepository 以 CSV 文件持久化 PI 信用台账
type PILedgerRepository struct {
	path string
}

func NewPILedgerRepository(path string) *PILedgerRepository {
	return &PILedgerRepository{path: path}
}

var ledgerColumns = []string{
	model.LedgerFieldPI,
	model.LedgerFieldFirstMonth,
	model.LedgerFieldInitialCredits,
	model.LedgerFieldFirstUsed,
	model.LedgerFieldSecondUsed,
}

func (r *PILedgerRepository) Load() (*credits.Ledger, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLedgerFileNotFound, r.path)
		}
		return nil, fmt.Errorf("repository: open ledger %s: %w", r.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err == io.EOF {
		return credits.NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: read ledger header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	for _, col := range ledgerColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("repository: ledger %s missing column %q", r.path, col)
		}
	}

	ledger := credits.NewLedger()
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("repository: read ledger line %d: %w", line+1, err)
		}
		line++

		amount := func(col string) (decimal.Decimal, error) {
			raw := row[idx[col]]
			if raw == "" {
				return decimal.Zero, nil
			}
			return decimal.NewFromString(raw)
		}

		entry := &model.PILedgerEntry{
			PI:                row[idx[model.LedgerFieldPI]],
			FirstInvoiceMonth: row[idx[model.LedgerFieldFirstMonth]],
		}
		if entry.InitialCredits, err = amount(model.LedgerFieldInitialCredits); err != nil {
			return nil, fmt.Errorf("repository: parse initial credits line %d: %w", line, err)
		}
		if entry.FirstMonthUsed, err = amount(model.LedgerFieldFirstUsed); err != nil {
			return nil, fmt.Errorf("repository: parse 1st month used line %d: %w", line, err)
		}
		if entry.SecondMonthUsed, err = amount(model.LedgerFieldSecondUsed); err != nil {
			return nil, fmt.Errorf("repository: parse 2nd month used line %d: %w", line, err)
		}
		ledger.Add(entry)
	}

	if err := ledger.CheckIntegrity(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// Save 先写临时文件再原子替换，处理中途失败不会破坏旧台账
func (r *PILedgerRepository) Save(ledger *credits.Ledger) error {
	dir := filepath.Dir(r.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("repository: create ledger dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "pi-ledger-*.csv")
	if err != nil {
		return fmt.Errorf("repository: create ledger temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(ledgerColumns); err != nil {
		tmp.Close()
		return fmt.Errorf("repository: write ledger header: %w", err)
	}
	for _, entry := range ledger.Entries() {
		row := []string{
			entry.PI,
			entry.FirstInvoiceMonth,
			entry.InitialCredits.String(),
			entry.FirstMonthUsed.String(),
			entry.SecondMonthUsed.String(),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("repository: write ledger row for %s: %w", entry.PI, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("repository: flush ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repository: close ledger temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("repository: replace ledger %s: %w", r.path, err)
	}
	return nil
}
