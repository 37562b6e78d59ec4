package invoice

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"invoicemanager/internal/model"
)

var ErrMissingColumn = errors.New("invoice: required column missing")

// exportColumns 导出 CSV 的统一列序
var exportColumns = []string{
	model.FieldInvoiceMonth,
	model.FieldProject,
	model.FieldProjectID,
	model.FieldPI,
	model.FieldInvoiceEmail,
	model.FieldInvoiceAddress,
	model.FieldInstitution,
	model.FieldInstitutionCode,
	model.FieldSUHours,
	model.FieldSUType,
	model.FieldRate,
	model.FieldCost,
	model.FieldCredit,
	model.FieldCreditCode,
	model.FieldBalance,
}

// ReadCSV 读取一份用量账单，行序保持文件原始顺序
func ReadCSV(path string) ([]*model.UsageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("invoice: open %s: %w", path, err)
	}
	defer f.Close()

	return parseCSV(f, path)
}

func parseCSV(r io.Reader, name string) ([]*model.UsageRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("invoice: read header of %s: %w", name, err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	for _, required := range []string{model.FieldInvoiceMonth, model.FieldProject, model.FieldPI, model.FieldCost} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, required, name)
		}
	}

	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	decimalField := func(row []string, col string) (decimal.Decimal, error) {
		raw := field(row, col)
		if raw == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(raw)
	}

	var records []*model.UsageRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invoice: read %s line %d: %w", name, line+1, err)
		}
		line++

		cost, err := decimalField(row, model.FieldCost)
		if err != nil {
			return nil, fmt.Errorf("invoice: parse cost in %s line %d: %w", name, line, err)
		}
		suHours, err := decimalField(row, model.FieldSUHours)
		if err != nil {
			return nil, fmt.Errorf("invoice: parse SU hours in %s line %d: %w", name, line, err)
		}
		rate, err := decimalField(row, model.FieldRate)
		if err != nil {
			return nil, fmt.Errorf("invoice: parse rate in %s line %d: %w", name, line, err)
		}

		records = append(records, &model.UsageRecord{
			InvoiceMonth:    field(row, model.FieldInvoiceMonth),
			Project:         field(row, model.FieldProject),
			ProjectID:       field(row, model.FieldProjectID),
			PI:              field(row, model.FieldPI),
			InvoiceEmail:    field(row, model.FieldInvoiceEmail),
			InvoiceAddress:  field(row, model.FieldInvoiceAddress),
			Institution:     field(row, model.FieldInstitution),
			InstitutionCode: field(row, model.FieldInstitutionCode),
			SUHours:         suHours,
			SUType:          field(row, model.FieldSUType),
			Rate:            rate,
			Cost:            cost,
			Balance:         cost,
		})
	}

	return records, nil
}

// Merge 按给定文件顺序拼接多份账单。拼接顺序即抵扣分配的行序，
// 后续处理不再重排。
func Merge(paths []string) ([]*model.UsageRecord, error) {
	var merged []*model.UsageRecord
	for _, path := range paths {
		records, err := ReadCSV(path)
		if err != nil {
			return nil, err
		}
		merged = append(merged, records...)
	}
	return merged, nil
}

// WriteCSV 按统一列序写出账单
func WriteCSV(records []*model.UsageRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("invoice: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportColumns); err != nil {
		return fmt.Errorf("invoice: write header: %w", err)
	}

	for _, r := range records {
		credit := ""
		if r.Credit != nil {
			credit = r.Credit.String()
		}
		row := []string{
			r.InvoiceMonth,
			r.Project,
			r.ProjectID,
			r.PI,
			r.InvoiceEmail,
			r.InvoiceAddress,
			r.Institution,
			r.InstitutionCode,
			r.SUHours.String(),
			r.SUType,
			r.Rate.String(),
			r.Cost.String(),
			credit,
			r.CreditCode,
			r.Balance.String(),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("invoice: write row for project %q: %w", r.Project, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("invoice: flush %s: %w", path, err)
	}
	return nil
}
