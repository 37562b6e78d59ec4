package invoice

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
)

// LenovoSUTypes 计入硬件厂商报表的 GPU SU 类型，
// 同时也是新人信用的排除机型名单
var LenovoSUTypes = []string{
	"OpenShift GPUA100SXM4",
	"OpenStack GPUA100SXM4",
}

// LenovoSUChargeMultiplier 厂商报表的单位 SU 计费系数
var LenovoSUChargeMultiplier = decimal.NewFromInt(1)

// FilterInstitutions 过滤出指定机构的行（单机构或多机构报表）
func FilterInstitutions(records []*model.UsageRecord, names ...string) []*model.UsageRecord {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var result []*model.UsageRecord
	for _, r := range records {
		if wanted[r.Institution] {
			result = append(result, r)
		}
	}
	return result
}

// ExportPerPI 为每个 PI 单独导出一份账单，
// 文件名为 <机构>_<PI>_<账期>.csv
func ExportPerPI(records []*model.UsageRecord, dir, invoiceMonth string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("invoice: create PI invoice dir: %w", err)
	}

	order := make([]string, 0)
	byPI := make(map[string][]*model.UsageRecord)
	for _, r := range records {
		if r.PI == "" {
			continue
		}
		if _, ok := byPI[r.PI]; !ok {
			order = append(order, r.PI)
		}
		byPI[r.PI] = append(byPI[r.PI], r)
	}

	for _, pi := range order {
		rows := byPI[pi]
		name := fmt.Sprintf("%s_%s_%s.csv", rows[0].Institution, pi, invoiceMonth)
		if err := WriteCSV(rows, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// LenovoRow 硬件厂商报表中的一行
type LenovoRow struct {
	InvoiceMonth string
	Project      string
	Institution  string
	SUHours      decimal.Decimal
	SUType       string
	SUCharge     decimal.Decimal
	Charge       decimal.Decimal
}

// LenovoReport 过滤出 GPU 机型用量并计算厂商侧费用
func LenovoReport(records []*model.UsageRecord) []LenovoRow {
	types := make(map[string]bool, len(LenovoSUTypes))
	for _, t := range LenovoSUTypes {
		types[t] = true
	}

	var rows []LenovoRow
	for _, r := range records {
		if !types[r.SUType] {
			continue
		}
		rows = append(rows, LenovoRow{
			InvoiceMonth: r.InvoiceMonth,
			Project:      r.Project,
			Institution:  r.Institution,
			SUHours:      r.SUHours,
			SUType:       r.SUType,
			SUCharge:     LenovoSUChargeMultiplier,
			Charge:       r.SUHours.Mul(LenovoSUChargeMultiplier),
		})
	}
	return rows
}

// WriteLenovoCSV 写出硬件厂商报表
func WriteLenovoCSV(rows []LenovoRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("invoice: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		model.FieldInvoiceMonth,
		model.FieldProject,
		model.FieldInstitution,
		"SU Hours",
		model.FieldSUType,
		"SU Charge",
		"Charge",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("invoice: write lenovo header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.InvoiceMonth,
			row.Project,
			row.Institution,
			row.SUHours.String(),
			row.SUType,
			row.SUCharge.String(),
			row.Charge.String(),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("invoice: write lenovo row for project %q: %w", row.Project, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("invoice: flush %s: %w", path, err)
	}
	return nil
}

// WriteSubsidyCSV 写出机构补贴汇总报表
func WriteSubsidyCSV(projects []credits.SubsidizedProject, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("invoice: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"Project", model.FieldPI, model.FieldCost, model.FieldCredit, "Subsidy", model.FieldBalance}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("invoice: write subsidy header: %w", err)
	}
	for _, p := range projects {
		record := []string{
			p.Project,
			p.PI,
			p.Cost.String(),
			p.Credit.String(),
			p.Subsidy.String(),
			p.Balance.String(),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("invoice: write subsidy row for project %q: %w", p.Project, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("invoice: flush %s: %w", path, err)
	}
	return nil
}
