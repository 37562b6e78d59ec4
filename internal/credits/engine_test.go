package credits

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"invoicemanager/internal/model"
)

func usageRow(pi, project, cost string) *model.UsageRecord {
	return &model.UsageRecord{
		InvoiceMonth: "2024-03",
		PI:           pi,
		Project:      project,
		Cost:         dec(cost),
	}
}

func defaultConfig(month string) Config {
	return Config{
		InvoiceMonth:  month,
		DefaultCredit: dec("1000"),
	}
}

func TestApplyNewPICreditsBrandNewPIFullyCredited(t *testing.T) {
	rows := []*model.UsageRecord{
		usageRow("NewPI1", "ProjectA", "250"),
		usageRow("NewPI1", "ProjectB", "250"),
	}
	ledger := NewLedger()
	cfg := defaultConfig("2024-03")
	cfg.DefaultCredit = dec("500")

	summary, err := ApplyNewPICredits(rows, ledger, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, row := range rows {
		if row.Credit == nil || !row.Credit.Equal(dec("250")) {
			t.Fatalf("row %d: credit got %v want 250", i, row.Credit)
		}
		if row.CreditCode != NewPICreditCode {
			t.Fatalf("row %d: credit code got %q want %q", i, row.CreditCode, NewPICreditCode)
		}
		if !row.Balance.IsZero() {
			t.Fatalf("row %d: balance got %s want 0", i, row.Balance)
		}
	}

	entry := ledger.Lookup("NewPI1")
	if entry == nil {
		t.Fatal("ledger entry should be created for brand-new PI")
	}
	if entry.FirstInvoiceMonth != "2024-03" {
		t.Fatalf("first invoice month got %q want 2024-03", entry.FirstInvoiceMonth)
	}
	if !entry.InitialCredits.Equal(dec("500")) {
		t.Fatalf("initial credits got %s want 500", entry.InitialCredits)
	}
	if !entry.FirstMonthUsed.Equal(dec("500")) {
		t.Fatalf("first month used got %s want 500", entry.FirstMonthUsed)
	}
	if !entry.SecondMonthUsed.IsZero() {
		t.Fatalf("second month used got %s want 0", entry.SecondMonthUsed)
	}
	if !summary.TotalCredit.Equal(dec("500")) {
		t.Fatalf("total credit got %s want 500", summary.TotalCredit)
	}
}

func TestApplyNewPICreditsAgingPartialBudget(t *testing.T) {
	// PI4：首月已用 900/1000，次月两个项目分别花费 500 和 100，
	// 剩余额度 100 按行序给第一个项目
	rows := []*model.UsageRecord{
		usageRow("PI4", "ProjectE", "500"),
		usageRow("PI4", "ProjectF", "100"),
	}
	ledger := NewLedger()
	ledger.Add(&model.PILedgerEntry{
		PI:                "PI4",
		FirstInvoiceMonth: "2024-02",
		InitialCredits:    dec("1000"),
		FirstMonthUsed:    dec("900"),
		SecondMonthUsed:   decimal.Zero,
	})

	_, err := ApplyNewPICredits(rows, ledger, defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rows[0].Credit == nil || !rows[0].Credit.Equal(dec("100")) {
		t.Fatalf("row 0 credit got %v want 100", rows[0].Credit)
	}
	if !rows[0].Balance.Equal(dec("400")) {
		t.Fatalf("row 0 balance got %s want 400", rows[0].Balance)
	}

	if rows[1].Credit != nil {
		t.Fatalf("row 1 credit got %v want absent", rows[1].Credit)
	}
	if rows[1].CreditCode != "" {
		t.Fatalf("row 1 credit code got %q want empty", rows[1].CreditCode)
	}
	if !rows[1].Balance.Equal(dec("100")) {
		t.Fatalf("row 1 balance got %s want 100", rows[1].Balance)
	}

	entry := ledger.Lookup("PI4")
	if !entry.SecondMonthUsed.Equal(dec("100")) {
		t.Fatalf("second month used got %s want 100", entry.SecondMonthUsed)
	}
	if err := ledger.CheckIntegrity(); err != nil {
		t.Fatalf("ledger invariant broken: %v", err)
	}
}

func TestApplyNewPICreditsOldPIGetsNothing(t *testing.T) {
	rows := []*model.UsageRecord{
		usageRow("OldPI", "ProjectA", "10000"),
		usageRow("OldPI", "ProjectB", "5"),
	}
	ledger := NewLedger()
	ledger.Add(&model.PILedgerEntry{
		PI:                "OldPI",
		FirstInvoiceMonth: "2023-09",
		InitialCredits:    dec("1000"),
	})

	_, err := ApplyNewPICredits(rows, ledger, defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, row := range rows {
		if row.Credit != nil || row.CreditCode != "" {
			t.Fatalf("row %d should have no credit", i)
		}
		if !row.Balance.Equal(row.Cost) {
			t.Fatalf("row %d balance got %s want %s", i, row.Balance, row.Cost)
		}
	}

	entry := ledger.Lookup("OldPI")
	if !entry.FirstMonthUsed.IsZero() || !entry.SecondMonthUsed.IsZero() {
		t.Fatal("old PI ledger entry must not be mutated")
	}
}

func TestApplyNewPICreditsRowOrderDeterminesExhaustion(t *testing.T) {
	// 预算 1000，行序决定先到先得：800 全额抵扣，随后只剩 200
	rows := []*model.UsageRecord{
		usageRow("PI1", "ProjectA", "10"),
		usageRow("PI1", "ProjectB", "100"),
		usageRow("PI4", "ProjectE", "800"),
		usageRow("PI4", "ProjectF", "1000"),
	}
	ledger := NewLedger()

	_, err := ApplyNewPICredits(rows, ledger, defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCredits := []string{"10", "100", "800", "200"}
	wantBalances := []string{"0", "0", "0", "800"}
	for i, row := range rows {
		if row.Credit == nil || !row.Credit.Equal(dec(wantCredits[i])) {
			t.Fatalf("row %d credit got %v want %s", i, row.Credit, wantCredits[i])
		}
		if !row.Balance.Equal(dec(wantBalances[i])) {
			t.Fatalf("row %d balance got %s want %s", i, row.Balance, wantBalances[i])
		}
	}
}

func TestApplyNewPICreditsAggregateCostCapsAtInitialCredit(t *testing.T) {
	rows := []*model.UsageRecord{
		usageRow("PI2", "ProjectA", "600"),
		usageRow("PI2", "ProjectB", "700"),
		usageRow("PI2", "ProjectC", "50"),
	}
	ledger := NewLedger()
	ledger.Add(&model.PILedgerEntry{
		PI:                "PI2",
		FirstInvoiceMonth: "2024-03",
		InitialCredits:    dec("1000"),
	})

	summary, err := ApplyNewPICredits(rows, ledger, defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.TotalCredit.Equal(dec("1000")) {
		t.Fatalf("total credit got %s want exactly 1000", summary.TotalCredit)
	}
	// 额度在第二行耗尽，第三行不再处理抵扣字段
	if rows[1].Credit == nil || !rows[1].Credit.Equal(dec("400")) {
		t.Fatalf("row 1 credit got %v want 400", rows[1].Credit)
	}
	if rows[2].Credit != nil {
		t.Fatal("row 2 should keep full balance after exhaustion")
	}
	if !rows[2].Balance.Equal(dec("50")) {
		t.Fatalf("row 2 balance got %s want 50", rows[2].Balance)
	}
	if err := ledger.CheckIntegrity(); err != nil {
		t.Fatalf("ledger invariant broken: %v", err)
	}
}

func TestApplyNewPICreditsFutureFirstMonthAbortsRun(t *testing.T) {
	rows := []*model.UsageRecord{usageRow("PI1", "ProjectA", "100")}
	ledger := NewLedger()
	ledger.Add(&model.PILedgerEntry{
		PI:                "PI1",
		FirstInvoiceMonth: "2024-04",
		InitialCredits:    dec("1000"),
	})

	_, err := ApplyNewPICredits(rows, ledger, defaultConfig("2024-03"))
	var integrityErr *LedgerIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected LedgerIntegrityError, got %v", err)
	}
}

func TestApplyNewPICreditsInvalidInvoiceMonth(t *testing.T) {
	rows := []*model.UsageRecord{usageRow("PI1", "ProjectA", "100")}

	_, err := ApplyNewPICredits(rows, NewLedger(), defaultConfig("2024-16"))
	var invalidErr *InvalidDateError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidDateError, got %v", err)
	}
}

func TestApplyNewPICreditsExcludedSUType(t *testing.T) {
	gpu := usageRow("PI1", "ProjectA", "400")
	gpu.SUType = "OpenShift GPUA100SXM4"
	cpu := usageRow("PI1", "ProjectB", "300")
	cpu.SUType = "OpenStack CPU"
	rows := []*model.UsageRecord{gpu, cpu}

	cfg := defaultConfig("2024-03")
	cfg.ExcludedSUTypes = []string{"OpenShift GPUA100SXM4", "OpenStack GPUA100SXM4"}
	ledger := NewLedger()

	_, err := ApplyNewPICredits(rows, ledger, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gpu.Credit != nil {
		t.Fatal("excluded SU type must not receive credit")
	}
	if !gpu.Balance.Equal(dec("400")) {
		t.Fatalf("gpu balance got %s want 400", gpu.Balance)
	}
	// 排除行不消耗额度，后续行仍可全额抵扣
	if cpu.Credit == nil || !cpu.Credit.Equal(dec("300")) {
		t.Fatalf("cpu credit got %v want 300", cpu.Credit)
	}
	if !ledger.Lookup("PI1").FirstMonthUsed.Equal(dec("300")) {
		t.Fatalf("first month used got %s want 300", ledger.Lookup("PI1").FirstMonthUsed)
	}
}

func TestApplyNewPICreditsPartnerGate(t *testing.T) {
	eligible := usageRow("PI1@bu.edu", "ProjectA", "100")
	eligible.Institution = "Boston University"
	ineligible := usageRow("PI2@mit.edu", "ProjectB", "100")
	ineligible.Institution = "MIT"
	rows := []*model.UsageRecord{eligible, ineligible}

	cfg := defaultConfig("2024-03")
	cfg.EligibleInstitutions = map[string]bool{"Boston University": true}
	ledger := NewLedger()

	_, err := ApplyNewPICredits(rows, ledger, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if eligible.Credit == nil || !eligible.Credit.Equal(dec("100")) {
		t.Fatalf("eligible row credit got %v want 100", eligible.Credit)
	}
	if ineligible.Credit != nil {
		t.Fatal("partner-ineligible PI must fall through to the old-PI path")
	}
	if !ineligible.Balance.Equal(dec("100")) {
		t.Fatalf("ineligible balance got %s want 100", ineligible.Balance)
	}
	if ledger.Lookup("PI2@mit.edu") != nil {
		t.Fatal("ineligible PI must not get a ledger entry")
	}
}

func TestApplyNewPICreditsZeroCostRow(t *testing.T) {
	zero := usageRow("PI1", "ProjectA", "0")
	paid := usageRow("PI1", "ProjectB", "100")
	rows := []*model.UsageRecord{zero, paid}
	ledger := NewLedger()

	_, err := ApplyNewPICredits(rows, ledger, defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if zero.Credit != nil || zero.CreditCode != "" {
		t.Fatal("zero-cost row must not be marked credited")
	}
	if !zero.Balance.IsZero() {
		t.Fatalf("zero-cost balance got %s want 0", zero.Balance)
	}
	if paid.Credit == nil || !paid.Credit.Equal(dec("100")) {
		t.Fatalf("paid row credit got %v want 100", paid.Credit)
	}
}

func TestApplyNewPICreditsMissingPIRowSkipped(t *testing.T) {
	missing := usageRow("", "ProjectA", "75")
	rows := []*model.UsageRecord{missing}

	summary, err := ApplyNewPICredits(rows, NewLedger(), defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing.Credit != nil {
		t.Fatal("missing-PI row must not receive credit")
	}
	if !missing.Balance.Equal(dec("75")) {
		t.Fatalf("balance got %s want 75", missing.Balance)
	}
	if summary.PIs != 0 {
		t.Fatalf("PIs got %d want 0", summary.PIs)
	}
}

func TestApplyNewPICreditsMonthAmountInheritedFromLedger(t *testing.T) {
	// 台账里当月已有记录定格了本月的新人额度，后来的新 PI 沿用
	rows := []*model.UsageRecord{usageRow("LatePI", "ProjectA", "900")}
	ledger := NewLedger()
	ledger.Add(&model.PILedgerEntry{
		PI:                "EarlyPI",
		FirstInvoiceMonth: "2024-03",
		InitialCredits:    dec("500"),
		FirstMonthUsed:    dec("500"),
	})

	_, err := ApplyNewPICredits(rows, ledger, defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := ledger.Lookup("LatePI")
	if !entry.InitialCredits.Equal(dec("500")) {
		t.Fatalf("initial credits got %s want 500 (inherited)", entry.InitialCredits)
	}
	if rows[0].Credit == nil || !rows[0].Credit.Equal(dec("500")) {
		t.Fatalf("credit got %v want 500", rows[0].Credit)
	}
	if !rows[0].Balance.Equal(dec("400")) {
		t.Fatalf("balance got %s want 400", rows[0].Balance)
	}
}

func TestApplyNewPICreditsPIWithNoRowsUntouched(t *testing.T) {
	ledger := NewLedger()
	ledger.Add(&model.PILedgerEntry{
		PI:                "AbsentPI",
		FirstInvoiceMonth: "2024-02",
		InitialCredits:    dec("1000"),
		FirstMonthUsed:    dec("100"),
	})

	_, err := ApplyNewPICredits(nil, ledger, defaultConfig("2024-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := ledger.Lookup("AbsentPI")
	if !entry.FirstMonthUsed.Equal(dec("100")) || !entry.SecondMonthUsed.IsZero() {
		t.Fatal("PI absent from the period must not be mutated")
	}
	if ledger.Len() != 1 {
		t.Fatalf("ledger length got %d want 1", ledger.Len())
	}
}
