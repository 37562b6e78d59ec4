package invoice

import (
	"testing"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
)

func TestTimedProjectsActive(t *testing.T) {
	timed := []model.TimedProject{
		{Project: "ramp-up", StartMonth: "2024-01", EndMonth: "2024-06"},
		{Project: "expired", StartMonth: "2023-01", EndMonth: "2023-12"},
		{Project: "future", StartMonth: "2024-09", EndMonth: "2024-12"},
		{Project: "last-month", StartMonth: "2024-01", EndMonth: "2024-03"},
	}
	current, err := credits.ParseYearMonth("2024-03")
	if err != nil {
		t.Fatalf("ParseYearMonth: %v", err)
	}

	active, err := TimedProjectsActive(timed, current)
	if err != nil {
		t.Fatalf("TimedProjectsActive: %v", err)
	}

	// 区间为闭区间，结束月当月仍生效
	want := map[string]bool{"ramp-up": true, "last-month": true}
	if len(active) != len(want) {
		t.Fatalf("expected %d active projects, got %v", len(want), active)
	}
	for _, p := range active {
		if !want[p] {
			t.Errorf("unexpected active project %s", p)
		}
	}
}

func TestTimedProjectsActiveBadDate(t *testing.T) {
	timed := []model.TimedProject{{Project: "broken", StartMonth: "2024/01", EndMonth: "2024-06"}}
	current, _ := credits.ParseYearMonth("2024-03")

	if _, err := TimedProjectsActive(timed, current); err == nil {
		t.Fatal("expected error for malformed month")
	}
}

func TestMarkBillable(t *testing.T) {
	records := []*model.UsageRecord{
		{Project: "proj-a", PI: "alice@bu.edu"},
		{Project: "proj-b", PI: "staff@nerc.example"},
		{Project: "internal-ops", PI: "carol@bu.edu"},
		{Project: "proj-d", PI: "dave@bu.edu"},
	}

	MarkBillable(records, []string{"staff@nerc.example"}, []string{"internal-ops"})

	wantBillable := []bool{true, false, false, true}
	for i, r := range records {
		if r.Billable != wantBillable[i] {
			t.Errorf("record %d (%s): billable = %v, want %v", i, r.Project, r.Billable, wantBillable[i])
		}
	}
}

func TestValidatePIs(t *testing.T) {
	records := []*model.UsageRecord{
		{Project: "proj-a", PI: "alice@bu.edu", Billable: true},
		{Project: "proj-b", PI: "", Billable: true},
		{Project: "proj-c", PI: "", Billable: false},
	}

	missing := ValidatePIs(records)
	if missing != 1 {
		t.Fatalf("expected 1 missing PI, got %d", missing)
	}
	if records[0].MissingPI {
		t.Error("record with PI should not be flagged")
	}
	if !records[1].MissingPI {
		t.Error("billable record without PI should be flagged")
	}
	if records[2].MissingPI {
		t.Error("nonbillable record should not be flagged")
	}
}

func TestBillableNonbillableFilters(t *testing.T) {
	records := []*model.UsageRecord{
		{Project: "proj-a", Billable: true},
		{Project: "proj-b", Billable: false},
		{Project: "proj-c", Billable: true, MissingPI: true},
		{Project: "proj-d", Billable: true},
	}

	// PI 缺失的计费行保留，由信用阶段跳过
	billable := Billable(records)
	if len(billable) != 3 || billable[0].Project != "proj-a" || billable[1].Project != "proj-c" {
		t.Errorf("unexpected billable set: %+v", billable)
	}

	nonbillable := Nonbillable(records)
	if len(nonbillable) != 1 || nonbillable[0].Project != "proj-b" {
		t.Errorf("unexpected nonbillable set: %+v", nonbillable)
	}
}
