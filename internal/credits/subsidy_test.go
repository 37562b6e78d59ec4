package credits

import (
	"testing"

	"invoicemanager/internal/model"
)

func subsidyRow(institution, project, cost, credit string) *model.UsageRecord {
	row := &model.UsageRecord{
		Institution: institution,
		Project:     project,
		PI:          "pi@" + institution,
		Cost:        dec(cost),
	}
	if credit != "" {
		c := dec(credit)
		row.Credit = &c
	}
	row.Balance = row.Cost
	if row.Credit != nil {
		row.Balance = row.Cost.Sub(*row.Credit)
	}
	return row
}

func TestNormalizeProjectName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "astrophysics", "astrophysics"},
		{"allocation_suffix", "astrophysics-2", "astrophysics"},
		{"long_suffix", "genomics-12", "genomics"},
		{"inner_digits_kept", "lab42-project", "lab42-project"},
		{"trailing_word", "deep-learning", "deep-learning"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeProjectName(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestApplySubsidyFloorsAtZero(t *testing.T) {
	// 项目成本 1050，已抵扣 1000，余额 50；补贴 100 只能减到 0
	rows := []*model.UsageRecord{
		subsidyRow("Boston University", "astro", "1050", "1000"),
	}

	result := ApplySubsidy(rows, "Boston University", dec("100"))
	if len(result) != 1 {
		t.Fatalf("got %d projects want 1", len(result))
	}
	if !result[0].Balance.IsZero() {
		t.Fatalf("balance got %s want 0", result[0].Balance)
	}
}

func TestApplySubsidyGroupsAllocations(t *testing.T) {
	rows := []*model.UsageRecord{
		subsidyRow("Boston University", "genomics-1", "300", "100"),
		subsidyRow("Boston University", "genomics-2", "200", ""),
		subsidyRow("Boston University", "optics", "500", ""),
		subsidyRow("Harvard University", "genomics-1", "400", ""),
	}

	result := ApplySubsidy(rows, "Boston University", dec("100"))
	if len(result) != 2 {
		t.Fatalf("got %d projects want 2", len(result))
	}

	genomics := result[0]
	if genomics.Project != "genomics" {
		t.Fatalf("project got %q want genomics", genomics.Project)
	}
	if !genomics.Cost.Equal(dec("500")) {
		t.Fatalf("cost got %s want 500", genomics.Cost)
	}
	if !genomics.Credit.Equal(dec("100")) {
		t.Fatalf("credit got %s want 100", genomics.Credit)
	}
	// 500 - 100 - 100
	if !genomics.Balance.Equal(dec("300")) {
		t.Fatalf("balance got %s want 300", genomics.Balance)
	}

	optics := result[1]
	if !optics.Balance.Equal(dec("400")) {
		t.Fatalf("optics balance got %s want 400", optics.Balance)
	}
}

func TestApplySubsidyIgnoresOtherInstitutions(t *testing.T) {
	rows := []*model.UsageRecord{
		subsidyRow("Harvard University", "astro", "100", ""),
	}

	result := ApplySubsidy(rows, "Boston University", dec("100"))
	if len(result) != 0 {
		t.Fatalf("got %d projects want 0", len(result))
	}
}
