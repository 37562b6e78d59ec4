package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"invoicemanager/internal/config"
	"invoicemanager/internal/model"
	"invoicemanager/internal/repository"
)

type fakePartnerRepo struct {
	partners []*model.Partner
}

func (f *fakePartnerRepo) Create(*model.Partner) error              { return nil }
func (f *fakePartnerRepo) GetByID(string) (*model.Partner, error)   { return nil, nil }
func (f *fakePartnerRepo) GetByName(string) (*model.Partner, error) { return nil, nil }
func (f *fakePartnerRepo) List() ([]*model.Partner, error)          { return f.partners, nil }
func (f *fakePartnerRepo) Update(*model.Partner) error              { return nil }
func (f *fakePartnerRepo) Delete(string) error                      { return nil }

type fakeNonbillableRepo struct {
	pis      []string
	projects []string
	timed    []model.TimedProject
}

func (f *fakeNonbillableRepo) ListPIs() ([]string, error)                       { return f.pis, nil }
func (f *fakeNonbillableRepo) AddPI(string) error                               { return nil }
func (f *fakeNonbillableRepo) RemovePI(string) error                            { return nil }
func (f *fakeNonbillableRepo) ListProjects() ([]string, error)                  { return f.projects, nil }
func (f *fakeNonbillableRepo) AddProject(string) error                          { return nil }
func (f *fakeNonbillableRepo) RemoveProject(string) error                       { return nil }
func (f *fakeNonbillableRepo) ListTimedProjects() ([]model.TimedProject, error) { return f.timed, nil }
func (f *fakeNonbillableRepo) AddTimedProject(*model.TimedProject) error        { return nil }
func (f *fakeNonbillableRepo) RemoveTimedProject(string) error                  { return nil }

type fakeRunRepo struct {
	runs []*model.InvoiceRun
}

func (f *fakeRunRepo) Create(run *model.InvoiceRun) error { f.runs = append(f.runs, run); return nil }
func (f *fakeRunRepo) GetByID(string) (*model.InvoiceRun, error)       { return nil, nil }
func (f *fakeRunRepo) List(int) ([]*model.InvoiceRun, error)           { return f.runs, nil }
func (f *fakeRunRepo) ListByMonth(string) ([]*model.InvoiceRun, error) { return f.runs, nil }

const processTestHeader = "Invoice Month,Project - Allocation,Project - Allocation ID,Manager (PI),Invoice Email,Invoice Address,Institution,Institution - Specific Code,SU Hours (GBhr or SUhr),SU Type,Rate,Cost"

func setupProcessTest(t *testing.T) (*ProcessService, *fakeRunRepo, string) {
	t.Helper()
	dataDir := t.TempDir()

	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("OUTPUT_DIR", filepath.Join(dataDir, "invoices"))
	t.Setenv("PI_LEDGER_PATH", filepath.Join(dataDir, "pi.csv"))
	config.Load()

	ledgerSeed := "PI,First Invoice Month,Initial Credits,1st Month Used,2nd Month Used\n" +
		"old@bu.edu,2023-01,1000,1000,0\n"
	if err := os.WriteFile(filepath.Join(dataDir, "pi.csv"), []byte(ledgerSeed), 0644); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	runRepo := &fakeRunRepo{}
	svc := NewProcessServiceWithRepos(
		repository.NewPILedgerRepository(filepath.Join(dataDir, "pi.csv")),
		&fakePartnerRepo{},
		&fakeNonbillableRepo{pis: []string{"staff@nerc.example"}},
		runRepo,
		nil,
	)
	return svc, runRepo, dataDir
}

func TestProcessRun(t *testing.T) {
	svc, runRepo, dataDir := setupProcessTest(t)

	content := processTestHeader + "\n" +
		"2024-03,new-project,1,fresh@bu.edu,,,,,100,OpenStack CPU,1,100\n" +
		"2024-03,old-project,2,old@bu.edu,,,,,200,OpenStack CPU,1,200\n" +
		"2024-03,ops,3,staff@nerc.example,,,,,50,OpenStack CPU,1,50\n"
	source := filepath.Join(dataDir, "2024-03.csv")
	if err := os.WriteFile(source, []byte(content), 0644); err != nil {
		t.Fatalf("seed source csv: %v", err)
	}

	run, err := svc.Run(&model.ProcessRunRequest{
		InvoiceMonth: "2024-03",
		CSVFiles:     []string{source},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.Status != model.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s (%s)", run.Status, run.FailureMessage)
	}
	if run.TotalRows != 3 || run.BillableRows != 2 {
		t.Errorf("unexpected row counts: total=%d billable=%d", run.TotalRows, run.BillableRows)
	}
	// 新 PI 的一行获得信用，老 PI 不获得
	if run.CreditedRows != 1 {
		t.Errorf("expected 1 credited row, got %d", run.CreditedRows)
	}
	if run.TotalCredit != "100" {
		t.Errorf("expected total credit 100, got %s", run.TotalCredit)
	}
	if len(runRepo.runs) != 1 {
		t.Errorf("run history should record the run")
	}

	// 主报表落盘且新 PI 行带信用码
	billable, err := os.ReadFile(filepath.Join(run.OutputDir, "2024-03 NERC.csv"))
	if err != nil {
		t.Fatalf("read billable report: %v", err)
	}
	if !strings.Contains(string(billable), "0002") {
		t.Error("billable report should contain the new-PI credit code")
	}
	for _, name := range []string{"2024-03 Nonbillable.csv", "2024-03 Lenovo.csv", "2024-03 NERC Total.csv"} {
		if _, err := os.Stat(filepath.Join(run.OutputDir, name)); err != nil {
			t.Errorf("expected report %s: %v", name, err)
		}
	}

	// 台账写回：fresh 新增，old 保持耗尽
	ledgerData, err := os.ReadFile(filepath.Join(dataDir, "pi.csv"))
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if !strings.Contains(string(ledgerData), "fresh@bu.edu,2024-03,1000,100,0") {
		t.Errorf("ledger should record the new PI, got:\n%s", ledgerData)
	}
}

func TestProcessRunMissingLedgerFatal(t *testing.T) {
	svc, runRepo, dataDir := setupProcessTest(t)
	if err := os.Remove(filepath.Join(dataDir, "pi.csv")); err != nil {
		t.Fatalf("remove ledger: %v", err)
	}

	content := processTestHeader + "\n2024-03,proj,1,a@bu.edu,,,,,1,CPU,1,1\n"
	source := filepath.Join(dataDir, "2024-03.csv")
	if err := os.WriteFile(source, []byte(content), 0644); err != nil {
		t.Fatalf("seed source csv: %v", err)
	}

	run, err := svc.Run(&model.ProcessRunRequest{InvoiceMonth: "2024-03", CSVFiles: []string{source}})
	if !errors.Is(err, repository.ErrLedgerFileNotFound) {
		t.Fatalf("expected ErrLedgerFileNotFound, got %v", err)
	}
	if run.Status != model.RunStatusFailed {
		t.Errorf("failed run should be recorded as failed, got %s", run.Status)
	}
	if len(runRepo.runs) != 1 {
		t.Errorf("failed run should still be recorded")
	}

	// 失败批次不写任何报表
	if _, err := os.Stat(filepath.Join(config.Get().OutputDir, "2024-03", "2024-03 NERC.csv")); !os.IsNotExist(err) {
		t.Error("failed run must not write reports")
	}
}

func TestProcessRunInvalidMonth(t *testing.T) {
	svc, _, _ := setupProcessTest(t)

	_, err := svc.Run(&model.ProcessRunRequest{InvoiceMonth: "March 2024", CSVFiles: []string{"x.csv"}})
	if err == nil {
		t.Fatal("expected error for malformed invoice month")
	}
}
