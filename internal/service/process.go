package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"invoicemanager/internal/config"
	"invoicemanager/internal/credits"
	"invoicemanager/internal/invoice"
	"invoicemanager/internal/model"
	"invoicemanager/internal/repository"
	"invoicemanager/internal/storage"
)

// ProcessService 月度账单处理流水线：合并原始账单、补充机构信息、
// 拆分计费行、发放新人信用、计算机构补贴并导出全部派生报表。
// 任何致命错误都发生在写出第一份报表之前，失败的批次不落盘。
type ProcessService struct {
	ledgerRepo      repository.PILedgerRepositoryInterface
	partnerRepo     repository.PartnerRepositoryInterface
	nonbillableRepo repository.NonbillableRepositoryInterface
	runRepo         repository.RunRepositoryInterface
	store           *storage.InvoiceStore
}

func NewProcessService(store *storage.InvoiceStore) *ProcessService {
	cfg := config.Get()
	return &ProcessService{
		ledgerRepo:      repository.NewPILedgerRepository(cfg.LedgerPath),
		partnerRepo:     repository.NewPartnerRepository(),
		nonbillableRepo: repository.NewNonbillableRepository(),
		runRepo:         repository.NewRunRepository(),
		store:           store,
	}
}

// NewProcessServiceWithRepos 依赖注入构造（用于测试）
func NewProcessServiceWithRepos(
	ledgerRepo repository.PILedgerRepositoryInterface,
	partnerRepo repository.PartnerRepositoryInterface,
	nonbillableRepo repository.NonbillableRepositoryInterface,
	runRepo repository.RunRepositoryInterface,
	store *storage.InvoiceStore,
) *ProcessService {
	return &ProcessService{
		ledgerRepo:      ledgerRepo,
		partnerRepo:     partnerRepo,
		nonbillableRepo: nonbillableRepo,
		runRepo:         runRepo,
		store:           store,
	}
}

// Run 执行一次完整的账单处理。返回的 InvoiceRun 无论成功失败
// 都已写入处理历史。
func (s *ProcessService) Run(req *model.ProcessRunRequest) (*model.InvoiceRun, error) {
	run, err := s.run(req)
	if err != nil {
		run = &model.InvoiceRun{
			InvoiceMonth:   req.InvoiceMonth,
			Status:         model.RunStatusFailed,
			FailureMessage: err.Error(),
		}
	}
	if s.runRepo != nil {
		if createErr := s.runRepo.Create(run); createErr != nil {
			log.Errorf("process: record run history: %v", createErr)
		}
	}
	return run, err
}

func (s *ProcessService) run(req *model.ProcessRunRequest) (*model.InvoiceRun, error) {
	cfg := config.Get()

	current, err := credits.ParseYearMonth(req.InvoiceMonth)
	if err != nil {
		return nil, err
	}

	outputDir := filepath.Join(cfg.OutputDir, req.InvoiceMonth)

	csvFiles := req.CSVFiles
	if req.FetchFromS3 {
		if s.store == nil {
			return nil, fmt.Errorf("process: S3 fetch requested but object storage is not configured")
		}
		fetched, err := s.store.FetchSourceInvoices(req.InvoiceMonth, filepath.Join(outputDir, "sources"))
		if err != nil {
			return nil, err
		}
		csvFiles = append(csvFiles, fetched...)
	}
	if len(csvFiles) == 0 {
		return nil, fmt.Errorf("process: no invoice CSV files for %s", req.InvoiceMonth)
	}

	records, err := invoice.Merge(csvFiles)
	if err != nil {
		return nil, err
	}
	log.Infof("process: merged %d rows from %d files for %s", len(records), len(csvFiles), req.InvoiceMonth)

	instituteMap, err := invoice.LoadInstituteMap(cfg.InstituteMap)
	if err != nil {
		return nil, err
	}
	invoice.AddInstitutions(records, instituteMap)

	nonbillablePIs, err := s.nonbillableRepo.ListPIs()
	if err != nil {
		return nil, fmt.Errorf("process: load nonbillable PIs: %w", err)
	}
	nonbillableProjects, err := s.nonbillableRepo.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("process: load nonbillable projects: %w", err)
	}
	timed, err := s.nonbillableRepo.ListTimedProjects()
	if err != nil {
		return nil, fmt.Errorf("process: load timed projects: %w", err)
	}
	timedActive, err := invoice.TimedProjectsActive(timed, current)
	if err != nil {
		return nil, err
	}
	invoice.MarkBillable(records, nonbillablePIs, append(nonbillableProjects, timedActive...))

	missingPIs := invoice.ValidatePIs(records)

	// 台账缺失必须中止：没有历史就无法区分新老 PI
	ledger, err := s.ledgerRepo.Load()
	if err != nil {
		return nil, err
	}

	creditCfg := credits.Config{
		InvoiceMonth:    req.InvoiceMonth,
		DefaultCredit:   cfg.DefaultCredit,
		ExcludedSUTypes: cfg.ExcludedSUTypes,
	}
	if cfg.PartnerGate {
		partners, err := s.partnerRepo.List()
		if err != nil {
			return nil, fmt.Errorf("process: load partners: %w", err)
		}
		eligible, err := eligiblePartnerSet(partners, current)
		if err != nil {
			return nil, err
		}
		creditCfg.EligibleInstitutions = eligible
	}

	billable := invoice.Billable(records)
	summary, err := credits.ApplyNewPICredits(billable, ledger, creditCfg)
	if err != nil {
		return nil, err
	}
	log.Infof("process: credited %d rows across %d PIs, total %s", summary.CreditedRows, summary.PIs, summary.TotalCredit)

	subsidized := credits.ApplySubsidy(billable, cfg.SubsidyInstitution, cfg.SubsidyAmount)

	// 全部计算完成后才开始落盘
	reports, err := s.writeReports(outputDir, req.InvoiceMonth, records, billable, subsidized, cfg.SubsidyInstitution)
	if err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Save(ledger); err != nil {
		return nil, err
	}

	uploaded := false
	if req.UploadToS3 {
		if s.store == nil {
			return nil, fmt.Errorf("process: S3 upload requested but object storage is not configured")
		}
		for _, report := range reports {
			if err := s.store.UploadReport(req.InvoiceMonth, report); err != nil {
				return nil, err
			}
		}
		uploaded = true
	}

	if missingPIs > 0 {
		log.Warnf("process: %d rows have no PI and were excluded from credits", missingPIs)
	}

	totalCost, totalCredit, totalBalance := sumTotals(billable)
	return &model.InvoiceRun{
		InvoiceMonth: req.InvoiceMonth,
		Status:       model.RunStatusCompleted,
		SourceFiles:  len(csvFiles),
		TotalRows:    len(records),
		BillableRows: len(billable),
		CreditedRows: summary.CreditedRows,
		TotalCost:    totalCost.String(),
		TotalCredit:  totalCredit.String(),
		TotalBalance: totalBalance.String(),
		OutputDir:    outputDir,
		UploadedToS3: uploaded,
	}, nil
}

// writeReports 写出全部派生报表，返回可上传的文件清单
func (s *ProcessService) writeReports(
	outputDir, invoiceMonth string,
	records, billable []*model.UsageRecord,
	subsidized []credits.SubsidizedProject,
	subsidyInstitution string,
) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("process: create output dir: %w", err)
	}

	named := func(name string) string {
		return filepath.Join(outputDir, fmt.Sprintf("%s %s.csv", invoiceMonth, name))
	}
	var reports []string

	billablePath := named("NERC")
	if err := invoice.WriteCSV(billable, billablePath); err != nil {
		return nil, err
	}
	reports = append(reports, billablePath)

	nonbillablePath := named("Nonbillable")
	if err := invoice.WriteCSV(invoice.Nonbillable(records), nonbillablePath); err != nil {
		return nil, err
	}
	reports = append(reports, nonbillablePath)

	harvardPath := named("Harvard")
	harvard := invoice.FilterInstitutions(billable, "Harvard University")
	if err := invoice.WriteCSV(harvard, harvardPath); err != nil {
		return nil, err
	}
	reports = append(reports, harvardPath)

	totalPath := named("NERC Total")
	huBU := invoice.FilterInstitutions(billable, "Harvard University", "Boston University")
	if err := invoice.WriteCSV(huBU, totalPath); err != nil {
		return nil, err
	}
	reports = append(reports, totalPath)

	lenovoPath := named("Lenovo")
	if err := invoice.WriteLenovoCSV(invoice.LenovoReport(billable), lenovoPath); err != nil {
		return nil, err
	}
	reports = append(reports, lenovoPath)

	subsidyPath := named(subsidyInstitution + " Subsidy")
	if err := invoice.WriteSubsidyCSV(subsidized, subsidyPath); err != nil {
		return nil, err
	}
	reports = append(reports, subsidyPath)

	if err := invoice.ExportPerPI(billable, filepath.Join(outputDir, "PI Invoices"), invoiceMonth); err != nil {
		return nil, err
	}

	return reports, nil
}

func eligiblePartnerSet(partners []*model.Partner, current credits.YearMonth) (map[string]bool, error) {
	values := make([]model.Partner, len(partners))
	for i, p := range partners {
		values[i] = *p
	}
	return credits.EligibleInstitutions(values, current)
}

func sumTotals(rows []*model.UsageRecord) (cost, credit, balance decimal.Decimal) {
	for _, r := range rows {
		cost = cost.Add(r.Cost)
		if r.Credit != nil {
			credit = credit.Add(*r.Credit)
		}
		balance = balance.Add(r.Balance)
	}
	return cost, credit, balance
}
