package credits

import (
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"invoicemanager/internal/model"
)

// NewPICreditCode 新人信用在账单上的抵扣代码
const NewPICreditCode = "0002"

// Config 抵扣引擎的一次运行参数
type Config struct {
	// InvoiceMonth 当前账期，YYYY-MM
	InvoiceMonth string
	// DefaultCredit 当月没有既有台账记录可参照时的新人信用额度
	DefaultCredit decimal.Decimal
	// ExcludedSUTypes 不参与信用抵扣的 SU 类型（GPU 专用机型）
	ExcludedSUTypes []string
	// EligibleInstitutions 合作机构门槛；nil 表示门槛关闭，
	// 非 nil 时机构不在集合内的 PI 一律按老 PI 处理
	EligibleInstitutions map[string]bool
}

// Summary 一次信用分发的汇总
type Summary struct {
	InvoiceMonth string
	CreditAmount decimal.Decimal
	PIs          int
	CreditedRows int
	TotalCredit  decimal.Decimal
}

// 单个 PI 的行内分发状态机：额度耗尽后剩余行只回填 Balance
type distributionState int

const (
	stateHasBudget distributionState = iota
	stateExhausted
)

// ApplyNewPICredits 对当期账单执行新人信用抵扣并更新台账。
//
// rows 按合并数据集的插入顺序处理：PI 按首次出现排序，同一 PI 的
// 项目按原始行序分配，额度耗尽后不再抵扣。引擎只做内存计算，
// 台账的加载与持久化由调用方负责；同一账期对同一台账重复调用
// 会重复累计消耗，调用方必须在每次运行前重新加载台账快照。
func ApplyNewPICredits(rows []*model.UsageRecord, ledger *Ledger, cfg Config) (*Summary, error) {
	current, err := ParseYearMonth(cfg.InvoiceMonth)
	if err != nil {
		return nil, err
	}

	creditAmount := creditAmountForMonth(ledger, current, cfg.DefaultCredit)
	log.Infof("credits: new PI credit set at %s for %s", creditAmount.String(), current.String())

	summary := &Summary{
		InvoiceMonth: current.String(),
		CreditAmount: creditAmount,
		TotalCredit:  decimal.Zero,
	}

	excluded := make(map[string]bool, len(cfg.ExcludedSUTypes))
	for _, t := range cfg.ExcludedSUTypes {
		excluded[t] = true
	}

	// PI 按数据集中首次出现的顺序处理
	piOrder := make([]string, 0)
	piRows := make(map[string][]*model.UsageRecord)
	for _, row := range rows {
		if row.PI == "" || row.MissingPI {
			// 无 PI 的行不参与信用处理，只回填余额
			row.Balance = row.Cost
			continue
		}
		if _, ok := piRows[row.PI]; !ok {
			piOrder = append(piOrder, row.PI)
		}
		piRows[row.PI] = append(piRows[row.PI], row)
	}

	for _, pi := range piOrder {
		if err := distributeForPI(pi, piRows[pi], ledger, current, creditAmount, excluded, cfg.EligibleInstitutions, summary); err != nil {
			return nil, err
		}
	}

	summary.PIs = len(piOrder)
	return summary, nil
}

// distributeForPI 给单个 PI 的项目行按序分配信用
func distributeForPI(
	pi string,
	rows []*model.UsageRecord,
	ledger *Ledger,
	current YearMonth,
	creditAmount decimal.Decimal,
	excludedSUTypes map[string]bool,
	eligibleInstitutions map[string]bool,
	summary *Summary,
) error {
	entry := ledger.Lookup(pi)

	age, err := ClassifyEntry(entry, current)
	if err != nil {
		return err
	}

	eligible := true
	if eligibleInstitutions != nil && len(rows) > 0 {
		eligible = eligibleInstitutions[rows[0].Institution]
	}

	// 老 PI 或机构未合作：全额计费，不触碰台账
	if age == AgeOld || !eligible {
		for _, row := range rows {
			row.Balance = row.Cost
		}
		return nil
	}

	if entry == nil {
		entry = &model.PILedgerEntry{
			PI:                pi,
			FirstInvoiceMonth: current.String(),
			InitialCredits:    creditAmount,
			FirstMonthUsed:    decimal.Zero,
			SecondMonthUsed:   decimal.Zero,
		}
		ledger.Add(entry)
	}

	var budget decimal.Decimal
	switch age {
	case AgeNew:
		budget = entry.InitialCredits.Sub(entry.FirstMonthUsed)
	case AgeAging:
		budget = entry.InitialCredits.Sub(entry.FirstMonthUsed).Sub(entry.SecondMonthUsed)
	}
	if budget.IsNegative() {
		budget = decimal.Zero
	}

	state := stateHasBudget
	if budget.IsZero() {
		state = stateExhausted
	}

	applied := decimal.Zero
	for _, row := range rows {
		if state == stateExhausted || excludedSUTypes[row.SUType] {
			row.Balance = row.Cost
			continue
		}

		rowCredit := decimal.Min(row.Cost, budget)
		if rowCredit.IsPositive() {
			c := rowCredit
			row.Credit = &c
			row.CreditCode = NewPICreditCode
			row.Balance = row.Cost.Sub(rowCredit)
			budget = budget.Sub(rowCredit)
			applied = applied.Add(rowCredit)
			summary.CreditedRows++
		} else {
			// 零成本行参与排序但不消耗额度
			row.Balance = row.Cost
		}

		if budget.IsZero() {
			state = stateExhausted
		}
	}

	switch age {
	case AgeNew:
		entry.FirstMonthUsed = entry.FirstMonthUsed.Add(applied)
	case AgeAging:
		entry.SecondMonthUsed = entry.SecondMonthUsed.Add(applied)
	}
	summary.TotalCredit = summary.TotalCredit.Add(applied)

	log.Debugf("credits: PI %s age=%d applied=%s", pi, age, applied.String())
	return nil
}

// creditAmountForMonth 当月新人信用额度：优先沿用台账里当月已有
// 记录的初始额度，保证同一账期所有新 PI 拿到相同数额
func creditAmountForMonth(ledger *Ledger, current YearMonth, fallback decimal.Decimal) decimal.Decimal {
	for _, entry := range ledger.Entries() {
		if entry.FirstInvoiceMonth == current.String() && entry.InitialCredits.IsPositive() {
			return entry.InitialCredits
		}
	}
	return fallback
}
