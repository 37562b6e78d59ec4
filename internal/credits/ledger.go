package credits

import (
	"fmt"

	"invoicemanager/internal/model"
)

// Ledger 按 PI 精确匹配（区分大小写）的信用台账，保留插入顺序，
// 持久化时按该顺序写出，保证多次运行产出稳定。
type Ledger struct {
	entries map[string]*model.PILedgerEntry
	order   []string
}

func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]*model.PILedgerEntry),
	}
}

// Lookup 精确查找，未命中返回 nil
func (l *Ledger) Lookup(pi string) *model.PILedgerEntry {
	return l.entries[pi]
}

// Add 追加一条台账记录，同名 PI 直接覆盖引用但不重复排序
func (l *Ledger) Add(entry *model.PILedgerEntry) {
	if _, ok := l.entries[entry.PI]; !ok {
		l.order = append(l.order, entry.PI)
	}
	l.entries[entry.PI] = entry
}

func (l *Ledger) Len() int {
	return len(l.order)
}

// Entries 按插入顺序返回全部记录
func (l *Ledger) Entries() []*model.PILedgerEntry {
	result := make([]*model.PILedgerEntry, 0, len(l.order))
	for _, pi := range l.order {
		result = append(result, l.entries[pi])
	}
	return result
}

// CheckIntegrity 校验每条记录的消耗总额不超过初始额度
func (l *Ledger) CheckIntegrity() error {
	for _, pi := range l.order {
		e := l.entries[pi]
		used := e.FirstMonthUsed.Add(e.SecondMonthUsed)
		if used.GreaterThan(e.InitialCredits) {
			return fmt.Errorf("credits: ledger entry for PI %q used %s of %s initial credits",
				pi, used.String(), e.InitialCredits.String())
		}
	}
	return nil
}

// Age PI 相对首次开票月份的账龄分级
type Age int

const (
	AgeNew   Age = iota // 首月
	AgeAging            // 次月
	AgeOld              // 第三个月起，不再享受信用
)

// ClassifyEntry 根据台账记录和当前账期计算账龄分级。
// entry 为 nil 视为全新 PI；首次开票月份晚于当前账期返回
// LedgerIntegrityError。
func ClassifyEntry(entry *model.PILedgerEntry, current YearMonth) (Age, error) {
	if entry == nil {
		return AgeNew, nil
	}

	first, err := ParseYearMonth(entry.FirstInvoiceMonth)
	if err != nil {
		return 0, err
	}

	diff := MonthsBetween(first, current)
	switch {
	case diff < 0:
		return 0, &LedgerIntegrityError{
			PI:           entry.PI,
			FirstMonth:   entry.FirstInvoiceMonth,
			CurrentMonth: current.String(),
		}
	case diff == 0:
		return AgeNew, nil
	case diff == 1:
		return AgeAging, nil
	default:
		return AgeOld, nil
	}
}
