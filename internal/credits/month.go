package credits

import (
	"fmt"
	"strconv"
	"strings"
)

// InvalidDateError 月份字符串不是合法的 YYYY-MM
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("credits: invalid invoice month %q, want YYYY-MM", e.Value)
}

// LedgerIntegrityError 台账记录的首次开票月份晚于当前账期，
// 说明台账已损坏，整个处理批次必须终止，不允许自动修补。
type LedgerIntegrityError struct {
	PI           string
	FirstMonth   string
	CurrentMonth string
}

func (e *LedgerIntegrityError) Error() string {
	return fmt.Sprintf("credits: PI %q first invoice month %s is after current invoice month %s",
		e.PI, e.FirstMonth, e.CurrentMonth)
}

// YearMonth 账期月份
type YearMonth struct {
	Year  int
	Month int
}

// ParseYearMonth 解析 YYYY-MM，月份必须在 1-12 之间
func ParseYearMonth(s string) (YearMonth, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return YearMonth{}, &InvalidDateError{Value: s}
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return YearMonth{}, &InvalidDateError{Value: s}
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return YearMonth{}, &InvalidDateError{Value: s}
	}

	return YearMonth{Year: year, Month: month}, nil
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

func (m YearMonth) index() int {
	return m.Year*12 + m.Month - 1
}

// MonthsBetween 两个账期之间的整月差，current 早于 first 时为负
func MonthsBetween(first, current YearMonth) int {
	return current.index() - first.index()
}
