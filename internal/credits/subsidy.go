package credits

import (
	"regexp"

	"github.com/shopspring/decimal"

	"invoicemanager/internal/model"
)

// 项目名末尾的分配序号后缀，如 "project-2"
var allocationSuffix = regexp.MustCompile(`-\d+$`)

// NormalizeProjectName 去掉项目标识末尾的分配序号后缀，
// 同一逻辑项目的多条分配记录归并到同一名称下
func NormalizeProjectName(name string) string {
	return allocationSuffix.ReplaceAllString(name, "")
}

// SubsidizedProject 机构补贴汇总后的单个逻辑项目
type SubsidizedProject struct {
	Project string          `json:"project"`
	PI      string          `json:"pi"`
	Cost    decimal.Decimal `json:"cost"`
	Credit  decimal.Decimal `json:"credit"`
	Subsidy decimal.Decimal `json:"subsidy"`
	Balance decimal.Decimal `json:"balance"`
}

// ApplySubsidy 给指定机构的每个逻辑项目扣减固定补贴。
// 行先按归一化后的项目名分组求和，余额按
// max(0, cost - credit - subsidy) 计算：补贴永远不会产生负余额，
// 也不会转成额外信用。
func ApplySubsidy(rows []*model.UsageRecord, institution string, subsidy decimal.Decimal) []SubsidizedProject {
	order := make([]string, 0)
	groups := make(map[string]*SubsidizedProject)

	for _, row := range rows {
		if row.Institution != institution {
			continue
		}
		name := NormalizeProjectName(row.Project)
		g, ok := groups[name]
		if !ok {
			g = &SubsidizedProject{
				Project: name,
				PI:      row.PI,
				Cost:    decimal.Zero,
				Credit:  decimal.Zero,
				Subsidy: subsidy,
			}
			groups[name] = g
			order = append(order, name)
		}
		g.Cost = g.Cost.Add(row.Cost)
		if row.Credit != nil {
			g.Credit = g.Credit.Add(*row.Credit)
		}
	}

	result := make([]SubsidizedProject, 0, len(order))
	for _, name := range order {
		g := groups[name]
		balance := g.Cost.Sub(g.Credit).Sub(g.Subsidy)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		g.Balance = balance
		result = append(result, *g)
	}
	return result
}
