package invoice

import (
	log "github.com/sirupsen/logrus"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
)

// TimedProjectsActive 返回在当前账期内不计费的定时项目名单
func TimedProjectsActive(timed []model.TimedProject, current credits.YearMonth) ([]string, error) {
	var active []string
	for _, tp := range timed {
		start, err := credits.ParseYearMonth(tp.StartMonth)
		if err != nil {
			return nil, err
		}
		end, err := credits.ParseYearMonth(tp.EndMonth)
		if err != nil {
			return nil, err
		}
		if credits.MonthsBetween(start, current) >= 0 && credits.MonthsBetween(current, end) >= 0 {
			active = append(active, tp.Project)
		}
	}
	return active, nil
}

// MarkBillable 标记每一行是否计费：PI 在免计费名单、项目在免计费
// 名单或定时名单中的行不计费
func MarkBillable(records []*model.UsageRecord, nonbillablePIs, nonbillableProjects []string) {
	pis := make(map[string]bool, len(nonbillablePIs))
	for _, pi := range nonbillablePIs {
		pis[pi] = true
	}
	projects := make(map[string]bool, len(nonbillableProjects))
	for _, p := range nonbillableProjects {
		projects[p] = true
	}

	for _, r := range records {
		r.Billable = !pis[r.PI] && !projects[r.Project]
	}
}

// ValidatePIs 标记 PI 缺失的计费行并告警，返回缺失行数。
// 缺失行保留在数据集中但不参与信用处理。
func ValidatePIs(records []*model.UsageRecord) int {
	missing := 0
	for _, r := range records {
		if r.Billable && r.PI == "" {
			r.MissingPI = true
			missing++
			log.Warnf("invoice: billable project %s has empty PI field", r.Project)
		}
	}
	return missing
}

// Billable 过滤出计费行，保持原始行序。PI 缺失的计费行保留在
// 结果中，信用分发阶段会自行跳过它们。
func Billable(records []*model.UsageRecord) []*model.UsageRecord {
	var result []*model.UsageRecord
	for _, r := range records {
		if r.Billable {
			result = append(result, r)
		}
	}
	return result
}

// Nonbillable 过滤出免计费行
func Nonbillable(records []*model.UsageRecord) []*model.UsageRecord {
	var result []*model.UsageRecord
	for _, r := range records {
		if !r.Billable {
			result = append(result, r)
		}
	}
	return result
}
