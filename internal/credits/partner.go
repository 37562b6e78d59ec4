package credits

import (
	log "github.com/sirupsen/logrus"

	"invoicemanager/internal/model"
)

// EligibleInstitutions 计算当前账期已生效合作关系的机构集合。
// 合作开始月份在当前账期当月或更早的机构视为生效；
// 没有记录开始月份的机构一律排除。
func EligibleInstitutions(partners []model.Partner, current YearMonth) (map[string]bool, error) {
	eligible := make(map[string]bool, len(partners))
	for _, p := range partners {
		if p.PartnershipStart == "" {
			log.Debugf("credits: partner %s has no partnership start, excluded", p.DisplayName)
			continue
		}
		start, err := ParseYearMonth(p.PartnershipStart)
		if err != nil {
			return nil, err
		}
		if MonthsBetween(start, current) >= 0 {
			eligible[p.DisplayName] = true
		}
	}
	return eligible, nil
}
