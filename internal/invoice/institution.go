package invoice

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"invoicemanager/internal/model"
)

//go:embed institute_map.json
var defaultInstituteMap []byte

// LoadInstituteMap 加载邮箱域名到机构名称的映射。
// path 为空时使用内置映射表。
func LoadInstituteMap(path string) (map[string]string, error) {
	data := defaultInstituteMap
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("invoice: read institute map %s: %w", path, err)
		}
	}

	m := make(map[string]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invoice: parse institute map: %w", err)
	}
	return m, nil
}

// InstitutionFromPI 由 PI 用户名的邮箱域名推断机构名称。
// 先做精确匹配，再逐级去掉子域名重试（a@dept.bu.edu 也能落到 bu.edu），
// 全部未命中返回空串。
func InstitutionFromPI(instituteMap map[string]string, pi string) string {
	parts := strings.Split(pi, "@")
	domain := parts[len(parts)-1]

	for domain != "" {
		if name, ok := instituteMap[domain]; ok {
			return name
		}
		dot := strings.Index(domain, ".")
		if dot < 0 {
			break
		}
		domain = domain[dot+1:]
	}

	log.Warnf("invoice: PI name %s does not match any institution", pi)
	return ""
}

// AddInstitutions 给每一行补充机构名称，PI 缺失的行只告警
func AddInstitutions(records []*model.UsageRecord, instituteMap map[string]string) {
	for _, r := range records {
		if r.PI == "" {
			log.Warnf("invoice: project %s has no PI", r.Project)
			continue
		}
		r.Institution = InstitutionFromPI(instituteMap, r.PI)
	}
}
