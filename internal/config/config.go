package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	AdminUsername string
	AdminPassword string
	ServerPort    string
	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string

	CORSAllowedOrigins string
	RateLimitAuthRPS   float64

	// EncryptionKey 加密存储在数据库中的 S3 凭据，须为 16/24/32 字节
	EncryptionKey string

	// 数据目录与台账
	DataDir      string
	DBPath       string
	LedgerPath   string
	InstituteMap string
	OutputDir    string

	// 新人信用
	DefaultCredit   decimal.Decimal
	ExcludedSUTypes []string
	PartnerGate     bool

	// 机构补贴
	SubsidyInstitution string
	SubsidyAmount      decimal.Decimal

	// S3 兼容对象存储
	S3Endpoint string
	S3Region   string
	S3Bucket   string
	S3KeyID    string
	S3Secret   string
}

var cfg *Config

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "data")
	cfg = &Config{
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		ServerPort:    getEnv("SERVER_PORT", "16823"),
		JWTSecret:     getEnv("JWT_SECRET", "invoice-manager-default-secret-change-in-production"),
		JWTIssuer:     getEnv("JWT_ISSUER", "invoicemanager"),
		JWTAudience:   getEnv("JWT_AUDIENCE", "invoicemanager-admin"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitAuthRPS:   getFloat("RATE_LIMIT_AUTH_RPS", "5"),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		DataDir:      dataDir,
		DBPath:       getEnv("DB_PATH", dataDir+"/invoicemanager.db"),
		LedgerPath:   getEnv("PI_LEDGER_PATH", dataDir+"/pi.csv"),
		InstituteMap: getEnv("INSTITUTE_MAP_PATH", ""),
		OutputDir:    getEnv("OUTPUT_DIR", dataDir+"/invoices"),

		DefaultCredit:   getDecimal("NEW_PI_CREDIT_AMOUNT", "1000"),
		ExcludedSUTypes: getList("EXCLUDED_SU_TYPES", "OpenShift GPUA100SXM4,OpenStack GPUA100SXM4"),
		PartnerGate:     getBool("PARTNER_GATE_ENABLED", "false"),

		SubsidyInstitution: getEnv("SUBSIDY_INSTITUTION", "Boston University"),
		SubsidyAmount:      getDecimal("SUBSIDY_AMOUNT", "100"),

		S3Endpoint: getEnv("S3_ENDPOINT_URL", ""),
		S3Region:   getEnv("S3_REGION", "us-east-1"),
		S3Bucket:   getEnv("S3_BUCKET_NAME", ""),
		S3KeyID:    getEnv("S3_KEY_ID", ""),
		S3Secret:   getEnv("S3_APP_KEY", ""),
	}
	return cfg
}

func Get() *Config {
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key, defaultValue string) bool {
	v, err := strconv.ParseBool(getEnv(key, defaultValue))
	if err != nil {
		return false
	}
	return v
}

func getFloat(key, defaultValue string) float64 {
	v, err := strconv.ParseFloat(getEnv(key, defaultValue), 64)
	if err != nil {
		v, _ = strconv.ParseFloat(defaultValue, 64)
	}
	return v
}

func getDecimal(key, defaultValue string) decimal.Decimal {
	v, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.RequireFromString(defaultValue)
	}
	return v
}

func getList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
