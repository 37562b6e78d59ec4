package service

import (
	"invoicemanager/internal/config"
	"invoicemanager/internal/crypto"
	"invoicemanager/internal/repository"
)

const (
	s3KeyIDKey  = "s3_key_id"
	s3SecretKey = "s3_app_key"
)

// SystemConfigService 管理持久化的系统配置。
// S3 密钥落库前用 AES-GCM 加密，没配加密密钥时明文存储。
type SystemConfigService struct {
	repo *repository.SystemConfigRepository
}

func NewSystemConfigService() *SystemConfigService {
	return &SystemConfigService{
		repo: repository.NewSystemConfigRepository(),
	}
}

// SetS3Credentials 保存 S3 访问凭据
func (s *SystemConfigService) SetS3Credentials(keyID, secret string) error {
	if err := s.repo.Set(s3KeyIDKey, keyID); err != nil {
		return err
	}

	cfg := config.Get()
	stored := secret
	if cfg.EncryptionKey != "" {
		encrypted, err := crypto.Encrypt([]byte(secret), []byte(cfg.EncryptionKey))
		if err != nil {
			return err
		}
		stored = encrypted
	}
	return s.repo.Set(s3SecretKey, stored)
}

// GetS3Credentials 读取 S3 访问凭据。数据库中没有时回退到环境变量配置。
func (s *SystemConfigService) GetS3Credentials() (keyID, secret string, err error) {
	cfg := config.Get()

	keyID, err = s.repo.Get(s3KeyIDKey)
	if err != nil {
		return "", "", err
	}
	if keyID == "" {
		return cfg.S3KeyID, cfg.S3Secret, nil
	}

	stored, err := s.repo.Get(s3SecretKey)
	if err != nil {
		return "", "", err
	}
	if cfg.EncryptionKey != "" && crypto.IsEncrypted(stored) {
		plain, err := crypto.Decrypt(stored, []byte(cfg.EncryptionKey))
		if err != nil {
			return "", "", err
		}
		return keyID, string(plain), nil
	}
	return keyID, stored, nil
}
