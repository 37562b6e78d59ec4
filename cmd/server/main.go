package main

import (
	"os"

	"invoicemanager/internal/config"
	"invoicemanager/internal/database"
	"invoicemanager/internal/router"
	"invoicemanager/internal/service"
	"invoicemanager/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	gin.SetMode(gin.ReleaseMode)

	cfg := config.Load()

	if err := database.Init(cfg.DBPath); err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}
	defer database.Close()

	userService := service.NewUserService()
	if err := userService.EnsureAdmin(); err != nil {
		log.Warnf("管理员账户创建失败: %v", err)
	}

	// 对象存储可选，没配桶就只在本地出报表
	var store *storage.InvoiceStore
	if cfg.S3Bucket != "" {
		keyID, secret := cfg.S3KeyID, cfg.S3Secret
		if dbKeyID, dbSecret, err := service.NewSystemConfigService().GetS3Credentials(); err == nil && dbKeyID != "" {
			keyID, secret = dbKeyID, dbSecret
		}

		var err error
		store, err = storage.NewInvoiceStore(cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, keyID, secret)
		if err != nil {
			log.Fatalf("对象存储初始化失败: %v", err)
		}
	}

	processService := service.NewProcessService(store)
	r := router.Setup(processService)

	port := cfg.ServerPort
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}

	log.Infof("服务器启动在 http://0.0.0.0:%s", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}
