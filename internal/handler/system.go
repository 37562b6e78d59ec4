package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"invoicemanager/internal/config"
	"invoicemanager/internal/database"
	"invoicemanager/internal/service"

	"github.com/gin-gonic/gin"
)

// backupFilenamePattern 备份文件名正则：invoicemanager.db.backup.YYYYMMDDHHmmss (14位时间戳)
var backupFilenamePattern = regexp.MustCompile(`^invoicemanager\.db\.backup\.\d{14}$`)

type SystemHandler struct {
	configService *service.SystemConfigService
}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{
		configService: service.NewSystemConfigService(),
	}
}

type s3CredentialsRequest struct {
	KeyID  string `json:"keyId" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// UpdateS3Credentials 保存 S3 访问凭据（密钥加密落库）
func (h *SystemHandler) UpdateS3Credentials(c *gin.Context) {
	var req s3CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误"})
		return
	}

	if err := h.configService.SetS3Credentials(req.KeyID, req.Secret); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存凭据失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "凭据已保存"})
}

// GetS3Credentials 查询 S3 凭据状态，不回传密钥本体
func (h *SystemHandler) GetS3Credentials(c *gin.Context) {
	keyID, secret, err := h.configService.GetS3Credentials()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取凭据失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"keyId":      keyID,
		"configured": secret != "",
	})
}

func (h *SystemHandler) UploadDatabase(c *gin.Context) {
	file, err := c.FormFile("database")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请选择数据库文件"})
		return
	}

	if filepath.Ext(file.Filename) != ".db" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只支持 .db 文件"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer src.Close()

	dbPath := config.Get().DBPath
	walPath := dbPath + "-wal"
	shmPath := dbPath + "-shm"
	backupPath := dbPath + ".backup." + time.Now().Format("20060102150405")

	// 备份当前数据库
	if _, err := os.Stat(dbPath); err == nil {
		if err := os.Rename(dbPath, backupPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "备份现有数据库失败"})
			return
		}
	}

	// 删除 WAL 和 SHM 文件
	os.Remove(walPath)
	os.Remove(shmPath)

	dst, err := os.Create(dbPath)
	if err != nil {
		os.Rename(backupPath, dbPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建数据库文件失败"})
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dbPath)
		os.Rename(backupPath, dbPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存数据库文件失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "数据库上传成功，请重启服务使更改生效",
		"backupFile": filepath.Base(backupPath),
	})
}

func (h *SystemHandler) DownloadDatabase(c *gin.Context) {
	dbPath := config.Get().DBPath

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "数据库文件不存在"})
		return
	}

	// 执行 checkpoint 确保所有 WAL 数据写入主数据库文件
	db := database.GetDB()
	if db != nil {
		_, _ = db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}

	filename := "invoicemanager_" + time.Now().Format("20060102150405") + ".db"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/octet-stream")
	c.File(dbPath)
}

func (h *SystemHandler) ListBackups(c *gin.Context) {
	files, err := filepath.Glob(config.Get().DBPath + ".backup.*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取备份列表失败"})
		return
	}

	backups := make([]gin.H, 0)
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		backups = append(backups, gin.H{
			"filename": filepath.Base(f),
			"size":     info.Size(),
			"modTime":  info.ModTime(),
		})
	}

	c.JSON(http.StatusOK, backups)
}

func (h *SystemHandler) RestoreBackup(c *gin.Context) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	// 严格校验文件名格式，防止路径穿越
	if !backupFilenamePattern.MatchString(req.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的备份文件名"})
		return
	}

	dataDir := filepath.Dir(config.Get().DBPath)
	backupPath := filepath.Clean(filepath.Join(dataDir, req.Filename))
	// 二次验证路径仍在数据目录内
	absBackupPath, _ := filepath.Abs(backupPath)
	absDataDir, _ := filepath.Abs(dataDir)
	if !strings.HasPrefix(absBackupPath, absDataDir+string(filepath.Separator)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的备份路径"})
		return
	}

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "备份文件不存在"})
		return
	}

	dbPath := config.Get().DBPath
	walPath := dbPath + "-wal"
	shmPath := dbPath + "-shm"
	currentBackup := dbPath + ".backup." + time.Now().Format("20060102150405")

	// 备份当前数据库
	if _, err := os.Stat(dbPath); err == nil {
		if err := os.Rename(dbPath, currentBackup); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "备份当前数据库失败"})
			return
		}
	}

	// 删除 WAL 和 SHM 文件（关键！避免旧的 WAL 覆盖还原的数据）
	os.Remove(walPath)
	os.Remove(shmPath)

	src, err := os.Open(backupPath)
	if err != nil {
		os.Rename(currentBackup, dbPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取备份文件失败"})
		return
	}
	defer src.Close()

	dst, err := os.Create(dbPath)
	if err != nil {
		os.Rename(currentBackup, dbPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建数据库文件失败"})
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dbPath)
		os.Rename(currentBackup, dbPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "恢复数据库失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "数据库恢复成功，请重启服务使更改生效"})
}

func (h *SystemHandler) DeleteBackup(c *gin.Context) {
	filename := c.Param("filename")

	if !backupFilenamePattern.MatchString(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的备份文件名"})
		return
	}

	dataDir := filepath.Dir(config.Get().DBPath)
	backupPath := filepath.Clean(filepath.Join(dataDir, filename))
	absBackupPath, _ := filepath.Abs(backupPath)
	absDataDir, _ := filepath.Abs(dataDir)
	if !strings.HasPrefix(absBackupPath, absDataDir+string(filepath.Separator)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的备份路径"})
		return
	}

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "备份文件不存在"})
		return
	}

	if err := os.Remove(backupPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除备份失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "备份已删除"})
}
