package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
	"invoicemanager/internal/repository"
	"invoicemanager/internal/service"

	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	processService *service.ProcessService
	runRepo        repository.RunRepositoryInterface
}

func NewRunHandler(processService *service.ProcessService) *RunHandler {
	return &RunHandler{
		processService: processService,
		runRepo:        repository.NewRunRepository(),
	}
}

// Process 触发一次月度账单处理
func (h *RunHandler) Process(c *gin.Context) {
	var req model.ProcessRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	run, err := h.processService.Run(&req)
	if err != nil {
		status := http.StatusInternalServerError

		var dateErr *credits.InvalidDateError
		var integrityErr *credits.LedgerIntegrityError
		switch {
		case errors.As(err, &dateErr):
			status = http.StatusBadRequest
		case errors.As(err, &integrityErr), errors.Is(err, repository.ErrLedgerFileNotFound):
			// 台账问题需要人工介入，用 409 和服务器错误区分开
			status = http.StatusConflict
		}

		c.JSON(status, gin.H{"error": err.Error(), "run": run})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if month := c.Query("month"); month != "" {
		runs, err := h.runRepo.ListByMonth(month)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取处理历史失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
		return
	}

	runs, err := h.runRepo.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取处理历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.runRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取处理记录失败"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "处理记录不存在"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// DownloadReport 下载一次处理产出的报表文件
func (h *RunHandler) DownloadReport(c *gin.Context) {
	run, err := h.runRepo.GetByID(c.Param("id"))
	if err != nil || run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "处理记录不存在"})
		return
	}

	name := c.Param("name")
	// 防止路径穿越，报表都在 run 的输出目录平级
	if name != filepath.Base(name) || name == "." || name == ".." {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法的文件名"})
		return
	}

	c.FileAttachment(filepath.Join(run.OutputDir, name), name)
}
