package handler

import (
	"errors"
	"net/http"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
	"invoicemanager/internal/service"

	"github.com/gin-gonic/gin"
)

type NonbillableHandler struct {
	nonbillableService *service.NonbillableService
}

func NewNonbillableHandler() *NonbillableHandler {
	return &NonbillableHandler{
		nonbillableService: service.NewNonbillableService(),
	}
}

type nonbillableEntryRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *NonbillableHandler) ListPIs(c *gin.Context) {
	pis, err := h.nonbillableService.ListPIs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取免计费 PI 名单失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pis": pis})
}

func (h *NonbillableHandler) AddPI(c *gin.Context) {
	var req nonbillableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误"})
		return
	}
	if err := h.nonbillableService.AddPI(req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "添加失败"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "已添加"})
}

func (h *NonbillableHandler) RemovePI(c *gin.Context) {
	if err := h.nonbillableService.RemovePI(c.Param("pi")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

func (h *NonbillableHandler) ListProjects(c *gin.Context) {
	projects, err := h.nonbillableService.ListProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取免计费项目名单失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *NonbillableHandler) AddProject(c *gin.Context) {
	var req nonbillableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误"})
		return
	}
	if err := h.nonbillableService.AddProject(req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "添加失败"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "已添加"})
}

func (h *NonbillableHandler) RemoveProject(c *gin.Context) {
	if err := h.nonbillableService.RemoveProject(c.Param("project")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

func (h *NonbillableHandler) ListTimedProjects(c *gin.Context) {
	projects, err := h.nonbillableService.ListTimedProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取定时项目名单失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"timedProjects": projects})
}

type timedProjectRequest struct {
	Project    string `json:"project" binding:"required"`
	StartMonth string `json:"startMonth" binding:"required"`
	EndMonth   string `json:"endMonth" binding:"required"`
}

func (h *NonbillableHandler) AddTimedProject(c *gin.Context) {
	var req timedProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误"})
		return
	}

	tp := &model.TimedProject{
		Project:    req.Project,
		StartMonth: req.StartMonth,
		EndMonth:   req.EndMonth,
	}
	if err := h.nonbillableService.AddTimedProject(tp); err != nil {
		var dateErr *credits.InvalidDateError
		if errors.As(err, &dateErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "添加失败"})
		return
	}
	c.JSON(http.StatusCreated, tp)
}

func (h *NonbillableHandler) RemoveTimedProject(c *gin.Context) {
	if err := h.nonbillableService.RemoveTimedProject(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}
