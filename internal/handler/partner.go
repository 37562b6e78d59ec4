package handler

import (
	"errors"
	"net/http"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
	"invoicemanager/internal/repository"
	"invoicemanager/internal/service"

	"github.com/gin-gonic/gin"
)

type PartnerHandler struct {
	partnerService *service.PartnerService
}

func NewPartnerHandler() *PartnerHandler {
	return &PartnerHandler{
		partnerService: service.NewPartnerService(),
	}
}

func (h *PartnerHandler) List(c *gin.Context) {
	partners, err := h.partnerService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取合作机构列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": partners})
}

func (h *PartnerHandler) Create(c *gin.Context) {
	var req model.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	partner, err := h.partnerService.Create(&req)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "创建合作机构失败"

		var dateErr *credits.InvalidDateError
		switch {
		case errors.Is(err, service.ErrPartnerExists):
			status = http.StatusConflict
			msg = err.Error()
		case errors.As(err, &dateErr):
			status = http.StatusBadRequest
			msg = err.Error()
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, partner)
}

func (h *PartnerHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req model.UpdatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误"})
		return
	}

	partner, err := h.partnerService.Update(id, &req)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "更新合作机构失败"

		var dateErr *credits.InvalidDateError
		switch {
		case errors.Is(err, repository.ErrPartnerNotFound):
			status = http.StatusNotFound
			msg = err.Error()
		case errors.As(err, &dateErr):
			status = http.StatusBadRequest
			msg = err.Error()
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, partner)
}

func (h *PartnerHandler) Delete(c *gin.Context) {
	if err := h.partnerService.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除合作机构失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}
