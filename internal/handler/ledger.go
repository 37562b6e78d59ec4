package handler

import (
	"errors"
	"net/http"

	"invoicemanager/internal/repository"

	"github.com/gin-gonic/gin"
)

// LedgerHandler 只读浏览 PI 信用台账
type LedgerHandler struct {
	ledgerRepo repository.PILedgerRepositoryInterface
}

func NewLedgerHandler(ledgerRepo repository.PILedgerRepositoryInterface) *LedgerHandler {
	return &LedgerHandler{ledgerRepo: ledgerRepo}
}

func (h *LedgerHandler) List(c *gin.Context) {
	ledger, err := h.ledgerRepo.Load()
	if err != nil {
		if errors.Is(err, repository.ErrLedgerFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "台账文件不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": ledger.Entries()})
}

func (h *LedgerHandler) Get(c *gin.Context) {
	ledger, err := h.ledgerRepo.Load()
	if err != nil {
		if errors.Is(err, repository.ErrLedgerFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "台账文件不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entry := ledger.Lookup(c.Param("pi"))
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "该 PI 不在台账中"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
