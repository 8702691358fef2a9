package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/AuctionLedger/internal/audit"
	"github.com/jmerrifield20/AuctionLedger/internal/txlog"
	"go.uber.org/zap"
)

// auditReporter is satisfied by *audit.Auditor.
type auditReporter interface {
	Last() *audit.Report
}

// LedgerHandler exposes read-only HTTP endpoints for the transaction log.
type LedgerHandler struct {
	log     txlog.Log
	auditor auditReporter // nil = no /ledger/audit route
	logger  *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(log txlog.Log, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{log: log, logger: logger}
}

// SetAuditor exposes the auditor's latest report at GET /ledger/audit.
func (h *LedgerHandler) SetAuditor(a auditReporter) {
	h.auditor = a
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/entries/:idx", h.GetEntry)
		if h.auditor != nil {
			l.GET("/audit", h.Audit)
		}
	}
}

// Overview handles GET /ledger: chain length and tip hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.log.Len(ctx)
	if err != nil {
		h.logger.Error("txlog Len", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	root, err := h.log.Root(ctx)
	if err != nil {
		h.logger.Error("txlog Root", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger root"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": count,
		"root":    root,
	})
}

// Verify handles GET /ledger/verify.
func (h *LedgerHandler) Verify(c *gin.Context) {
	if err := h.log.Verify(c.Request.Context()); err != nil {
		h.logger.Warn("ledger integrity check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// GetEntry handles GET /ledger/entries/:idx.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	entry, err := h.log.Get(c.Request.Context(), idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Audit handles GET /ledger/audit.
func (h *LedgerHandler) Audit(c *gin.Context) {
	rep := h.auditor.Last()
	if rep == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no audit has completed yet"})
		return
	}
	c.JSON(http.StatusOK, rep)
}
