package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/model"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/service"
	"github.com/jmerrifield20/AuctionLedger/internal/identity"
	"github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"
	"go.uber.org/zap"
)

// CommodityResponse is the JSON view of a commodity.
type CommodityResponse struct {
	Key string `json:"key"`
	model.Record
}

func toResponse(c *model.Commodity) CommodityResponse {
	return CommodityResponse{Key: c.Key(), Record: c.Record()}
}

// CommodityHandler handles HTTP requests for commodity transactions.
type CommodityHandler struct {
	svc    *service.CommodityService
	tokens *identity.TokenIssuer // nil = trust identity headers
	logger *zap.Logger
}

// NewCommodityHandler creates a new CommodityHandler.
// tokens may be nil to accept X-Client-ID / X-MSP-ID headers instead of
// Bearer tokens (development mode).
func NewCommodityHandler(svc *service.CommodityService, tokens *identity.TokenIssuer, logger *zap.Logger) *CommodityHandler {
	return &CommodityHandler{svc: svc, tokens: tokens, logger: logger}
}

func (h *CommodityHandler) requireCaller() gin.HandlerFunc {
	if h.tokens == nil {
		return identity.HeaderCaller()
	}
	return identity.RequireCaller(h.tokens)
}

// Register mounts the commodity routes on the given router group.
func (h *CommodityHandler) Register(rg *gin.RouterGroup) {
	cm := rg.Group("/commodities")
	{
		cm.POST("", h.requireCaller(), h.Issue)
		cm.GET("", h.List)
		cm.GET("/:issuer/:item", h.Get)
		cm.GET("/:issuer/:item/history", h.History)
		cm.POST("/:issuer/:item/auction", h.requireCaller(), h.Auction)
		cm.POST("/:issuer/:item/buy", h.requireCaller(), h.Buy)
		cm.POST("/:issuer/:item/deliver", h.requireCaller(), h.Deliver)
	}
}

// callerFromCtx writes a 401 and returns false when the request carries no identity.
func callerFromCtx(c *gin.Context) (identity.Caller, bool) {
	caller, ok := identity.CallerFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "caller identity required (Bearer token or " + identity.HeaderClientID + "/" + identity.HeaderMSPID + " headers)",
		})
	}
	return caller, ok
}

// Issue handles POST /commodities.
func (h *CommodityHandler) Issue(c *gin.Context) {
	caller, ok := callerFromCtx(c)
	if !ok {
		return
	}
	var req model.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cm, err := h.svc.Issue(c.Request.Context(), caller, &req)
	if err != nil {
		h.writeError(c, "issue", err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(cm))
}

// List handles GET /commodities?issuer=.
func (h *CommodityHandler) List(c *gin.Context) {
	issuer := c.Query("issuer")
	if issuer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "issuer query parameter is required"})
		return
	}

	list, err := h.svc.ListByIssuer(c.Request.Context(), issuer)
	if err != nil {
		h.writeError(c, "list", err)
		return
	}
	out := make([]CommodityResponse, 0, len(list))
	for _, cm := range list {
		out = append(out, toResponse(cm))
	}
	c.JSON(http.StatusOK, gin.H{"commodities": out, "count": len(out)})
}

// Get handles GET /commodities/:issuer/:item.
func (h *CommodityHandler) Get(c *gin.Context) {
	cm, err := h.svc.Get(c.Request.Context(), c.Param("issuer"), c.Param("item"))
	if err != nil {
		h.writeError(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, toResponse(cm))
}

// History handles GET /commodities/:issuer/:item/history.
func (h *CommodityHandler) History(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), c.Param("issuer"), c.Param("item"))
	if err != nil {
		h.writeError(c, "history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Auction handles POST /commodities/:issuer/:item/auction.
func (h *CommodityHandler) Auction(c *gin.Context) {
	caller, ok := callerFromCtx(c)
	if !ok {
		return
	}
	cm, err := h.svc.Auction(c.Request.Context(), caller, c.Param("issuer"), c.Param("item"))
	if err != nil {
		h.writeError(c, service.ActionAuction, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(cm))
}

// Buy handles POST /commodities/:issuer/:item/buy.
func (h *CommodityHandler) Buy(c *gin.Context) {
	caller, ok := callerFromCtx(c)
	if !ok {
		return
	}
	var req model.BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cm, err := h.svc.Buy(c.Request.Context(), caller, c.Param("issuer"), c.Param("item"), &req)
	if err != nil {
		h.writeError(c, service.ActionBuy, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(cm))
}

// Deliver handles POST /commodities/:issuer/:item/deliver. The body is optional.
func (h *CommodityHandler) Deliver(c *gin.Context) {
	caller, ok := callerFromCtx(c)
	if !ok {
		return
	}
	var req model.DeliverRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cm, err := h.svc.Deliver(c.Request.Context(), caller, c.Param("issuer"), c.Param("item"), &req)
	if err != nil {
		h.writeError(c, service.ActionDeliver, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(cm))
}

// writeError maps service and ledger-state errors to HTTP responses.
func (h *CommodityHandler) writeError(c *gin.Context, op string, err error) {
	var (
		valErr   *ledgerstate.ValidationError
		transErr *ledgerstate.IllegalTransitionError
	)
	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "commodity not found"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidState),
		errors.As(err, &transErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("commodity "+op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
