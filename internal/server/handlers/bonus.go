package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/service/bonus"
)

// BonusHandler serves bonus previews, rules and payments.
type BonusHandler struct {
	svc    *bonus.Service
	logger *zap.Logger
}

// NewBonusHandler constructs the bonus HTTP adapter.
func NewBonusHandler(svc *bonus.Service, logger *zap.Logger) *BonusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BonusHandler{svc: svc, logger: logger.Named("handlers.bonus")}
}

type bonusRequest struct {
	periodRequest
	Rule   bonus.RuleSpec `json:"rule"`
	RuleID string         `json:"ruleId"`
	Reason string         `json:"reason"`
}

// Preview computes the bonus of every farmer with milk in the period.
func (h *BonusHandler) Preview(c *gin.Context) {
	var req bonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	from, to, err := req.dates()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	rows, err := h.svc.Preview(c.Request.Context(), from, to, req.Rule)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Apply records the computed bonuses as payments.
func (h *BonusHandler) Apply(c *gin.Context) {
	var req bonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	from, to, err := req.dates()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	payments, err := h.svc.Apply(c.Request.Context(), bonus.ApplyInput{
		PeriodFrom: from,
		PeriodTo:   to,
		Rule:       req.Rule,
		RuleID:     req.RuleID,
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payments)
}

// SaveRule stores a named rule.
func (h *BonusHandler) SaveRule(c *gin.Context) {
	var in bonus.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	rule, err := h.svc.SaveRule(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRules returns the stored rules.
func (h *BonusHandler) ListRules(c *gin.Context) {
	rules, err := h.svc.ListRules(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// Payments lists accepted bonus payments filtered by farmerId, from and to.
func (h *BonusHandler) Payments(c *gin.Context) {
	from, to, err := dateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	payments, err := h.svc.Payments(c.Request.Context(), repository.BonusPaymentFilter{
		FarmerID: c.Query("farmerId"),
		From:     from,
		To:       to,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
