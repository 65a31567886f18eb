package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/service/deductions"
)

// DeductionHandler serves the deduction ledger.
type DeductionHandler struct {
	ledger *deductions.Ledger
	logger *zap.Logger
}

// NewDeductionHandler constructs the deduction HTTP adapter.
func NewDeductionHandler(ledger *deductions.Ledger, logger *zap.Logger) *DeductionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeductionHandler{ledger: ledger, logger: logger.Named("handlers.deductions")}
}

type addDeductionRequest struct {
	FarmerID string                   `json:"farmerId"`
	Date     string                   `json:"date"`
	Category models.DeductionCategory `json:"category"`
	Amount   decimal.Decimal          `json:"amount"`
	Note     string                   `json:"note"`
}

// Add opens a deduction and reconciles it against income to date.
func (h *DeductionHandler) Add(c *gin.Context) {
	var req addDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	date, err := requiredDate("date", req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	d, err := h.ledger.Add(c.Request.Context(), deductions.AddInput{
		FarmerID: req.FarmerID,
		Date:     date,
		Category: req.Category,
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// List returns deductions filtered by farmerId, status, from and to.
func (h *DeductionHandler) List(c *gin.Context) {
	from, to, err := dateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	list, err := h.ledger.List(c.Request.Context(), repository.DeductionFilter{
		FarmerID: c.Query("farmerId"),
		Status:   models.DeductionStatus(c.Query("status")),
		From:     from,
		To:       to,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Reconcile sweeps every deduction that has not been reconciled yet.
func (h *DeductionHandler) Reconcile(c *gin.Context) {
	n, err := h.ledger.ReconcilePending(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciled": n})
}

// adjustRequest carries exactly one of its amounts. Status is accepted for
// compatibility and ignored since it is derived from the balance.
type adjustRequest struct {
	AmountToApply   *decimal.Decimal `json:"amountToApply"`
	RemainingAmount *decimal.Decimal `json:"remainingAmount"`
	Status          string           `json:"status"`
}

// Adjust settles part of a deduction.
func (h *DeductionHandler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	var (
		d   models.Deduction
		err error
	)
	switch {
	case req.AmountToApply != nil && req.RemainingAmount != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "send either amountToApply or remainingAmount", "code": models.CodeInvalidAdjustment})
		return
	case req.AmountToApply != nil:
		d, err = h.ledger.Adjust(c.Request.Context(), c.Param("id"), *req.AmountToApply)
	case req.RemainingAmount != nil:
		d, err = h.ledger.SetRemaining(c.Request.Context(), c.Param("id"), *req.RemainingAmount)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "amountToApply or remainingAmount is required", "code": models.CodeInvalidAdjustment})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Clear settles a deduction in full.
func (h *DeductionHandler) Clear(c *gin.Context) {
	d, err := h.ledger.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
