package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/service/billing"
)

// BillHandler serves bill computation and lifecycle endpoints.
type BillHandler struct {
	gen    *billing.Generator
	logger *zap.Logger
}

// NewBillHandler constructs the bill HTTP adapter.
func NewBillHandler(gen *billing.Generator, logger *zap.Logger) *BillHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillHandler{gen: gen, logger: logger.Named("handlers.bills")}
}

// Preview computes a bill without storing it.
func (h *BillHandler) Preview(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	from, to, err := req.dates()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	preview, err := h.gen.Preview(c.Request.Context(), req.FarmerID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Generate stores the bill for one farmer.
func (h *BillHandler) Generate(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	from, to, err := req.dates()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	bill, err := h.gen.Generate(c.Request.Context(), req.FarmerID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

// GenerateAll bills every active farmer for the period.
func (h *BillHandler) GenerateAll(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	from, to, err := req.dates()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.gen.GenerateAll(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// List returns bills filtered by farmerId, month (YYYY-MM) and status.
func (h *BillHandler) List(c *gin.Context) {
	filter := repository.BillFilter{
		FarmerID: c.Query("farmerId"),
		Status:   models.BillStatus(c.Query("status")),
	}
	if filter.Status != "" && filter.Status != models.BillPending && filter.Status != models.BillPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be Pending or Paid", "code": models.CodeInvalidInput})
		return
	}
	if month := strings.TrimSpace(c.Query("month")); month != "" {
		m, err := models.ParseMonth(month)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		filter.Month = m
	}

	bills, err := h.gen.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

// Get returns one bill.
func (h *BillHandler) Get(c *gin.Context) {
	bill, err := h.gen.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// Pay marks a bill paid. Paying a paid bill is a bad request.
func (h *BillHandler) Pay(c *gin.Context) {
	bill, err := h.gen.MarkPaid(c.Request.Context(), c.Param("id"))
	if errors.Is(err, models.ErrBillAlreadyPaid) {
		respondErrorStatus(c, h.logger, err, http.StatusBadRequest)
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// Delete removes a pending bill.
func (h *BillHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.gen.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}
