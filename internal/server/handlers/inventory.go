package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/inventory"
)

// InventoryHandler serves the inventory credit ledger.
type InventoryHandler struct {
	ledger *inventory.Ledger
	logger *zap.Logger
}

// NewInventoryHandler constructs the inventory HTTP adapter.
func NewInventoryHandler(ledger *inventory.Ledger, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{ledger: ledger, logger: logger.Named("handlers.inventory")}
}

type saleRequest struct {
	FarmerID      string               `json:"farmerId"`
	ItemID        string               `json:"itemId"`
	ItemName      string               `json:"itemName"`
	Date          string               `json:"date"`
	Quantity      decimal.Decimal      `json:"quantity"`
	Rate          decimal.Decimal      `json:"rate"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	PaidAmount    decimal.Decimal      `json:"paidAmount"`
}

// RecordSale stores goods handed to a farmer.
func (h *InventoryHandler) RecordSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	date, err := requiredDate("date", req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	txn, err := h.ledger.RecordSale(c.Request.Context(), inventory.SaleInput{
		FarmerID:      req.FarmerID,
		ItemID:        req.ItemID,
		ItemName:      req.ItemName,
		Date:          date,
		Quantity:      req.Quantity,
		Rate:          req.Rate,
		PaymentMethod: req.PaymentMethod,
		PaidAmount:    req.PaidAmount,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RecordPayment applies an installment to a sale.
func (h *InventoryHandler) RecordPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	txn, err := h.ledger.RecordPayment(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// Outstanding lists the credit a farmer's next bill would recover.
func (h *InventoryHandler) Outstanding(c *gin.Context) {
	asOf, err := optionalDate(c.Query("asOf"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if asOf.IsZero() {
		asOf = models.DateOnly(time.Now())
	}

	txns, err := h.ledger.OutstandingFor(c.Request.Context(), c.Query("farmerId"), asOf)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"farmerId":     c.Query("farmerId"),
		"asOf":         asOf.Format(models.DateLayout),
		"total":        inventory.SumRemaining(txns),
		"transactions": txns,
	})
}
