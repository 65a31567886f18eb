package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/milk"
)

// MilkHandler serves milk intake.
type MilkHandler struct {
	svc    *milk.Service
	logger *zap.Logger
}

// NewMilkHandler constructs the milk intake HTTP adapter.
func NewMilkHandler(svc *milk.Service, logger *zap.Logger) *MilkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MilkHandler{svc: svc, logger: logger.Named("handlers.milk")}
}

type milkEntryRequest struct {
	FarmerID string          `json:"farmerId"`
	Date     string          `json:"date"`
	Shift    models.Shift    `json:"shift"`
	MilkType models.MilkType `json:"milkType"`
	Quantity decimal.Decimal `json:"quantity"`
	Fat      decimal.Decimal `json:"fat"`
	Snf      decimal.Decimal `json:"snf"`
}

// Record prices and stores one collection.
func (h *MilkHandler) Record(c *gin.Context) {
	var req milkEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	date, err := requiredDate("date", req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entry, err := h.svc.Record(c.Request.Context(), milk.RecordInput{
		FarmerID: req.FarmerID,
		Date:     date,
		Shift:    req.Shift,
		MilkType: req.MilkType,
		Quantity: req.Quantity,
		Fat:      req.Fat,
		Snf:      req.Snf,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// List returns entries filtered by farmerId, from and to.
func (h *MilkHandler) List(c *gin.Context) {
	from, to, err := dateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entries, err := h.svc.List(c.Request.Context(), c.Query("farmerId"), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
