package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/ratechart"
)

var (
	defaultFatStep = decimal.RequireFromString("0.1")
	defaultSnfStep = decimal.RequireFromString("0.1")
)

// RateChartHandler serves rate lookups and chart maintenance.
type RateChartHandler struct {
	svc    *ratechart.Service
	logger *zap.Logger
}

// NewRateChartHandler constructs the rate chart HTTP adapter.
func NewRateChartHandler(svc *ratechart.Service, logger *zap.Logger) *RateChartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateChartHandler{svc: svc, logger: logger.Named("handlers.ratechart")}
}

func milkTypeParam(value string) (models.MilkType, error) {
	mt := models.MilkType(value)
	if !mt.IsValid() {
		return "", fmt.Errorf("%w: unknown milk type %q", models.ErrInvalidInput, value)
	}
	return mt, nil
}

// Rate prices milkType, fat and snf on date (today when omitted).
func (h *RateChartHandler) Rate(c *gin.Context) {
	mt, err := milkTypeParam(c.Query("milkType"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	fat, err := queryDecimal(c, "fat")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	snf, err := queryDecimal(c, "snf")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	date, err := optionalDate(c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if date.IsZero() {
		date = models.DateOnly(time.Now())
	}

	quote, err := h.svc.Rate(c.Request.Context(), mt, fat, snf, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Current returns the latest chart version.
func (h *RateChartHandler) Current(c *gin.Context) {
	mt, err := milkTypeParam(c.Param("milkType"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	chart, err := h.svc.Current(c.Request.Context(), mt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

// History returns every chart version, newest first.
func (h *RateChartHandler) History(c *gin.Context) {
	mt, err := milkTypeParam(c.Param("milkType"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	charts, err := h.svc.History(c.Request.Context(), mt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, charts)
}

// Table tabulates the latest chart over its FAT and SNF ranges.
func (h *RateChartHandler) Table(c *gin.Context) {
	mt, err := milkTypeParam(c.Param("milkType"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	fatStep, err := queryDecimalDefault(c, "fatStep", defaultFatStep)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	snfStep, err := queryDecimalDefault(c, "snfStep", defaultSnfStep)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	chart, err := h.svc.Current(c.Request.Context(), mt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	table, err := ratechart.Table(chart, fatStep, snfStep)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

type chartRequest struct {
	BaseRate      decimal.Decimal  `json:"baseRate"`
	SnfFactor     decimal.Decimal  `json:"snfFactor"`
	FatSlabs      []models.FatSlab `json:"fatSlabs"`
	FatRange      models.Range     `json:"fatRange"`
	SnfRange      models.Range     `json:"snfRange"`
	EffectiveFrom string           `json:"effectiveFrom"`
}

// Save stores a new chart version for the milk type in the path.
func (h *RateChartHandler) Save(c *gin.Context) {
	mt, err := milkTypeParam(c.Param("milkType"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req chartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	effective, err := optionalDate(req.EffectiveFrom)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	chart, err := h.svc.Save(c.Request.Context(), models.RateChart{
		MilkType:      mt,
		BaseRate:      req.BaseRate,
		SnfFactor:     req.SnfFactor,
		FatSlabs:      req.FatSlabs,
		FatRange:      req.FatRange,
		SnfRange:      req.SnfRange,
		EffectiveFrom: effective,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}
