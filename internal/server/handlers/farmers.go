package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// FarmerHandler maintains the farmer register read by billing.
type FarmerHandler struct {
	farmers repository.FarmerRepository
	logger  *zap.Logger
}

// NewFarmerHandler constructs the farmer HTTP adapter.
func NewFarmerHandler(farmers repository.FarmerRepository, logger *zap.Logger) *FarmerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FarmerHandler{farmers: farmers, logger: logger.Named("handlers.farmers")}
}

type farmerRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Active *bool  `json:"active"`
}

// Save creates or replaces the farmer in the path. Active defaults to true.
func (h *FarmerHandler) Save(c *gin.Context) {
	var req farmerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	farmer := models.Farmer{
		ID:     c.Param("id"),
		Code:   strings.TrimSpace(req.Code),
		Name:   strings.TrimSpace(req.Name),
		Phone:  strings.TrimSpace(req.Phone),
		Active: req.Active == nil || *req.Active,
	}
	if farmer.Code == "" || farmer.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required", "code": models.CodeInvalidInput})
		return
	}

	if err := h.farmers.Save(c.Request.Context(), farmer); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmer)
}

// Get returns one farmer.
func (h *FarmerHandler) Get(c *gin.Context) {
	farmer, err := h.farmers.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmer)
}

// ListActive returns the farmers that are billed.
func (h *FarmerHandler) ListActive(c *gin.Context) {
	farmers, err := h.farmers.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmers)
}
