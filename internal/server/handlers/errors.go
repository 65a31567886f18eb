// Package handlers adapts the billing services to HTTP.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

const codeInternal = "INTERNAL"

var statusByCode = map[string]int{
	models.CodeNotFound:            http.StatusNotFound,
	models.CodeFarmerNotFound:      http.StatusNotFound,
	models.CodeNoRateChart:         http.StatusNotFound,
	models.CodeInvalidInput:        http.StatusBadRequest,
	models.CodeInvalidRateChart:    http.StatusBadRequest,
	models.CodeInvalidBonusRule:    http.StatusBadRequest,
	models.CodeInvalidAdjustment:   http.StatusBadRequest,
	models.CodeInvalidPeriod:       http.StatusBadRequest,
	models.CodeInvalidState:        http.StatusBadRequest,
	models.CodeBillAlreadyPaid:     http.StatusConflict,
	models.CodeBillConflict:        http.StatusConflict,
	models.CodeDuplicateMilkEntry:  http.StatusConflict,
	models.CodeConcurrencyConflict: http.StatusConflict,
}

// statusFor maps an error to its HTTP status and code. Unclassified errors
// are internal.
func statusFor(err error) (int, string) {
	var de *models.DomainError
	if errors.As(err, &de) {
		if status, ok := statusByCode[de.Code]; ok {
			return status, de.Code
		}
	}
	return http.StatusInternalServerError, codeInternal
}

// respondError writes the error body. Internal errors are logged and their
// message is hidden from the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	respondErrorStatus(c, logger, err, 0)
}

// respondErrorStatus is respondError with the status overridden when
// status is not zero.
func respondErrorStatus(c *gin.Context, logger *zap.Logger, err error, status int) {
	mapped, code := statusFor(err)
	if status == 0 {
		status = mapped
	}
	if code == codeInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// respondBindError reports a body that could not be decoded.
func respondBindError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error(), "code": models.CodeInvalidInput})
}
