package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// optionalDate parses a YYYY-MM-DD value; empty means the zero time.
func optionalDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return models.ParseDate(value)
}

// requiredDate parses a YYYY-MM-DD value that must be present.
func requiredDate(name, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", models.ErrInvalidInput, name)
	}
	return models.ParseDate(value)
}

// dateRange parses two optional dates.
func dateRange(from, to string) (time.Time, time.Time, error) {
	start, err := optionalDate(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := optionalDate(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// queryDecimal reads a required decimal query parameter.
func queryDecimal(c *gin.Context, name string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is required", models.ErrInvalidInput, name)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s must be a number", models.ErrInvalidInput, name)
	}
	return v, nil
}

// queryDecimalDefault is queryDecimal with a fallback for a missing value.
func queryDecimalDefault(c *gin.Context, name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(c.Query(name)) == "" {
		return fallback, nil
	}
	return queryDecimal(c, name)
}

// periodRequest is the body shared by bill and bonus period operations.
type periodRequest struct {
	FarmerID   string `json:"farmerId"`
	PeriodFrom string `json:"periodFrom"`
	PeriodTo   string `json:"periodTo"`
}

func (r periodRequest) dates() (time.Time, time.Time, error) {
	from, err := requiredDate("periodFrom", r.PeriodFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := requiredDate("periodTo", r.PeriodTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
