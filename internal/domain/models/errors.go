package models

// DomainError is a classified business error. The Code travels to API
// clients; the HTTP layer maps it to a status.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Error codes.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeFarmerNotFound      = "FARMER_NOT_FOUND"
	CodeNoRateChart         = "NO_RATE_CHART"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidRateChart    = "INVALID_RATE_CHART"
	CodeInvalidBonusRule    = "INVALID_BONUS_RULE"
	CodeInvalidAdjustment   = "INVALID_ADJUSTMENT"
	CodeInvalidPeriod       = "INVALID_PERIOD"
	CodeInvalidState        = "INVALID_STATE"
	CodeBillAlreadyPaid     = "BILL_ALREADY_PAID"
	CodeBillConflict        = "BILL_CONFLICT"
	CodeDuplicateMilkEntry  = "DUPLICATE_MILK_ENTRY"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

var (
	// Lookup errors.
	ErrNotFound       = NewDomainError(CodeNotFound, "resource not found")
	ErrFarmerNotFound = NewDomainError(CodeFarmerNotFound, "farmer not found")
	ErrNoRateChart    = NewDomainError(CodeNoRateChart, "no rate chart effective for the requested date")

	// Configuration and validation errors.
	ErrInvalidInput      = NewDomainError(CodeInvalidInput, "invalid input")
	ErrInvalidRateChart  = NewDomainError(CodeInvalidRateChart, "invalid rate chart")
	ErrInvalidBonusRule  = NewDomainError(CodeInvalidBonusRule, "invalid bonus rule")
	ErrInvalidAdjustment = NewDomainError(CodeInvalidAdjustment, "invalid deduction adjustment")
	ErrInvalidPeriod     = NewDomainError(CodeInvalidPeriod, "invalid billing period")
	ErrInvalidState      = NewDomainError(CodeInvalidState, "operation not allowed in current state")

	// State conflicts.
	ErrBillAlreadyPaid     = NewDomainError(CodeBillAlreadyPaid, "bill is already paid")
	ErrBillConflict        = NewDomainError(CodeBillConflict, "bill was modified by a concurrent request")
	ErrDuplicateMilkEntry  = NewDomainError(CodeDuplicateMilkEntry, "milk entry already recorded for this farmer, date and shift")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "resource was modified by another request")
)
