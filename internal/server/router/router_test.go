package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository/memory"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/service/billing"
	"github.com/mamadbah2/dairy/internal/service/bonus"
	"github.com/mamadbah2/dairy/internal/service/deductions"
	"github.com/mamadbah2/dairy/internal/service/inventory"
	"github.com/mamadbah2/dairy/internal/service/milk"
	"github.com/mamadbah2/dairy/internal/service/ratechart"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := zaptest.NewLogger(t)
	repos := memory.NewStore().Repositories()

	charts := ratechart.NewService(repos.RateCharts, repos.Transactor, log)
	credit := inventory.NewLedger(repos.Inventory, repos.Farmers, log)
	engine := New(Handlers{
		Bills:      handlers.NewBillHandler(billing.NewGenerator(repos, credit, nil, log), log),
		Bonus:      handlers.NewBonusHandler(bonus.NewService(repos.Bonuses, repos.MilkEntries, repos.Farmers, repos.Transactor, log), log),
		Deductions: handlers.NewDeductionHandler(deductions.NewLedger(repos.Deductions, repos.MilkEntries, repos.Farmers, log), log),
		Inventory:  handlers.NewInventoryHandler(credit, log),
		Milk:       handlers.NewMilkHandler(milk.NewService(repos.Farmers, repos.MilkEntries, charts, log), log),
		RateChart:  handlers.NewRateChartHandler(charts, log),
		Farmers:    handlers.NewFarmerHandler(repos.Farmers, log),
	}, log)
	return &api{t: t, engine: engine}
}

// do sends the request and decodes a JSON response into out when out is
// not nil.
func (a *api) do(method, path string, body any, out any) int {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *api) seedFarmer(id, code, name string) {
	a.t.Helper()
	status := a.do(http.MethodPut, "/farmers/"+id, map[string]any{"code": code, "name": name}, nil)
	require.Equal(a.t, http.StatusOK, status)
}

func (a *api) recordMilk(farmerID, date, shift, quantity string) models.MilkEntry {
	a.t.Helper()
	var entry models.MilkEntry
	status := a.do(http.MethodPost, "/milk-entries", map[string]any{
		"farmerId": farmerID,
		"date":     date,
		"shift":    shift,
		"milkType": "cow",
		"quantity": quantity,
		"fat":      4.2,
		"snf":      8.5,
	}, &entry)
	require.Equal(a.t, http.StatusCreated, status)
	return entry
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	var body map[string]string
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRateLookupAndChartMaintenance(t *testing.T) {
	a := newAPI(t)

	var quote ratechart.Quote
	status := a.do(http.MethodGet, "/rate-chart/rate?milkType=cow&fat=4.2&snf=8.5&date=2024-05-03", nil, &quote)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, quote.Rate.Equal(d("31.3")), quote.Rate.String())
	assert.Equal(t, 1, quote.ChartVersion)

	var saved models.RateChart
	status = a.do(http.MethodPut, "/rate-chart/cow", map[string]any{
		"baseRate":      "12",
		"snfFactor":     "2",
		"fatSlabs":      []map[string]string{{"from": "3.0", "to": "3.5", "ratePerTenthFat": "0.30"}, {"from": "3.5", "to": "10", "ratePerTenthFat": "0.40"}},
		"fatRange":      map[string]string{"min": "3.0", "max": "6.0"},
		"snfRange":      map[string]string{"min": "8.0", "max": "9.5"},
		"effectiveFrom": "2024-06-01",
	}, &saved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, saved.Version)

	// The old version still prices May; the new one prices June.
	a.do(http.MethodGet, "/rate-chart/rate?milkType=cow&fat=4.2&snf=8.5&date=2024-05-31", nil, &quote)
	assert.Equal(t, 1, quote.ChartVersion)
	a.do(http.MethodGet, "/rate-chart/rate?milkType=cow&fat=4.2&snf=8.5&date=2024-06-01", nil, &quote)
	assert.Equal(t, 2, quote.ChartVersion)
	assert.True(t, quote.Rate.Equal(d("33.3")), quote.Rate.String())

	var history []models.RateChart
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/rate-chart/cow/history", nil, &history))
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)
	assert.NotNil(t, history[1].ArchivedAt)

	var table ratechart.RateTable
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/rate-chart/cow/table?fatStep=1&snfStep=0.5", nil, &table))
	assert.Len(t, table.Fat, 4)
	assert.Len(t, table.Snf, 4)
}

func TestRateLookupErrors(t *testing.T) {
	a := newAPI(t)
	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"unknown milk type", "/rate-chart/rate?milkType=goat&fat=4&snf=8", http.StatusBadRequest, models.CodeInvalidInput},
		{"missing fat", "/rate-chart/rate?milkType=cow&snf=8", http.StatusBadRequest, models.CodeInvalidInput},
		{"bad date", "/rate-chart/rate?milkType=cow&fat=4&snf=8&date=03/05/2024", http.StatusBadRequest, models.CodeInvalidInput},
		{"before any chart", "/rate-chart/rate?milkType=cow&fat=4&snf=8&date=1999-12-31", http.StatusNotFound, models.CodeNoRateChart},
		{"bad table step", "/rate-chart/cow/table?fatStep=0", http.StatusBadRequest, models.CodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body errorBody
			assert.Equal(t, tc.status, a.do(http.MethodGet, tc.path, nil, &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestMilkIntake(t *testing.T) {
	a := newAPI(t)
	a.seedFarmer("f1", "F001", "Asha")

	entry := a.recordMilk("f1", "2024-05-03", "Morning", "12.5")
	assert.True(t, entry.Rate.Equal(d("31.3")))
	assert.True(t, entry.TotalAmount.Equal(d("391.25")))

	var body errorBody
	status := a.do(http.MethodPost, "/milk-entries", map[string]any{
		"farmerId": "f1", "date": "2024-05-03", "shift": "Morning", "milkType": "cow",
		"quantity": "1", "fat": "4.2", "snf": "8.5",
	}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.CodeDuplicateMilkEntry, body.Code)

	status = a.do(http.MethodPost, "/milk-entries", map[string]any{
		"farmerId": "ghost", "date": "2024-05-03", "shift": "Morning", "milkType": "cow",
		"quantity": "1", "fat": "4.2", "snf": "8.5",
	}, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeFarmerNotFound, body.Code)

	var entries []models.MilkEntry
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/milk-entries?farmerId=f1&from=2024-05-01&to=2024-05-31", nil, &entries))
	assert.Len(t, entries, 1)
}

func TestBillLifecycle(t *testing.T) {
	a := newAPI(t)
	a.seedFarmer("f1", "F001", "Asha")
	a.recordMilk("f1", "2024-05-03", "Morning", "10")  // 313.00
	a.recordMilk("f1", "2024-05-03", "Evening", "10")  // 313.00
	a.recordMilk("f1", "2024-05-04", "Morning", "100") // 3130.00

	var ded models.Deduction
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/deductions", map[string]any{
		"farmerId": "f1", "date": "2024-05-20", "category": "Advance", "amount": "500",
	}, &ded))
	assert.True(t, ded.AutoAdjusted)
	assert.Equal(t, models.DeductionCleared, ded.Status)

	var sale models.InventoryTransaction
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/inventory/transactions", map[string]any{
		"farmerId": "f1", "itemId": "feed-20kg", "itemName": "Cattle feed", "date": "2024-05-10",
		"quantity": "2", "rate": "150", "paymentMethod": "Installment", "paidAmount": "0",
	}, &sale))
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/inventory/transactions/"+sale.ID+"/payments", map[string]any{"amount": "100"}, &sale))
	assert.True(t, sale.RemainingAmount.Equal(d("200")))

	var outstanding struct {
		Total        decimal.Decimal               `json:"total"`
		Transactions []models.InventoryTransaction `json:"transactions"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/inventory/outstanding?farmerId=f1&asOf=2024-05-31", nil, &outstanding))
	assert.True(t, outstanding.Total.Equal(d("200")))

	period := map[string]string{"farmerId": "f1", "periodFrom": "2024-05-01", "periodTo": "2024-05-31"}

	var preview models.BillPreview
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/bills/preview", period, &preview))
	assert.True(t, preview.TotalLiters.Equal(d("120")))
	assert.True(t, preview.TotalMilkAmount.Equal(d("3756")))
	assert.True(t, preview.TotalDeduction.Equal(d("700")))
	assert.True(t, preview.NetPayable.Equal(d("3056")))

	var first, second models.Bill
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/bills/generate", period, &first))
	assert.True(t, first.NetPayable.Equal(preview.NetPayable))
	assert.Equal(t, []string{sale.ID}, first.InventoryTransactionIDs)

	// Regenerating replaces the pending bill; the consumed credit is gone.
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/bills/generate", period, &second))
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.NetPayable.Equal(d("3256")))

	var bills []models.BillView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/bills?farmerId=f1&month=2024-05", nil, &bills))
	require.Len(t, bills, 1)
	assert.Equal(t, "F001", bills[0].FarmerCode)
	assert.Equal(t, "Asha", bills[0].FarmerName)

	var paid models.Bill
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/bills/"+second.ID+"/pay", nil, &paid))
	assert.Equal(t, models.BillPaid, paid.Status)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/bills/"+second.ID+"/pay", nil, &body))
	assert.Equal(t, models.CodeBillAlreadyPaid, body.Code)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodDelete, "/bills/"+second.ID, nil, &body))
	assert.Equal(t, models.CodeBillAlreadyPaid, body.Code)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/bills/generate", period, &body))
	assert.Equal(t, models.CodeBillAlreadyPaid, body.Code)

	var one models.BillView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/bills/"+second.ID, nil, &one))
	assert.Equal(t, models.BillPaid, one.Status)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/bills/missing", nil, &body))
}

func TestDeletePendingBill(t *testing.T) {
	a := newAPI(t)
	a.seedFarmer("f1", "F001", "Asha")
	a.recordMilk("f1", "2024-05-03", "Morning", "10")

	var bill models.Bill
	period := map[string]string{"farmerId": "f1", "periodFrom": "2024-05-01", "periodTo": "2024-05-31"}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/bills/generate", period, &bill))

	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/bills/"+bill.ID, nil, nil))

	var bills []models.BillView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/bills", nil, &bills))
	assert.Empty(t, bills)
}

func TestGenerateAll(t *testing.T) {
	a := newAPI(t)
	a.seedFarmer("f1", "F001", "Asha")
	a.seedFarmer("f2", "F002", "Ravi")
	a.recordMilk("f1", "2024-05-03", "Morning", "10")

	var result billing.BatchResult
	status := a.do(http.MethodPost, "/bills/generate-all", map[string]string{"periodFrom": "2024-05-01", "periodTo": "2024-05-31"}, &result)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Conflicts)
	require.Len(t, result.Bills, 1)
	assert.Equal(t, "f1", result.Bills[0].FarmerID)
}

func TestBillRequestValidation(t *testing.T) {
	a := newAPI(t)
	a.seedFarmer("f1", "F001", "Asha")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing period", map[string]string{"farmerId": "f1"}, http.StatusBadRequest, models.CodeInvalidInput},
		{"malformed date", map[string]string{"farmerId": "f1", "periodFrom": "May 1", "periodTo": "2024-05-31"}, http.StatusBadRequest, models.CodeInvalidInput},
		{"inverted period", map[string]string{"farmerId": "f1", "periodFrom": "2024-05-31", "periodTo": "2024-05-01"}, http.StatusBadRequest, models.CodeInvalidPeriod},
		{"unknown farmer", map[string]string{"farmerId": "ghost", "periodFrom": "2024-05-01", "periodTo": "2024-05-31"}, http.StatusNotFound, models.CodeFarmerNotFound},
		{"not json", "{", http.StatusBadRequest, models.CodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body errorBody
			assert.Equal(t, tc.status, a.do(http.MethodPost, "/bills/preview", tc.body, &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/bills?month=May", nil, &body))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/bills?status=Open", nil, &body))
}

func TestDeductionEndpoints(t *testing.T) {
	a := newAPI(t)
	a.seedFarmer("f1", "F001", "Asha")

	var ded models.Deduction
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/deductions", map[string]any{
		"farmerId": "f1", "date": "2024-05-20", "category": "Medical", "amount": "400",
	}, &ded))
	assert.Equal(t, models.DeductionPending, ded.Status)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/deductions/"+ded.ID, map[string]any{}, &body))
	assert.Equal(t, models.CodeInvalidAdjustment, body.Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/deductions/"+ded.ID, map[string]any{"amountToApply": "1", "remainingAmount": "1"}, &body))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/deductions/"+ded.ID, map[string]any{"amountToApply": "401"}, &body))
	assert.Equal(t, models.CodeInvalidAdjustment, body.Code)

	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/deductions/"+ded.ID, map[string]any{"amountToApply": "150"}, &ded))
	assert.True(t, ded.RemainingAmount.Equal(d("250")))
	assert.Equal(t, models.DeductionPartial, ded.Status)

	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/deductions/"+ded.ID, map[string]any{"remainingAmount": "100", "status": "Cleared"}, &ded))
	assert.True(t, ded.RemainingAmount.Equal(d("100")))
	assert.Equal(t, models.DeductionPartial, ded.Status)

	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/deductions/clear/"+ded.ID, nil, &ded))
	assert.True(t, ded.RemainingAmount.IsZero())
	assert.Equal(t, models.DeductionCleared, ded.Status)

	var list []models.Deduction
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/deductions?farmerId=f1&status=Cleared", nil, &list))
	assert.Len(t, list, 1)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/deductions?status=Closed", nil, &body))

	var swept map[string]int
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/deductions/reconcile", nil, &swept))
	assert.Zero(t, swept["reconciled"])

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, "/deductions/clear/missing", nil, &body))
}

func TestBonusEndpoints(t *testing.T) {
	a := newAPI(t)
	a.seedFarmer("f1", "F001", "Asha")
	a.recordMilk("f1", "2024-05-03", "Morning", "10") // 313.00

	period := map[string]any{
		"periodFrom": "2024-05-01",
		"periodTo":   "2024-05-31",
		"rule":       map[string]any{"type": "Percentage", "value": 2},
	}
	var rows []models.BonusRow
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/bonus/preview", period, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "F001", rows[0].FarmerCode)
	assert.True(t, rows[0].Bonus.Equal(d("6.26")), rows[0].Bonus.String())

	var body errorBody
	bad := map[string]any{"periodFrom": "2024-05-01", "periodTo": "2024-05-31", "rule": map[string]any{"type": "Fixed", "value": 0}}
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/bonus/preview", bad, &body))
	assert.Equal(t, models.CodeInvalidBonusRule, body.Code)

	var rule models.BonusRuleConfig
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/bonus/rules", map[string]any{
		"name": "Festival", "active": true, "type": "Fixed", "value": "50",
	}, &rule))
	var rules []models.BonusRuleConfig
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/bonus/rules", nil, &rules))
	assert.Len(t, rules, 1)

	var payments []models.BonusPayment
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/bonus/apply", map[string]any{
		"periodFrom": "2024-05-01", "periodTo": "2024-05-31", "ruleId": rule.ID, "reason": "Diwali",
	}, &payments))
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(d("50")))

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/bonus/payments?farmerId=f1", nil, &payments))
	assert.Len(t, payments, 1)

	var preview models.BillPreview
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/bills/preview", map[string]string{
		"farmerId": "f1", "periodFrom": "2024-05-01", "periodTo": "2024-05-31",
	}, &preview))
	assert.True(t, preview.TotalBonus.Equal(d("50")))
	assert.True(t, preview.NetPayable.Equal(d("363")))
}

func TestFarmerEndpoints(t *testing.T) {
	a := newAPI(t)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/farmers/f1", map[string]any{"code": "F001"}, &body))

	a.seedFarmer("f1", "F001", "Asha")
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/farmers/f2", map[string]any{"code": "F002", "name": "Ravi", "active": false}, nil))

	var farmers []models.Farmer
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/farmers", nil, &farmers))
	require.Len(t, farmers, 1)
	assert.Equal(t, "f1", farmers[0].ID)

	var f models.Farmer
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/farmers/f2", nil, &f))
	assert.False(t, f.Active)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/farmers/none", nil, &body))
}
