package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/server/handlers"
)

// Handlers bundles the HTTP adapters mounted by New.
type Handlers struct {
	Bills      *handlers.BillHandler
	Bonus      *handlers.BonusHandler
	Deductions *handlers.DeductionHandler
	Inventory  *handlers.InventoryHandler
	Milk       *handlers.MilkHandler
	RateChart  *handlers.RateChartHandler
	Farmers    *handlers.FarmerHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	bills := r.Group("/bills")
	bills.POST("/preview", h.Bills.Preview)
	bills.POST("/generate", h.Bills.Generate)
	bills.POST("/generate-all", h.Bills.GenerateAll)
	bills.GET("", h.Bills.List)
	bills.GET("/:id", h.Bills.Get)
	bills.PUT("/:id/pay", h.Bills.Pay)
	bills.DELETE("/:id", h.Bills.Delete)

	bonus := r.Group("/bonus")
	bonus.POST("/preview", h.Bonus.Preview)
	bonus.POST("/apply", h.Bonus.Apply)
	bonus.POST("/rules", h.Bonus.SaveRule)
	bonus.GET("/rules", h.Bonus.ListRules)
	bonus.GET("/payments", h.Bonus.Payments)

	deductions := r.Group("/deductions")
	deductions.POST("", h.Deductions.Add)
	deductions.GET("", h.Deductions.List)
	deductions.POST("/reconcile", h.Deductions.Reconcile)
	deductions.PATCH("/clear/:id", h.Deductions.Clear)
	deductions.PATCH("/:id", h.Deductions.Adjust)

	inventory := r.Group("/inventory")
	inventory.POST("/transactions", h.Inventory.RecordSale)
	inventory.POST("/transactions/:id/payments", h.Inventory.RecordPayment)
	inventory.GET("/outstanding", h.Inventory.Outstanding)

	milk := r.Group("/milk-entries")
	milk.POST("", h.Milk.Record)
	milk.GET("", h.Milk.List)

	charts := r.Group("/rate-chart")
	charts.GET("/rate", h.RateChart.Rate)
	charts.GET("/:milkType", h.RateChart.Current)
	charts.GET("/:milkType/history", h.RateChart.History)
	charts.GET("/:milkType/table", h.RateChart.Table)
	charts.PUT("/:milkType", h.RateChart.Save)

	farmers := r.Group("/farmers")
	farmers.GET("", h.Farmers.ListActive)
	farmers.GET("/:id", h.Farmers.Get)
	farmers.PUT("/:id", h.Farmers.Save)

	logger.Info("router initialized", zap.Int("routes", len(r.Routes())))

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
