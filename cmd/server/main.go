package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/repository/memory"
	"github.com/mamadbah2/dairy/internal/repository/mongodb"
	"github.com/mamadbah2/dairy/internal/repository/redislock"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
	"github.com/mamadbah2/dairy/internal/scheduler"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/server/router"
	"github.com/mamadbah2/dairy/internal/service/billing"
	"github.com/mamadbah2/dairy/internal/service/bonus"
	"github.com/mamadbah2/dairy/internal/service/deductions"
	"github.com/mamadbah2/dairy/internal/service/inventory"
	"github.com/mamadbah2/dairy/internal/service/milk"
	"github.com/mamadbah2/dairy/internal/service/notify"
	"github.com/mamadbah2/dairy/internal/service/ratechart"
	whatsappclient "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairy/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level, cfg.Log.Format))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	var repos repository.Repositories
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		baseLogger.Warn("using in-memory storage, data is lost on restart")
		repos = memory.NewStore().Repositories()
	default:
		mongoClient, err := mongodb.Connect(startCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoClient.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		repos = mongoClient.Repositories()
	}

	var locker billing.Locker
	if cfg.Redis.Enabled() {
		redisLocker, err := redislock.Connect(startCtx, redislock.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Billing.LockTTL,
		}, baseLogger)
		if err != nil {
			baseLogger.Fatal("failed to init redis lock", zap.Error(err))
		}
		defer func() {
			if err := redisLocker.Close(); err != nil {
				baseLogger.Error("failed to close redis connection", zap.Error(err))
			}
		}()
		locker = redisLocker
	} else {
		baseLogger.Info("redis not configured, bill generation locks are in-process")
	}

	var observers []billing.Observer
	if cfg.WhatsApp.Enabled() {
		observers = append(observers, notify.NewWhatsAppNotifier(whatsappclient.NewClient(cfg.WhatsApp), baseLogger))
		baseLogger.Info("whatsapp bill notifications enabled")
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startCtx, cfg.Sheets, baseLogger)
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		observers = append(observers, notify.NewSheetRegister(sheetsRepo, baseLogger))
		baseLogger.Info("google sheets bill register enabled")
	}

	rateSvc := ratechart.NewService(repos.RateCharts, repos.Transactor, baseLogger)
	milkSvc := milk.NewService(repos.Farmers, repos.MilkEntries, rateSvc, baseLogger)
	deductionLedger := deductions.NewLedger(repos.Deductions, repos.MilkEntries, repos.Farmers, baseLogger)
	inventoryLedger := inventory.NewLedger(repos.Inventory, repos.Farmers, baseLogger)
	bonusSvc := bonus.NewService(repos.Bonuses, repos.MilkEntries, repos.Farmers, repos.Transactor, baseLogger)
	generator := billing.NewGenerator(repos, inventoryLedger, locker, baseLogger,
		billing.WithObservers(observers...),
		billing.WithWorkers(cfg.Billing.Workers),
	)

	engine := router.New(router.Handlers{
		Bills:      handlers.NewBillHandler(generator, baseLogger),
		Bonus:      handlers.NewBonusHandler(bonusSvc, baseLogger),
		Deductions: handlers.NewDeductionHandler(deductionLedger, baseLogger),
		Inventory:  handlers.NewInventoryHandler(inventoryLedger, baseLogger),
		Milk:       handlers.NewMilkHandler(milkSvc, baseLogger),
		RateChart:  handlers.NewRateChartHandler(rateSvc, baseLogger),
		Farmers:    handlers.NewFarmerHandler(repos.Farmers, baseLogger),
	}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Scheduler, generator, deductionLedger, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
