package bored

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/SakuraBurst/bored/internal/bored/config"
	"github.com/SakuraBurst/bored/internal/bored/controller"
	"github.com/SakuraBurst/bored/internal/bored/database"
	"github.com/SakuraBurst/bored/internal/bored/router"
	"github.com/SakuraBurst/bored/internal/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type App struct {
	router *router.HttpRouter
	logger *zap.Logger
}

func (a *App) Run() error {
	sisChan := make(chan os.Signal, 1)
	go func() {
		if err := a.router.Run(); err != nil {
			a.logger.Error("router.Run failed: ", zap.Error(err))
			sisChan <- os.Interrupt
		}
	}()
	return a.gracefulShutdown(sisChan)
}

func (a *App) gracefulShutdown(sisChan chan os.Signal) error {
	signal.Notify(sisChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sisChan
	a.logger.Info("shutting down", zap.String("signal", sig.String()))
	err := a.router.Close()
	if err != nil {
		a.logger.Error("router.Close failed: ", zap.Error(err))
	}
	return a.logger.Sync()
}

func NewApp(cfg *config.Config) *App {
	log, err := logger.InitLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	db, err := database.NewDB(cfg, log)
	if err != nil {
		panic(err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := controller.NewMetrics(registry)
	if err != nil {
		panic(err)
	}

	var service controller.Service = controller.NewController(cfg, db, db, db, db, db.Close)
	service = controller.InstrumentingMiddleware(metrics)(service)

	r := router.CreateRouter(service, cfg, log, registry)
	log.Info("app initialized", zap.String("env", cfg.Env), zap.String("port", cfg.HttpPort))
	return &App{
		router: r,
		logger: log,
	}
}
