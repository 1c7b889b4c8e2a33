package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/lbarroso/zapsender/internal/browser"
	"github.com/lbarroso/zapsender/internal/store"
	"github.com/lbarroso/zapsender/pkg/config"
	"github.com/lbarroso/zapsender/pkg/db"
	"github.com/lbarroso/zapsender/pkg/logx"
	"github.com/lbarroso/zapsender/pkg/metrics"
	"github.com/lbarroso/zapsender/pkg/rmq"
	"github.com/lbarroso/zapsender/services/campaign-worker/worker"
)

func main() {
	logx.Init()
	defer logx.Sync()

	cfg, err := config.LoadWorker()
	if err != nil {
		logx.L().Fatalw("config_error", "error", err)
	}

	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		logx.L().Fatalw("db_open_error", "error", err)
	}
	defer sqlDB.Close()

	cons, err := rmq.NewConsumer(cfg.RMQURL, cfg.Queue)
	if err != nil {
		logx.L().Fatalw("rmq_init_error", "error", err)
	}
	defer cons.Close()

	go func() {
		addr := ":" + cfg.MetricsPort
		logx.L().Infow("metrics_listen_start", "addr", addr)
		if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
			logx.L().Warnw("metrics_server_error", "error", err)
		}
	}()

	w := worker.New(
		store.New(sqlDB),
		cons,
		browser.ChromeFactory{ProfileDir: cfg.ProfileDir},
		cfg.ScreenshotDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		logx.L().Fatalw("worker_error", "error", err)
	}
	logx.L().Infow("campaign-worker stopped gracefully")
}
