package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"skilllink-client/internal/app"
	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/logger"
	"skilllink-client/internal/core/server"
	"skilllink-client/internal/theme"
	mdw "skilllink-client/internal/transport/http/middleware"
	"skilllink-client/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.FromConfig(cfg.Log, os.Stdout)
	defer cleanup()

	mirror := mdw.NewThemeMirror()
	a, err := app.New(cfg, log, app.Options{Probe: theme.TerminalProbe, Mirrors: []theme.Mirror{mirror}, WatchDashboard: true})
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 会话恢复放到后台，期间除 /health 外都回 loading
	go func() {
		if err := a.Start(ctx); err != nil {
			log.Warn("session bootstrap failed", zap.Error(err))
		}
		log.Info("session ready", zap.Bool("authenticated", a.Session.Authenticated()))
	}()

	r := router.NewConsoleEngine(log, cfg.Console, router.Deps{
		Session:      a.Session,
		Theme:        a.Theme,
		Mirror:       mirror,
		Dashboard:    a.Dashboard,
		Jobs:         a.Jobs,
		Courses:      a.Courses,
		Applications: a.Applications,
		Profile:      a.Profile,
		Registerer:   a.Metrics,
		Gatherer:     a.Metrics,
	})

	addr := server.Addr(cfg.Console.Host, cfg.Console.Port)
	srv := server.BuildServer(addr, r, cfg.Console.ReadTimeout(), cfg.Console.WriteTimeout(), cfg.Console.IdleTimeout())

	host4human := cfg.Console.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.Console.Port)
	log.Info("console starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("console_v1", baseURL+router.Prefix),
		zap.String("api", cfg.API.BaseURL),
		zap.String("store", cfg.Store.Driver),
	)

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("console stopped with error", zap.Error(err))
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(sctx); err != nil {
		log.Warn("close failed", zap.Error(err))
	}
	log.Info("console stopped")
}
