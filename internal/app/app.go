// Package app 把配置、存储、API 客户端、会话和各功能对象装配在一起，两个入口共用。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"skilllink-client/internal/apiclient"
	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/events"
	"skilllink-client/internal/core/store"
	"skilllink-client/internal/core/tracing"
	"skilllink-client/internal/feature/applications"
	"skilllink-client/internal/feature/courses"
	"skilllink-client/internal/feature/dashboard"
	"skilllink-client/internal/feature/jobs"
	"skilllink-client/internal/feature/profile"
	"skilllink-client/internal/service"
	"skilllink-client/internal/session"
	"skilllink-client/internal/theme"
	"skilllink-client/pkg/validation"
)

type Options struct {
	Store    store.Store // 不为空时不按配置打开
	Probe    theme.Probe
	Mirrors  []theme.Mirror
	TraceOut io.Writer // 默认 stderr
	// WatchDashboard 用户变化时后台重载仪表盘，只有常驻进程需要
	WatchDashboard bool
}

type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Store    store.Store
	Bus      *events.Bus
	Client   *apiclient.Client
	Services *service.Services
	Validate *validator.Validate
	Metrics  *prometheus.Registry

	Session      *session.Session
	Theme        *theme.Theme
	Dashboard    *dashboard.Aggregator
	Jobs         *jobs.Board
	Courses      *courses.Catalog
	Applications *applications.Tracker
	Profile      *profile.Editor

	shutdownTracing func(context.Context) error
}

func New(cfg *config.Config, l *zap.Logger, opt Options) (*App, error) {
	st := opt.Store
	if st == nil {
		var err error
		if st, err = store.Open(cfg.Store, l); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	out := opt.TraceOut
	if out == nil {
		out = os.Stderr
	}
	tracer, shutdown, err := tracing.Init(cfg.App, cfg.Tracing, out)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{Config: cfg, Log: l, Store: st, Bus: events.NewBus(), Validate: validation.New(), Metrics: reg, shutdownTracing: shutdown}
	a.Client = apiclient.New(cfg.API, st, a.Bus,
		apiclient.WithLogger(l.Named("api")),
		apiclient.WithTracer(tracer),
		apiclient.WithRegisterer(reg),
	)
	a.Services = service.New(a.Client)
	svc := a.Services

	a.Session = session.New(svc.Auth, st, a.Bus, a.Validate, l.Named("session"))
	a.Theme = theme.New(st, opt.Probe, l.Named("theme"), opt.Mirrors...)
	a.Dashboard = dashboard.New(svc.Jobs, svc.Applications, svc.Courses, cfg.Dashboard, l.Named("dashboard"))
	a.Jobs = jobs.New(svc.Jobs, svc.Applications, a.Validate, l.Named("jobs"))
	a.Courses = courses.New(svc.Courses, a.Validate, l.Named("courses"))
	a.Applications = applications.New(svc.Applications, l.Named("applications"))
	a.Profile = profile.New(svc.Users, a.Session, a.Validate, l.Named("profile"))

	if opt.WatchDashboard {
		a.Dashboard.Watch(a.Session)
	}
	a.Jobs.Watch(a.Session)
	a.Courses.Watch(a.Session)
	a.Applications.Watch(a.Session)
	return a, nil
}

// Start 先定主题再恢复会话；会话恢复失败不算错误，只是未登录
func (a *App) Start(ctx context.Context) error {
	if _, err := a.Theme.Load(ctx); err != nil {
		a.Log.Warn("persist theme failed", zap.Error(err))
	}
	return a.Session.Bootstrap(ctx)
}

func (a *App) Close(ctx context.Context) error {
	a.Dashboard.Close()
	a.Jobs.Close()
	a.Courses.Close()
	a.Applications.Close()
	a.Session.Close()
	return errors.Join(a.shutdownTracing(ctx), a.Store.Close())
}
