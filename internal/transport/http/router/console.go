package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/server"
	"skilllink-client/internal/feature/applications"
	"skilllink-client/internal/feature/courses"
	"skilllink-client/internal/feature/dashboard"
	"skilllink-client/internal/feature/jobs"
	"skilllink-client/internal/feature/profile"
	"skilllink-client/internal/session"
	"skilllink-client/internal/theme"
	mdw "skilllink-client/internal/transport/http/middleware"
	resp "skilllink-client/internal/transport/http/response"
)

const Prefix = "/console/v1"

// Deps console 进程里唯一的一组会话和功能对象
type Deps struct {
	Session      *session.Session
	Theme        *theme.Theme
	Mirror       *mdw.ThemeMirror
	Dashboard    *dashboard.Aggregator
	Jobs         *jobs.Board
	Courses      *courses.Catalog
	Applications *applications.Tracker
	Profile      *profile.Editor

	// 为空时用 prometheus 默认的
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

func NewConsoleEngine(l *zap.Logger, cfg config.Console, d Deps) *gin.Engine {
	reg, gat := d.Registerer, d.Gatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gat == nil {
		gat = prometheus.DefaultGatherer
	}
	mirror := d.Mirror
	if mirror == nil {
		mirror = mdw.NewThemeMirror()
		mirror.ApplyTheme(d.Theme.Mode())
	}

	r := server.NewRouter(l, cfg)
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(cfg.RateLimit), cfg.Burst),
		mdw.ConcurrencyLimit(cfg.MaxConcurrency),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(cfg.WriteTimeout()),
		mdw.Recovery(l),
		mdw.Metrics(reg),
		mdw.AccessLog(l),
		mirror.Handler(),
		mdw.ReadyGate(d.Session.Ready(), "/health", "/metrics"),
		mdw.SessionIdentity(d.Session),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, resp.OK(gin.H{"status": "ok", "ready": !d.Session.Loading()}))
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gat, promhttp.HandlerOpts{})))

	var mods Registry
	mods.Register(
		sessionModule{s: d.Session},
		themeModule{t: d.Theme},
		dashboardModule{s: d.Session, d: d.Dashboard},
		jobsModule{b: d.Jobs},
		coursesModule{c: d.Courses},
		applicationsModule{t: d.Applications},
		profileModule{e: d.Profile},
	)
	mods.MountAll(r.Group(Prefix))
	return r
}
