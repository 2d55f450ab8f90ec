package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextbud/premium/docs"
	"github.com/nextbud/premium/internal/app/api/handlers"
	mw "github.com/nextbud/premium/internal/app/api/middleware"
	"github.com/nextbud/premium/internal/app/jobs"
	"github.com/nextbud/premium/internal/app/service/activitylog"
	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/app/service/statistics"
	"github.com/nextbud/premium/internal/app/service/subscription"
	cfgpkg "github.com/nextbud/premium/pkg/config"
	metrics "github.com/nextbud/premium/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request logger & access log are attached per group in registerRoutes.
	r.Use(mw.TraceMiddleware())
	return r
}

// dbPinger adapts gorm to handlers.Pinger.
type dbPinger struct{ db *gorm.DB }

func (p dbPinger) PingContext(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type routeDeps struct {
	fx.In

	Log          *zap.SugaredLogger
	Cfg          *cfgpkg.Config
	DB           *gorm.DB
	Manager      lifecycle.Manager
	Partners     *partner.Service
	Subscription *subscription.Service
	Statistics   *statistics.Service
	ActivityLogs *activitylog.Service
	Runner       *jobs.Runner
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	log := d.Log
	if d.Cfg.MetricsAddr != "" {
		exp := metrics.NewExporter(metrics.ExporterOptions{
			Metrics: metrics.JobMetrics,
			RouteLabel: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		r.Use(exp.Middleware())
		exp.Serve(d.Cfg.MetricsAddr)

		log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	logged := []gin.HandlerFunc{mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log)}

	pub := r.Group("/", logged...)
	handlers.RegisterHealthRoutes(pub, dbPinger{db: d.DB})
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	admin := r.Group("/admin", logged...)
	admin.Use(mw.AdminAuthMiddleware(d.Cfg))
	handlers.RegisterAdminRoutes(admin, handlers.AdminDeps{
		Manager:    d.Manager,
		Partners:   d.Partners,
		Logs:       d.ActivityLogs,
		Statistics: d.Statistics,
		Runner:     d.Runner,
		Log:        log,
	})

	handlers.RegisterReferralRoutes(r.Group("/referrals", logged...), d.Manager, log)
	handlers.RegisterSubscriptionRoutes(r.Group("/subscriptions", logged...), d.Subscription, log)
	handlers.RegisterPartnerRoutes(r.Group("/partners", logged...), d.Partners, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
