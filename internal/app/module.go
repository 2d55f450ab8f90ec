package app

import (
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app/api/server"
	"github.com/nextbud/premium/internal/app/jobs"
	"github.com/nextbud/premium/internal/app/repository"
	"github.com/nextbud/premium/internal/app/service/activitylog"
	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/app/service/notification"
	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/app/service/statistics"
	"github.com/nextbud/premium/internal/app/service/subscription"
	"github.com/nextbud/premium/internal/platform/db"
	"github.com/nextbud/premium/internal/platform/redis"
	"github.com/nextbud/premium/pkg/config"
	"github.com/nextbud/premium/pkg/logger"
	"github.com/nextbud/premium/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// Core wires storage and the lifecycle engine shared by every process.
var Core = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	redis.Module,
	repository.Module,
	notification.Module,
	lifecycle.Module,
)

// Module is the HTTP API process.
var Module = fx.Options(
	Core,
	jobs.Module,
	partner.Module,
	subscription.Module,
	statistics.Module,
	activitylog.Module,
	server.Module,
)

// CronModule is the in-process scheduler.
var CronModule = fx.Options(
	Core,
	jobs.ScheduleModule,
	fx.Invoke(startJobMetrics),
)

// RunOnceModule provides a job runner without starting the scheduler.
var RunOnceModule = fx.Options(
	Core,
	jobs.Module,
	fx.Invoke(startJobMetrics),
)

// startJobMetrics exposes the business-process histogram for processes
// that do not run the HTTP API.
func startJobMetrics(cfg *config.Config, log *zap.SugaredLogger) {
	if cfg.MetricsAddr == "" {
		return
	}
	metrics.NewExporter(metrics.ExporterOptions{
		Metrics: metrics.JobMetrics,
		Logger:  log,
	}).Serve(cfg.MetricsAddr)
	log.Infow("metrics started", "addr", cfg.MetricsAddr)
}
