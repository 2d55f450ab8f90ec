package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app/jobs"
	"github.com/nextbud/premium/internal/app/service/activitylog"
	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/app/service/statistics"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/response"
	"github.com/nextbud/premium/pkg/types"
)

// PartnerAdmin is the partner surface used by admin routes.
type PartnerAdmin interface {
	Register(ctx context.Context, req *partner.RegisterRequest) (*partner.RegisterResult, error)
	CreatePendingSubscription(ctx context.Context, req *partner.CreatePendingSubscriptionRequest) (*models.Subscription, error)
}

type ActivityLogScanner interface {
	Scan(ctx context.Context, req *activitylog.ScanRequest) (*activitylog.ScanResponse, error)
}

type StatisticGetter interface {
	GetStatistic(ctx context.Context, req *statistics.StatisticRequest) (*statistics.StatisticResponse, error)
}

type SweepRunner interface {
	Run(ctx context.Context, job jobs.Job) (*jobs.Result, error)
}

// @Summary      Process Pending Subscriptions (Admin)
// @Description  Approves or declines every pending subscription of each listed email. Per-record failures are returned in errors.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     AdminBearer
// @Param        request body lifecycle.ProcessPendingRequest true "Decisions per email"
// @Success      200  {object}  handlers.RespProcessPending
// @Router       /admin/process-pending-subscriptions [post]
func ApiProcessPendingSubscriptions(mgr lifecycle.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lifecycle.ProcessPendingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.PerformedBy = c.GetString("performed_by")
		if req.PerformedBy == "" {
			req.PerformedBy = types.PerformedByAdmin
		}
		res, err := mgr.ProcessPendingSubscriptions(c.Request.Context(), &req)
		if err != nil {
			writePartialError(c, log, err, res)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Create Pending Subscription (Admin)
// @Description  Records a pending partner subscription for later approval.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     AdminBearer
// @Param        request body partner.CreatePendingSubscriptionRequest true "Pending subscription"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /admin/create-pending-subscription [post]
func ApiCreatePendingSubscription(svc PartnerAdmin, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req partner.CreatePendingSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sub, err := svc.CreatePendingSubscription(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Register Partner (Admin)
// @Description  Creates a partner and returns its API key once.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     AdminBearer
// @Param        request body partner.RegisterRequest true "Partner registration"
// @Success      200  {object}  handlers.RespRegisterPartner
// @Router       /admin/register [post]
func ApiRegisterPartner(svc PartnerAdmin, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req partner.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.Register(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Activity Logs (Admin)
// @Description  Retrieves a paginated and filterable list of activity log entries.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     AdminBearer
// @Param        request body activitylog.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespActivityLogs
// @Router       /admin/activity-logs [post]
func ApiScanActivityLogs(svc ActivityLogScanner, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req activitylog.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Statistics (Admin)
// @Description  Computes the requested statistic data items.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     AdminBearer
// @Param        request body statistics.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /admin/statistics [post]
func ApiGetStatistic(svc StatisticGetter, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Run Sweep (Admin)
// @Description  Runs one invocation of a scheduled job and returns its summary.
// @Tags         Admin
// @Produce      json
// @Security     AdminBearer
// @Param        job path string true "expired_premium_sweep or pending_activation_sweep"
// @Success      200  {object}  handlers.RespSweep
// @Router       /admin/sweeps/{job} [post]
func ApiRunSweep(runner SweepRunner, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := jobs.ParseJob(c.Param("job"))
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := runner.Run(c.Request.Context(), job)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// AdminDeps groups the services behind the admin routes.
type AdminDeps struct {
	Manager    lifecycle.Manager
	Partners   PartnerAdmin
	Logs       ActivityLogScanner
	Statistics StatisticGetter
	Runner     SweepRunner
	Log        *zap.SugaredLogger
}

func RegisterAdminRoutes(r gin.IRouter, d AdminDeps) {
	r.POST("/process-pending-subscriptions", ApiProcessPendingSubscriptions(d.Manager, d.Log))
	r.POST("/create-pending-subscription", ApiCreatePendingSubscription(d.Partners, d.Log))
	r.POST("/register", ApiRegisterPartner(d.Partners, d.Log))
	r.POST("/activity-logs", ApiScanActivityLogs(d.Logs, d.Log))
	r.POST("/statistics", ApiGetStatistic(d.Statistics, d.Log))
	r.POST("/sweeps/:job", ApiRunSweep(d.Runner, d.Log))
}
