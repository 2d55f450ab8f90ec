package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app/service/subscription"
	"github.com/nextbud/premium/pkg/response"
)

type SubscriptionChecker interface {
	Check(ctx context.Context, email string) (*subscription.CheckResult, error)
}

// @Summary      Check Subscriptions
// @Description  Lists the active partner subscriptions of an email with days remaining.
// @Tags         Subscription
// @Produce      json
// @Param        email query string true "Customer email"
// @Success      200  {object}  handlers.RespCheckSubscription
// @Router       /subscriptions/check [get]
func ApiCheckSubscription(svc SubscriptionChecker, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Check(c.Request.Context(), c.Query("email"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc SubscriptionChecker, log *zap.SugaredLogger) {
	r.GET("/check", ApiCheckSubscription(svc, log))
}
