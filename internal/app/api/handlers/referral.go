package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/pkg/response"
)

type CheckEligibilityRequest struct {
	Email string `json:"email"`
}

// @Summary      Process Referral
// @Description  Grants referral premium to a registered user within the referral window.
// @Tags         Referral
// @Accept       json
// @Produce      json
// @Param        request body lifecycle.ReferralRequest true "Referral"
// @Success      200  {object}  handlers.RespReferral
// @Router       /referrals/process [post]
func ApiProcessReferral(mgr lifecycle.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lifecycle.ReferralRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := mgr.ProcessReferral(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Check Referral Eligibility
// @Description  Evaluates referral preconditions for an email without granting anything.
// @Tags         Referral
// @Accept       json
// @Produce      json
// @Param        request body handlers.CheckEligibilityRequest true "Email"
// @Success      200  {object}  handlers.RespEligibility
// @Router       /referrals/check-eligibility [post]
func ApiCheckReferralEligibility(mgr lifecycle.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckEligibilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := mgr.CheckReferralEligibility(c.Request.Context(), req.Email)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterReferralRoutes(r gin.IRouter, mgr lifecycle.Manager, log *zap.SugaredLogger) {
	r.POST("/process", ApiProcessReferral(mgr, log))
	r.POST("/check-eligibility", ApiCheckReferralEligibility(mgr, log))
}
