package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app/service/activitylog"
	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/app/service/subscription"
	"github.com/nextbud/premium/pkg/logctx"
	"github.com/nextbud/premium/pkg/response"
)

// ErrorDetail is the data payload of a rejected request.
type ErrorDetail struct {
	Reason                lifecycle.Reason `json:"reason,omitempty"`
	Message               string           `json:"message"`
	DaysSinceRegistration *int             `json:"daysSinceRegistration,omitempty"`
}

func errorCode(err error) response.APIResponseCode {
	if le, ok := lifecycle.AsError(err); ok {
		switch le.Reason {
		case lifecycle.ReasonNotFound, lifecycle.ReasonNotRegistered, lifecycle.ReasonInvalidReferralCode:
			return response.APIResponseCodeNotFound
		default:
			return response.APIResponseCodeBadRequest
		}
	}
	switch {
	case errors.Is(err, partner.ErrValidation),
		errors.Is(err, subscription.ErrInvalidEmail),
		errors.Is(err, activitylog.ErrInvalidRequest):
		return response.APIResponseCodeBadRequest
	case errors.Is(err, partner.ErrNotFound):
		return response.APIResponseCodeNotFound
	case errors.Is(err, partner.ErrConflict):
		return response.APIResponseCodeConflict
	case errors.Is(err, partner.ErrUnauthorized):
		return response.APIResponseCodeUnauthorized
	}
	return response.APIResponseCodeError
}

// writeError renders err in the response envelope. Infrastructure errors
// are logged and their message is not exposed.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	code := errorCode(err)
	detail := &ErrorDetail{Message: err.Error()}
	if le, ok := lifecycle.AsError(err); ok {
		detail.Reason = le.Reason
		detail.DaysSinceRegistration = le.DaysSinceRegistration
	}
	if code == response.APIResponseCodeError {
		logctx.FromGin(c, log).Errorw("request failed", "path", c.FullPath(), "err", err)
		detail.Message = "internal error"
	}
	c.JSON(http.StatusOK, response.ErrorT(code, detail))
}

// PartialErrorDetail is the data payload of a batch that stopped on an
// infrastructure error after committing some of its records.
type PartialErrorDetail[T any] struct {
	ErrorDetail
	Partial T `json:"partial"`
}

// writePartialError is writeError for batches: when err is an internal
// error and partial is non-nil, the committed outcomes are sent with it.
func writePartialError[T any](c *gin.Context, log *zap.SugaredLogger, err error, partial *T) {
	if partial == nil || errorCode(err) != response.APIResponseCodeError {
		writeError(c, log, err)
		return
	}
	logctx.FromGin(c, log).Errorw("batch stopped", "path", c.FullPath(), "err", err)
	c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeError, &PartialErrorDetail[*T]{
		ErrorDetail: ErrorDetail{Message: "internal error"},
		Partial:     partial,
	}))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeBadRequest, &ErrorDetail{
		Reason:  lifecycle.ReasonValidation,
		Message: msg,
	}))
}
