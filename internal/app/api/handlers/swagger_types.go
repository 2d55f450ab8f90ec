package handlers

import (
	"github.com/nextbud/premium/internal/app/jobs"
	"github.com/nextbud/premium/internal/app/service/activitylog"
	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/app/service/statistics"
	"github.com/nextbud/premium/internal/app/service/subscription"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/response"
)

// Envelope types below exist for swag; handlers return response.APIResponse[T].

type RespProcessPending struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    lifecycle.ProcessPendingResult `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Subscription      `json:"data"`
}

type RespRegisterPartner struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    partner.RegisterResult   `json:"data"`
}

type RespActivityLogs struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    activitylog.ScanResponse `json:"data"`
}

type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}

type RespSweep struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    jobs.Result              `json:"data"`
}

type RespReferral struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    lifecycle.ReferralResult `json:"data"`
}

type RespEligibility struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    lifecycle.EligibilityResult `json:"data"`
}

type RespCheckSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subscription.CheckResult `json:"data"`
}

type RespPartners struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []partner.PublicPartner  `json:"data"`
}

type RespPartner struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    partner.PublicPartner    `json:"data"`
}

type RespImport struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    partner.ImportResult     `json:"data"`
}

// RespError is returned for every rejected request.
type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ErrorDetail              `json:"data"`
}
