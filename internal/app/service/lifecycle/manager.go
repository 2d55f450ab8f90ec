package lifecycle

import (
	"context"
	"time"

	"github.com/nextbud/premium/pkg/types"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
)

// PendingSubscriptionDecision is one admin decision over every pending
// subscription of an email.
type PendingSubscriptionDecision struct {
	Email    string `json:"email"`
	Action   Action `json:"action"`
	Duration *int   `json:"duration,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type ProcessPendingRequest struct {
	Subscriptions []PendingSubscriptionDecision `json:"subscriptions"`
	// PerformedBy is recorded on activity logs. Defaults to admin.
	PerformedBy string `json:"-"`
}

// RecordError reports one record that failed without aborting its siblings.
type RecordError struct {
	ID     string `json:"id,omitempty"`
	Email  string `json:"email,omitempty"`
	Reason Reason `json:"reason,omitempty"`
	Error  string `json:"error"`
}

type SubscriptionOutcome struct {
	ID        string                   `json:"id"`
	Email     string                   `json:"email"`
	PartnerID string                   `json:"partnerId"`
	Action    Action                   `json:"action"`
	Status    types.SubscriptionStatus `json:"status"`
	Path      types.GrantPath          `json:"path,omitempty"`
	Duration  int                      `json:"duration,omitempty"`
	StartDate *time.Time               `json:"startDate,omitempty"`
	EndDate   *time.Time               `json:"endDate,omitempty"`
}

type ProcessPendingResult struct {
	Processed         int                    `json:"processed"`
	Approved          int                    `json:"approved"`
	Declined          int                    `json:"declined"`
	UserUpdated       int                    `json:"userUpdated"`
	PendingActivation int                    `json:"pendingActivation"`
	Errors            []RecordError          `json:"errors"`
	Subscriptions     []*SubscriptionOutcome `json:"subscriptions"`
}

type ReferralRequest struct {
	Email        string `json:"email"`
	ReferralCode string `json:"referralCode"`
	Duration     *int   `json:"duration,omitempty"`
}

type ReferralResult struct {
	UserID                string    `json:"userId"`
	InfluencerID          string    `json:"influencerId"`
	PremiumDuration       int       `json:"premiumDuration"`
	ExpiryDate            time.Time `json:"expiryDate"`
	DaysSinceRegistration int       `json:"daysSinceRegistration"`
}

type EligibilityResult struct {
	Eligible              bool   `json:"eligible"`
	Reason                Reason `json:"reason,omitempty"`
	Message               string `json:"message,omitempty"`
	DaysSinceRegistration *int   `json:"daysSinceRegistration,omitempty"`
}

type ActivationSweepSummary struct {
	Checked      int           `json:"checked"`
	Activated    int           `json:"activated"`
	Expired      int           `json:"expired"`
	StillPending int           `json:"stillPending"`
	Errors       []RecordError `json:"errors"`
}

type ExpirySweepSummary struct {
	Checked     int           `json:"checked"`
	Deactivated int           `json:"deactivated"`
	StillActive int           `json:"stillActive"`
	Errors      []RecordError `json:"errors"`
}

// Manager drives every premium state transition: partner approvals and
// declines, referral grants and the two reconciliation sweeps.
type Manager interface {
	// Approve or decline the pending subscriptions of each listed email.
	ProcessPendingSubscriptions(ctx context.Context, req *ProcessPendingRequest) (*ProcessPendingResult, error)
	// Grant referral premium to a registered user.
	ProcessReferral(ctx context.Context, req *ReferralRequest) (*ReferralResult, error)
	// Evaluate referral preconditions without writing.
	CheckReferralEligibility(ctx context.Context, email string) (*EligibilityResult, error)
	// Activate or expire pending activations. Safe to re-run.
	ReconcilePendingActivations(ctx context.Context) (*ActivationSweepSummary, error)
	// Revoke premium from users whose expiry has passed. Safe to re-run.
	DeactivateExpiredPremium(ctx context.Context) (*ExpirySweepSummary, error)
}

// Notifier is told about committed approvals. Delivery failures are logged
// by the caller and never undo the transition.
type Notifier interface {
	SubscriptionApproved(ctx context.Context, outcome *SubscriptionOutcome) error
}
