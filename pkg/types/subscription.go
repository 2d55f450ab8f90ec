package types

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusDeclined SubscriptionStatus = "declined"
)

type ActivationStatus string

const (
	ActivationStatusWaitingForUser ActivationStatus = "waiting_for_user"
	ActivationStatusActivated      ActivationStatus = "activated"
	ActivationStatusExpired        ActivationStatus = "expired"
)

type PartnerStatus string

const (
	PartnerStatusActive   PartnerStatus = "active"
	PartnerStatusInactive PartnerStatus = "inactive"
)

type SubscriptionSource string

const (
	SubscriptionSourceAdmin     SubscriptionSource = "admin"
	SubscriptionSourceCSVImport SubscriptionSource = "csv_import"
)

// ActivityAction is the action recorded on an activity log entry.
type ActivityAction string

const (
	ActivityActionSubscriptionCreated    ActivityAction = "subscription_created"
	ActivityActionSubscriptionApproved   ActivityAction = "subscription_approved"
	ActivityActionSubscriptionDeclined   ActivityAction = "subscription_declined"
	ActivityActionAutoActivated          ActivityAction = "subscription_auto_activated"
	ActivityActionActivationExpired      ActivityAction = "pending_activation_expired"
	ActivityActionAutoDeactivated        ActivityAction = "subscription_auto_deactivated"
	ActivityActionReferralPremiumGranted ActivityAction = "referral_premium_granted"
	ActivityActionPartnerRegistered      ActivityAction = "partner_registered"
	ActivityActionSubscriptionsImported  ActivityAction = "subscriptions_imported"
)

const (
	PerformedBySystem = "system"
	PerformedByAdmin  = "admin"
)

// GrantPath tells which branch a premium grant took.
type GrantPath string

const (
	GrantPathUserUpdated       GrantPath = "userUpdated"
	GrantPathPendingActivation GrantPath = "pendingActivation"
)
