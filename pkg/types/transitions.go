package types

// subscriptionTransitions lists every allowed Subscription.status change.
var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusPending: {SubscriptionStatusActive, SubscriptionStatusDeclined},
}

// activationTransitions lists every allowed PendingActivation.activationStatus change.
// activated and expired are terminal.
var activationTransitions = map[ActivationStatus][]ActivationStatus{
	ActivationStatusWaitingForUser: {ActivationStatusActivated, ActivationStatusExpired},
}

// CanTransition reports whether a subscription may move from one status to another.
func (from SubscriptionStatus) CanTransition(to SubscriptionStatus) bool {
	for _, t := range subscriptionTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether a pending activation may move from one status to another.
func (from ActivationStatus) CanTransition(to ActivationStatus) bool {
	for _, t := range activationTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func (s ActivationStatus) IsTerminal() bool {
	return len(activationTransitions[s]) == 0
}
