package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

type memState struct {
	subs        map[string]models.Subscription
	partners    map[string]models.Partner
	users       map[string]models.User
	influencers map[string]models.Influencer
	activations map[string]models.PendingActivation
	logs        []models.ActivityLog
}

func newMemState() *memState {
	return &memState{
		subs:        map[string]models.Subscription{},
		partners:    map[string]models.Partner{},
		users:       map[string]models.User{},
		influencers: map[string]models.Influencer{},
		activations: map[string]models.PendingActivation{},
	}
}

func (m *memState) clone() *memState {
	return &memState{
		subs:        lo.Assign(m.subs),
		partners:    lo.Assign(m.partners),
		users:       lo.Assign(m.users),
		influencers: lo.Assign(m.influencers),
		activations: lo.Assign(m.activations),
		logs:        append([]models.ActivityLog(nil), m.logs...),
	}
}

// memStore is an in-memory Store. Committed writes are recorded as
// "Op:id" in writes. It is not safe for concurrent use.
type memStore struct {
	state  *memState
	writes []string

	// failWrites makes the named write ("Op:id") fail.
	failWrites map[string]error
	// failLookups makes FindUserByEmail fail for the given email.
	failLookups map[string]error
	// staleUsers are returned by FindUserByEmail instead of the stored row.
	staleUsers map[string]*models.User
	// expiredUsers, when non-nil, is returned by ListExpiredPremiumUsers as is.
	expiredUsers []*models.User
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failWrites: map[string]error{}, failLookups: map[string]error{}, staleUsers: map[string]*models.User{}}
}

func (m *memStore) addPartner(p models.Partner) { m.state.partners[p.ID] = p }
func (m *memStore) addUser(u models.User) { m.state.users[u.ID] = u }
func (m *memStore) addInfluencer(i models.Influencer) { m.state.influencers[i.ID] = i }
func (m *memStore) addSubscription(s models.Subscription) {
	m.state.subs[s.ID] = s
}
func (m *memStore) addActivation(a models.PendingActivation) {
	m.state.activations[a.ID] = a
}

func (m *memStore) sub(id string) models.Subscription { return m.state.subs[id] }
func (m *memStore) user(id string) models.User { return m.state.users[id] }
func (m *memStore) activation(id string) models.PendingActivation { return m.state.activations[id] }
func (m *memStore) logs() []models.ActivityLog { return m.state.logs }

func (m *memStore) activationsByEmail(email string) []models.PendingActivation {
	var out []models.PendingActivation
	for _, a := range m.state.activations {
		if a.Email == email {
			out = append(out, a)
		}
	}
	return out
}

func (m *memStore) writesWithPrefix(prefix string) []string {
	return lo.Filter(m.writes, func(w string, _ int) bool { return strings.HasPrefix(w, prefix) })
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{store: m, state: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	m.writes = append(m.writes, tx.writes...)
	return nil
}

func (m *memStore) FindSubscriptionsByEmail(_ context.Context, email string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	for _, s := range m.state.subs {
		if s.CustomerEmail == email {
			out = append(out, lo.ToPtr(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetPartner(_ context.Context, id string) (*models.Partner, error) {
	p, ok := m.state.partners[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	if err := m.failLookups[email]; err != nil {
		return nil, err
	}
	if u, ok := m.staleUsers[email]; ok {
		return u, nil
	}
	for _, u := range m.state.users {
		if u.Email == email {
			return lo.ToPtr(u), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindInfluencerByReferralCode(_ context.Context, code string) (*models.Influencer, error) {
	for _, i := range m.state.influencers {
		if i.ReferralCode == code {
			return lo.ToPtr(i), nil
		}
	}
	return nil, nil
}

func (m *memStore) ListWaitingActivations(_ context.Context, limit int) ([]*models.PendingActivation, error) {
	var out []*models.PendingActivation
	for _, a := range m.state.activations {
		if a.ActivationStatus == types.ActivationStatusWaitingForUser {
			out = append(out, lo.ToPtr(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListExpiredPremiumUsers(_ context.Context, before time.Time, limit int) ([]*models.User, error) {
	if m.expiredUsers != nil {
		return m.expiredUsers, nil
	}
	var out []*models.User
	for _, u := range m.state.users {
		if u.PremiumUser && u.PremiumExpiryDate != nil && u.PremiumExpiryDate.Before(before) {
			out = append(out, lo.ToPtr(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memTx struct {
	store  *memStore
	state  *memState
	writes []string
}

func (t *memTx) write(op, id string) error {
	key := op + ":" + id
	if err := t.store.failWrites[key]; err != nil {
		return err
	}
	t.writes = append(t.writes, key)
	return nil
}

func (t *memTx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	snapshot := t.state.clone()
	n := len(t.writes)
	if err := fn(ctx, t); err != nil {
		t.state = snapshot
		t.writes = t.writes[:n]
		return err
	}
	return nil
}

func (t *memTx) TransitionSubscription(_ context.Context, id string, from types.SubscriptionStatus, change SubscriptionChange) error {
	s, ok := t.state.subs[id]
	if !ok || s.Status != from {
		return ErrPreconditionFailed
	}
	if err := t.write("TransitionSubscription", id); err != nil {
		return err
	}
	s.Status = change.To
	switch change.To {
	case types.SubscriptionStatusActive:
		s.StartDate = change.StartDate
		s.EndDate = change.EndDate
		s.Duration = change.Duration
		s.UserUpdated = change.UserUpdated
		s.ApprovedAt = lo.ToPtr(change.At)
	case types.SubscriptionStatusDeclined:
		s.DeclinedAt = lo.ToPtr(change.At)
	}
	if change.Notes != "" {
		s.Notes = change.Notes
	}
	s.UpdatedAt = change.At
	t.state.subs[id] = s
	return nil
}

func (t *memTx) GrantUserPremium(_ context.Context, userID string, grant PremiumGrant) error {
	u, ok := t.state.users[userID]
	if !ok {
		return fmt.Errorf("user %s not found", userID)
	}
	if grant.OnlyIfNotPremium && u.PremiumUser {
		return ErrPreconditionFailed
	}
	if err := t.write("GrantUserPremium", userID); err != nil {
		return err
	}
	u.PremiumUser = true
	u.MartPremiumUser = true
	u.PremiumExpiryDate = lo.ToPtr(grant.ExpiresAt)
	u.PremiumSource = lo.ToPtr(grant.Source)
	u.PremiumUpdatedAt = lo.ToPtr(grant.At)
	if grant.ReferredBy != nil {
		u.ReferredBy = grant.ReferredBy
	}
	if grant.ReferralCode != nil {
		u.ReferralCode = grant.ReferralCode
	}
	t.state.users[userID] = u
	return nil
}

func (t *memTx) RevokeUserPremium(_ context.Context, userID string, r PremiumRevocation) error {
	u, ok := t.state.users[userID]
	if !ok || !u.PremiumUser || u.PremiumExpiryDate == nil || !u.PremiumExpiryDate.Before(r.ExpiredBefore) {
		return ErrPreconditionFailed
	}
	if err := t.write("RevokeUserPremium", userID); err != nil {
		return err
	}
	u.PremiumUser = false
	u.MartPremiumUser = false
	u.PremiumDeactivatedAt = lo.ToPtr(r.At)
	u.Notes = strings.TrimSpace(u.Notes + "\n" + r.Note)
	t.state.users[userID] = u
	return nil
}

func (t *memTx) CreatePendingActivation(_ context.Context, a *models.PendingActivation) error {
	if _, ok := t.state.activations[a.ID]; ok {
		return fmt.Errorf("pending activation %s already exists", a.ID)
	}
	if err := t.write("CreatePendingActivation", a.ID); err != nil {
		return err
	}
	t.state.activations[a.ID] = *a
	return nil
}

func (t *memTx) TouchPendingActivation(_ context.Context, id string, at time.Time) error {
	a, ok := t.state.activations[id]
	if !ok || a.ActivationStatus != types.ActivationStatusWaitingForUser {
		return ErrPreconditionFailed
	}
	if err := t.write("TouchPendingActivation", id); err != nil {
		return err
	}
	a.CheckCount++
	a.LastChecked = lo.ToPtr(at)
	t.state.activations[id] = a
	return nil
}

func (t *memTx) TransitionPendingActivation(_ context.Context, id string, from types.ActivationStatus, change ActivationChange) error {
	a, ok := t.state.activations[id]
	if !ok || a.ActivationStatus != from {
		return ErrPreconditionFailed
	}
	if err := t.write("TransitionPendingActivation", id); err != nil {
		return err
	}
	a.ActivationStatus = change.To
	if change.To == types.ActivationStatusActivated {
		a.ActivatedAt = lo.ToPtr(change.At)
		a.UserID = change.UserID
	}
	a.Notes = change.Note
	t.state.activations[id] = a
	return nil
}

func (t *memTx) AppendActivityLog(_ context.Context, entry *models.ActivityLog) error {
	if err := t.write("AppendActivityLog", string(entry.Action)); err != nil {
		return err
	}
	t.state.logs = append(t.state.logs, *entry)
	return nil
}

func (t *memTx) IncrementPartnerSubscriptions(_ context.Context, partnerID string, at time.Time) error {
	p, ok := t.state.partners[partnerID]
	if !ok {
		return fmt.Errorf("partner %s not found", partnerID)
	}
	if err := t.write("IncrementPartnerSubscriptions", partnerID); err != nil {
		return err
	}
	p.TotalSubscriptions++
	p.LastActivityDate = lo.ToPtr(at)
	t.state.partners[partnerID] = p
	return nil
}

func (t *memTx) IncrementInfluencerReferrals(_ context.Context, influencerID string, at time.Time) error {
	i, ok := t.state.influencers[influencerID]
	if !ok {
		return fmt.Errorf("influencer %s not found", influencerID)
	}
	if err := t.write("IncrementInfluencerReferrals", influencerID); err != nil {
		return err
	}
	i.SubscriberCount++
	i.TotalReferrals++
	i.LastReferralDate = lo.ToPtr(at)
	t.state.influencers[influencerID] = i
	return nil
}
