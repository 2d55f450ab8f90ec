package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/models"
	platformdb "github.com/nextbud/premium/internal/platform/db"
	"github.com/nextbud/premium/pkg/types"
)

func dockerHost() string {
	if h, ok := os.LookupEnv("DOCKERTEST_HOST"); ok {
		return h
	}
	return "localhost"
}

// PostgresStoreSuite runs the store against a throwaway Postgres container.
type PostgresStoreSuite struct {
	suite.Suite

	orm   *gorm.DB
	store *LifecycleStore
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container tests disabled in -short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	t := s.T()
	require := s.Require()

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.Run("postgres", "16-alpine", []string{"POSTGRES_PASSWORD=postgres"})
	require.NoError(err, "status postgres")
	t.Cleanup(func() {
		require.NoError(pool.Purge(resource), "purge resource %s", resource.Container.Name)
	})

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", dockerHost(), resource.GetPort("5432/tcp"))
	err = pool.Retry(func() error {
		orm, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return err
		}
		d, err := orm.DB()
		if err != nil {
			return err
		}
		if err := d.Ping(); err != nil {
			return err
		}
		s.orm = orm
		return nil
	})
	require.NoError(err, "wait for postgres connection")
	require.NoError(platformdb.AutoMigrate(zap.NewNop().Sugar(), s.orm))
	s.store = NewLifecycleStore(s.orm)
}

func (s *PostgresStoreSuite) SetupTest() {
	for _, table := range []string{"subscriptions", "users", "pending_activations", "activity_logs"} {
		s.Require().NoError(s.orm.Exec("TRUNCATE TABLE " + table).Error)
	}
}

func (s *PostgresStoreSuite) insertPendingSubscription() string {
	id := uuid.NewString()
	s.Require().NoError(s.orm.Create(&models.Subscription{
		ID:            id,
		CustomerEmail: "bob@x.com",
		PartnerID:     "acme",
		Status:        types.SubscriptionStatusPending,
		Duration:      30,
	}).Error)
	return id
}

func (s *PostgresStoreSuite) subscriptionStatus(id string) types.SubscriptionStatus {
	var sub models.Subscription
	s.Require().NoError(s.orm.First(&sub, "id = ?", id).Error)
	return sub.Status
}

func (s *PostgresStoreSuite) approve(ctx context.Context, tx lifecycle.Tx, id string) error {
	end := at.AddDate(0, 0, 30)
	return tx.TransitionSubscription(ctx, id, types.SubscriptionStatusPending, lifecycle.SubscriptionChange{
		To:        types.SubscriptionStatusActive,
		At:        at,
		StartDate: &at,
		EndDate:   &end,
		Duration:  30,
	})
}

func (s *PostgresStoreSuite) TestTransitionTwiceFailsPrecondition() {
	ctx := context.Background()
	id := s.insertPendingSubscription()

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		return s.approve(ctx, tx, id)
	})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, s.subscriptionStatus(id))

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		return s.approve(ctx, tx, id)
	})
	s.ErrorIs(err, lifecycle.ErrPreconditionFailed)
}

func (s *PostgresStoreSuite) TestSavepointRollsBackOnlyItsOwnWrites() {
	ctx := context.Background()
	kept := s.insertPendingSubscription()
	dropped := s.insertPendingSubscription()
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		s.Require().NoError(tx.Savepoint(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
			return s.approve(ctx, tx, kept)
		}))
		err := tx.Savepoint(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
			if err := s.approve(ctx, tx, dropped); err != nil {
				return err
			}
			return boom
		})
		s.Require().ErrorIs(err, boom)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, s.subscriptionStatus(kept))
	s.Equal(types.SubscriptionStatusPending, s.subscriptionStatus(dropped))
}

func (s *PostgresStoreSuite) TestForeignPremiumSourceSurvivesRevoke() {
	ctx := context.Background()
	expired := at.AddDate(0, 0, -1)
	s.Require().NoError(s.orm.Exec(
		`INSERT INTO users (id, email, premium_user, mart_premium_user, premium_expiry_date, premium_source, notes)
		 VALUES (?, ?, true, true, ?, ?, ''), (?, ?, true, true, ?, ?, 'vip')`,
		"u1", "legacy@x.com", expired, "unknown",
		"u2", "partner@x.com", expired, "partner_acme",
	).Error)

	users, err := s.store.ListExpiredPremiumUsers(ctx, at, 10)
	s.Require().NoError(err)
	s.Require().Len(users, 2)

	legacy, err := s.store.FindUserByEmail(ctx, "legacy@x.com")
	s.Require().NoError(err)
	s.Require().NotNil(legacy.PremiumSource)
	s.True(legacy.PremiumSource.IsOpaque())
	s.Nil(legacy.CreatedAt)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		for _, u := range users {
			if err := tx.RevokeUserPremium(ctx, u.ID, lifecycle.PremiumRevocation{
				ExpiredBefore: at,
				At:            at,
				Note:          "Premium expired on 2025-03-09",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)

	var rows []struct {
		ID            string
		PremiumUser   bool
		PremiumSource string
		Notes         string
	}
	s.Require().NoError(s.orm.Raw("SELECT id, premium_user, premium_source, notes FROM users ORDER BY id").Scan(&rows).Error)
	s.Require().Len(rows, 2)
	s.False(rows[0].PremiumUser)
	s.Equal("unknown", rows[0].PremiumSource)
	s.Equal("Premium expired on 2025-03-09", rows[0].Notes)
	s.Equal("partner_acme", rows[1].PremiumSource)
	s.Equal("vip\nPremium expired on 2025-03-09", rows[1].Notes)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		return tx.RevokeUserPremium(ctx, "u1", lifecycle.PremiumRevocation{ExpiredBefore: at, At: at, Note: "again"})
	})
	s.ErrorIs(err, lifecycle.ErrPreconditionFailed)
}

func (s *PostgresStoreSuite) TestPendingActivationTouchAndActivate() {
	ctx := context.Background()
	id := uuid.NewString()
	s.Require().NoError(s.orm.Create(&models.PendingActivation{
		ID:               id,
		Email:            "new@x.com",
		PartnerID:        "acme",
		SubscriptionID:   uuid.NewString(),
		Duration:         30,
		ApprovedAt:       at,
		ExpiresAt:        at.AddDate(0, 0, 30),
		ActivationStatus: types.ActivationStatusWaitingForUser,
	}).Error)

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		if err := tx.TouchPendingActivation(ctx, id, at); err != nil {
			return err
		}
		return tx.TransitionPendingActivation(ctx, id, types.ActivationStatusWaitingForUser, lifecycle.ActivationChange{
			To:     types.ActivationStatusActivated,
			At:     at,
			UserID: lo.ToPtr("u1"),
		})
	})
	s.Require().NoError(err)

	var pa models.PendingActivation
	s.Require().NoError(s.orm.First(&pa, "id = ?", id).Error)
	s.Equal(1, pa.CheckCount)
	s.Equal(types.ActivationStatusActivated, pa.ActivationStatus)
	s.Equal("u1", lo.FromPtr(pa.UserID))

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		return tx.TouchPendingActivation(ctx, id, at)
	})
	require.ErrorIs(s.T(), err, lifecycle.ErrPreconditionFailed)
}
