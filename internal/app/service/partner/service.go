package partner

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nextbud/premium/internal/app/service/activitylog"
	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/config"
	"github.com/nextbud/premium/pkg/logctx"
	"github.com/nextbud/premium/pkg/tool"
	"github.com/nextbud/premium/pkg/types"
)

const maxSlugLength = 50

type RegisterRequest struct {
	Name                        string `json:"name"`
	Slug                        string `json:"slug,omitempty"`
	ContactEmail                string `json:"contactEmail"`
	ContactName                 string `json:"contactName"`
	ContactPhone                string `json:"contactPhone,omitempty"`
	Website                     string `json:"website,omitempty"`
	Description                 string `json:"description,omitempty"`
	LogoURL                     string `json:"logoUrl,omitempty"`
	DefaultSubscriptionDuration *int   `json:"defaultSubscriptionDuration,omitempty"`
}

type RegisterResult struct {
	Partner *models.Partner `json:"partner"`
	// APIKey is only returned once, at registration.
	APIKey string `json:"apiKey"`
}

// PublicPartner is the subset of a partner exposed on unauthenticated routes.
type PublicPartner struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	LogoURL     string `json:"logoUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
}

type CreatePendingSubscriptionRequest struct {
	Email     string `json:"email"`
	PartnerID string `json:"partnerId"`
	Duration  *int   `json:"duration,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type Service struct {
	db       *gorm.DB
	cfg      *config.Config
	log      *zap.SugaredLogger
	validate *validator.Validate
	now      func() time.Time
}

func New(db *gorm.DB, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MakeSlug derives a URL slug from a partner name, capped at 50 characters.
func MakeSlug(name string) string {
	s := slug.Make(name)
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s
}

func generateAPIKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Service) defaultDuration() int {
	return lo.Ternary(s.cfg.Lifecycle.DefaultPartnerDurationDays > 0, s.cfg.Lifecycle.DefaultPartnerDurationDays, 90)
}

func (s *Service) validateRegister(req *RegisterRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrValidation)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.ContactName) == "" {
		return fmt.Errorf("%w: name and contactName are required", ErrValidation)
	}
	if err := s.validate.Var(req.ContactEmail, "required,email"); err != nil {
		return fmt.Errorf("%w: contactEmail is invalid", ErrValidation)
	}
	if req.DefaultSubscriptionDuration != nil && *req.DefaultSubscriptionDuration <= 0 {
		return fmt.Errorf("%w: defaultSubscriptionDuration must be positive", ErrValidation)
	}
	return nil
}

// Register creates an active partner and returns its freshly generated API key.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	if err := s.validateRegister(req); err != nil {
		return nil, err
	}
	partnerSlug := MakeSlug(lo.Ternary(req.Slug != "", req.Slug, req.Name))
	if partnerSlug == "" {
		return nil, fmt.Errorf("%w: name does not produce a usable slug", ErrValidation)
	}
	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	now := s.now()
	p := &models.Partner{
		ID:                          partnerSlug,
		Name:                        strings.TrimSpace(req.Name),
		Slug:                        partnerSlug,
		Status:                      types.PartnerStatusActive,
		APIKey:                      apiKey,
		LogoURL:                     req.LogoURL,
		Description:                 req.Description,
		Website:                     req.Website,
		ContactEmail:                lifecycle.NormalizeEmail(req.ContactEmail),
		ContactName:                 strings.TrimSpace(req.ContactName),
		ContactPhone:                req.ContactPhone,
		DefaultSubscriptionDuration: lo.FromPtrOr(req.DefaultSubscriptionDuration, s.defaultDuration()),
		PartnershipStartDate:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Partner{}).Where("slug = ?", partnerSlug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: slug %s", ErrConflict, partnerSlug)
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return activitylog.Append(ctx, tx, &models.ActivityLog{
			Action:      types.ActivityActionPartnerRegistered,
			PartnerID:   lo.ToPtr(p.ID),
			PerformedBy: types.PerformedByAdmin,
			AdminAction: true,
			Details:     datatypes.JSONMap{"name": p.Name},
			Timestamp:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("partner registered", "partner_id", p.ID)
	return &RegisterResult{Partner: p, APIKey: apiKey}, nil
}

func toPublic(p *models.Partner) *PublicPartner {
	return &PublicPartner{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		LogoURL:     p.LogoURL,
		Description: p.Description,
		Website:     p.Website,
	}
}

func (s *Service) ListActive(ctx context.Context) ([]*PublicPartner, error) {
	var partners []*models.Partner
	err := s.db.WithContext(ctx).
		Where("status = ?", types.PartnerStatusActive).
		Order("name ASC").
		Find(&partners).Error
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	return lo.Map(partners, func(p *models.Partner, _ int) *PublicPartner { return toPublic(p) }), nil
}

func (s *Service) getActive(ctx context.Context, partnerSlug string) (*models.Partner, error) {
	var p models.Partner
	err := s.db.WithContext(ctx).
		Where("slug = ? AND status = ?", partnerSlug, types.PartnerStatusActive).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, partnerSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("get partner %s: %w", partnerSlug, err)
	}
	return &p, nil
}

func (s *Service) GetActive(ctx context.Context, partnerSlug string) (*PublicPartner, error) {
	p, err := s.getActive(ctx, partnerSlug)
	if err != nil {
		return nil, err
	}
	return toPublic(p), nil
}

// Authenticate returns the active partner identified by slug when apiKey matches.
func (s *Service) Authenticate(ctx context.Context, partnerSlug, apiKey string) (*models.Partner, error) {
	if apiKey == "" {
		return nil, ErrUnauthorized
	}
	p, err := s.getActive(ctx, partnerSlug)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(p.APIKey), []byte(apiKey)) != 1 {
		return nil, ErrUnauthorized
	}
	return p, nil
}

// CreatePendingSubscription records a pending subscription for later admin approval.
func (s *Service) CreatePendingSubscription(ctx context.Context, req *CreatePendingSubscriptionRequest) (*models.Subscription, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrValidation)
	}
	email := lifecycle.NormalizeEmail(req.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: email is invalid", ErrValidation)
	}
	if req.PartnerID == "" {
		return nil, fmt.Errorf("%w: partnerId is required", ErrValidation)
	}
	if req.Duration != nil && *req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	var p models.Partner
	err := s.db.WithContext(ctx).Where("id = ?", req.PartnerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.PartnerID)
	}
	if err != nil {
		return nil, fmt.Errorf("get partner %s: %w", req.PartnerID, err)
	}

	now := s.now()
	sub := &models.Subscription{
		ID:            tool.GenerateUUIDV7(),
		CustomerEmail: email,
		PartnerID:     p.ID,
		Status:        types.SubscriptionStatusPending,
		Duration:      lo.FromPtrOr(req.Duration, p.DefaultSubscriptionDuration),
		Source:        types.SubscriptionSourceAdmin,
		Notes:         req.Notes,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return activitylog.Append(ctx, tx, &models.ActivityLog{
			Action:         types.ActivityActionSubscriptionCreated,
			PartnerID:      lo.ToPtr(p.ID),
			SubscriptionID: lo.ToPtr(sub.ID),
			CustomerEmail:  lo.ToPtr(email),
			PerformedBy:    types.PerformedByAdmin,
			AdminAction:    true,
			Notes:          req.Notes,
			Details:        datatypes.JSONMap{"duration": sub.Duration, "source": string(sub.Source)},
			Timestamp:      now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create pending subscription: %w", err)
	}
	return sub, nil
}
