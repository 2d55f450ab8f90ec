package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/config"
	"github.com/nextbud/premium/pkg/response"
	"github.com/nextbud/premium/pkg/types"
)

const partnerKey = "partner"

// PartnerAuthenticator resolves a partner from its slug and API key.
type PartnerAuthenticator interface {
	Authenticate(ctx context.Context, partnerSlug, apiKey string) (*models.Partner, error)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusOK, response.ErrorT(response.APIResponseCodeUnauthorized, msg))
}

// AdminAuthMiddleware requires "Authorization: Bearer <admin.api_key>".
// With no key configured every admin request is rejected.
func AdminAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		want := cfg.Admin.APIKey
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if want == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(want)) != 1 {
			unauthorized(c, "invalid admin credentials")
			return
		}
		c.Set("performed_by", types.PerformedByAdmin)
		c.Next()
	}
}

// PartnerAuthMiddleware authenticates the X-API-Key header against the
// partner named by the :slug route param.
func PartnerAuthMiddleware(auth PartnerAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.Authenticate(c.Request.Context(), c.Param("slug"), c.GetHeader("X-API-Key"))
		if errors.Is(err, partner.ErrUnauthorized) {
			unauthorized(c, "invalid partner credentials")
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, response.ErrorT(response.APIResponseCodeError, "internal error"))
			return
		}
		c.Set(partnerKey, p)
		c.Next()
	}
}

// PartnerFromGin returns the partner set by PartnerAuthMiddleware.
func PartnerFromGin(c *gin.Context) (*models.Partner, bool) {
	v, ok := c.Get(partnerKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Partner)
	return p, ok && p != nil
}
