package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/config"
	"github.com/nextbud/premium/pkg/response"
)

type stubAuth struct {
	partner *models.Partner
	err     error
}

func (a stubAuth) Authenticate(_ context.Context, slug, key string) (*models.Partner, error) {
	if a.err != nil {
		return nil, a.err
	}
	if slug != a.partner.Slug || key != a.partner.APIKey {
		return nil, partner.ErrUnauthorized
	}
	return a.partner, nil
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) response.APIResponseCode {
	t.Helper()
	var resp response.APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestAdminAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Admin: config.AdminConfig{APIKey: "s3cret"}}
	r := gin.New()
	r.GET("/admin", AdminAuthMiddleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(c.GetString("performed_by")))
	})

	cases := []struct {
		name   string
		header string
		want   response.APIResponseCode
	}{
		{"valid", "Bearer s3cret", response.APIResponseCodeOK},
		{"wrong key", "Bearer nope", response.APIResponseCodeUnauthorized},
		{"missing scheme", "s3cret", response.APIResponseCodeUnauthorized},
		{"missing", "", response.APIResponseCodeUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, decodeCode(t, w))
		})
	}
}

func TestAdminAuthMiddlewareRejectsWhenUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminAuthMiddleware(&config.Config{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT("ok"))
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer ")
	r.ServeHTTP(w, req)
	assert.Equal(t, response.APIResponseCodeUnauthorized, decodeCode(t, w))
}

func TestPartnerAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := &models.Partner{ID: "p1", Slug: "acme", APIKey: "k1"}
	newRouter := func(auth PartnerAuthenticator) *gin.Engine {
		r := gin.New()
		r.POST("/partners/:slug/process-csv", PartnerAuthMiddleware(auth), func(c *gin.Context) {
			got, ok := PartnerFromGin(c)
			require.True(t, ok)
			c.JSON(http.StatusOK, response.OKT(got.ID))
		})
		return r
	}
	do := func(r *gin.Engine, slug, key string) response.APIResponseCode {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/partners/"+slug+"/process-csv", nil)
		req.Header.Set("X-API-Key", key)
		r.ServeHTTP(w, req)
		return decodeCode(t, w)
	}

	r := newRouter(stubAuth{partner: p})
	assert.Equal(t, response.APIResponseCodeOK, do(r, "acme", "k1"))
	assert.Equal(t, response.APIResponseCodeUnauthorized, do(r, "acme", "k2"))
	assert.Equal(t, response.APIResponseCodeUnauthorized, do(r, "other", "k1"))

	r = newRouter(stubAuth{partner: p, err: errors.New("db down")})
	assert.Equal(t, response.APIResponseCodeError, do(r, "acme", "k1"))
}
