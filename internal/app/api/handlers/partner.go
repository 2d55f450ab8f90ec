package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/nextbud/premium/internal/app/api/middleware"
	"github.com/nextbud/premium/internal/app/service/partner"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/response"
)

const maxCSVSize = 5 << 20

// PartnerDirectory is the partner surface used by public and partner routes.
type PartnerDirectory interface {
	mw.PartnerAuthenticator
	ListActive(ctx context.Context) ([]*partner.PublicPartner, error)
	GetActive(ctx context.Context, partnerSlug string) (*partner.PublicPartner, error)
	ImportCSV(ctx context.Context, p *models.Partner, r io.Reader) (*partner.ImportResult, error)
}

// @Summary      List Partners
// @Description  Lists active partners.
// @Tags         Partner
// @Produce      json
// @Success      200  {object}  handlers.RespPartners
// @Router       /partners [get]
func ApiListPartners(svc PartnerDirectory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.ListActive(c.Request.Context())
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Partner
// @Description  Returns one active partner by slug.
// @Tags         Partner
// @Produce      json
// @Param        slug path string true "Partner slug"
// @Success      200  {object}  handlers.RespPartner
// @Router       /partners/{slug} [get]
func ApiGetPartner(svc PartnerDirectory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.GetActive(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Import Subscriptions CSV (Partner)
// @Description  Creates pending subscriptions from a CSV with columns customerEmail, duration, status.
// @Tags         Partner
// @Accept       multipart/form-data
// @Produce      json
// @Security     PartnerAPIKey
// @Param        slug path string true "Partner slug"
// @Param        csvFile formData file true "CSV file"
// @Success      200  {object}  handlers.RespImport
// @Router       /partners/{slug}/process-csv [post]
func ApiProcessCSV(svc PartnerDirectory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := mw.PartnerFromGin(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeUnauthorized, "partner not authenticated"))
			return
		}
		fh, err := c.FormFile("csvFile")
		if err != nil {
			badRequest(c, "csvFile is required")
			return
		}
		if fh.Size > maxCSVSize {
			badRequest(c, "csvFile is too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(c, log, err)
			return
		}
		defer f.Close()

		res, err := svc.ImportCSV(c.Request.Context(), p, f)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterPartnerRoutes(r gin.IRouter, svc PartnerDirectory, log *zap.SugaredLogger) {
	r.GET("", ApiListPartners(svc, log))
	r.GET("/:slug", ApiGetPartner(svc, log))
	r.POST("/:slug/process-csv", mw.PartnerAuthMiddleware(svc), ApiProcessCSV(svc, log))
}
