package partner

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nextbud/premium/internal/app/service/activitylog"
	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/logctx"
	"github.com/nextbud/premium/pkg/tool"
	"github.com/nextbud/premium/pkg/types"
)

const (
	csvColumnEmail    = "customeremail"
	csvColumnDuration = "duration"
	csvColumnStatus   = "status"
)

type importRow struct {
	line     int
	email    string
	duration int
}

type ImportResult struct {
	ImportID       string                  `json:"importId"`
	TotalProcessed int                     `json:"totalProcessed"`
	SuccessCount   int                     `json:"successCount"`
	ErrorCount     int                     `json:"errorCount"`
	Errors         []models.ImportRowError `json:"errors"`
}

// parseImportCSV reads partner rows. Header names are case-insensitive;
// customerEmail is required, duration and status are optional. Rows that
// fail validation are returned as row errors, numbered by file line.
func parseImportCSV(r io.Reader, validate *validator.Validate) ([]importRow, []models.ImportRowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: csv file is empty", ErrValidation)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read csv header: %v", ErrValidation, err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	emailCol, ok := cols[csvColumnEmail]
	if !ok {
		return nil, nil, fmt.Errorf("%w: csv is missing the customerEmail column", ErrValidation)
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []importRow
	var rowErrors []models.ImportRowError
	seen := map[string]bool{}
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			rowErrors = append(rowErrors, models.ImportRowError{Row: line, Error: err.Error()})
			continue
		}
		if len(lo.Compact(lo.Map(rec, func(v string, _ int) string { return strings.TrimSpace(v) }))) == 0 {
			continue
		}

		email := ""
		if emailCol < len(rec) {
			email = lifecycle.NormalizeEmail(rec[emailCol])
		}
		if err := validate.Var(email, "required,email"); err != nil {
			rowErrors = append(rowErrors, models.ImportRowError{Row: line, Email: email, Error: "invalid customerEmail"})
			continue
		}
		if status := strings.ToLower(field(rec, csvColumnStatus)); status != "" && status != string(types.SubscriptionStatusPending) {
			rowErrors = append(rowErrors, models.ImportRowError{Row: line, Email: email, Error: fmt.Sprintf("status must be pending, got %q", status)})
			continue
		}
		duration := 0
		if raw := field(rec, csvColumnDuration); raw != "" {
			d, err := strconv.Atoi(raw)
			if err != nil || d <= 0 {
				rowErrors = append(rowErrors, models.ImportRowError{Row: line, Email: email, Error: fmt.Sprintf("duration must be a positive integer, got %q", raw)})
				continue
			}
			duration = d
		}
		if seen[email] {
			rowErrors = append(rowErrors, models.ImportRowError{Row: line, Email: email, Error: "duplicate email in file"})
			continue
		}
		seen[email] = true
		rows = append(rows, importRow{line: line, email: email, duration: duration})
	}
	return rows, rowErrors, nil
}

// ImportCSV creates one pending subscription per valid row for later admin
// approval and records the run in import_logs.
func (s *Service) ImportCSV(ctx context.Context, partner *models.Partner, r io.Reader) (*ImportResult, error) {
	if partner == nil {
		return nil, fmt.Errorf("%w: partner is required", ErrValidation)
	}
	rows, rowErrors, err := parseImportCSV(r, s.validate)
	if err != nil {
		return nil, err
	}
	total := len(rows) + len(rowErrors)
	now := s.now()
	success := 0

	importLogID := tool.GenerateUUIDV7()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			var existing int64
			err := tx.Model(&models.Subscription{}).
				Where("customer_email = ? AND partner_id = ? AND status = ?", row.email, partner.ID, types.SubscriptionStatusPending).
				Count(&existing).Error
			if err != nil {
				return err
			}
			if existing > 0 {
				rowErrors = append(rowErrors, models.ImportRowError{Row: row.line, Email: row.email, Error: "pending subscription already exists"})
				continue
			}
			sub := &models.Subscription{
				ID:            tool.GenerateUUIDV7(),
				CustomerEmail: row.email,
				PartnerID:     partner.ID,
				Status:        types.SubscriptionStatusPending,
				Duration:      lo.Ternary(row.duration > 0, row.duration, partner.DefaultSubscriptionDuration),
				Source:        types.SubscriptionSourceCSVImport,
			}
			if err := tx.Create(sub).Error; err != nil {
				return err
			}
			success++
		}

		err := tx.Model(&models.Partner{}).Where("id = ?", partner.ID).
			Updates(map[string]any{"last_import_date": now, "updated_at": now}).Error
		if err != nil {
			return err
		}
		importLog := models.NewImportLog(importLogID, partner.ID, now, total, success, rowErrors)
		if err := tx.Create(importLog).Error; err != nil {
			return err
		}
		return activitylog.Append(ctx, tx, &models.ActivityLog{
			Action:      types.ActivityActionSubscriptionsImported,
			PartnerID:   lo.ToPtr(partner.ID),
			PerformedBy: partner.ID,
			Details: datatypes.JSONMap{
				"importId":       importLogID,
				"totalProcessed": total,
				"successCount":   success,
				"errorCount":     len(rowErrors),
			},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("import csv for %s: %w", partner.ID, err)
	}

	logctx.FromCtx(ctx, s.log).Infow("partner csv imported", "partner_id", partner.ID, "total", total, "success", success, "errors", len(rowErrors))
	return &ImportResult{
		ImportID:       importLogID,
		TotalProcessed: total,
		SuccessCount:   success,
		ErrorCount:     len(rowErrors),
		Errors:         lo.Ternary(len(rowErrors) > 0, rowErrors, []models.ImportRowError{}),
	}, nil
}
