package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxImportLogErrors caps the row errors persisted with an ImportLog.
const MaxImportLogErrors = 20

type ImportRowError struct {
	Row   int    `json:"row"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

// ImportLog records one partner CSV import.
type ImportLog struct {
	ID             string                                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	PartnerID      string                                `gorm:"column:partner_id;type:varchar(64);not null;index" json:"partnerId"`
	ImportDate     time.Time                             `gorm:"column:import_date;not null" json:"importDate"`
	TotalProcessed int                                   `gorm:"column:total_processed;not null" json:"totalProcessed"`
	SuccessCount   int                                   `gorm:"column:success_count;not null" json:"successCount"`
	ErrorCount     int                                   `gorm:"column:error_count;not null" json:"errorCount"`
	Errors         datatypes.JSONType[[]ImportRowError] `gorm:"column:errors;type:jsonb;default:'[]'" json:"errors"`
}

func (ImportLog) TableName() string {
	return "import_logs"
}

// NewImportLog builds an ImportLog keeping at most MaxImportLogErrors row errors.
func NewImportLog(id, partnerID string, at time.Time, total, success int, rowErrors []ImportRowError) *ImportLog {
	kept := rowErrors
	if len(kept) > MaxImportLogErrors {
		kept = kept[:MaxImportLogErrors]
	}
	return &ImportLog{
		ID:             id,
		PartnerID:      partnerID,
		ImportDate:     at,
		TotalProcessed: total,
		SuccessCount:   success,
		ErrorCount:     len(rowErrors),
		Errors:         datatypes.NewJSONType(kept),
	}
}
