package models

import "time"

const (
	MimeTypePDF    = "application/pdf"
	MimeTypeImage  = "image/"
	CollectionName = "processed_documents"
)

// ProcessedDocument is the persisted result of one summarization. It is only
// ever written fully populated.
type ProcessedDocument struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"_id"`
	FileName       string    `gorm:"type:text;not null" json:"fileName"`
	FileType       string    `gorm:"type:text;not null" json:"fileType"`
	FileSize       int64     `gorm:"not null" json:"fileSize"`
	Summary        string    `gorm:"type:text;not null" json:"summary"`
	ProcessedAt    time.Time `gorm:"not null;index" json:"processedAt"`
	ProcessingTime int64     `gorm:"not null" json:"processingTime"`
	UserID         *string   `gorm:"type:text" json:"userId,omitempty"`
}

// DocumentRecord is the canonical shape handed out by the store: string id and
// a UTC timestamp, whatever the backing database keeps natively.
type DocumentRecord struct {
	ID             string    `json:"_id"`
	FileName       string    `json:"fileName"`
	FileType       string    `json:"fileType"`
	FileSize       int64     `json:"fileSize"`
	Summary        string    `json:"summary"`
	ProcessedAt    time.Time `json:"processedAt"`
	ProcessingTime int64     `json:"processingTime"`
}

type DocumentHistory struct {
	Documents []DocumentRecord `json:"documents"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	Limit     int              `json:"limit"`
}

func (d ProcessedDocument) Record() DocumentRecord {
	return DocumentRecord{
		ID:             d.ID,
		FileName:       d.FileName,
		FileType:       d.FileType,
		FileSize:       d.FileSize,
		Summary:        d.Summary,
		ProcessedAt:    d.ProcessedAt.UTC(),
		ProcessingTime: d.ProcessingTime,
	}
}
