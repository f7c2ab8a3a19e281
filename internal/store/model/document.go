package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusCompleted  DocumentStatus = "COMPLETED"
	DocumentStatusFailed     DocumentStatus = "FAILED"
)

// Document is one ingested contest-announcement file and its processing state.
// The status column is the single synchronization point for the pipeline:
// every transition is a compare-and-set keyed on the expected prior status.
type Document struct {
	ID             uuid.UUID      `gorm:"primaryKey;"`
	DisplayName    string         `gorm:"not null"`
	ContentHash    string         `gorm:"uniqueIndex;not null"`
	BlobKey        string         `gorm:"not null"`
	Status         DocumentStatus `gorm:"type:VARCHAR(20);not null;index"`
	StatusInfo     *string
	ContestName    *string
	ExaminingBoard *string
	ExamDate       *time.Time
	AttemptCount   int `gorm:"not null;default:0"`
	LastAttemptAt  *time.Time
	NextAttemptAt  *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      *time.Time
	Roles          []Role  `gorm:"foreignKey:DocumentID;references:ID;constraint:OnDelete:CASCADE;"`
	Topics         []Topic `gorm:"foreignKey:DocumentID;references:ID;constraint:OnDelete:CASCADE;"`
}

type DocumentList []Document

func (d Document) String() string {
	val, _ := json.Marshal(d)
	return string(val)
}

// ExtractionHeader carries the document-level fields of a successful
// extraction into the COMPLETED transition.
type ExtractionHeader struct {
	ContestName    string
	ExaminingBoard string
	ExamDate       *time.Time
}
