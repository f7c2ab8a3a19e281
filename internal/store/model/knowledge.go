package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role is a hireable position announced by a document. Roles and their
// compositions exist only as children of a successful extraction.
type Role struct {
	ID           uint              `gorm:"primaryKey;autoIncrement"`
	JobTitle     string            `gorm:"not null;index"`
	DocumentID   uuid.UUID         `gorm:"not null;index"`
	Compositions []ExamComposition `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:CASCADE;"`
}

// ExamComposition is the structural weighting of one subject within a
// role's exam. The numeric fields are copied verbatim from the extraction
// and are nullable when the announcement omits them.
type ExamComposition struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	SubjectName       string `gorm:"not null;index"`
	NumberOfQuestions *int
	WeightPerQuestion *float64
	RoleID            uint `gorm:"not null;index"`
}

// Topic is the smallest unit of testable content. Its identity for
// consistency checks is the (exam module, subject, text) tuple.
type Topic struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ExamModule string    `gorm:"not null;index"`
	Subject    string    `gorm:"not null;index"`
	Text       string    `gorm:"column:topic;not null"`
	DocumentID uuid.UUID `gorm:"not null;index"`
}

type RoleList []Role
type TopicList []Topic

func (r Role) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}

func (t Topic) String() string {
	val, _ := json.Marshal(t)
	return string(val)
}
