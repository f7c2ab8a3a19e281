// Package v1alpha1 holds the JSON types served by the public API.
package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id             uuid.UUID  `json:"id"`
	DisplayName    string     `json:"displayName"`
	Status         string     `json:"status"`
	StatusInfo     *string    `json:"statusInfo,omitempty"`
	ContestName    *string    `json:"contestName,omitempty"`
	ExaminingBoard *string    `json:"examiningBoard,omitempty"`
	ExamDate       *time.Time `json:"examDate,omitempty"`
	AttemptCount   int        `json:"attemptCount"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type DocumentList []Document

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}
