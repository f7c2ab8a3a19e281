package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrDocumentNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "document")
}

// ErrDocumentProcessing rejects a reprocess request while an attempt is in
// flight; the caller retries after the current attempt reaches a terminal
// status.
type ErrDocumentProcessing struct {
	error
}

func NewErrDocumentProcessing(id uuid.UUID) *ErrDocumentProcessing {
	return &ErrDocumentProcessing{fmt.Errorf("document %s has an attempt in flight", id)}
}

type ErrEmptyDocument struct {
	error
}

func NewErrEmptyDocument() *ErrEmptyDocument {
	return &ErrEmptyDocument{fmt.Errorf("bad request: uploaded document is empty")}
}
