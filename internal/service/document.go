package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/editalhub/edital-api/internal/blob"
	"github.com/editalhub/edital-api/internal/store"
	"github.com/editalhub/edital-api/internal/store/model"
	"github.com/editalhub/edital-api/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher is the slice of the task dispatcher the service needs.
type Dispatcher interface {
	Enqueue(id uuid.UUID)
}

type DocumentService struct {
	store      store.Store
	blobs      blob.Store
	dispatcher Dispatcher
}

func NewDocumentService(s store.Store, blobs blob.Store, dispatcher Dispatcher) *DocumentService {
	return &DocumentService{store: s, blobs: blobs, dispatcher: dispatcher}
}

// Submit ingests an uploaded announcement. Byte-identical uploads resolve
// to the existing document; otherwise the bytes are stored, a PENDING
// document is created and an extraction attempt is enqueued. The returned
// bool reports whether a new document was created.
func (s *DocumentService) Submit(ctx context.Context, data []byte, displayName string) (*model.Document, bool, error) {
	if len(data) == 0 {
		return nil, false, NewErrEmptyDocument()
	}

	hash := blob.Fingerprint(data)

	existing, err := s.store.Document().GetByContentHash(ctx, hash)
	if err == nil {
		metrics.IncreaseDocumentUploadsTotalMetric(metrics.UploadDeduplicated)
		zap.S().Named("document_service").Infow("upload deduplicated", "document_id", existing.ID, "content_hash", hash)
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, false, err
	}

	key := blob.ObjectKey(hash)
	if err := s.blobs.Put(ctx, key, data, "application/pdf"); err != nil {
		return nil, false, fmt.Errorf("failed to store document blob: %w", err)
	}

	document := model.Document{
		ID:          uuid.New(),
		DisplayName: displayName,
		ContentHash: hash,
		BlobKey:     key,
		Status:      model.DocumentStatusPending,
	}

	created, err := s.store.Document().Create(ctx, document)
	if err != nil {
		// Two racing uploads of the same bytes: the unique index on
		// content_hash lets exactly one insert win, the loser resolves
		// to the winner's row.
		if errors.Is(err, store.ErrDuplicateKey) {
			existing, getErr := s.store.Document().GetByContentHash(ctx, hash)
			if getErr != nil {
				return nil, false, getErr
			}
			metrics.IncreaseDocumentUploadsTotalMetric(metrics.UploadDeduplicated)
			return existing, false, nil
		}
		return nil, false, err
	}

	metrics.IncreaseDocumentUploadsTotalMetric(metrics.UploadCreated)
	s.dispatcher.Enqueue(created.ID)
	zap.S().Named("document_service").Infow("document submitted", "document_id", created.ID, "display_name", displayName)
	return created, true, nil
}

// Reprocess moves a terminal document back to PENDING with a fresh attempt
// budget and enqueues it. Dedup is bypassed by design: the point of a
// reprocess is to retry extraction, not to detect a new file. Rejected
// while an attempt is in flight.
func (s *DocumentService) Reprocess(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	document, err := s.store.Document().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDocumentNotFound(id)
		}
		return nil, err
	}

	switch document.Status {
	case model.DocumentStatusProcessing:
		return nil, NewErrDocumentProcessing(id)
	case model.DocumentStatusPending:
		// Already queued; just make sure a worker looks at it.
		s.dispatcher.Enqueue(id)
		return document, nil
	}

	if err := s.store.Document().ResetForReprocess(ctx, id, document.Status); err != nil {
		// The document entered PROCESSING between the read and the
		// compare-and-set.
		if errors.Is(err, store.ErrConcurrentUpdate) {
			return nil, NewErrDocumentProcessing(id)
		}
		return nil, err
	}

	s.dispatcher.Enqueue(id)
	zap.S().Named("document_service").Infow("document reprocess requested", "document_id", id)

	return s.store.Document().Get(ctx, id)
}

func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	document, err := s.store.Document().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDocumentNotFound(id)
		}
		return nil, err
	}
	return document, nil
}

// ListDocuments returns COMPLETED documents by default; includeAll widens
// the listing to every status.
func (s *DocumentService) ListDocuments(ctx context.Context, includeAll bool) (model.DocumentList, error) {
	filter := store.NewDocumentQueryFilter()
	if !includeAll {
		filter = filter.ByStatus(model.DocumentStatusCompleted)
	}
	return s.store.Document().List(ctx, filter)
}
