package store

import (
	"context"
	"errors"
	"time"

	"github.com/editalhub/edital-api/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document interface {
	List(ctx context.Context, filter *DocumentQueryFilter) (model.DocumentList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
	GetByContentHash(ctx context.Context, hash string) (*model.Document, error)
	Create(ctx context.Context, document model.Document) (*model.Document, error)
	ListDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]uuid.UUID, error)
	BeginAttempt(ctx context.Context, id uuid.UUID, now time.Time, staleBefore time.Time) (*model.Document, error)
	CompleteAttempt(ctx context.Context, id uuid.UUID, attempt int, header model.ExtractionHeader) error
	RescheduleAttempt(ctx context.Context, id uuid.UUID, attempt int, reason string, nextAttemptAt time.Time) error
	FailAttempt(ctx context.Context, id uuid.UUID, attempt int, reason string) error
	ResetForReprocess(ctx context.Context, id uuid.UUID, expected model.DocumentStatus) error
	InitialMigration() error
}

type DocumentStore struct {
	db *gorm.DB
}

// Make sure we conform to Document interface
var _ Document = (*DocumentStore)(nil)

func NewDocumentStore(db *gorm.DB) Document {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Document{})
}

func (s *DocumentStore) List(ctx context.Context, filter *DocumentQueryFilter) (model.DocumentList, error) {
	var documents model.DocumentList
	tx := s.getDB(ctx).Model(&documents).Order("created_at DESC")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	result := tx.Find(&documents)
	if result.Error != nil {
		return nil, result.Error
	}
	return documents, nil
}

func (s *DocumentStore) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var document model.Document
	result := s.getDB(ctx).First(&document, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &document, nil
}

func (s *DocumentStore) GetByContentHash(ctx context.Context, hash string) (*model.Document, error) {
	filter := NewDocumentQueryFilter().ByContentHash(hash)

	tx := s.getDB(ctx)
	for _, fn := range filter.QueryFn {
		tx = fn(tx)
	}

	var document model.Document
	result := tx.First(&document)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &document, nil
}

func (s *DocumentStore) Create(ctx context.Context, document model.Document) (*model.Document, error) {
	result := s.getDB(ctx).Create(&document)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &document, nil
}

// ListDue returns PENDING documents whose backoff deadline has passed,
// plus PROCESSING documents claimed before staleBefore: those were claimed
// by a worker that died mid-attempt and need to be picked up again.
func (s *DocumentStore) ListDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	filter := NewDocumentQueryFilter().DueAt(now, staleBefore)

	tx := s.getDB(ctx).Model(&model.Document{})
	for _, fn := range filter.QueryFn {
		tx = fn(tx)
	}

	if err := tx.Order("created_at").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// BeginAttempt claims a document for one attempt and increments its attempt
// counter. The conditional update is the at-most-one-attempt guard: only a
// PENDING document, or a PROCESSING one whose claim predates staleBefore
// (its worker is gone), matches; everything else returns ErrConcurrentUpdate.
func (s *DocumentStore) BeginAttempt(ctx context.Context, id uuid.UUID, now time.Time, staleBefore time.Time) (*model.Document, error) {
	result := s.getDB(ctx).Model(&model.Document{}).
		Where("id = ? AND (status = ? OR (status = ? AND last_attempt_at <= ?))",
			id, model.DocumentStatusPending, model.DocumentStatusProcessing, staleBefore).
		Updates(map[string]interface{}{
			"status":          model.DocumentStatusProcessing,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_attempt_at": now,
			"next_attempt_at": nil,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, s.casMiss(ctx, id)
	}
	return s.Get(ctx, id)
}

// CompleteAttempt moves a PROCESSING document to COMPLETED and records the
// document-level extraction fields. Expected to run inside the same
// transaction context as the knowledge-graph replacement. The attempt number
// fences the write: a worker whose claim was meanwhile reclaimed as stale
// no longer matches and must not conclude the reclaimer's attempt.
func (s *DocumentStore) CompleteAttempt(ctx context.Context, id uuid.UUID, attempt int, header model.ExtractionHeader) error {
	updates := map[string]interface{}{
		"status":          model.DocumentStatusCompleted,
		"status_info":     nil,
		"next_attempt_at": nil,
	}
	if header.ContestName != "" {
		updates["contest_name"] = header.ContestName
	}
	if header.ExaminingBoard != "" {
		updates["examining_board"] = header.ExaminingBoard
	}
	if header.ExamDate != nil {
		updates["exam_date"] = header.ExamDate
	}

	result := s.getDB(ctx).Model(&model.Document{}).
		Where("id = ? AND status = ? AND attempt_count = ?", id, model.DocumentStatusProcessing, attempt).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.casMiss(ctx, id)
	}
	return nil
}

// RescheduleAttempt moves a PROCESSING document back to PENDING after a
// transient failure, recording the failure reason and the backoff deadline.
// Fenced on the attempt number like CompleteAttempt.
func (s *DocumentStore) RescheduleAttempt(ctx context.Context, id uuid.UUID, attempt int, reason string, nextAttemptAt time.Time) error {
	result := s.getDB(ctx).Model(&model.Document{}).
		Where("id = ? AND status = ? AND attempt_count = ?", id, model.DocumentStatusProcessing, attempt).
		Updates(map[string]interface{}{
			"status":          model.DocumentStatusPending,
			"status_info":     reason,
			"next_attempt_at": nextAttemptAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.casMiss(ctx, id)
	}
	return nil
}

// FailAttempt moves a PROCESSING document to FAILED, terminally.
// Fenced on the attempt number like CompleteAttempt.
func (s *DocumentStore) FailAttempt(ctx context.Context, id uuid.UUID, attempt int, reason string) error {
	result := s.getDB(ctx).Model(&model.Document{}).
		Where("id = ? AND status = ? AND attempt_count = ?", id, model.DocumentStatusProcessing, attempt).
		Updates(map[string]interface{}{
			"status":          model.DocumentStatusFailed,
			"status_info":     reason,
			"next_attempt_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.casMiss(ctx, id)
	}
	return nil
}

// ResetForReprocess moves a terminal document back to PENDING with a fresh
// attempt budget. The expected status guards against racing an in-flight
// attempt: a document that meanwhile entered PROCESSING is left alone.
func (s *DocumentStore) ResetForReprocess(ctx context.Context, id uuid.UUID, expected model.DocumentStatus) error {
	result := s.getDB(ctx).Model(&model.Document{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{
			"status":          model.DocumentStatusPending,
			"status_info":     nil,
			"attempt_count":   0,
			"next_attempt_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.casMiss(ctx, id)
	}
	return nil
}

// casMiss distinguishes "row is gone" from "row is in another status".
func (s *DocumentStore) casMiss(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrConcurrentUpdate
}

func (s *DocumentStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
