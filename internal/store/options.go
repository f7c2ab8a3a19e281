package store

import (
	"time"

	"github.com/editalhub/edital-api/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type DocumentQueryFilter BaseQuerier

func NewDocumentQueryFilter() *DocumentQueryFilter {
	return &DocumentQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *DocumentQueryFilter) ByStatus(status model.DocumentStatus) *DocumentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return qf
}

func (qf *DocumentQueryFilter) ByContentHash(hash string) *DocumentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("content_hash = ?", hash)
	})
	return qf
}

// DueAt keeps documents a worker should pick up: PENDING ones whose backoff
// deadline has passed (or was never set), and PROCESSING ones whose claim
// predates staleBefore, meaning the claiming worker died mid-attempt.
func (qf *DocumentQueryFilter) DueAt(now time.Time, staleBefore time.Time) *DocumentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where(
			"(status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)) OR (status = ? AND last_attempt_at <= ?)",
			model.DocumentStatusPending, now, model.DocumentStatusProcessing, staleBefore,
		)
	})
	return qf
}
