// Package pipeline runs the document-to-knowledge extraction:
// fetch blob → extract → validate → persist, one attempt at a time per
// document, with the retry state persisted on the document row.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/editalhub/edital-api/internal/blob"
	"github.com/editalhub/edital-api/internal/config"
	"github.com/editalhub/edital-api/internal/extraction"
	"github.com/editalhub/edital-api/internal/store"
	"github.com/editalhub/edital-api/internal/store/model"
	"github.com/editalhub/edital-api/internal/validation"
	"github.com/editalhub/edital-api/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// staleClaimGrace pads the hard timeout when judging a PROCESSING claim
// abandoned: a live attempt always concludes within the hard limit, so a
// claim older than hard limit + grace belongs to a worker that died and is
// safe to take over.
const staleClaimGrace = time.Minute

type Orchestrator struct {
	store    store.Store
	blobs    blob.Store
	provider extraction.Provider
	cfg      *config.Config
	nowFunc  func() time.Time
}

func NewOrchestrator(s store.Store, blobs blob.Store, provider extraction.Provider, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:    s,
		blobs:    blobs,
		provider: provider,
		cfg:      cfg,
		nowFunc:  time.Now,
	}
}

// staleBefore is the cutoff behind which a PROCESSING claim counts as
// abandoned by a dead worker.
func (o *Orchestrator) staleBefore(now time.Time) time.Time {
	return now.Add(-o.cfg.Pipeline.HardTimeout - staleClaimGrace)
}

// Process runs one bounded extraction attempt for the document. Claiming
// the document is a compare-and-set on its status, so concurrent calls for
// the same id collapse into a single attempt; losers are a no-op. A claim
// abandoned by a crashed worker is reclaimable once it is older than the
// hard limit plus grace.
func (o *Orchestrator) Process(ctx context.Context, id uuid.UUID) {
	logger := zap.S().Named("pipeline")

	now := o.nowFunc()
	doc, err := o.store.Document().BeginAttempt(ctx, id, now, o.staleBefore(now))
	if err != nil {
		if errors.Is(err, store.ErrConcurrentUpdate) || errors.Is(err, store.ErrRecordNotFound) {
			metrics.IncreasePipelineAttemptsTotalMetric(metrics.AttemptSkipped)
			logger.Debugf("document %s not claimable: %v", id, err)
			return
		}
		logger.Errorf("failed to claim document %s: %v", id, err)
		return
	}

	logger.Infow("attempt started", "document_id", doc.ID, "attempt", doc.AttemptCount)
	o.conclude(ctx, doc, o.runBounded(ctx, doc))
}

// runBounded enforces the attempt's two time limits. The soft limit cancels
// the attempt's context so every step winds down cleanly; the hard limit
// abandons the attempt goroutine outright and counts as a transient failure.
func (o *Orchestrator) runBounded(ctx context.Context, doc *model.Document) error {
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.Pipeline.SoftTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- o.attempt(attemptCtx, doc)
	}()

	hardTimer := time.NewTimer(o.cfg.Pipeline.HardTimeout)
	defer hardTimer.Stop()

	select {
	case err := <-done:
		return err
	case <-hardTimer.C:
		cancel()
		return extraction.NewTransientError(fmt.Errorf("attempt exceeded hard limit of %s", o.cfg.Pipeline.HardTimeout))
	}
}

func (o *Orchestrator) attempt(ctx context.Context, doc *model.Document) error {
	data, err := o.blobs.Get(ctx, doc.BlobKey)
	if err != nil {
		return extraction.NewTransientError(fmt.Errorf("blob fetch: %w", err))
	}

	extractStart := time.Now()
	extracted, err := o.provider.Extract(ctx, data)
	if err != nil {
		return err
	}
	metrics.ObserveExtractionDuration(time.Since(extractStart).Seconds())

	reference, err := o.referenceTopics(ctx, doc.ID)
	if err != nil {
		return extraction.NewTransientError(fmt.Errorf("reference topics: %w", err))
	}

	if err := validation.Validate(extracted, reference); err != nil {
		return err
	}

	return o.persist(ctx, doc, extracted)
}

// referenceTopics returns the currently persisted topic set, or nil when
// the document has never completed an extraction.
func (o *Orchestrator) referenceTopics(ctx context.Context, id uuid.UUID) ([]validation.TopicKey, error) {
	topics, err := o.store.Knowledge().TopicsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, nil
	}

	keys := make([]validation.TopicKey, 0, len(topics))
	for _, t := range topics {
		keys = append(keys, validation.TopicKey{ExamModule: t.ExamModule, Subject: t.Subject, Topic: t.Text})
	}
	return keys, nil
}

// persist writes the knowledge graph and the COMPLETED transition in one
// transaction; any failure rolls back the whole graph.
func (o *Orchestrator) persist(ctx context.Context, doc *model.Document, extracted *extraction.Extraction) error {
	roles, topics := mapExtraction(doc.ID, extracted)

	txCtx, err := o.store.NewTransactionContext(ctx)
	if err != nil {
		return extraction.NewTransientError(fmt.Errorf("begin transaction: %w", err))
	}

	if err := o.store.Knowledge().Replace(txCtx, doc.ID, roles, topics); err != nil {
		_, _ = store.Rollback(txCtx)
		return extraction.NewTransientError(fmt.Errorf("persist knowledge graph: %w", err))
	}

	header := model.ExtractionHeader{
		ContestName:    extracted.ContestName,
		ExaminingBoard: extracted.ExaminingBoard,
		ExamDate:       extracted.ExamDate,
	}
	if err := o.store.Document().CompleteAttempt(txCtx, doc.ID, doc.AttemptCount, header); err != nil {
		_, _ = store.Rollback(txCtx)
		return extraction.NewTransientError(fmt.Errorf("complete attempt: %w", err))
	}

	if _, err := store.Commit(txCtx); err != nil {
		return extraction.NewTransientError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// conclude translates the attempt outcome into the document's next status.
func (o *Orchestrator) conclude(ctx context.Context, doc *model.Document, err error) {
	logger := zap.S().Named("pipeline")

	if err == nil {
		metrics.IncreasePipelineAttemptsTotalMetric(metrics.AttemptCompleted)
		logger.Infow("attempt completed", "document_id", doc.ID, "attempt", doc.AttemptCount)
		return
	}

	reason := fmt.Sprintf("attempt %d: %v", doc.AttemptCount, err)

	if isRetryable(err) && doc.AttemptCount < o.cfg.Pipeline.MaxAttempts {
		delay := backoffDelay(o.cfg.Pipeline.RetryBaseDelay, doc.AttemptCount)
		nextAttemptAt := o.nowFunc().Add(delay)
		if storeErr := o.store.Document().RescheduleAttempt(ctx, doc.ID, doc.AttemptCount, reason, nextAttemptAt); storeErr != nil {
			logger.Errorf("failed to reschedule document %s: %v", doc.ID, storeErr)
			return
		}
		metrics.IncreasePipelineAttemptsTotalMetric(metrics.AttemptRetried)
		logger.Warnw("attempt failed, retry scheduled",
			"document_id", doc.ID, "attempt", doc.AttemptCount, "next_attempt_in", delay, "error", err)
		return
	}

	if storeErr := o.store.Document().FailAttempt(ctx, doc.ID, doc.AttemptCount, reason); storeErr != nil {
		logger.Errorf("failed to mark document %s failed: %v", doc.ID, storeErr)
		return
	}
	metrics.IncreasePipelineAttemptsTotalMetric(metrics.AttemptFailed)
	logger.Errorw("document failed terminally",
		"document_id", doc.ID, "attempt", doc.AttemptCount, "error", err)
}

// isRetryable applies the failure taxonomy: provider errors carry their own
// classification, consistency drift is permanent, everything else
// (blob store, persistence, structural validation) is transient.
func isRetryable(err error) bool {
	var extErr *extraction.Error
	if errors.As(err, &extErr) {
		return extErr.Retryable()
	}

	var consErr *validation.ConsistencyError
	if errors.As(err, &consErr) {
		return false
	}

	return true
}

// backoffDelay doubles the base delay per completed attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

func mapExtraction(documentID uuid.UUID, extracted *extraction.Extraction) ([]model.Role, []model.Topic) {
	var roles []model.Role
	var topics []model.Topic

	for _, role := range extracted.Roles {
		r := model.Role{
			JobTitle:   role.JobTitle,
			DocumentID: documentID,
		}
		for _, comp := range role.Compositions {
			r.Compositions = append(r.Compositions, model.ExamComposition{
				SubjectName:       comp.SubjectName,
				NumberOfQuestions: comp.NumberOfQuestions,
				WeightPerQuestion: comp.WeightPerQuestion,
			})
		}
		roles = append(roles, r)

		for _, t := range role.Topics {
			topics = append(topics, model.Topic{
				ExamModule: t.ExamModule,
				Subject:    t.Subject,
				Text:       t.Topic,
				DocumentID: documentID,
			})
		}
	}

	return roles, topics
}
