package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/editalhub/edital-api/internal/store"
	"github.com/editalhub/edital-api/internal/store/model"
)

func newPendingDocument() model.Document {
	id := uuid.New()
	return model.Document{
		ID:          id,
		DisplayName: "edital.pdf",
		ContentHash: id.String(),
		BlobKey:     "editais/" + id.String() + ".pdf",
		Status:      model.DocumentStatusPending,
	}
}

// beginAttempt claims with a stale cutoff far in the past, so only PENDING
// documents match — the way a healthy worker claims.
func beginAttempt(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	now := time.Now()
	return s.Document().BeginAttempt(ctx, id, now, now.Add(-time.Hour))
}

var _ = Describe("document store", Ordered, func() {
	var ctx context.Context

	BeforeAll(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		cleanupTables()
	})

	Context("create and get", func() {
		It("creates a document and reads it back", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())

			got, err := s.Document().Get(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.DocumentStatusPending))
			Expect(got.AttemptCount).To(BeZero())
			Expect(got.StatusInfo).To(BeNil())
		})

		It("returns ErrRecordNotFound for an unknown id", func() {
			_, err := s.Document().Get(ctx, uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("finds a document by its content hash", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())

			got, err := s.Document().GetByContentHash(ctx, doc.ContentHash)
			Expect(err).To(BeNil())
			Expect(got.ID).To(Equal(doc.ID))

			_, err = s.Document().GetByContentHash(ctx, "missing")
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("rejects a second document with the same content hash", func() {
			doc := newPendingDocument()
			_, err := s.Document().Create(ctx, doc)
			Expect(err).To(BeNil())

			dup := newPendingDocument()
			dup.ContentHash = doc.ContentHash
			_, err = s.Document().Create(ctx, dup)
			Expect(err).To(MatchError(store.ErrDuplicateKey))
		})
	})

	Context("begin attempt", func() {
		It("claims a pending document and increments the attempt counter", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())

			claimed, err := beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(claimed.Status).To(Equal(model.DocumentStatusProcessing))
			Expect(claimed.AttemptCount).To(Equal(1))
			Expect(claimed.LastAttemptAt).ToNot(BeNil())
			Expect(claimed.NextAttemptAt).To(BeNil())
		})

		It("refuses to claim a document that is already processing", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())

			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())

			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(MatchError(store.ErrConcurrentUpdate))

			got, err := s.Document().Get(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(got.AttemptCount).To(Equal(1))
		})

		It("reports a missing document as not found", func() {
			_, err := beginAttempt(ctx, uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("reclaims a processing document whose claim went stale", func() {
			stale := newPendingDocument()
			stale.Status = model.DocumentStatusProcessing
			stale.AttemptCount = 1
			claimedAt := time.Now().Add(-time.Hour)
			stale.LastAttemptAt = &claimedAt
			doc, err := s.Document().Create(ctx, stale)
			Expect(err).To(BeNil())

			now := time.Now()
			claimed, err := s.Document().BeginAttempt(ctx, doc.ID, now, now.Add(-30*time.Minute))
			Expect(err).To(BeNil())
			Expect(claimed.Status).To(Equal(model.DocumentStatusProcessing))
			Expect(claimed.AttemptCount).To(Equal(2))
		})

		It("does not reclaim a live claim", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())

			now := time.Now()
			_, err = s.Document().BeginAttempt(ctx, doc.ID, now, now.Add(-30*time.Minute))
			Expect(err).To(MatchError(store.ErrConcurrentUpdate))
		})
	})

	Context("complete attempt", func() {
		It("records the header fields and clears the failure reason", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())

			examDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
			err = s.Document().CompleteAttempt(ctx, doc.ID, 1, model.ExtractionHeader{
				ContestName:    "Concurso Público TRF",
				ExaminingBoard: "FGV",
				ExamDate:       &examDate,
			})
			Expect(err).To(BeNil())

			got, err := s.Document().Get(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.DocumentStatusCompleted))
			Expect(got.StatusInfo).To(BeNil())
			Expect(*got.ContestName).To(Equal("Concurso Público TRF"))
			Expect(*got.ExaminingBoard).To(Equal("FGV"))
			Expect(got.ExamDate).ToNot(BeNil())
		})

		It("refuses to complete a document that is not processing", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())

			err = s.Document().CompleteAttempt(ctx, doc.ID, 1, model.ExtractionHeader{})
			Expect(err).To(MatchError(store.ErrConcurrentUpdate))
		})

		It("refuses a conclusion carrying a superseded attempt number", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())

			// A reclaim bumped the attempt counter; the original worker's
			// conclusion must no longer match.
			now := time.Now()
			_, err = s.Document().BeginAttempt(ctx, doc.ID, now, now.Add(time.Minute))
			Expect(err).To(BeNil())

			Expect(s.Document().CompleteAttempt(ctx, doc.ID, 1, model.ExtractionHeader{})).
				To(MatchError(store.ErrConcurrentUpdate))
			Expect(s.Document().RescheduleAttempt(ctx, doc.ID, 1, "attempt 1: late", now)).
				To(MatchError(store.ErrConcurrentUpdate))
			Expect(s.Document().FailAttempt(ctx, doc.ID, 1, "attempt 1: late")).
				To(MatchError(store.ErrConcurrentUpdate))

			got, err := s.Document().Get(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.DocumentStatusProcessing))
			Expect(got.AttemptCount).To(Equal(2))
		})
	})

	Context("reschedule and fail", func() {
		It("moves a processing document back to pending with a backoff deadline", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())

			next := time.Now().Add(5 * time.Second)
			err = s.Document().RescheduleAttempt(ctx, doc.ID, 1, "attempt 1: blob fetch failed", next)
			Expect(err).To(BeNil())

			got, err := s.Document().Get(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.DocumentStatusPending))
			Expect(got.AttemptCount).To(Equal(1))
			Expect(*got.StatusInfo).To(ContainSubstring("blob fetch failed"))
			Expect(got.NextAttemptAt).ToNot(BeNil())
		})

		It("marks a processing document as terminally failed", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())

			err = s.Document().FailAttempt(ctx, doc.ID, 1, "attempt 3: extraction permanent failure")
			Expect(err).To(BeNil())

			got, err := s.Document().Get(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.DocumentStatusFailed))
			Expect(*got.StatusInfo).To(ContainSubstring("permanent failure"))
			Expect(got.NextAttemptAt).To(BeNil())
		})
	})

	Context("reset for reprocess", func() {
		It("returns a failed document to pending with a fresh attempt budget", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(s.Document().FailAttempt(ctx, doc.ID, 1, "attempt 1: broken")).To(Succeed())

			err = s.Document().ResetForReprocess(ctx, doc.ID, model.DocumentStatusFailed)
			Expect(err).To(BeNil())

			got, err := s.Document().Get(ctx, doc.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.DocumentStatusPending))
			Expect(got.AttemptCount).To(BeZero())
			Expect(got.StatusInfo).To(BeNil())
		})

		It("refuses when the document left the expected status", func() {
			doc, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			_, err = beginAttempt(ctx, doc.ID)
			Expect(err).To(BeNil())

			err = s.Document().ResetForReprocess(ctx, doc.ID, model.DocumentStatusFailed)
			Expect(err).To(MatchError(store.ErrConcurrentUpdate))
		})
	})

	Context("list due", func() {
		It("returns pending documents whose backoff deadline has passed", func() {
			now := time.Now()

			due, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())

			backoff := newPendingDocument()
			future := now.Add(time.Hour)
			backoff.NextAttemptAt = &future
			_, err = s.Document().Create(ctx, backoff)
			Expect(err).To(BeNil())

			completed := newPendingDocument()
			completed.Status = model.DocumentStatusCompleted
			_, err = s.Document().Create(ctx, completed)
			Expect(err).To(BeNil())

			ids, err := s.Document().ListDue(ctx, now, now.Add(-time.Hour), 10)
			Expect(err).To(BeNil())
			Expect(ids).To(HaveLen(1))
			Expect(ids[0]).To(Equal(due.ID))
		})

		It("includes processing documents abandoned by a dead worker", func() {
			now := time.Now()

			abandoned := newPendingDocument()
			abandoned.Status = model.DocumentStatusProcessing
			abandoned.AttemptCount = 1
			claimedAt := now.Add(-time.Hour)
			abandoned.LastAttemptAt = &claimedAt
			_, err := s.Document().Create(ctx, abandoned)
			Expect(err).To(BeNil())

			live := newPendingDocument()
			live.Status = model.DocumentStatusProcessing
			live.AttemptCount = 1
			live.LastAttemptAt = &now
			_, err = s.Document().Create(ctx, live)
			Expect(err).To(BeNil())

			ids, err := s.Document().ListDue(ctx, now, now.Add(-30*time.Minute), 10)
			Expect(err).To(BeNil())
			Expect(ids).To(HaveLen(1))
			Expect(ids[0]).To(Equal(abandoned.ID))
		})

		It("honors the limit", func() {
			for i := 0; i < 3; i++ {
				_, err := s.Document().Create(ctx, newPendingDocument())
				Expect(err).To(BeNil())
			}

			ids, err := s.Document().ListDue(ctx, time.Now(), time.Now().Add(-time.Hour), 2)
			Expect(err).To(BeNil())
			Expect(ids).To(HaveLen(2))
		})
	})

	Context("list", func() {
		It("filters by status", func() {
			_, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())

			completed := newPendingDocument()
			completed.Status = model.DocumentStatusCompleted
			_, err = s.Document().Create(ctx, completed)
			Expect(err).To(BeNil())

			docs, err := s.Document().List(ctx, store.NewDocumentQueryFilter().ByStatus(model.DocumentStatusCompleted))
			Expect(err).To(BeNil())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(completed.ID))

			docs, err = s.Document().List(ctx, nil)
			Expect(err).To(BeNil())
			Expect(docs).To(HaveLen(2))
		})
	})
})
