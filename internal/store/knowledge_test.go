package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/editalhub/edital-api/internal/store"
	"github.com/editalhub/edital-api/internal/store/model"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

var _ = Describe("knowledge store", Ordered, func() {
	var (
		ctx   context.Context
		docID uuid.UUID
	)

	BeforeAll(func() {
		ctx = context.Background()
	})

	BeforeEach(func() {
		doc, err := s.Document().Create(ctx, newPendingDocument())
		Expect(err).To(BeNil())
		docID = doc.ID
	})

	AfterEach(func() {
		cleanupTables()
	})

	roles := func() []model.Role {
		return []model.Role{
			{
				JobTitle: "Analista Judiciário",
				Compositions: []model.ExamComposition{
					{SubjectName: "Língua Portuguesa", NumberOfQuestions: intPtr(20), WeightPerQuestion: floatPtr(1.5)},
					{SubjectName: "Direito Constitucional", NumberOfQuestions: intPtr(10)},
				},
			},
			{
				JobTitle:     "Técnico Judiciário",
				Compositions: []model.ExamComposition{{SubjectName: "Informática"}},
			},
		}
	}

	topics := func(texts ...string) []model.Topic {
		out := make([]model.Topic, 0, len(texts))
		for _, text := range texts {
			out = append(out, model.Topic{ExamModule: "Conhecimentos Básicos", Subject: "Língua Portuguesa", Text: text})
		}
		return out
	}

	Context("replace", func() {
		It("persists roles with their compositions and the topic set", func() {
			err := s.Knowledge().Replace(ctx, docID, roles(), topics("Concordância Verbal", "Crase"))
			Expect(err).To(BeNil())

			gotRoles, err := s.Knowledge().RolesFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotRoles).To(HaveLen(2))
			Expect(gotRoles[0].JobTitle).To(Equal("Analista Judiciário"))
			Expect(gotRoles[0].Compositions).To(HaveLen(2))
			Expect(*gotRoles[0].Compositions[0].NumberOfQuestions).To(Equal(20))
			Expect(*gotRoles[0].Compositions[0].WeightPerQuestion).To(Equal(1.5))
			Expect(gotRoles[0].Compositions[1].WeightPerQuestion).To(BeNil())

			gotTopics, err := s.Knowledge().TopicsFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotTopics).To(HaveLen(2))
		})

		It("supersedes the prior graph instead of appending to it", func() {
			Expect(s.Knowledge().Replace(ctx, docID, roles(), topics("Concordância Verbal", "Crase"))).To(Succeed())
			Expect(s.Knowledge().Replace(ctx, docID,
				[]model.Role{{JobTitle: "Escrivão", Compositions: []model.ExamComposition{{SubjectName: "Direito Penal"}}}},
				topics("Concordância Verbal", "Crase", "Pontuação"),
			)).To(Succeed())

			gotRoles, err := s.Knowledge().RolesFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotRoles).To(HaveLen(1))
			Expect(gotRoles[0].JobTitle).To(Equal("Escrivão"))

			gotTopics, err := s.Knowledge().TopicsFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotTopics).To(HaveLen(3))

			var orphaned int64
			Expect(gormdb.Model(&model.ExamComposition{}).Count(&orphaned).Error).To(BeNil())
			Expect(orphaned).To(Equal(int64(1)))
		})

		It("drops duplicate topic identities", func() {
			err := s.Knowledge().Replace(ctx, docID, roles(), topics("Crase", "Crase", "Pontuação"))
			Expect(err).To(BeNil())

			gotTopics, err := s.Knowledge().TopicsFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotTopics).To(HaveLen(2))
		})

		It("leaves other documents' graphs untouched", func() {
			other, err := s.Document().Create(ctx, newPendingDocument())
			Expect(err).To(BeNil())
			Expect(s.Knowledge().Replace(ctx, other.ID, roles(), topics("Crase"))).To(Succeed())

			Expect(s.Knowledge().Replace(ctx, docID, roles(), topics("Pontuação"))).To(Succeed())

			gotTopics, err := s.Knowledge().TopicsFor(ctx, other.ID)
			Expect(err).To(BeNil())
			Expect(gotTopics).To(HaveLen(1))
			Expect(gotTopics[0].Text).To(Equal("Crase"))
		})
	})

	Context("transactions", func() {
		It("discards the graph on rollback", func() {
			txCtx, err := s.NewTransactionContext(ctx)
			Expect(err).To(BeNil())

			Expect(s.Knowledge().Replace(txCtx, docID, roles(), topics("Crase"))).To(Succeed())

			_, err = store.Rollback(txCtx)
			Expect(err).To(BeNil())

			gotTopics, err := s.Knowledge().TopicsFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotTopics).To(BeEmpty())

			gotRoles, err := s.Knowledge().RolesFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotRoles).To(BeEmpty())
		})

		It("makes the graph visible on commit", func() {
			txCtx, err := s.NewTransactionContext(ctx)
			Expect(err).To(BeNil())

			Expect(s.Knowledge().Replace(txCtx, docID, roles(), topics("Crase"))).To(Succeed())

			_, err = store.Commit(txCtx)
			Expect(err).To(BeNil())

			gotTopics, err := s.Knowledge().TopicsFor(ctx, docID)
			Expect(err).To(BeNil())
			Expect(gotTopics).To(HaveLen(1))
		})
	})
})
