package store

import (
	"context"

	"github.com/editalhub/edital-api/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Knowledge interface {
	// Replace supersedes the document's entire knowledge graph with the
	// provided one. Callers are expected to run it inside a transaction
	// context together with the document's status transition.
	Replace(ctx context.Context, documentID uuid.UUID, roles []model.Role, topics []model.Topic) error
	RolesFor(ctx context.Context, documentID uuid.UUID) (model.RoleList, error)
	TopicsFor(ctx context.Context, documentID uuid.UUID) (model.TopicList, error)
	InitialMigration() error
}

type KnowledgeStore struct {
	db *gorm.DB
}

// Make sure we conform to Knowledge interface
var _ Knowledge = (*KnowledgeStore)(nil)

func NewKnowledgeStore(db *gorm.DB) Knowledge {
	return &KnowledgeStore{db: db}
}

func (s *KnowledgeStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Role{}, &model.ExamComposition{}, &model.Topic{})
}

func (s *KnowledgeStore) Replace(ctx context.Context, documentID uuid.UUID, roles []model.Role, topics []model.Topic) error {
	db := s.getDB(ctx)

	// Delete prior graph first so a reprocessed document never accumulates
	// rows from two extractions. Compositions are removed with their roles.
	var priorRoles []model.Role
	if err := db.Where("document_id = ?", documentID).Find(&priorRoles).Error; err != nil {
		return err
	}
	for _, role := range priorRoles {
		if err := db.Where("role_id = ?", role.ID).Delete(&model.ExamComposition{}).Error; err != nil {
			return err
		}
	}
	if err := db.Where("document_id = ?", documentID).Delete(&model.Role{}).Error; err != nil {
		return err
	}
	if err := db.Where("document_id = ?", documentID).Delete(&model.Topic{}).Error; err != nil {
		return err
	}

	for i := range roles {
		roles[i].DocumentID = documentID
		if err := db.Create(&roles[i]).Error; err != nil {
			return err
		}
	}

	for _, topic := range dedupeTopics(topics) {
		topic.DocumentID = documentID
		if err := db.Create(&topic).Error; err != nil {
			return err
		}
	}

	return nil
}

func (s *KnowledgeStore) RolesFor(ctx context.Context, documentID uuid.UUID) (model.RoleList, error) {
	var roles model.RoleList
	result := s.getDB(ctx).Preload("Compositions").
		Where("document_id = ?", documentID).
		Order("id").
		Find(&roles)
	if result.Error != nil {
		return nil, result.Error
	}
	return roles, nil
}

func (s *KnowledgeStore) TopicsFor(ctx context.Context, documentID uuid.UUID) (model.TopicList, error) {
	var topics model.TopicList
	result := s.getDB(ctx).Where("document_id = ?", documentID).Order("id").Find(&topics)
	if result.Error != nil {
		return nil, result.Error
	}
	return topics, nil
}

// dedupeTopics drops topics with an identical (module, subject, text)
// identity, keeping the first occurrence.
func dedupeTopics(topics []model.Topic) []model.Topic {
	type key struct {
		module, subject, text string
	}
	seen := make(map[key]struct{}, len(topics))
	out := make([]model.Topic, 0, len(topics))
	for _, t := range topics {
		k := key{t.ExamModule, t.Subject, t.Text}
		if _, found := seen[k]; found {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *KnowledgeStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
