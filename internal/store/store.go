package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Document() Document
	Knowledge() Knowledge
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db        *gorm.DB
	document  Document
	knowledge Knowledge
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:        db,
		document:  NewDocumentStore(db),
		knowledge: NewKnowledgeStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Document() Document {
	return s.document
}

func (s *DataStore) Knowledge() Knowledge {
	return s.knowledge
}

func (s *DataStore) InitialMigration() error {
	if err := s.document.InitialMigration(); err != nil {
		return err
	}
	return s.knowledge.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
