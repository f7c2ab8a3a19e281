package store_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/editalhub/edital-api/internal/config"
	"github.com/editalhub/edital-api/internal/store"
	"gorm.io/gorm"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

var (
	s      store.Store
	gormdb *gorm.DB
)

var _ = BeforeSuite(func() {
	cfg := config.NewDefault()
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:?cache=shared"

	db, err := store.InitDB(cfg)
	Expect(err).To(BeNil())

	s = store.NewStore(db)
	gormdb = db
	Expect(s.InitialMigration()).To(Succeed())
})

var _ = AfterSuite(func() {
	Expect(s.Close()).To(Succeed())
})

func cleanupTables() {
	Expect(gormdb.Exec("DELETE FROM exam_compositions").Error).To(BeNil())
	Expect(gormdb.Exec("DELETE FROM roles").Error).To(BeNil())
	Expect(gormdb.Exec("DELETE FROM topics").Error).To(BeNil())
	Expect(gormdb.Exec("DELETE FROM documents").Error).To(BeNil())
}
