package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
// A single connection serializes writers the way row locks would in Postgres.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// SeedAccount inserts an account on the given plan and returns it.
func SeedAccount(t *testing.T, db *gorm.DB, plan model.Plan) *model.Account {
	t.Helper()
	account := &model.Account{
		ID:                uuid.NewString(),
		FullName:          "Ada Candidate",
		CurrentJobTitle:   "Junior Developer",
		TargetJobRole:     "Backend Engineer",
		YearsOfExperience: 2,
		Plan:              plan,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

// SeedCategory inserts an active job category and returns it.
func SeedCategory(t *testing.T, db *gorm.DB, name string) *model.JobCategory {
	t.Helper()
	category := &model.JobCategory{ID: uuid.NewString(), Name: name, IsActive: true}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return category
}
