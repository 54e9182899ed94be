package repository

import (
	"context"

	"github.com/Jobt25/First-jobt-repo/internal/model"
	"gorm.io/gorm"
)

// AccountRepository is the read-only lookup into the account collaborator.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
}

type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*model.JobCategory, error)
	// FindByIDs ignores ids that do not exist; inactive categories are included.
	FindByIDs(ctx context.Context, ids []string) ([]model.JobCategory, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*model.JobCategory, error) {
	var category model.JobCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func (r *categoryRepository) FindByIDs(ctx context.Context, ids []string) ([]model.JobCategory, error) {
	var categories []model.JobCategory
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error
	return categories, err
}
