package repository

import (
	"context"
	"time"

	"github.com/Jobt25/First-jobt-repo/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepository interface {
	// Reserve increments interviews_used for the period when it is below
	// limit (or unconditionally when limit < 0) and returns the new count.
	Reserve(ctx context.Context, userID string, periodStart time.Time, limit int) (int, error)
	Find(ctx context.Context, userID string, periodStart time.Time) (*model.UsageRecord, error)
}

type usageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) Reserve(ctx context.Context, userID string, periodStart time.Time, limit int) (int, error) {
	var used int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// First access in a period creates its row; that is the rollover.
		record := model.UsageRecord{UserID: userID, PeriodStart: periodStart, MonthlyLimit: limit}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return err
		}

		query := tx.Model(&model.UsageRecord{}).Where("user_id = ? AND period_start = ?", userID, periodStart)
		if limit >= 0 {
			query = query.Where("interviews_used < ?", limit)
		}
		res := query.Updates(map[string]interface{}{
			"interviews_used": gorm.Expr("interviews_used + 1"),
			"monthly_limit":   limit,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLimitReached
		}

		// The row stays locked by this transaction, so this reads our own increment.
		var current model.UsageRecord
		if err := tx.Where("user_id = ? AND period_start = ?", userID, periodStart).First(&current).Error; err != nil {
			return err
		}
		used = current.InterviewsUsed
		return nil
	})
	return used, err
}

func (r *usageRepository) Find(ctx context.Context, userID string, periodStart time.Time) (*model.UsageRecord, error) {
	var record model.UsageRecord
	err := r.db.WithContext(ctx).Where("user_id = ? AND period_start = ?", userID, periodStart).First(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}
