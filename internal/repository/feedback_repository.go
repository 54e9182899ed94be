package repository

import (
	"context"

	"github.com/Jobt25/First-jobt-repo/internal/model"
	"gorm.io/gorm"
)

type FeedbackRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*model.Feedback, error)
	// ListByUser returns feedback of the user's completed sessions, most
	// recently ended first.
	ListByUser(ctx context.Context, userID string) ([]model.Feedback, error)
	ListByUserPage(ctx context.Context, userID string, offset, limit int) ([]model.Feedback, int64, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Feedback, error) {
	var feedback model.Feedback
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&feedback).Error; err != nil {
		return nil, notFound(err)
	}
	return &feedback, nil
}

func (r *feedbackRepository) ListByUser(ctx context.Context, userID string) ([]model.Feedback, error) {
	var feedback []model.Feedback
	err := r.db.WithContext(ctx).
		Joins("JOIN interview_sessions ON interview_sessions.id = interview_feedback.session_id").
		Where("interview_sessions.user_id = ?", userID).
		Order("interview_sessions.ended_at DESC").
		Find(&feedback).Error
	return feedback, err
}

func (r *feedbackRepository) ListByUserPage(ctx context.Context, userID string, offset, limit int) ([]model.Feedback, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Feedback{}).
		Joins("JOIN interview_sessions ON interview_sessions.id = interview_feedback.session_id").
		Where("interview_sessions.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var feedback []model.Feedback
	err := query.
		Order("interview_sessions.ended_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&feedback).Error
	return feedback, total, err
}
