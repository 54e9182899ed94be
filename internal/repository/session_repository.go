package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Jobt25/First-jobt-repo/internal/model"
	"gorm.io/gorm"
)

// SessionFinish describes the single write that moves a session into a
// terminal state. Turns and Feedback are optional.
type SessionFinish struct {
	Status   model.SessionStatus
	EndedAt  time.Time
	Turns    []model.Turn
	Feedback *model.Feedback
	Tokens   int
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.InterviewSession) error
	FindByID(ctx context.Context, id string) (*model.InterviewSession, error)
	AppendTurns(ctx context.Context, session *model.InterviewSession, turns []model.Turn, tokens int, at time.Time) error
	Finish(ctx context.Context, session *model.InterviewSession, finish SessionFinish) error
	ListByUser(ctx context.Context, userID string, status model.SessionStatus, offset, limit int) ([]model.InterviewSession, int64, error)
	FindIdle(ctx context.Context, cutoff time.Time, limit int) ([]model.InterviewSession, error)
	// ListCompleted returns the user's completed sessions that ended at or
	// after since, oldest first, with feedback loaded. A zero since means all.
	ListCompleted(ctx context.Context, userID string, since time.Time) ([]model.InterviewSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.InterviewSession) error {
	// GORM inserts session.Turns along with the session in one transaction.
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.InterviewSession, error) {
	var session model.InterviewSession
	err := r.db.WithContext(ctx).
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("interview_turns.seq ASC")
		}).
		Preload("Feedback").
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// bumpVersion performs the optimistic-concurrency guarded update every write
// goes through.
func bumpVersion(tx *gorm.DB, session *model.InterviewSession, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(&model.InterviewSession{}).
		Where("id = ? AND version = ?", session.ID, session.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func numberTurns(session *model.InterviewSession, turns []model.Turn) []model.Turn {
	next := len(session.Turns)
	out := make([]model.Turn, len(turns))
	for i, t := range turns {
		t.ID = 0
		t.SessionID = session.ID
		t.Seq = next + i
		out[i] = t
	}
	return out
}

func (r *sessionRepository) AppendTurns(ctx context.Context, session *model.InterviewSession, turns []model.Turn, tokens int, at time.Time) error {
	rows := numberTurns(session, turns)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(tx, session, map[string]interface{}{
			"last_activity_at":  at,
			"total_tokens_used": gorm.Expr("total_tokens_used + ?", tokens),
		}); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert turns: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	session.Version++
	session.LastActivityAt = at
	session.TotalTokensUsed += tokens
	session.Turns = append(session.Turns, rows...)
	return nil
}

func (r *sessionRepository) Finish(ctx context.Context, session *model.InterviewSession, finish SessionFinish) error {
	rows := numberTurns(session, finish.Turns)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":            finish.Status,
			"ended_at":          finish.EndedAt,
			"total_tokens_used": gorm.Expr("total_tokens_used + ?", finish.Tokens),
		}
		if len(rows) > 0 {
			updates["last_activity_at"] = finish.EndedAt
		}
		if err := bumpVersion(tx, session, updates); err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to insert turns: %w", err)
			}
		}
		if finish.Feedback != nil {
			finish.Feedback.SessionID = session.ID
			if err := tx.Create(finish.Feedback).Error; err != nil {
				return fmt.Errorf("failed to insert feedback: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	endedAt := finish.EndedAt
	session.Version++
	session.Status = finish.Status
	session.EndedAt = &endedAt
	session.TotalTokensUsed += finish.Tokens
	if len(rows) > 0 {
		session.LastActivityAt = finish.EndedAt
		session.Turns = append(session.Turns, rows...)
	}
	session.Feedback = finish.Feedback
	return nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string, status model.SessionStatus, offset, limit int) ([]model.InterviewSession, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.InterviewSession{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []model.InterviewSession
	err := query.
		Preload("Feedback").
		Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *sessionRepository) FindIdle(ctx context.Context, cutoff time.Time, limit int) ([]model.InterviewSession, error) {
	var sessions []model.InterviewSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_activity_at < ?", model.StatusInProgress, cutoff).
		Order("last_activity_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) ListCompleted(ctx context.Context, userID string, since time.Time) ([]model.InterviewSession, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.StatusCompleted)
	if !since.IsZero() {
		query = query.Where("ended_at >= ?", since)
	}
	var sessions []model.InterviewSession
	err := query.
		Preload("Feedback").
		Order("ended_at ASC").
		Find(&sessions).Error
	return sessions, err
}
