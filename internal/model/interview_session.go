package model

import (
	"time"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
	StatusExpired    SessionStatus = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s SessionStatus) Terminal() bool {
	return s != StatusInProgress
}

type InterviewSession struct {
	ID                  string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID              string        `json:"user_id" gorm:"type:varchar(36);not null;index"`
	CategoryID          string        `json:"category_id" gorm:"type:varchar(36);index"`
	Difficulty          Difficulty    `json:"difficulty" gorm:"type:varchar(20);not null"`
	TargetQuestionCount int           `json:"target_question_count" gorm:"not null"`
	Status              SessionStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	Turns               []Turn        `json:"transcript,omitempty" gorm:"foreignKey:SessionID"`
	StartedAt           time.Time     `json:"started_at" gorm:"not null;index"`
	LastActivityAt      time.Time     `json:"last_activity_at" gorm:"not null"`
	EndedAt             *time.Time    `json:"ended_at,omitempty"`
	TotalTokensUsed     int           `json:"total_tokens_used" gorm:"not null;default:0"`
	ModelUsed           string        `json:"model_used,omitempty"`
	Version             int           `json:"-" gorm:"not null;default:0"`
	Feedback            *Feedback     `json:"feedback,omitempty" gorm:"foreignKey:SessionID"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// CandidateTurns counts the answers recorded so far.
func (s *InterviewSession) CandidateTurns() int {
	n := 0
	for _, t := range s.Turns {
		if t.Speaker == SpeakerCandidate {
			n++
		}
	}
	return n
}

// InterviewerTurns counts the questions asked so far.
func (s *InterviewSession) InterviewerTurns() int {
	return len(s.Turns) - s.CandidateTurns()
}

// DurationSeconds is zero while the session is still running.
func (s *InterviewSession) DurationSeconds() int {
	if s.EndedAt == nil {
		return 0
	}
	return int(s.EndedAt.Sub(s.StartedAt).Seconds())
}
