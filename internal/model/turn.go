package model

import "time"

type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Turn is one utterance of the transcript. Rows are insert-only; Seq orders
// them within a session and is unique per session.
type Turn struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	SessionID string    `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_turn_session_seq"`
	Seq       int       `json:"seq" gorm:"not null;uniqueIndex:idx_turn_session_seq"`
	Speaker   Speaker   `json:"speaker" gorm:"type:varchar(20);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"timestamp"`
}

func (Turn) TableName() string {
	return "interview_turns"
}
