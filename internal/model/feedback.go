package model

import "time"

type Feedback struct {
	ID                uint      `gorm:"primarykey" json:"-"`
	SessionID         string    `json:"session_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	OverallScore      float64   `json:"overall_score" gorm:"not null"`
	RelevanceScore    float64   `json:"relevance_score" gorm:"not null"`
	ConfidenceScore   float64   `json:"confidence_score" gorm:"not null"`
	PositivityScore   float64   `json:"positivity_score" gorm:"not null"`
	Strengths         []string  `json:"strengths" gorm:"serializer:json;type:text"`
	Weaknesses        []string  `json:"weaknesses" gorm:"serializer:json;type:text"`
	Tips              []string  `json:"tips" gorm:"serializer:json;type:text"`
	Summary           string    `json:"summary,omitempty" gorm:"type:text"`
	FillerWordCount   int       `json:"filler_word_count" gorm:"not null;default:0"`
	AvgResponseLength int       `json:"avg_response_length" gorm:"not null;default:0"`
	CreatedAt         time.Time `json:"created_at"`
}

func (Feedback) TableName() string {
	return "interview_feedback"
}
