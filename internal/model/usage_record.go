package model

import "time"

// UsageRecord counts interviews started by an account within one monthly
// quota period. A MonthlyLimit below zero means the plan is unlimited.
type UsageRecord struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	UserID         string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_usage_user_period"`
	PeriodStart    time.Time `json:"period_start" gorm:"not null;uniqueIndex:idx_usage_user_period"`
	InterviewsUsed int       `json:"interviews_used" gorm:"not null;default:0"`
	MonthlyLimit   int       `json:"monthly_limit" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PeriodStart returns the first instant of the UTC month containing t.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the first instant of the following UTC month.
func PeriodEnd(t time.Time) time.Time {
	return PeriodStart(t).AddDate(0, 1, 0)
}
