package model

import "time"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Account is the read-only view of a user that the engine needs: profile
// context for prompts and the plan that decides the monthly limit.
type Account struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FullName          string    `json:"full_name"`
	CurrentJobTitle   string    `json:"current_job_title"`
	TargetJobRole     string    `json:"target_job_role"`
	YearsOfExperience int       `json:"years_of_experience"`
	Plan              Plan      `json:"plan" gorm:"type:varchar(20);not null;default:'free'"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type JobCategory struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
