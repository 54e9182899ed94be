package dto

// StartInterviewRequest starts a new interview for the calling account.
type StartInterviewRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// EndInterviewRequest is optional on the wire; an empty reason means completed.
type EndInterviewRequest struct {
	Reason string `json:"reason"`
}

type ListSessionsQuery struct {
	Page   int    `form:"page"`
	Size   int    `form:"size"`
	Status string `form:"status"`
}

type CompareFeedbackRequest struct {
	SessionIDs []string `json:"session_ids" binding:"required,min=2,max=10"`
}

type PageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

type ProgressTrendsQuery struct {
	Period string `form:"period"`
}

type ScoreBreakdownQuery struct {
	CategoryID string `form:"category_id"`
}
