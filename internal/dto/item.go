package dto

import "time"

// CreateItemRequest creates a challenge or mastery test with its initial questions.
type CreateItemRequest struct {
	Kind      string            `json:"kind" validate:"required,oneof=CHALLENGE MASTERY"`
	Title     string            `json:"title" validate:"required,max=200"`
	Tag       string            `json:"tag" validate:"omitempty,oneof=C CPP JAVA PYTHON JAVASCRIPT"`
	YearLevel int               `json:"year_level" validate:"required,min=1,max=4"`
	Active    *bool             `json:"active"`
	NotBefore *time.Time        `json:"not_before"`
	ExpiresAt *time.Time        `json:"expires_at"`
	Questions []QuestionRequest `json:"questions" validate:"omitempty,dive"`
	CreatorID string            `json:"-"`
}

// UpdateItemRequest patches item metadata. Nil fields are left untouched.
type UpdateItemRequest struct {
	Title     *string    `json:"title" validate:"omitempty,max=200"`
	Tag       *string    `json:"tag" validate:"omitempty,oneof=C CPP JAVA PYTHON JAVASCRIPT"`
	YearLevel *int       `json:"year_level" validate:"omitempty,min=1,max=4"`
	Active    *bool      `json:"active"`
	NotBefore *time.Time `json:"not_before"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// QuestionRequest creates or replaces a question.
type QuestionRequest struct {
	Position  int    `json:"position" validate:"min=0"`
	Prompt    string `json:"prompt" validate:"required"`
	Points    int    `json:"points" validate:"min=0,max=1000"`
	AnswerKey string `json:"answer_key" validate:"required"`
}

// ItemListQuery filters item listings.
type ItemListQuery struct {
	Kind     string `form:"kind"`
	Tag      string `form:"tag"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ExclusionRequest toggles a per-student item exclusion.
type ExclusionRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}
