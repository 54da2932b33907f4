package dto

// SubmitAttemptRequest carries a student's answers keyed by question id.
type SubmitAttemptRequest struct {
	StudentID string            `json:"-" validate:"required"`
	ItemID    string            `json:"-" validate:"required"`
	Answers   map[string]string `json:"answers" validate:"required,min=1,dive,keys,required,endkeys,max=4096"`
}
