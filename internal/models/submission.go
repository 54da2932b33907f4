package models

import "time"

// Submission is one student's single attempt at an item. Points and percentage are frozen at insert.
type Submission struct {
	ID           string             `db:"id" json:"id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	ItemID       string             `db:"item_id" json:"item_id"`
	PointsEarned int                `db:"points_earned" json:"points_earned"`
	TotalPoints  int                `db:"total_points" json:"total_points"`
	Percentage   int                `db:"percentage" json:"percentage"`
	SubmittedAt  time.Time          `db:"submitted_at" json:"submitted_at"`
	Answers      []SubmissionAnswer `db:"-" json:"answers,omitempty"`
}

// SubmissionAnswer records the answer and awarded points per question.
type SubmissionAnswer struct {
	SubmissionID  string `db:"submission_id" json:"-"`
	QuestionID    string `db:"question_id" json:"question_id"`
	Answer        string `db:"answer" json:"answer"`
	AwardedPoints int    `db:"awarded_points" json:"awarded_points"`
}

// SubmissionResult is returned to the submitting student.
type SubmissionResult struct {
	SubmissionID string        `json:"submission_id"`
	PointsEarned int           `json:"points_earned"`
	TotalPoints  int           `json:"total_points"`
	Percentage   int           `json:"percentage"`
	Profile      *ScoreProfile `json:"profile,omitempty"`
}
