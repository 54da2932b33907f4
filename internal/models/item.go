package models

import "time"

// ItemKind distinguishes challenges from mastery tests.
type ItemKind string

const (
	ItemKindChallenge ItemKind = "CHALLENGE"
	ItemKindMastery   ItemKind = "MASTERY"
)

// AssessableItem is a challenge or mastery test. TotalPoints is always derived from live questions.
type AssessableItem struct {
	ID          string     `db:"id" json:"id"`
	Kind        ItemKind   `db:"kind" json:"kind"`
	CreatorID   string     `db:"creator_id" json:"creator_id"`
	Title       string     `db:"title" json:"title"`
	Tag         *string    `db:"tag" json:"tag,omitempty"`
	YearLevel   int        `db:"year_level" json:"year_level"`
	Active      bool       `db:"active" json:"active"`
	NotBefore   *time.Time `db:"not_before" json:"not_before,omitempty"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	TotalPoints int        `db:"total_points" json:"total_points"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	Questions   []Question `db:"-" json:"questions,omitempty"`
}

// OpenAt reports whether the item accepts submissions at t.
func (i *AssessableItem) OpenAt(t time.Time) bool {
	if !i.Active {
		return false
	}
	if i.NotBefore != nil && t.Before(*i.NotBefore) {
		return false
	}
	if i.ExpiresAt != nil && !t.Before(*i.ExpiresAt) {
		return false
	}
	return true
}

// TagValue returns the tag or an empty string.
func (i *AssessableItem) TagValue() string {
	if i.Tag == nil {
		return ""
	}
	return *i.Tag
}

// Redacted strips answer keys before showing an item to a student.
func (i AssessableItem) Redacted() AssessableItem {
	questions := make([]Question, len(i.Questions))
	for idx, q := range i.Questions {
		q.AnswerKey = ""
		questions[idx] = q
	}
	i.Questions = questions
	return i
}

// Question is one graded prompt of an item.
type Question struct {
	ID        string    `db:"id" json:"id"`
	ItemID    string    `db:"item_id" json:"item_id"`
	Position  int       `db:"position" json:"position"`
	Prompt    string    `db:"prompt" json:"prompt"`
	Points    int       `db:"points" json:"points"`
	AnswerKey string    `db:"answer_key" json:"answer_key,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Kind     ItemKind
	Tag      string
	Active   *bool
	Page     int
	PageSize int
}

// ItemScope identifies which students' denominators include an item.
type ItemScope struct {
	Kind      ItemKind
	Tag       string
	YearLevel int
}

// ItemExclusion hides one item from one student's challenge denominator.
type ItemExclusion struct {
	StudentID string    `db:"student_id" json:"student_id"`
	ItemID    string    `db:"item_id" json:"item_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
