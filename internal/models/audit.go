package models

import "time"

// Audit actions recorded for administrative mutations.
const (
	AuditActionWeightChange     = "WEIGHT_CHANGE"
	AuditActionItemCreate       = "ITEM_CREATE"
	AuditActionItemUpdate       = "ITEM_UPDATE"
	AuditActionItemDelete       = "ITEM_DELETE"
	AuditActionQuestionCreate   = "QUESTION_CREATE"
	AuditActionQuestionUpdate   = "QUESTION_UPDATE"
	AuditActionQuestionDelete   = "QUESTION_DELETE"
	AuditActionExclusionAdd     = "EXCLUSION_ADD"
	AuditActionExclusionRemove  = "EXCLUSION_REMOVE"
	AuditActionSubmissionDelete = "SUBMISSION_DELETE"
)

// Audit resources.
const (
	AuditResourceWeight     = "category_weight"
	AuditResourceItem       = "assessable_item"
	AuditResourceSubmission = "submission"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
