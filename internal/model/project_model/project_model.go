package project_model

import "time"

type Project struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy int       `db:"created_by" json:"created_by"`
	ForemanID *int      `db:"foreman_id" json:"foreman_id,omitempty"`
	Budget    float64   `db:"budget" json:"budget"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Activity types emitted by the workflow engine.
const (
	ActivityExpenseAdded    = "expense_added"
	ActivityExpenseApproved = "expense_approved"
	ActivityExpenseRejected = "expense_rejected"
)

type Activity struct {
	ID           int64     `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	UserID       int       `db:"user_id" json:"user_id"`
	ActivityType string    `db:"activity_type" json:"activity_type"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Capabilities is the actor's resolved permission set for one project.
// It is computed once per request and passed into the operations instead
// of re-deriving role comparisons at every call site.
type Capabilities struct {
	CanView        bool `json:"can_view"`
	CanAddItems    bool `json:"can_add_items"`
	CanManageBoard bool `json:"can_manage_board"`
	CanApprove     bool `json:"can_approve"`
	CanReject      bool `json:"can_reject"`
}
