package kanban_model

import (
	"time"
)

// ColumnType is the semantic type of a board lane. An item placed in a
// column always takes the column's type as its status.
type ColumnType string

const (
	ColumnNew        ColumnType = "new"
	ColumnTodo       ColumnType = "todo"
	ColumnInProgress ColumnType = "in_progress"
	ColumnReview     ColumnType = "review"
	ColumnDone       ColumnType = "done"
	ColumnCancelled  ColumnType = "cancelled"
	ColumnPending    ColumnType = "pending"
	ColumnRejected   ColumnType = "rejected"
)

func (t ColumnType) Valid() bool {
	switch t {
	case ColumnNew, ColumnTodo, ColumnInProgress, ColumnReview,
		ColumnDone, ColumnCancelled, ColumnPending, ColumnRejected:
		return true
	}
	return false
}

// Status is derived from the column an item occupies. It is never
// accepted from clients and never written independently of a column
// change.
type Status string

const (
	StatusNew        Status = "new"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
	StatusPending    Status = "pending"
	StatusRejected   Status = "rejected"
)

// StatusApproved is the status that triggers approval stamping on a
// move. In this domain a done expense is an approved expense.
const StatusApproved = StatusDone

// StatusForColumn recomputes an item's status from its column.
func StatusForColumn(t ColumnType) Status {
	return Status(t)
}

type TaskType string

const (
	TaskPurchase      TaskType = "purchase"
	TaskWork          TaskType = "work"
	TaskDelivery      TaskType = "delivery"
	TaskInstallation  TaskType = "installation"
	TaskControl       TaskType = "control"
	TaskDocumentation TaskType = "documentation"
	TaskOther         TaskType = "other"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskPurchase, TaskWork, TaskDelivery, TaskInstallation,
		TaskControl, TaskDocumentation, TaskOther:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// History actions.
const (
	ActionCreated   = "created"
	ActionMoved     = "moved"
	ActionUpdated   = "updated"
	ActionCommented = "commented"
	ActionRejected  = "rejected"
	ActionApproved  = "approved"
)

type Board struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	CreatedBy int       `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Column struct {
	ID       string     `db:"id" json:"id"`
	BoardID  string     `db:"board_id" json:"-"`
	Name     string     `db:"name" json:"name"`
	Type     ColumnType `db:"column_type" json:"column_type"`
	Position int        `db:"position" json:"position"`
	Color    string     `db:"color" json:"color"`
	IsActive bool       `db:"is_active" json:"is_active"`
}

type Item struct {
	ID              string     `db:"id" json:"id"`
	ProjectID       string     `db:"project_id" json:"project_id"`
	ColumnID        string     `db:"column_id" json:"column_id"`
	CategoryID      *int       `db:"category_id" json:"category_id,omitempty"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	TaskType        TaskType   `db:"task_type" json:"task_type"`
	EstimatedHours  float64    `db:"estimated_hours" json:"estimated_hours"`
	Amount          float64    `db:"amount" json:"amount"`
	Status          Status     `db:"status" json:"status"`
	Priority        Priority   `db:"priority" json:"priority"`
	IsUrgent        bool       `db:"is_urgent" json:"is_urgent"`
	Tags            string     `db:"tags" json:"tags"`
	DueDate         *time.Time `db:"due_date" json:"due_date,omitempty"`
	ProgressPercent int        `db:"progress_percent" json:"progress_percent"`
	Position        int        `db:"position" json:"position"`
	CreatedBy       int        `db:"created_by" json:"created_by"`
	AssignedTo      *int       `db:"assigned_to" json:"assigned_to,omitempty"`
	ApprovedBy      *int       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason string     `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOverdue reports whether the item blew past its due date without
// reaching the done column.
func (i *Item) IsOverdue(now time.Time) bool {
	if i.DueDate == nil || i.Status == StatusDone {
		return false
	}
	return i.DueDate.Before(now)
}

type Comment struct {
	ID         string    `db:"id" json:"id"`
	ItemID     string    `db:"item_id" json:"item_id"`
	AuthorID   int       `db:"author_id" json:"author_id"`
	Text       string    `db:"text" json:"text"`
	IsInternal bool      `db:"is_internal" json:"is_internal"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type HistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	ItemID    string    `db:"item_id" json:"item_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"`
	FieldName string    `db:"field_name" json:"field_name,omitempty"`
	OldValue  string    `db:"old_value" json:"old_value,omitempty"`
	NewValue  string    `db:"new_value" json:"new_value,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Category struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Color       string    `db:"color" json:"color"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ColumnWithItems struct {
	Column
	Items []*Item `json:"items"`
}

type BoardStats struct {
	TotalCount        int     `db:"total_count" json:"total_count"`
	NewCount          int     `db:"new_count" json:"new_count"`
	InProgressCount   int     `db:"in_progress_count" json:"in_progress_count"`
	CompletedCount    int     `db:"completed_count" json:"completed_count"`
	TotalHours        float64 `db:"total_hours" json:"total_hours"`
	CompletedHours    float64 `db:"completed_hours" json:"completed_hours"`
	CompletionPercent float64 `db:"-" json:"completion_percent"`
}

type BoardView struct {
	Board   *Board             `json:"board"`
	Columns []*ColumnWithItems `json:"columns"`
	Stats   BoardStats         `json:"stats"`
}

type DefaultColumnData struct {
	Name     string
	Type     ColumnType
	Position int
	Color    string
}

// DefaultColumns is the seed applied exactly once, at board creation.
// Provisioning is the only consumer; nothing else hardcodes lanes.
var DefaultColumns = []DefaultColumnData{
	{Name: "New", Type: ColumnNew, Position: 0, Color: "#f8f9fa"},
	{Name: "To do", Type: ColumnTodo, Position: 1, Color: "#e3f2fd"},
	{Name: "In progress", Type: ColumnInProgress, Position: 2, Color: "#fff3cd"},
	{Name: "Review", Type: ColumnReview, Position: 3, Color: "#d1edff"},
	{Name: "Done", Type: ColumnDone, Position: 4, Color: "#d4edda"},
	{Name: "Cancelled", Type: ColumnCancelled, Position: 5, Color: "#f8d7da"},
}
