package kanban_repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"siteboard/internal/model/kanban_model"
)

// ErrRejectedColumnMissing means the board has no active column of type
// rejected. The reject operation reports this instead of provisioning
// one silently.
var ErrRejectedColumnMissing = errors.New("board has no rejected column")

type ItemRepo struct {
	DB *sqlx.DB
}

func NewItemRepo(db *sqlx.DB) *ItemRepo {
	return &ItemRepo{DB: db}
}

type NewItem struct {
	ProjectID      string
	ColumnID       string
	Title          string
	Description    string
	TaskType       kanban_model.TaskType
	EstimatedHours float64
	Amount         float64
	Priority       kanban_model.Priority
	IsUrgent       bool
	Tags           string
	DueDate        *time.Time
	CategoryID     *int
	ActorID        int
}

// MoveResult reports what a column transition actually did, so the
// service layer can decide which activity to emit.
type MoveResult struct {
	Item          *kanban_model.Item
	OldColumnName string
	NewColumnName string
	OldStatus     kanban_model.Status
	NewStatus     kanban_model.Status
	Approved      bool
}

type ItemChanges struct {
	Title           *string
	Description     *string
	TaskType        *kanban_model.TaskType
	EstimatedHours  *float64
	Amount          *float64
	Priority        *kanban_model.Priority
	IsUrgent        *bool
	Tags            *string
	DueDate         *time.Time
	ProgressPercent *int
	CategoryID      *int
	AssignedTo      *int
}

// CreateItem inserts the item at the end of its column, with status
// derived from the column type, and the created history entry — one
// transaction.
func (r *ItemRepo) CreateItem(ctx context.Context, in *NewItem) (item *kanban_model.Item, err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	column := &kanban_model.Column{}
	if err := tx.GetContext(ctx, column, `SELECT * FROM kanban_columns WHERE id = $1 FOR SHARE`, in.ColumnID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to load column: %w", err)
	}

	var position int
	qPos := `SELECT COALESCE(MAX(position), -1) + 1 FROM expense_items WHERE column_id = $1`
	if err := tx.GetContext(ctx, &position, qPos, in.ColumnID); err != nil {
		return nil, fmt.Errorf("failed to get max position: %w", err)
	}

	item = &kanban_model.Item{}
	qInsert := `
        INSERT INTO expense_items
            (id, project_id, column_id, category_id, title, description, task_type,
             estimated_hours, amount, status, priority, is_urgent, tags, due_date,
             position, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING *;`
	err = tx.QueryRowxContext(ctx, qInsert,
		uuid.New().String(), in.ProjectID, in.ColumnID, in.CategoryID, in.Title,
		in.Description, in.TaskType, in.EstimatedHours, in.Amount,
		kanban_model.StatusForColumn(column.Type), in.Priority, in.IsUrgent,
		in.Tags, in.DueDate, position, in.ActorID,
	).StructScan(item)
	if err != nil {
		if foreignKeyViolation(err) {
			return nil, ErrProjectNotFound
		}
		if retryable(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}

	note := fmt.Sprintf("Expense item created, amount %.2f", item.Amount)
	if err := appendHistory(ctx, tx, item.ID, in.ActorID, kanban_model.ActionCreated, "", "", note); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("transaction commit failed: %w", err)
	}
	return item, nil
}

func (r *ItemRepo) ItemByID(ctx context.Context, itemID string) (*kanban_model.Item, error) {
	var item kanban_model.Item
	err := r.DB.GetContext(ctx, &item, `SELECT * FROM expense_items WHERE id = $1`, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return &item, nil
}

// MoveItem reassigns the item's column and position, recomputes the
// status from the target column type and appends the moved history
// entry. When the transition enters the approved status, approved_by
// and approved_at are stamped inside the same transaction.
//
// The FOR UPDATE on the item row serializes concurrent moves of the
// same item; each move still writes its own history entry.
func (r *ItemRepo) MoveItem(ctx context.Context, itemID, targetColumnID string, position, actorID int) (*MoveResult, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := moveLocked(ctx, tx, itemID, targetColumnID, &position, actorID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if retryable(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("transaction commit failed: %w", err)
	}
	return res, nil
}

// moveLocked is the shared core of MoveItem and RejectItem. A nil
// position means "append at the end of the target column".
func moveLocked(ctx context.Context, tx *sqlx.Tx, itemID, targetColumnID string, position *int, actorID int) (*MoveResult, error) {
	item := &kanban_model.Item{}
	if err := tx.GetContext(ctx, item, `SELECT * FROM expense_items WHERE id = $1 FOR UPDATE`, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		if retryable(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}

	target := &kanban_model.Column{}
	if err := tx.GetContext(ctx, target, `SELECT * FROM kanban_columns WHERE id = $1 FOR SHARE`, targetColumnID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to load target column: %w", err)
	}

	var oldColumnName string
	if err := tx.GetContext(ctx, &oldColumnName, `SELECT name FROM kanban_columns WHERE id = $1`, item.ColumnID); err != nil {
		return nil, fmt.Errorf("failed to load source column: %w", err)
	}

	newPosition := 0
	if position != nil {
		newPosition = *position
	} else {
		qPos := `SELECT COALESCE(MAX(position), -1) + 1 FROM expense_items WHERE column_id = $1`
		if err := tx.GetContext(ctx, &newPosition, qPos, target.ID); err != nil {
			return nil, fmt.Errorf("failed to get max position: %w", err)
		}
	}

	oldStatus := item.Status
	newStatus := kanban_model.StatusForColumn(target.Type)

	qMove := `
        UPDATE expense_items
        SET column_id = $1, position = $2, status = $3, updated_at = NOW()
        WHERE id = $4
        RETURNING *;`
	if err := tx.QueryRowxContext(ctx, qMove, target.ID, newPosition, newStatus, itemID).StructScan(item); err != nil {
		if retryable(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to move item: %w", err)
	}

	if err := appendHistory(ctx, tx, itemID, actorID, kanban_model.ActionMoved, "column", oldColumnName, target.Name); err != nil {
		return nil, err
	}

	res := &MoveResult{
		Item:          item,
		OldColumnName: oldColumnName,
		NewColumnName: target.Name,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
	}

	// Approval is edge-triggered on the status transition: re-entering
	// the approved column after leaving it stamps again.
	if newStatus == kanban_model.StatusApproved && oldStatus != kanban_model.StatusApproved {
		qStamp := `
            UPDATE expense_items
            SET approved_by = $1, approved_at = NOW()
            WHERE id = $2
            RETURNING *;`
		if err := tx.QueryRowxContext(ctx, qStamp, actorID, itemID).StructScan(item); err != nil {
			return nil, fmt.Errorf("failed to stamp approval: %w", err)
		}
		res.Item = item
		res.Approved = true
	}

	return res, nil
}

// RejectItem moves the item into the board's rejected column, records
// the reason, appends the rejection history entry and an internal
// comment — all in one transaction, on top of the regular move
// semantics.
func (r *ItemRepo) RejectItem(ctx context.Context, itemID string, actorID int, reason string) (*MoveResult, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	var projectID string
	if err := tx.GetContext(ctx, &projectID, `SELECT project_id FROM expense_items WHERE id = $1`, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load item project: %w", err)
	}

	rejected := &kanban_model.Column{}
	qRejected := `
        SELECT c.* FROM kanban_columns c
        JOIN kanban_boards b ON b.id = c.board_id
        WHERE b.project_id = $1 AND c.column_type = $2 AND c.is_active
        ORDER BY c.position LIMIT 1`
	if err := tx.GetContext(ctx, rejected, qRejected, projectID, kanban_model.ColumnRejected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRejectedColumnMissing
		}
		return nil, fmt.Errorf("failed to load rejected column: %w", err)
	}

	res, err := moveLocked(ctx, tx, itemID, rejected.ID, nil, actorID)
	if err != nil {
		return nil, err
	}

	qReason := `UPDATE expense_items SET rejection_reason = $1, updated_at = NOW() WHERE id = $2 RETURNING *;`
	if err := tx.QueryRowxContext(ctx, qReason, reason, itemID).StructScan(res.Item); err != nil {
		return nil, fmt.Errorf("failed to record rejection reason: %w", err)
	}

	if err := appendHistory(ctx, tx, itemID, actorID, kanban_model.ActionRejected, "rejection_reason", "", reason); err != nil {
		return nil, err
	}

	qComment := `INSERT INTO expense_comments (id, item_id, author_id, text, is_internal) VALUES ($1, $2, $3, $4, TRUE);`
	commentText := fmt.Sprintf("Expense rejected. Reason: %s", reason)
	if _, err := tx.ExecContext(ctx, qComment, uuid.New().String(), itemID, actorID, commentText); err != nil {
		return nil, fmt.Errorf("failed to add rejection comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if retryable(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("transaction commit failed: %w", err)
	}
	return res, nil
}

// UpdateItem applies field changes under the item's row lock. Only a
// change to amount is historized.
func (r *ItemRepo) UpdateItem(ctx context.Context, itemID string, changes ItemChanges, actorID int) (*kanban_model.Item, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	item := &kanban_model.Item{}
	if err := tx.GetContext(ctx, item, `SELECT * FROM expense_items WHERE id = $1 FOR UPDATE`, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}

	oldAmount := item.Amount
	applyChanges(item, changes)

	qUpdate := `
        UPDATE expense_items
        SET title = $1, description = $2, task_type = $3, estimated_hours = $4,
            amount = $5, priority = $6, is_urgent = $7, tags = $8, due_date = $9,
            progress_percent = $10, category_id = $11, assigned_to = $12, updated_at = NOW()
        WHERE id = $13
        RETURNING *;`
	err = tx.QueryRowxContext(ctx, qUpdate,
		item.Title, item.Description, item.TaskType, item.EstimatedHours,
		item.Amount, item.Priority, item.IsUrgent, item.Tags, item.DueDate,
		item.ProgressPercent, item.CategoryID, item.AssignedTo, itemID,
	).StructScan(item)
	if err != nil {
		if foreignKeyViolation(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if item.Amount != oldAmount {
		old := fmt.Sprintf("%.2f", oldAmount)
		now := fmt.Sprintf("%.2f", item.Amount)
		if err := appendHistory(ctx, tx, itemID, actorID, kanban_model.ActionUpdated, "amount", old, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("transaction commit failed: %w", err)
	}
	return item, nil
}

func applyChanges(item *kanban_model.Item, c ItemChanges) {
	if c.Title != nil {
		item.Title = *c.Title
	}
	if c.Description != nil {
		item.Description = *c.Description
	}
	if c.TaskType != nil {
		item.TaskType = *c.TaskType
	}
	if c.EstimatedHours != nil {
		item.EstimatedHours = *c.EstimatedHours
	}
	if c.Amount != nil {
		item.Amount = *c.Amount
	}
	if c.Priority != nil {
		item.Priority = *c.Priority
	}
	if c.IsUrgent != nil {
		item.IsUrgent = *c.IsUrgent
	}
	if c.Tags != nil {
		item.Tags = *c.Tags
	}
	if c.DueDate != nil {
		item.DueDate = c.DueDate
	}
	if c.ProgressPercent != nil {
		item.ProgressPercent = *c.ProgressPercent
	}
	if c.CategoryID != nil {
		item.CategoryID = c.CategoryID
	}
	if c.AssignedTo != nil {
		item.AssignedTo = c.AssignedTo
	}
}

func appendHistory(ctx context.Context, tx *sqlx.Tx, itemID string, userID int, action, field, oldValue, newValue string) error {
	q := `INSERT INTO expense_history (item_id, user_id, action, field_name, old_value, new_value) VALUES ($1, $2, $3, $4, $5, $6);`
	if _, err := tx.ExecContext(ctx, q, itemID, userID, action, field, oldValue, newValue); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}
