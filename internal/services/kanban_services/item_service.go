package kanban_services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"siteboard/internal/model/auth_model"
	"siteboard/internal/model/kanban_model"
	"siteboard/internal/model/project_model"
	"siteboard/internal/repository/kanban_repository"
)

// maxConflictRetries bounds transparent retries of transactions that
// lost a row-level race before ConcurrencyConflict reaches the caller.
const maxConflictRetries = 3

type ItemService struct {
	Items      ItemStore
	Boards     BoardStore
	Comments   CommentStore
	History    HistoryStore
	Categories CategoryStore
	Access     AccessChecker
	Activity   ActivitySink
}

func NewItemService(items ItemStore, boards BoardStore, comments CommentStore, history HistoryStore, categories CategoryStore, access AccessChecker, activity ActivitySink) *ItemService {
	return &ItemService{
		Items:      items,
		Boards:     boards,
		Comments:   comments,
		History:    history,
		Categories: categories,
		Access:     access,
		Activity:   activity,
	}
}

func withConflictRetry[T any](fn func() (T, error)) (T, error) {
	var (
		res T
		err error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		res, err = fn()
		if !errors.Is(err, kanban_repository.ErrConflict) {
			return res, err
		}
	}
	return res, err
}

// emit is fire-and-forget: sink failures must not undo the operation
// that already committed.
func (s *ItemService) emit(ctx context.Context, projectID string, actorID int, activityType, description string) {
	if err := s.Activity.EmitActivity(ctx, projectID, actorID, activityType, description); err != nil {
		log.Printf("WARN: activity emission failed for project %s: %v", projectID, err)
	}
}

type CreateItemInput struct {
	ColumnID       string     `json:"column_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	TaskType       string     `json:"task_type"`
	EstimatedHours float64    `json:"estimated_hours"`
	Amount         float64    `json:"amount"`
	Priority       string     `json:"priority"`
	IsUrgent       bool       `json:"is_urgent"`
	Tags           string     `json:"tags"`
	DueDate        *time.Time `json:"due_date"`
	CategoryID     *int       `json:"category_id"`
}

// CreateItem creates a work item in the given column, or in the first
// active column of the project's board when none is given.
func (s *ItemService) CreateItem(ctx context.Context, actor auth_model.Actor, projectID string, in CreateItemInput) (*kanban_model.Item, error) {
	caps, err := s.Access.Capabilities(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if !caps.CanAddItems {
		return nil, ErrPermissionDenied
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, validationErr("title is required")
	}
	if in.EstimatedHours < 0 {
		return nil, validationErr("estimated_hours must not be negative")
	}
	if in.Amount < 0 {
		return nil, validationErr("amount must not be negative")
	}
	taskType, priority, err := normalizeClassification(in.TaskType, in.Priority)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if _, err := s.Categories.CategoryByID(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	board, _, err := s.Boards.GetOrCreateBoard(ctx, projectID, actor.ID)
	if err != nil {
		return nil, err
	}

	var column *kanban_model.Column
	if in.ColumnID != "" {
		column, err = s.Boards.ColumnByID(ctx, in.ColumnID)
		if err != nil {
			return nil, err
		}
		if column.BoardID != board.ID {
			return nil, kanban_repository.ErrColumnNotFound
		}
	} else {
		column, err = s.Boards.FirstActiveColumn(ctx, board.ID)
		if err != nil {
			return nil, err
		}
	}

	item, err := withConflictRetry(func() (*kanban_model.Item, error) {
		return s.Items.CreateItem(ctx, &kanban_repository.NewItem{
			ProjectID:      projectID,
			ColumnID:       column.ID,
			Title:          in.Title,
			Description:    in.Description,
			TaskType:       taskType,
			EstimatedHours: in.EstimatedHours,
			Amount:         in.Amount,
			Priority:       priority,
			IsUrgent:       in.IsUrgent,
			Tags:           in.Tags,
			DueDate:        in.DueDate,
			CategoryID:     in.CategoryID,
			ActorID:        actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, projectID, actor.ID, project_model.ActivityExpenseAdded,
		fmt.Sprintf("Added expense %q, amount %.2f", item.Title, item.Amount))
	return item, nil
}

type QuickExpenseInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TaskType    string  `json:"task_type"`
	Amount      float64 `json:"amount"`
	Priority    string  `json:"priority"`
}

// QuickAddExpense is the shortcut creation path: the item lands in the
// pending column, which is provisioned on demand.
func (s *ItemService) QuickAddExpense(ctx context.Context, actor auth_model.Actor, projectID string, in QuickExpenseInput) (*kanban_model.Item, error) {
	caps, err := s.Access.Capabilities(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if !caps.CanAddItems {
		return nil, ErrPermissionDenied
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, validationErr("title is required")
	}
	if in.Amount <= 0 {
		return nil, validationErr("amount must be positive")
	}
	taskType, priority, err := normalizeClassification(in.TaskType, in.Priority)
	if err != nil {
		return nil, err
	}

	board, _, err := s.Boards.GetOrCreateBoard(ctx, projectID, actor.ID)
	if err != nil {
		return nil, err
	}

	column, err := withConflictRetry(func() (*kanban_model.Column, error) {
		return s.Boards.EnsureColumn(ctx, board.ID, kanban_model.ColumnPending, "Pending")
	})
	if err != nil {
		return nil, err
	}

	item, err := withConflictRetry(func() (*kanban_model.Item, error) {
		return s.Items.CreateItem(ctx, &kanban_repository.NewItem{
			ProjectID:   projectID,
			ColumnID:    column.ID,
			Title:       in.Title,
			Description: in.Description,
			TaskType:    taskType,
			Amount:      in.Amount,
			Priority:    priority,
			ActorID:     actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, projectID, actor.ID, project_model.ActivityExpenseAdded,
		fmt.Sprintf("Added expense %q, amount %.2f", item.Title, item.Amount))
	return item, nil
}

// MoveItem is the core state transition: column and position change,
// status follows the target column, history records the move, approval
// is stamped when the approved status is entered.
func (s *ItemService) MoveItem(ctx context.Context, actor auth_model.Actor, itemID, targetColumnID string, position int) error {
	if position < 0 {
		return validationErr("position must not be negative")
	}

	item, err := s.Items.ItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	caps, err := s.Access.Capabilities(ctx, actor, item.ProjectID)
	if err != nil {
		return err
	}
	if !caps.CanView {
		return ErrPermissionDenied
	}

	res, err := withConflictRetry(func() (*kanban_repository.MoveResult, error) {
		return s.Items.MoveItem(ctx, itemID, targetColumnID, position, actor.ID)
	})
	if err != nil {
		return err
	}

	if res.Approved {
		s.emit(ctx, item.ProjectID, actor.ID, project_model.ActivityExpenseApproved,
			fmt.Sprintf("Approved expense %q, amount %.2f", res.Item.Title, res.Item.Amount))
	}
	return nil
}

// RejectItem moves the item to the rejected column with the reason
// recorded as an internal comment. The stricter capability applies:
// only superusers and the project's creator or foreman reject.
func (s *ItemService) RejectItem(ctx context.Context, actor auth_model.Actor, itemID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationErr("rejection reason is required")
	}

	item, err := s.Items.ItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	caps, err := s.Access.Capabilities(ctx, actor, item.ProjectID)
	if err != nil {
		return err
	}
	if !caps.CanReject {
		return ErrPermissionDenied
	}

	res, err := withConflictRetry(func() (*kanban_repository.MoveResult, error) {
		return s.Items.RejectItem(ctx, itemID, actor.ID, reason)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, item.ProjectID, actor.ID, project_model.ActivityExpenseRejected,
		fmt.Sprintf("Rejected expense %q, amount %.2f", res.Item.Title, res.Item.Amount))
	return nil
}

// AddComment appends a comment. Comments are their own log; no history
// entry is written.
func (s *ItemService) AddComment(ctx context.Context, actor auth_model.Actor, itemID, text string, isInternal bool) (*kanban_model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationErr("comment text is required")
	}

	item, err := s.Items.ItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	caps, err := s.Access.Capabilities(ctx, actor, item.ProjectID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, ErrPermissionDenied
	}

	return s.Comments.AddComment(ctx, itemID, actor.ID, text, isInternal)
}

// EditItem applies field changes. Authorization is deliberately broad
// (anyone with project access), matching the behavior this engine
// replaces; only amount changes are historized.
func (s *ItemService) EditItem(ctx context.Context, actor auth_model.Actor, itemID string, changes kanban_repository.ItemChanges) (*kanban_model.Item, error) {
	item, err := s.Items.ItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	caps, err := s.Access.Capabilities(ctx, actor, item.ProjectID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView && item.CreatedBy != actor.ID {
		return nil, ErrPermissionDenied
	}

	if changes.Title != nil {
		trimmed := strings.TrimSpace(*changes.Title)
		if trimmed == "" {
			return nil, validationErr("title is required")
		}
		changes.Title = &trimmed
	}
	if changes.EstimatedHours != nil && *changes.EstimatedHours < 0 {
		return nil, validationErr("estimated_hours must not be negative")
	}
	if changes.Amount != nil && *changes.Amount < 0 {
		return nil, validationErr("amount must not be negative")
	}
	if changes.ProgressPercent != nil && (*changes.ProgressPercent < 0 || *changes.ProgressPercent > 100) {
		return nil, validationErr("progress_percent must be between 0 and 100")
	}
	if changes.TaskType != nil && !changes.TaskType.Valid() {
		return nil, validationErr("unknown task type %q", *changes.TaskType)
	}
	if changes.Priority != nil && !changes.Priority.Valid() {
		return nil, validationErr("unknown priority %q", *changes.Priority)
	}
	if changes.CategoryID != nil {
		if _, err := s.Categories.CategoryByID(ctx, *changes.CategoryID); err != nil {
			return nil, err
		}
	}

	return s.Items.UpdateItem(ctx, itemID, changes, actor.ID)
}

type ItemDetail struct {
	Item     *kanban_model.Item           `json:"item"`
	Comments []*kanban_model.Comment      `json:"comments"`
	History  []*kanban_model.HistoryEntry `json:"history"`
}

func (s *ItemService) Detail(ctx context.Context, actor auth_model.Actor, itemID string) (*ItemDetail, error) {
	item, err := s.Items.ItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	caps, err := s.Access.Capabilities(ctx, actor, item.ProjectID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, ErrPermissionDenied
	}

	comments, err := s.Comments.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	history, err := s.History.ListByItem(ctx, itemID, 10)
	if err != nil {
		return nil, err
	}
	return &ItemDetail{Item: item, Comments: comments, History: history}, nil
}

func (s *ItemService) Analytics(ctx context.Context, actor auth_model.Actor, projectID string) (*kanban_repository.Analytics, error) {
	caps, err := s.Access.Capabilities(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, ErrPermissionDenied
	}
	return s.Items.ProjectAnalytics(ctx, projectID)
}

// ListCategories returns the active expense categories. They are global
// reference data, so any authenticated user may read them.
func (s *ItemService) ListCategories(ctx context.Context) ([]*kanban_model.Category, error) {
	return s.Categories.ListActive(ctx)
}

func normalizeClassification(taskType, priority string) (kanban_model.TaskType, kanban_model.Priority, error) {
	t := kanban_model.TaskType(taskType)
	if taskType == "" {
		t = kanban_model.TaskOther
	} else if !t.Valid() {
		return "", "", validationErr("unknown task type %q", taskType)
	}

	p := kanban_model.Priority(priority)
	if priority == "" {
		p = kanban_model.PriorityMedium
	} else if !p.Valid() {
		return "", "", validationErr("unknown priority %q", priority)
	}
	return t, p, nil
}
