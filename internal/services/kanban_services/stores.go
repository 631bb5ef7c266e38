package kanban_services

import (
	"context"

	"siteboard/internal/model/auth_model"
	"siteboard/internal/model/kanban_model"
	"siteboard/internal/model/project_model"
	"siteboard/internal/repository/kanban_repository"
)

// The engine drives storage through these interfaces; the sqlx
// repositories are the production implementations.

type BoardStore interface {
	GetOrCreateBoard(ctx context.Context, projectID string, actorID int) (*kanban_model.Board, bool, error)
	BoardByProject(ctx context.Context, projectID string) (*kanban_model.Board, error)
	EnsureColumn(ctx context.Context, boardID string, colType kanban_model.ColumnType, name string) (*kanban_model.Column, error)
	ColumnByID(ctx context.Context, columnID string) (*kanban_model.Column, error)
	FirstActiveColumn(ctx context.Context, boardID string) (*kanban_model.Column, error)
	BoardView(ctx context.Context, board *kanban_model.Board) (*kanban_model.BoardView, error)
}

type ItemStore interface {
	CreateItem(ctx context.Context, in *kanban_repository.NewItem) (*kanban_model.Item, error)
	ItemByID(ctx context.Context, itemID string) (*kanban_model.Item, error)
	MoveItem(ctx context.Context, itemID, targetColumnID string, position, actorID int) (*kanban_repository.MoveResult, error)
	RejectItem(ctx context.Context, itemID string, actorID int, reason string) (*kanban_repository.MoveResult, error)
	UpdateItem(ctx context.Context, itemID string, changes kanban_repository.ItemChanges, actorID int) (*kanban_model.Item, error)
	ProjectAnalytics(ctx context.Context, projectID string) (*kanban_repository.Analytics, error)
}

type CommentStore interface {
	AddComment(ctx context.Context, itemID string, authorID int, text string, isInternal bool) (*kanban_model.Comment, error)
	ListByItem(ctx context.Context, itemID string) ([]*kanban_model.Comment, error)
}

type HistoryStore interface {
	ListByItem(ctx context.Context, itemID string, limit int) ([]*kanban_model.HistoryEntry, error)
}

type CategoryStore interface {
	CategoryByID(ctx context.Context, id int) (*kanban_model.Category, error)
	ListActive(ctx context.Context) ([]*kanban_model.Category, error)
}

// AccessChecker is the authorization oracle. One capability set per
// actor/project pair; the operations never re-derive role checks.
type AccessChecker interface {
	Capabilities(ctx context.Context, actor auth_model.Actor, projectID string) (project_model.Capabilities, error)
}

// ActivitySink receives project-level notifications. Emission failures
// are logged by the engine and never fail the operation.
type ActivitySink interface {
	EmitActivity(ctx context.Context, projectID string, actorID int, activityType, description string) error
}
