package kanban_repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"siteboard/internal/model/kanban_model"
)

type CommentRepo struct {
	DB *sqlx.DB
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{DB: db}
}

func (r *CommentRepo) AddComment(ctx context.Context, itemID string, authorID int, text string, isInternal bool) (*kanban_model.Comment, error) {
	comment := &kanban_model.Comment{}
	q := `INSERT INTO expense_comments (id, item_id, author_id, text, is_internal) VALUES ($1, $2, $3, $4, $5) RETURNING *;`
	err := r.DB.QueryRowxContext(ctx, q, uuid.New().String(), itemID, authorID, text, isInternal).StructScan(comment)
	if err != nil {
		if foreignKeyViolation(err) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return comment, nil
}

func (r *CommentRepo) ListByItem(ctx context.Context, itemID string) ([]*kanban_model.Comment, error) {
	var comments []*kanban_model.Comment
	q := `SELECT * FROM expense_comments WHERE item_id = $1 ORDER BY created_at`
	if err := r.DB.SelectContext(ctx, &comments, q, itemID); err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	return comments, nil
}
