package kanban_repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"siteboard/internal/model/kanban_model"
)

type CategoryRepo struct {
	DB *sqlx.DB
}

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo {
	return &CategoryRepo{DB: db}
}

func (r *CategoryRepo) CategoryByID(ctx context.Context, id int) (*kanban_model.Category, error) {
	var category kanban_model.Category
	err := r.DB.GetContext(ctx, &category, `SELECT * FROM expense_categories WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepo) ListActive(ctx context.Context) ([]*kanban_model.Category, error) {
	var categories []*kanban_model.Category
	q := `SELECT * FROM expense_categories WHERE is_active ORDER BY name`
	if err := r.DB.SelectContext(ctx, &categories, q); err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return categories, nil
}
