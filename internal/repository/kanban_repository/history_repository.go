package kanban_repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"siteboard/internal/model/kanban_model"
)

type HistoryRepo struct {
	DB *sqlx.DB
}

func NewHistoryRepo(db *sqlx.DB) *HistoryRepo {
	return &HistoryRepo{DB: db}
}

// ListByItem returns the newest entries first. Entries are written only
// inside the item transactions and are never updated or deleted.
func (r *HistoryRepo) ListByItem(ctx context.Context, itemID string, limit int) ([]*kanban_model.HistoryEntry, error) {
	var entries []*kanban_model.HistoryEntry
	q := `SELECT * FROM expense_history WHERE item_id = $1 ORDER BY id DESC LIMIT $2`
	if err := r.DB.SelectContext(ctx, &entries, q, itemID, limit); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}
