package kanban_repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"siteboard/internal/model/kanban_model"
)

type BoardRepo struct {
	DB *sqlx.DB
}

func NewBoardRepo(db *sqlx.DB) *BoardRepo {
	return &BoardRepo{DB: db}
}

// GetOrCreateBoard returns the project's board, creating it together
// with the default columns when absent. The creation race between
// processes is settled by the unique constraint on project_id: the
// loser's insert affects zero rows and it re-reads the winner's board.
func (r *BoardRepo) GetOrCreateBoard(ctx context.Context, projectID string, actorID int) (*kanban_model.Board, bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	board := &kanban_model.Board{}
	qInsert := `
        INSERT INTO kanban_boards (id, project_id, created_by)
        VALUES ($1, $2, $3)
        ON CONFLICT (project_id) DO NOTHING
        RETURNING *;`
	err = tx.QueryRowxContext(ctx, qInsert, uuid.New().String(), projectID, actorID).StructScan(board)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Lost the race (or the board already existed).
		if err := tx.GetContext(ctx, board, `SELECT * FROM kanban_boards WHERE project_id = $1`, projectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, false, ErrBoardNotFound
			}
			return nil, false, fmt.Errorf("failed to load board: %w", err)
		}
		return board, false, nil
	case err != nil:
		if foreignKeyViolation(err) {
			return nil, false, ErrProjectNotFound
		}
		return nil, false, fmt.Errorf("failed to create board: %w", err)
	}

	qColumn := `INSERT INTO kanban_columns (id, board_id, name, column_type, position, color) VALUES ($1, $2, $3, $4, $5, $6);`
	for _, col := range kanban_model.DefaultColumns {
		if _, err := tx.ExecContext(ctx, qColumn, uuid.New().String(), board.ID, col.Name, col.Type, col.Position, col.Color); err != nil {
			return nil, false, fmt.Errorf("failed to seed column %q: %w", col.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("transaction commit failed: %w", err)
	}
	return board, true, nil
}

func (r *BoardRepo) BoardByProject(ctx context.Context, projectID string) (*kanban_model.Board, error) {
	var board kanban_model.Board
	err := r.DB.GetContext(ctx, &board, `SELECT * FROM kanban_boards WHERE project_id = $1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	return &board, nil
}

// EnsureColumn returns the board's active column of the given type,
// creating it after the current maximum position when absent.
// Idempotent; a concurrent creation surfaces as ErrConflict.
func (r *BoardRepo) EnsureColumn(ctx context.Context, boardID string, colType kanban_model.ColumnType, name string) (*kanban_model.Column, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	column := &kanban_model.Column{}
	qFind := `SELECT * FROM kanban_columns WHERE board_id = $1 AND column_type = $2 AND is_active ORDER BY position LIMIT 1`
	err = tx.GetContext(ctx, column, qFind, boardID, colType)
	if err == nil {
		return column, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up column: %w", err)
	}

	var position int
	qPos := `SELECT COALESCE(MAX(position), -1) + 1 FROM kanban_columns WHERE board_id = $1 AND is_active`
	if err := tx.GetContext(ctx, &position, qPos, boardID); err != nil {
		return nil, fmt.Errorf("failed to get max position: %w", err)
	}

	qInsert := `INSERT INTO kanban_columns (id, board_id, name, column_type, position) VALUES ($1, $2, $3, $4, $5) RETURNING *;`
	err = tx.QueryRowxContext(ctx, qInsert, uuid.New().String(), boardID, name, colType, position).StructScan(column)
	if err != nil {
		if retryable(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to insert column: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("transaction commit failed: %w", err)
	}
	return column, nil
}

func (r *BoardRepo) ColumnByID(ctx context.Context, columnID string) (*kanban_model.Column, error) {
	var column kanban_model.Column
	err := r.DB.GetContext(ctx, &column, `SELECT * FROM kanban_columns WHERE id = $1`, columnID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to load column: %w", err)
	}
	return &column, nil
}

func (r *BoardRepo) ColumnByType(ctx context.Context, boardID string, colType kanban_model.ColumnType) (*kanban_model.Column, error) {
	var column kanban_model.Column
	q := `SELECT * FROM kanban_columns WHERE board_id = $1 AND column_type = $2 AND is_active ORDER BY position LIMIT 1`
	err := r.DB.GetContext(ctx, &column, q, boardID, colType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to load column by type: %w", err)
	}
	return &column, nil
}

func (r *BoardRepo) FirstActiveColumn(ctx context.Context, boardID string) (*kanban_model.Column, error) {
	var column kanban_model.Column
	q := `SELECT * FROM kanban_columns WHERE board_id = $1 AND is_active ORDER BY position LIMIT 1`
	err := r.DB.GetContext(ctx, &column, q, boardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveColumn
		}
		return nil, fmt.Errorf("failed to load first column: %w", err)
	}
	return &column, nil
}

// BoardView loads the active columns with their items, ordered by
// position, plus the item statistics for the project.
func (r *BoardRepo) BoardView(ctx context.Context, board *kanban_model.Board) (*kanban_model.BoardView, error) {
	var columns []*kanban_model.ColumnWithItems
	q := `SELECT * FROM kanban_columns WHERE board_id = $1 AND is_active ORDER BY position`
	if err := r.DB.SelectContext(ctx, &columns, q, board.ID); err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}

	if len(columns) > 0 {
		columnIDs := make([]string, len(columns))
		columnMap := make(map[string]*kanban_model.ColumnWithItems, len(columns))
		for i, col := range columns {
			columnIDs[i] = col.ID
			columnMap[col.ID] = col
		}

		query, args, err := sqlx.In(`SELECT * FROM expense_items WHERE column_id IN (?) ORDER BY column_id, position, created_at DESC`, columnIDs)
		if err != nil {
			return nil, err
		}
		query = r.DB.Rebind(query)

		var items []*kanban_model.Item
		if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
			return nil, fmt.Errorf("failed to load items: %w", err)
		}
		for _, item := range items {
			if col, ok := columnMap[item.ColumnID]; ok {
				col.Items = append(col.Items, item)
			}
		}
	}

	stats, err := r.boardStats(ctx, board.ProjectID)
	if err != nil {
		return nil, err
	}

	return &kanban_model.BoardView{Board: board, Columns: columns, Stats: stats}, nil
}

func (r *BoardRepo) boardStats(ctx context.Context, projectID string) (kanban_model.BoardStats, error) {
	var stats kanban_model.BoardStats
	q := `
        SELECT
            COUNT(*)                                              AS total_count,
            COUNT(*) FILTER (WHERE status = 'new')                AS new_count,
            COUNT(*) FILTER (WHERE status = 'in_progress')        AS in_progress_count,
            COUNT(*) FILTER (WHERE status = 'done')               AS completed_count,
            COALESCE(SUM(estimated_hours), 0)                     AS total_hours,
            COALESCE(SUM(estimated_hours) FILTER (WHERE status = 'done'), 0) AS completed_hours
        FROM expense_items WHERE project_id = $1`
	if err := r.DB.GetContext(ctx, &stats, q, projectID); err != nil {
		return stats, fmt.Errorf("failed to load board stats: %w", err)
	}
	if stats.TotalCount > 0 {
		stats.CompletionPercent = float64(stats.CompletedCount) / float64(stats.TotalCount) * 100
	}
	return stats, nil
}
