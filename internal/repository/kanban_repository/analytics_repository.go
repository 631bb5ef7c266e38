package kanban_repository

import (
	"context"
	"fmt"
)

type AnalyticsRow struct {
	Key         string  `db:"key" json:"key"`
	Color       string  `db:"color" json:"color,omitempty"`
	TotalAmount float64 `db:"total_amount" json:"total_amount"`
	Count       int     `db:"count" json:"count"`
}

type Analytics struct {
	ByTaskType []*AnalyticsRow `json:"by_task_type"`
	ByStatus   []*AnalyticsRow `json:"by_status"`
	ByCategory []*AnalyticsRow `json:"by_category"`
}

// ProjectAnalytics aggregates item amounts and counts per task type,
// status and category for one project.
func (r *ItemRepo) ProjectAnalytics(ctx context.Context, projectID string) (*Analytics, error) {
	a := &Analytics{}

	qType := `
        SELECT task_type AS key, '' AS color, COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS count
        FROM expense_items WHERE project_id = $1
        GROUP BY task_type ORDER BY total_amount DESC`
	if err := r.DB.SelectContext(ctx, &a.ByTaskType, qType, projectID); err != nil {
		return nil, fmt.Errorf("failed to aggregate by task type: %w", err)
	}

	qStatus := `
        SELECT status AS key, '' AS color, COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS count
        FROM expense_items WHERE project_id = $1
        GROUP BY status`
	if err := r.DB.SelectContext(ctx, &a.ByStatus, qStatus, projectID); err != nil {
		return nil, fmt.Errorf("failed to aggregate by status: %w", err)
	}

	qCategory := `
        SELECT c.name AS key, c.color AS color, COALESCE(SUM(i.amount), 0) AS total_amount, COUNT(*) AS count
        FROM expense_items i
        JOIN expense_categories c ON c.id = i.category_id
        WHERE i.project_id = $1
        GROUP BY c.name, c.color ORDER BY total_amount DESC`
	if err := r.DB.SelectContext(ctx, &a.ByCategory, qCategory, projectID); err != nil {
		return nil, fmt.Errorf("failed to aggregate by category: %w", err)
	}

	return a, nil
}
