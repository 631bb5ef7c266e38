package project_repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"siteboard/internal/model/auth_model"
	"siteboard/internal/model/project_model"
)

var ErrProjectNotFound = errors.New("project not found")

type ProjectRepo struct {
	DB *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{DB: db}
}

func (r *ProjectRepo) ProjectByID(ctx context.Context, projectID string) (*project_model.Project, error) {
	var project project_model.Project
	err := r.DB.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &project, nil
}

// membership is the actor's active project_members row.
type membership struct {
	CanAddExpenses bool `db:"can_add_expenses"`
}

func managesProject(actor auth_model.Actor, project *project_model.Project) bool {
	return project.CreatedBy == actor.ID ||
		(project.ForemanID != nil && *project.ForemanID == actor.ID)
}

// resolveCapabilities is the whole permission matrix. Superusers get
// everything; the project creator and its foreman manage the board and
// decide approvals; members see the board and, with the add flag, create
// items; everyone else gets nothing. member is nil when the actor has no
// active membership row.
func resolveCapabilities(actor auth_model.Actor, project *project_model.Project, member *membership) project_model.Capabilities {
	if actor.Role.IsPrivileged() || managesProject(actor, project) {
		return project_model.Capabilities{
			CanView: true, CanAddItems: true, CanManageBoard: true,
			CanApprove: true, CanReject: true,
		}
	}
	if member == nil {
		return project_model.Capabilities{}
	}
	return project_model.Capabilities{
		CanView:     true,
		CanAddItems: member.CanAddExpenses,
	}
}

// Capabilities resolves the actor's permission set for one project in a
// single place.
func (r *ProjectRepo) Capabilities(ctx context.Context, actor auth_model.Actor, projectID string) (project_model.Capabilities, error) {
	project, err := r.ProjectByID(ctx, projectID)
	if err != nil {
		return project_model.Capabilities{}, err
	}

	var member *membership
	if !actor.Role.IsPrivileged() && !managesProject(actor, project) {
		var m membership
		q := `SELECT can_add_expenses FROM project_members WHERE project_id = $1 AND user_id = $2 AND is_active`
		err = r.DB.GetContext(ctx, &m, q, projectID, actor.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// no membership row, no access
		case err != nil:
			return project_model.Capabilities{}, fmt.Errorf("failed to load membership: %w", err)
		default:
			member = &m
		}
	}

	return resolveCapabilities(actor, project, member), nil
}

// EmitActivity records a project-level activity. Callers treat it as
// fire-and-forget: a failure here never rolls back the workflow
// operation that produced it.
func (r *ProjectRepo) EmitActivity(ctx context.Context, projectID string, actorID int, activityType, description string) error {
	q := `INSERT INTO project_activities (project_id, user_id, activity_type, description) VALUES ($1, $2, $3, $4);`
	if _, err := r.DB.ExecContext(ctx, q, projectID, actorID, activityType, description); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}
