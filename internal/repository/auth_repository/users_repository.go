package auth_repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"siteboard/internal/model/auth_model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	DB *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{DB: db}
}

func (r *UserRepo) Create(ctx context.Context, u *auth_model.User) error {
	q := `INSERT INTO users (email, password, full_name, role) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.DB.QueryRowContext(ctx, q, u.Email, u.Password, u.FullName, u.Role).Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth_model.User, error) {
	var u auth_model.User
	err := r.DB.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int) (*auth_model.User, error) {
	var u auth_model.User
	err := r.DB.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
