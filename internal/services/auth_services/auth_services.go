package auth_services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"siteboard/internal/config"
	"siteboard/internal/model/auth_model"
	"siteboard/internal/repository/auth_repository"
)

var cfg = config.Load()

var ErrInvalidToken = errors.New("invalid token")

// AuthService is the identity provider: it authenticates users and
// turns bearer tokens into the actor (id + role) the workflow engine
// runs as.
type AuthService struct {
	Users   *auth_repository.UserRepo
	Refresh *auth_repository.RefreshRepo
}

func NewAuthService(u *auth_repository.UserRepo, r *auth_repository.RefreshRepo) *AuthService {
	return &AuthService{Users: u, Refresh: r}
}

// Register creates a contractor account. Elevated roles are assigned
// out of band, never through the public endpoint.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*auth_model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if len(strings.TrimSpace(password)) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &auth_model.User{
		Email:    email,
		Password: string(hash),
		FullName: strings.TrimSpace(fullName),
		Role:     auth_model.RoleContractor,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, *auth_model.User, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the user exists.
		return "", "", nil, errors.New("invalid credentials")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return "", "", nil, errors.New("invalid credentials")
	}
	access, refresh, err := s.generateTokens(ctx, u)
	return access, refresh, u, err
}

func (s *AuthService) generateTokens(ctx context.Context, u *auth_model.User) (string, string, error) {
	accessClaims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    string(u.Role),
		"exp":     time.Now().Add(30 * time.Minute).Unix(),
	}
	at := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessToken, err := at.SignedString([]byte(cfg.AccessSecret))
	if err != nil {
		log.Printf("ERROR: signing access token: %v", err)
		return "", "", err
	}

	refreshExp := time.Now().Add(7 * 24 * time.Hour)
	refreshClaims := jwt.MapClaims{
		"user_id": u.ID,
		"exp":     refreshExp.Unix(),
	}
	rt := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshToken, err := rt.SignedString([]byte(cfg.RefreshSecret))
	if err != nil {
		log.Printf("ERROR: signing refresh token: %v", err)
		return "", "", err
	}

	if err := s.Refresh.Store(ctx, u.ID, refreshToken, refreshExp); err != nil {
		log.Printf("ERROR: storing refresh token: %v", err)
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (string, *auth_model.User, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.RefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return "", nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return "", nil, ErrInvalidToken
	}

	known, err := s.Refresh.Check(ctx, int(userID), refreshToken)
	if err != nil || !known {
		return "", nil, errors.New("refresh token not found or expired")
	}

	u, err := s.Users.GetByID(ctx, int(userID))
	if err != nil {
		return "", nil, errors.New("user data not found")
	}

	accessClaims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    string(u.Role),
		"exp":     time.Now().Add(30 * time.Minute).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(cfg.AccessSecret))
	if err != nil {
		return "", nil, err
	}
	return access, u, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.RefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return ErrInvalidToken
	}
	return s.Refresh.Delete(ctx, int(userID), refreshToken)
}

// ParseAccessToken validates a bearer token and returns the actor it
// identifies.
func (s *AuthService) ParseAccessToken(tokenStr string) (auth_model.Actor, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.AccessSecret), nil
	})
	if err != nil || !token.Valid {
		return auth_model.Actor{}, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return auth_model.Actor{}, ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok {
		return auth_model.Actor{}, ErrInvalidToken
	}
	return auth_model.Actor{ID: int(userID), Role: auth_model.Role(role)}, nil
}
