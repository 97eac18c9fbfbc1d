package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/types"
)

// User is a users row. PasswordHash and GitHubID stay inside the store and auth layers.
type User struct {
	ID             uuid.UUID
	Email          string
	Name           string
	UserType       string
	Source         types.CreationSource
	PasswordHash   string
	GitHubUsername string
	GitHubID       int64
	AvatarURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
}

// Public converts the row to its API representation.
func (u *User) Public() *types.User {
	return &types.User{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		UserType:       u.UserType,
		GitHubUsername: u.GitHubUsername,
		AvatarURL:      u.AvatarURL,
		Source:         u.Source,
		PasswordSet:    u.PasswordHash != "",
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

const userColumns = `id, email, name, user_type, source, password_hash, github_username, github_id, avatar_url, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u        User
		email    *string
		ghName   *string
		ghID     *int64
		sourceDB string
	)
	err := row.Scan(&u.ID, &email, &u.Name, &u.UserType, &sourceDB, &u.PasswordHash,
		&ghName, &ghID, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, err
	}
	u.Source = types.CreationSource(sourceDB)
	if email != nil {
		u.Email = *email
	}
	if ghName != nil {
		u.GitHubUsername = *ghName
	}
	if ghID != nil {
		u.GitHubID = *ghID
	}
	return &u, nil
}

// nullable maps "" and 0 to SQL NULL so unique columns admit many unset rows.
func nullable[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

// CreateUser inserts u. Email and GitHub username are lowercased.
// A duplicate email or GitHub account is a ConflictError.
func (db *DB) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.GitHubUsername = strings.ToLower(strings.TrimSpace(u.GitHubUsername))

	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, user_type, source, password_hash, github_username, github_id, avatar_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		u.ID, nullable(u.Email), u.Name, u.UserType, string(u.Source), u.PasswordHash,
		nullable(u.GitHubUsername), nullable(u.GitHubID), u.AvatarURL,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return userConflict(err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func userConflict(err error) error {
	switch c := pgConstraint(err); {
	case strings.Contains(c, "email"):
		return &apperr.ConflictError{Message: "an account with this email already exists"}
	case strings.Contains(c, "github"):
		return &apperr.ConflictError{Message: "this GitHub account is already linked"}
	default:
		return &apperr.ConflictError{Message: "user already exists"}
	}
}

func (db *DB) getUserWhere(ctx context.Context, where string, arg any) (*User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID returns the user, or nil if none exists.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return db.getUserWhere(ctx, `id = $1`, id)
}

// GetUserByEmail returns the user with the given email, or nil if none exists.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return db.getUserWhere(ctx, `email = $1`, email)
}

// GetUserByGitHubUsername returns the user linked to a GitHub login, or nil.
func (db *DB) GetUserByGitHubUsername(ctx context.Context, username string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, nil
	}
	return db.getUserWhere(ctx, `github_username = $1`, username)
}

// RecordLogin stamps the last successful sign-in.
func (db *DB) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "user", ID: id.String()}
	}
	return nil
}

// LinkGitHub attaches a GitHub identity to an existing account.
func (db *DB) LinkGitHub(ctx context.Context, id uuid.UUID, username string, githubID int64, avatarURL string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	tag, err := db.pool.Exec(ctx,
		`UPDATE users
		 SET github_username = $1, github_id = $2,
		     avatar_url = CASE WHEN $3 = '' THEN avatar_url ELSE $3 END,
		     updated_at = NOW()
		 WHERE id = $4`,
		nullable(username), nullable(githubID), avatarURL, id)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return userConflict(err)
		}
		return fmt.Errorf("failed to link github account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "user", ID: id.String()}
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash.
func (db *DB) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "user", ID: id.String()}
	}
	return nil
}

// DeleteUser removes the user and everything it owns.
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
