package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/schemas"
	"github.com/jonathan/portreviewer/internal/types"
)

// Portfolios are stored as a JSONB document. Ownership, visibility, view count
// and timestamps live in their own columns and win over the document on read.
const portfolioColumns = `id, owner_id, github_username, is_public, view_count, document, created_at, updated_at`

// normalizePortfolio puts p into the canonical stored shape.
func normalizePortfolio(p *types.Portfolio) {
	p.GitHubUsername = strings.ToLower(strings.TrimSpace(p.GitHubUsername))
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Repositories == nil {
		p.Repositories = []types.Repository{}
	}
}

// validatedDocument checks p against the portfolio schema and encodes it.
func validatedDocument(p *types.Portfolio) ([]byte, error) {
	normalizePortfolio(p)
	if err := schemas.ValidatePortfolio(p); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, ve.AppError()
		}
		return nil, err
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal portfolio: %w", err)
	}
	return doc, nil
}

func scanPortfolio(row pgx.Row) (*types.Portfolio, error) {
	var (
		p       types.Portfolio
		id      uuid.UUID
		owner   uuid.UUID
		name    string
		public  bool
		views   int
		doc     []byte
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&id, &owner, &name, &public, &views, &doc, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio %s: %w", id, err)
	}
	p.ID, p.OwnerID, p.GitHubUsername = id, owner, name
	p.IsPublic, p.ViewCount = public, views
	p.CreatedAt, p.UpdatedAt = created, updated
	normalizePortfolio(&p)
	return &p, nil
}

func collectPortfolios(rows pgx.Rows) ([]types.Portfolio, error) {
	defer rows.Close()
	list := []types.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// CreatePortfolio validates and inserts p. One portfolio exists per GitHub username.
func (db *DB) CreatePortfolio(ctx context.Context, p *types.Portfolio) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	doc, err := validatedDocument(p)
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO portfolios (id, owner_id, github_username, is_public, view_count, document, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OwnerID, p.GitHubUsername, p.IsPublic, p.ViewCount, doc, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		switch pgCode(err) {
		case codeUniqueViolation:
			return &apperr.ConflictError{Message: fmt.Sprintf("a portfolio for %s already exists", p.GitHubUsername)}
		case codeForeignKeyViolation:
			return &apperr.NotFoundError{Resource: "user", ID: p.OwnerID.String()}
		}
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

// GetPortfolio returns the portfolio or a NotFoundError.
func (db *DB) GetPortfolio(ctx context.Context, id uuid.UUID) (*types.Portfolio, error) {
	p, err := scanPortfolio(db.pool.QueryRow(ctx,
		`SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &apperr.NotFoundError{Resource: "portfolio", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return p, nil
}

// GetPortfolioByUsername returns the portfolio for a GitHub login, or nil if none exists.
func (db *DB) GetPortfolioByUsername(ctx context.Context, username string) (*types.Portfolio, error) {
	p, err := scanPortfolio(db.pool.QueryRow(ctx,
		`SELECT `+portfolioColumns+` FROM portfolios WHERE github_username = $1`,
		strings.ToLower(strings.TrimSpace(username))))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return p, nil
}

// ListPublicPortfolios returns every public portfolio in creation order.
func (db *DB) ListPublicPortfolios(ctx context.Context) ([]types.Portfolio, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+portfolioColumns+` FROM portfolios WHERE is_public ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	list, err := collectPortfolios(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolios: %w", err)
	}
	return list, nil
}

// ListPortfoliosByOwner returns ownerID's portfolios, newest first.
func (db *DB) ListPortfoliosByOwner(ctx context.Context, ownerID uuid.UUID) ([]types.Portfolio, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+portfolioColumns+` FROM portfolios WHERE owner_id = $1 ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	list, err := collectPortfolios(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolios: %w", err)
	}
	return list, nil
}

// UpdatePortfolio rewrites the document and visibility of an existing portfolio.
// The view count is owned by IncrementViewCount and is not changed here.
func (db *DB) UpdatePortfolio(ctx context.Context, p *types.Portfolio) error {
	p.UpdatedAt = time.Now().UTC()
	doc, err := validatedDocument(p)
	if err != nil {
		return err
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE portfolios SET is_public = $1, document = $2, updated_at = $3 WHERE id = $4`,
		p.IsPublic, doc, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "portfolio", ID: p.ID.String()}
	}
	return nil
}

// DeletePortfolio removes a portfolio.
func (db *DB) DeletePortfolio(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "portfolio", ID: id.String()}
	}
	return nil
}

// IncrementViewCount adds one view and returns the new count.
func (db *DB) IncrementViewCount(ctx context.Context, id uuid.UUID) (int, error) {
	var views int
	err := db.pool.QueryRow(ctx,
		`UPDATE portfolios SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id,
	).Scan(&views)
	if err != nil {
		if isNoRows(err) {
			return 0, &apperr.NotFoundError{Resource: "portfolio", ID: id.String()}
		}
		return 0, fmt.Errorf("failed to increment view count: %w", err)
	}
	return views, nil
}
