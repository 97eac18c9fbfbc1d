package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/schemas"
	"github.com/jonathan/portreviewer/internal/types"
)

const savedSearchColumns = `id, recruiter_id, name, criteria, alerts_enabled, last_run_at, result_count, created_at, updated_at`

func scanSavedSearch(row pgx.Row) (*types.SavedSearch, error) {
	var (
		s        types.SavedSearch
		criteria []byte
	)
	err := row.Scan(&s.ID, &s.RecruiterID, &s.Name, &criteria, &s.AlertsEnabled,
		&s.LastRunAt, &s.ResultCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(criteria, &s.Criteria); err != nil {
		return nil, fmt.Errorf("failed to decode criteria of saved search %s: %w", s.ID, err)
	}
	return &s, nil
}

// CreateSavedSearch validates and inserts s.
func (db *DB) CreateSavedSearch(ctx context.Context, s *types.SavedSearch) error {
	if err := schemas.ValidateSavedSearch(s); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return ve.AppError()
		}
		return err
	}
	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO saved_searches (id, recruiter_id, name, criteria, alerts_enabled, result_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.RecruiterID, s.Name, criteria, s.AlertsEnabled, s.ResultCount, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return &apperr.NotFoundError{Resource: "user", ID: s.RecruiterID.String()}
		}
		return fmt.Errorf("failed to create saved search: %w", err)
	}
	return nil
}

// GetSavedSearch returns the saved search or a NotFoundError.
func (db *DB) GetSavedSearch(ctx context.Context, id uuid.UUID) (*types.SavedSearch, error) {
	s, err := scanSavedSearch(db.pool.QueryRow(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &apperr.NotFoundError{Resource: "saved search", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get saved search: %w", err)
	}
	return s, nil
}

// ListSavedSearches returns a recruiter's saved searches, newest first.
func (db *DB) ListSavedSearches(ctx context.Context, recruiterID uuid.UUID) ([]types.SavedSearch, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE recruiter_id = $1 ORDER BY created_at DESC, id`,
		recruiterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer rows.Close()

	list := []types.SavedSearch{}
	for rows.Next() {
		s, err := scanSavedSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved search: %w", err)
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// DeleteSavedSearch removes a saved search. Its alerts go with it.
func (db *DB) DeleteSavedSearch(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM saved_searches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "saved search", ID: id.String()}
	}
	return nil
}

// RecordSavedSearchRun stores when a saved search last ran and how many candidates it matched.
func (db *DB) RecordSavedSearchRun(ctx context.Context, id uuid.UUID, at time.Time, resultCount int) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE saved_searches SET last_run_at = $1, result_count = $2, updated_at = $1 WHERE id = $3`,
		at, resultCount, id)
	if err != nil {
		return fmt.Errorf("failed to record saved search run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Resource: "saved search", ID: id.String()}
	}
	return nil
}

// CreateAlert inserts an alert. The saved search it references must exist.
func (db *DB) CreateAlert(ctx context.Context, a *types.SearchAlert) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO search_alerts (id, saved_search_id, recruiter_id, frequency, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.SavedSearchID, a.RecruiterID, a.Frequency, a.IsActive, a.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return &apperr.NotFoundError{Resource: "saved search", ID: a.SavedSearchID.String()}
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// ListAlerts returns the alerts attached to a saved search.
func (db *DB) ListAlerts(ctx context.Context, savedSearchID uuid.UUID) ([]types.SearchAlert, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, saved_search_id, recruiter_id, frequency, is_active, last_notified_at, created_at
		 FROM search_alerts WHERE saved_search_id = $1 ORDER BY created_at, id`, savedSearchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	list := []types.SearchAlert{}
	for rows.Next() {
		var a types.SearchAlert
		if err := rows.Scan(&a.ID, &a.SavedSearchID, &a.RecruiterID, &a.Frequency,
			&a.IsActive, &a.LastNotifiedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
