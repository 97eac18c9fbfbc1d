package logger

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// FieldComponent names the subsystem emitting the entry.
	FieldComponent = "component"
	// FieldUsername is the canonical GitHub username.
	FieldUsername = "github_username"
	// FieldUserID is the authenticated account id.
	FieldUserID = "user_id"
	// FieldPortfolioID is the portfolio document id.
	FieldPortfolioID = "portfolio_id"
)

// Component tags entries with the emitting subsystem.
func Component(name string) zap.Field {
	return zap.String(FieldComponent, name)
}

// Username tags entries with a lowercased GitHub username.
func Username(username string) zap.Field {
	return zap.String(FieldUsername, strings.ToLower(strings.TrimSpace(username)))
}

// UserID tags entries with an account id.
func UserID(id uuid.UUID) zap.Field {
	return zap.String(FieldUserID, id.String())
}

// PortfolioID tags entries with a portfolio id.
func PortfolioID(id uuid.UUID) zap.Field {
	return zap.String(FieldPortfolioID, id.String())
}

// Named returns a child logger tagged with the component name. A nil parent yields a no-op logger.
func Named(parent *zap.Logger, component string) *zap.Logger {
	return OrNop(parent).With(Component(component))
}
