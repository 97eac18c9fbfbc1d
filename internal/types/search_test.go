package types

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestSearchCriteria_Validation(t *testing.T) {
	validate := validator.New()
	score := 70.0
	tooHigh := 150.0
	negative := -1

	tests := []struct {
		name     string
		criteria SearchCriteria
		wantErr  bool
	}{
		{"empty criteria", SearchCriteria{}, false},
		{"typical", SearchCriteria{Skills: []string{"React"}, MinGitHubScore: &score, Limit: 20}, false},
		{"limit above 100", SearchCriteria{Limit: 101}, true},
		{"negative offset", SearchCriteria{Offset: -1}, true},
		{"score above 100", SearchCriteria{MinGitHubScore: &tooHigh}, true},
		{"negative min repositories", SearchCriteria{MinRepositories: &negative}, true},
		{"unknown tier", SearchCriteria{DocumentationQuality: "stellar"}, true},
		{"unknown sort key", SearchCriteria{SortBy: "name"}, true},
		{"unknown sort order", SearchCriteria{SortOrder: "up"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.criteria)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
