package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("narrative.json", "profile-analysis")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "{{.Username}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("missing.json", "profile-analysis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file missing.json")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("narrative.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("narrative.json", "profile-analysis")
		assert.NotEmpty(t, prompt)
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{
			name:     "substitutes every placeholder",
			template: "Analyze {{.Username}} across {{.RepoCount}} repositories. {{.Username}} is public.",
			data:     map[string]string{"Username": "octocat", "RepoCount": "12"},
			want:     "Analyze octocat across 12 repositories. octocat is public.",
		},
		{
			name:     "unknown placeholders are kept",
			template: "Hello {{.Username}}, see {{.Missing}}",
			data:     map[string]string{"Username": "octocat"},
			want:     "Hello octocat, see {{.Missing}}",
		},
		{
			name:     "empty data leaves template",
			template: "Hello {{.Username}}",
			data:     nil,
			want:     "Hello {{.Username}}",
		},
		{
			name:     "values are not re-expanded",
			template: "{{.A}}",
			data:     map[string]string{"A": "{{.B}}", "B": "x"},
			want:     "{{.B}}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List(NarrativeFile)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"candidate-insights",
		"craftsmanship",
		"interview-questions",
		"portfolio-content",
		"profile-analysis",
	}, keys)
}

func TestRender(t *testing.T) {
	ClearCache()

	prompt, err := Render(NarrativeFile, "interview-questions", map[string]string{
		"Username":      "octocat",
		"QuestionCount": "5",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "octocat")
	assert.Contains(t, prompt, "Write 5 specific interview questions")
	assert.NotContains(t, prompt, "{{.")
}

func TestGet_ServesParsedFileFromCache(t *testing.T) {
	ClearCache()

	first, err := Get(NarrativeFile, "craftsmanship")
	require.NoError(t, err)

	cacheMu.RLock()
	_, cached := cache[NarrativeFile]
	cacheMu.RUnlock()
	assert.True(t, cached)

	second, err := Get(NarrativeFile, "craftsmanship")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
