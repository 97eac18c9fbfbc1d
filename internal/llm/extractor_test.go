package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt(t *testing.T) {
	schema := ExtractionSchema{
		Name:        "Sample",
		Description: "Assess the developer.",
		Fields: []SchemaField{
			{Name: "experience_level", Type: `"string"`, Description: "junior|mid|senior|lead", Required: true},
			{Name: "specializations", Type: `["string"]`},
		},
	}

	prompt := BuildExtractionPrompt(schema, `[{"name":"repo"}]`)

	assert.True(t, strings.HasPrefix(prompt, "Assess the developer."))
	assert.Contains(t, prompt, `"experience_level": "string" (required) // junior|mid|senior|lead,`)
	assert.Contains(t, prompt, `"specializations": ["string"]`+"\n}")
	assert.Contains(t, prompt, `[{"name":"repo"}]`)
}

func TestRequiredFields(t *testing.T) {
	schema := ExtractionSchema{Fields: []SchemaField{
		{Name: "a", Required: true},
		{Name: "b"},
		{Name: "c", Required: true},
	}}
	assert.Equal(t, []string{"a", "c"}, schema.RequiredFields())
}
