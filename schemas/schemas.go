// Package schemas embeds the JSON Schemas that stored documents must satisfy.
package schemas

import "embed"

// Schema file names.
const (
	Portfolio   = "portfolio.schema.json"
	SavedSearch = "saved_search.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Load returns the raw schema document for name.
func Load(name string) ([]byte, error) {
	return files.ReadFile(name)
}

// Names lists every embedded schema.
func Names() []string {
	return []string{Portfolio, SavedSearch}
}
