// Package narrative turns repository listings into model-written analyses of a
// developer. Every operation degrades to a deterministic result computed from the
// repositories themselves when the model call or its response fails.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/llm"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/prompts"
	"github.com/jonathan/portreviewer/internal/types"
	"go.uber.org/zap"
)

// MaxPromptRepositories caps how many repositories are serialized into a prompt.
const MaxPromptRepositories = 30

// Analyzer runs the narrative prompts against an LLM client.
type Analyzer struct {
	client llm.Client
	log    *zap.Logger
}

// NewAnalyzer creates an Analyzer. A nil client means no API key was configured.
func NewAnalyzer(client llm.Client, log *zap.Logger) (*Analyzer, error) {
	if client == nil {
		return nil, &apperr.ConfigurationError{Key: "GEMINI_API_KEY", Message: "narrative analysis requires a model client"}
	}
	return &Analyzer{client: client, log: logger.Named(log, "narrative")}, nil
}

// repoDigest is the subset of a repository the model sees.
type repoDigest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	Stars       int      `json:"stars"`
	Forks       int      `json:"forks"`
	Size        int      `json:"size_kb"`
	Topics      []string `json:"topics,omitempty"`
	HasReadme   bool     `json:"has_readme"`
	License     string   `json:"license,omitempty"`
	Fork        bool     `json:"fork"`
	Archived    bool     `json:"archived,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

func digest(repos []types.Repository) []repoDigest {
	if len(repos) > MaxPromptRepositories {
		repos = repos[:MaxPromptRepositories]
	}
	out := make([]repoDigest, 0, len(repos))
	for _, r := range repos {
		d := repoDigest{
			Name:        r.Name,
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.StargazersCount,
			Forks:       r.ForksCount,
			Size:        r.Size,
			Topics:      r.Topics,
			HasReadme:   r.HasReadme,
			License:     r.LicenseName,
			Fork:        r.Fork,
			Archived:    r.Archived,
		}
		if !r.UpdatedAt.IsZero() {
			d.UpdatedAt = r.UpdatedAt.Format(time.DateOnly)
		}
		out = append(out, d)
	}
	return out
}

// request describes one structured model call.
type request struct {
	key    string
	schema llm.ExtractionSchema
	vars   map[string]string
	input  any
	tier   llm.ModelTier
}

func (a *Analyzer) ask(ctx context.Context, req request, out any) error {
	tmpl, err := prompts.Get(prompts.NarrativeFile, req.key)
	if err != nil {
		return err
	}
	schema := req.schema
	schema.Description = prompts.Format(tmpl, req.vars)

	data, err := json.MarshalIndent(req.input, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prompt input: %w", err)
	}

	text, err := a.client.GenerateContent(ctx, llm.BuildExtractionPrompt(schema, string(data)), req.tier)
	if err != nil {
		return err
	}
	return decodeResponse(req.key, text, schema.RequiredFields(), out)
}

// decodeResponse extracts the first JSON object in text, checks the required keys
// are present and decodes it into out.
func decodeResponse(prompt, text string, required []string, out any) error {
	obj, ok := llm.ExtractJSONObject(text)
	if !ok {
		return &ParseError{Prompt: prompt, Message: "no JSON object in response"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return &ParseError{Prompt: prompt, Message: "invalid JSON object", Cause: err}
	}
	for _, name := range required {
		if raw, ok := fields[name]; !ok || string(raw) == "null" {
			return &ParseError{Prompt: prompt, Message: fmt.Sprintf("missing field %q", name)}
		}
	}

	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return &ParseError{Prompt: prompt, Message: "response does not match schema", Cause: err}
	}
	return nil
}

func (a *Analyzer) fallback(part, username string, err error) {
	a.log.Warn("model analysis failed, using fallback",
		zap.String("part", part),
		logger.Username(username),
		zap.Error(err),
	)
}

func baseVars(username string, repos []types.Repository) map[string]string {
	return map[string]string{
		"Username":  username,
		"RepoCount": strconv.Itoa(len(repos)),
	}
}

// latestPush anchors recency windows to the data so fallbacks are deterministic.
func latestPush(repos []types.Repository) time.Time {
	var latest time.Time
	for _, r := range repos {
		if r.PushedAt.After(latest) {
			latest = r.PushedAt
		}
	}
	return latest
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
