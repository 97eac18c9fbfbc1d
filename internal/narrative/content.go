package narrative

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/portreviewer/internal/github"
	"github.com/jonathan/portreviewer/internal/llm"
	"github.com/jonathan/portreviewer/internal/types"
)

// DefaultQuestionCount is the number of interview questions requested.
const DefaultQuestionCount = 5

// maxDescribedProjects bounds the fallback project descriptions.
const maxDescribedProjects = 5

var contentSchema = llm.ExtractionSchema{
	Name: "GeneratedContent",
	Fields: []llm.SchemaField{
		{Name: "headline", Required: true},
		{Name: "bio", Required: true},
		{Name: "skills_summary", Required: true},
		{Name: "project_descriptions", Type: `{"repository name": "string"}`},
	},
}

var questionsSchema = llm.ExtractionSchema{
	Name: "InterviewQuestions",
	Fields: []llm.SchemaField{
		{Name: "questions", Type: `[{"question": "string", "category": "string", "difficulty": "string", "repository": "string"}]`, Required: true},
	},
}

// GenerateContent writes portfolio copy for username.
func (a *Analyzer) GenerateContent(ctx context.Context, username string, repos []types.Repository) types.GeneratedContent {
	c, _ := a.generateContent(ctx, username, repos)
	return c
}

func (a *Analyzer) generateContent(ctx context.Context, username string, repos []types.Repository) (types.GeneratedContent, bool) {
	var c types.GeneratedContent
	err := a.ask(ctx, request{
		key:    "portfolio-content",
		schema: contentSchema,
		vars:   baseVars(username, repos),
		input:  digest(repos),
		tier:   llm.TierStandard,
	}, &c)
	if err != nil {
		a.fallback("content", username, err)
		return FallbackContent(username, repos), false
	}
	if c.ProjectDescriptions == nil {
		c.ProjectDescriptions = map[string]string{}
	}
	return c, true
}

// FallbackContent builds portfolio copy from the top languages and the
// descriptions already present on the repositories.
func FallbackContent(username string, repos []types.Repository) types.GeneratedContent {
	c := types.GeneratedContent{
		Headline:            username + " - Developer Portfolio",
		ProjectDescriptions: map[string]string{},
	}

	var languages []string
	for _, l := range github.LanguageFrequency(repos) {
		languages = append(languages, l.Language)
	}

	bio := "I'm " + username
	if len(languages) > 0 {
		bio += ", a developer specializing in " + strings.Join(first(languages, 3), ", ")
	}
	c.Bio = bio + "."

	if len(languages) > 0 {
		c.SkillsSummary = "Experienced developer with expertise in " + strings.Join(first(languages, 5), ", ") + "."
	} else {
		c.SkillsSummary = "Developer working across multiple technologies."
	}
	if len(repos) > 0 {
		c.SkillsSummary += fmt.Sprintf(" %d public repositories showcasing diverse projects.", len(repos))
	}

	described := 0
	for _, r := range repos {
		if described == maxDescribedProjects {
			break
		}
		if strings.TrimSpace(r.Description) == "" {
			continue
		}
		d := r.Description
		if r.Language != "" {
			d += " Built with " + r.Language + "."
		}
		if r.StargazersCount > 0 {
			d += " " + strconv.Itoa(r.StargazersCount) + " stars."
		}
		c.ProjectDescriptions[r.Name] = d
		described++
	}
	return c
}

// InterviewQuestions writes questions grounded in username's repositories.
func (a *Analyzer) InterviewQuestions(ctx context.Context, username string, repos []types.Repository) []types.InterviewQuestion {
	q, _ := a.interviewQuestions(ctx, username, repos)
	return q
}

func (a *Analyzer) interviewQuestions(ctx context.Context, username string, repos []types.Repository) ([]types.InterviewQuestion, bool) {
	vars := baseVars(username, repos)
	vars["QuestionCount"] = strconv.Itoa(DefaultQuestionCount)

	var resp struct {
		Questions []types.InterviewQuestion `json:"questions"`
	}
	err := a.ask(ctx, request{
		key:    "interview-questions",
		schema: questionsSchema,
		vars:   vars,
		input:  digest(repos),
		tier:   llm.TierLite,
	}, &resp)
	if err == nil && len(resp.Questions) == 0 {
		err = &ParseError{Prompt: "interview-questions", Message: "empty question list"}
	}
	if err != nil {
		a.fallback("interview_questions", username, err)
		return FallbackQuestions(repos), false
	}
	return resp.Questions, true
}

// FallbackQuestions asks about the most starred original repositories.
func FallbackQuestions(repos []types.Repository) []types.InterviewQuestion {
	var originals []types.Repository
	for _, r := range repos {
		if !r.Fork {
			originals = append(originals, r)
		}
	}
	sort.SliceStable(originals, func(i, j int) bool {
		return originals[i].StargazersCount > originals[j].StargazersCount
	})

	var out []types.InterviewQuestion
	for _, r := range first(originals, 2) {
		out = append(out,
			types.InterviewQuestion{
				Question:   fmt.Sprintf("Walk me through the architecture of %s. What would you change if you rebuilt it today?", r.Name),
				Category:   "architecture",
				Difficulty: "medium",
				Repository: r.Name,
			},
			types.InterviewQuestion{
				Question:   fmt.Sprintf("How did you test %s, and which part was hardest to cover?", r.Name),
				Category:   "testing",
				Difficulty: "medium",
				Repository: r.Name,
			},
		)
	}
	if langs := github.LanguageFrequency(repos); len(langs) > 0 {
		out = append(out, types.InterviewQuestion{
			Question:   fmt.Sprintf("Most of your public work is in %s. What trade-offs of that language have you run into in production?", langs[0].Language),
			Category:   "implementation",
			Difficulty: "hard",
		})
	}
	if len(out) == 0 {
		out = append(out,
			types.InterviewQuestion{Question: "Describe a project you are proud of and the hardest technical decision in it.", Category: "architecture", Difficulty: "easy"},
			types.InterviewQuestion{Question: "How do you decide what to test in a new codebase?", Category: "testing", Difficulty: "easy"},
		)
	}
	return out
}

func first[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
