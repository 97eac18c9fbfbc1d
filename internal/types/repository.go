// Package types provides type definitions for structured data used throughout the portfolio reviewer.
package types

import "time"

// Repository is a normalized snapshot of one public GitHub repository, fetched per analysis cycle.
type Repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description,omitempty"`
	Language        string    `json:"language,omitempty"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Size            int       `json:"size"`
	Topics          []string  `json:"topics"`
	HasLicense      bool      `json:"has_license"`
	LicenseName     string    `json:"license_name,omitempty"`
	HasReadme       bool      `json:"has_readme"`
	HTMLURL         string    `json:"html_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
	Fork            bool      `json:"fork"`
	Archived        bool      `json:"archived"`
}

// GitHubUser is the public profile of a GitHub account.
type GitHubUser struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Location    string `json:"location,omitempty"`
	Company     string `json:"company,omitempty"`
	Blog        string `json:"blog,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// LanguageCount is a language and the number of repositories using it as primary language.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// ActivityStats summarizes a repository list.
type ActivityStats struct {
	TotalRepositories    int             `json:"total_repositories"`
	OriginalRepositories int             `json:"original_repositories"`
	TotalStars           int             `json:"total_stars"`
	TotalForks           int             `json:"total_forks"`
	TopLanguages         []LanguageCount `json:"top_languages"`
	RecentlyActive       int             `json:"recently_active"`
	MostStarred          *Repository     `json:"most_starred,omitempty"`
}

// RepositoryPatterns describes recurring traits across a repository list.
type RepositoryPatterns struct {
	ProjectTypes       map[string]int `json:"project_types"`
	DocumentationRatio float64        `json:"documentation_ratio"`
	LicenseRatio       float64        `json:"license_ratio"`
	AverageSize        float64        `json:"average_size"`
	TopicFrequency     map[string]int `json:"topic_frequency"`
}
