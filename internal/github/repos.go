package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/types"
	"go.uber.org/zap"
)

// PerPage is the page size used for repository listing, the API maximum.
const PerPage = 100

// ReadmeFilenames are probed in order; the first hit marks the repository as documented.
var ReadmeFilenames = []string{"README.md", "readme.md", "README.txt", "readme.txt", "README"}

type apiLicense struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

type apiRepository struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	FullName        string      `json:"full_name"`
	Description     *string     `json:"description"`
	Language        *string     `json:"language"`
	StargazersCount int         `json:"stargazers_count"`
	ForksCount      int         `json:"forks_count"`
	OpenIssuesCount int         `json:"open_issues_count"`
	Size            int         `json:"size"`
	Topics          []string    `json:"topics"`
	License         *apiLicense `json:"license"`
	HTMLURL         string      `json:"html_url"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	PushedAt        *time.Time  `json:"pushed_at"`
	Fork            bool        `json:"fork"`
	Archived        bool        `json:"archived"`
	Owner           struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (r apiRepository) normalize() types.Repository {
	repo := types.Repository{
		ID:              r.ID,
		Name:            r.Name,
		FullName:        r.FullName,
		StargazersCount: r.StargazersCount,
		ForksCount:      r.ForksCount,
		OpenIssuesCount: r.OpenIssuesCount,
		Size:            r.Size,
		Topics:          r.Topics,
		HTMLURL:         r.HTMLURL,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Fork:            r.Fork,
		Archived:        r.Archived,
	}
	if r.Description != nil {
		repo.Description = *r.Description
	}
	if r.Language != nil {
		repo.Language = *r.Language
	}
	if r.PushedAt != nil {
		repo.PushedAt = *r.PushedAt
	}
	if r.License != nil {
		repo.HasLicense = true
		repo.LicenseName = r.License.Name
	}
	if repo.Topics == nil {
		repo.Topics = []string{}
	}
	return repo
}

// ListRepositories returns the user's public repositories, most recently updated first.
// Listing stops at the first short page or after MaxPages pages. A non-2xx status on
// any listing page fails the call; README probes never do.
func (c *Client) ListRepositories(ctx context.Context, username string) ([]types.Repository, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &apperr.ValidationError{Field: "username", Message: "required"}
	}

	var repos []types.Repository
	for page := 1; page <= c.maxPages; page++ {
		path := fmt.Sprintf("/users/%s/repos?sort=updated&direction=desc&per_page=%d&page=%d",
			url.PathEscape(username), PerPage, page)
		resp, err := c.get(ctx, path, "")
		if err != nil {
			return nil, err
		}
		if !isSuccess(resp.StatusCode) {
			return nil, statusError(resp)
		}

		var batch []apiRepository
		if err := json.Unmarshal(resp.Body, &batch); err != nil {
			return nil, &apperr.ExternalServiceError{Service: serviceName, Message: "failed to decode repositories", Cause: err}
		}
		for _, r := range batch {
			repo := r.normalize()
			owner := r.Owner.Login
			if owner == "" {
				owner = username
			}
			repo.HasReadme = c.HasReadme(ctx, owner, repo.Name)
			repos = append(repos, repo)
		}
		if len(batch) < PerPage {
			break
		}
	}

	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].UpdatedAt.After(repos[j].UpdatedAt)
	})

	c.log.Debug("listed repositories", logger.Username(username), zap.Int("count", len(repos)))
	if repos == nil {
		repos = []types.Repository{}
	}
	return repos, nil
}

// HasReadme reports whether any conventional README file exists. Lookup failures count as absent.
func (c *Client) HasReadme(ctx context.Context, owner, repo string) bool {
	for _, name := range ReadmeFilenames {
		path := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), name)
		resp, err := c.get(ctx, path, "")
		if err != nil {
			c.log.Debug("readme probe failed", zap.String("repo", repo), zap.Error(err))
			return false
		}
		if resp.StatusCode == http.StatusOK {
			return true
		}
	}
	return false
}

var lastPageRe = regexp.MustCompile(`[?&]page=(\d+)[^>]*>;\s*rel="last"`)

// CommitCount estimates the number of commits on the default branch from the
// pagination of a one-per-page listing. Any failure yields 0.
func (c *Client) CommitCount(ctx context.Context, owner, repo string) int {
	path := fmt.Sprintf("/repos/%s/%s/commits?per_page=1", url.PathEscape(owner), url.PathEscape(repo))
	resp, err := c.get(ctx, path, "")
	if err != nil || resp.StatusCode != http.StatusOK {
		return 0
	}
	if m := lastPageRe.FindStringSubmatch(resp.Header.Get("Link")); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n
		}
	}
	var commits []json.RawMessage
	if err := json.Unmarshal(resp.Body, &commits); err != nil {
		return 0
	}
	return len(commits)
}

type apiUser struct {
	ID          int64   `json:"id"`
	Login       string  `json:"login"`
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	Company     *string `json:"company"`
	Blog        *string `json:"blog"`
	AvatarURL   string  `json:"avatar_url"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (u apiUser) normalize() *types.GitHubUser {
	return &types.GitHubUser{
		ID:          u.ID,
		Login:       u.Login,
		Name:        deref(u.Name),
		Email:       deref(u.Email),
		Bio:         deref(u.Bio),
		Location:    deref(u.Location),
		Company:     deref(u.Company),
		Blog:        deref(u.Blog),
		AvatarURL:   u.AvatarURL,
		PublicRepos: u.PublicRepos,
		Followers:   u.Followers,
		Following:   u.Following,
	}
}

// GetUser returns the public profile of a user.
func (c *Client) GetUser(ctx context.Context, username string) (*types.GitHubUser, error) {
	resp, err := c.get(ctx, "/users/"+url.PathEscape(username), "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &apperr.NotFoundError{Resource: "github user", ID: username}
	}
	if !isSuccess(resp.StatusCode) {
		return nil, statusError(resp)
	}
	var u apiUser
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return nil, &apperr.ExternalServiceError{Service: serviceName, Message: "failed to decode user", Cause: err}
	}
	return u.normalize(), nil
}
