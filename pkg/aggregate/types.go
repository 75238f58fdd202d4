// Package aggregate orchestrates one consolidated user fetch: identity
// first, then a concurrent fan-out over repositories, organizations, and
// authored pull requests, merging partial results into a single response
// with per-source failure metadata.
package aggregate

import (
	"github.com/devfolio/github-aggregator/pkg/github"
)

// User is the projected profile of the authenticated user.
type User struct {
	Login       string  `json:"login"`
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Bio         *string `json:"bio"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// Repository is the projected repository shape.
type Repository struct {
	Name            string  `json:"name"`
	FullName        string  `json:"full_name"`
	Private         bool    `json:"private"`
	Description     *string `json:"description"`
	HTMLURL         string  `json:"html_url"`
	Language        *string `json:"language"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	StargazersCount int     `json:"stargazers_count"`
}

// Organization is the projected organization shape.
type Organization struct {
	Login       string  `json:"login"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
}

// PullRequest is the projected pull request shape. Repository is derived
// from the source's repository URL ("owner/name"), or "unknown" when that
// field is absent.
type PullRequest struct {
	Title      string `json:"title"`
	State      string `json:"state"`
	HTMLURL    string `json:"html_url"`
	CreatedAt  string `json:"created_at"`
	Repository string `json:"repository"`
}

// PartialFailures flags, per sub-resource, whether the fan-out branch
// failed and its field was degraded to an empty collection.
type PartialFailures struct {
	Repositories  bool `json:"repositories"`
	Organizations bool `json:"organizations"`
	PullRequests  bool `json:"pull_requests"`
}

// Errors carries the human-readable failure reason per sub-resource.
// Present in the response only when at least one branch failed.
type Errors struct {
	Repositories  *string `json:"repositories"`
	Organizations *string `json:"organizations"`
	PullRequests  *string `json:"pull_requests"`
}

// Metadata describes the health of the aggregation.
type Metadata struct {
	PartialFailures PartialFailures `json:"partial_failures"`
	Errors          *Errors         `json:"errors"`
}

// UserInfo is the consolidated response. Immutable after construction;
// callers must inspect Metadata to learn whether any sub-resource is
// incomplete.
type UserInfo struct {
	User                 User                        `json:"user"`
	Repositories         []Repository                `json:"repositories"`
	RepositoriesMetadata github.RepositoriesMetadata `json:"repositories_metadata"`
	Organizations        []Organization              `json:"organizations"`
	PullRequests         []PullRequest               `json:"pull_requests"`
	Metadata             Metadata                    `json:"metadata"`
}
