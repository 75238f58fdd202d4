package aggregate

import (
	"strings"

	"github.com/devfolio/github-aggregator/pkg/github"
)

// transformUser projects the raw user payload.
func transformUser(u *github.User) User {
	return User{
		Login:       u.Login,
		Name:        u.Name,
		Email:       u.Email,
		Bio:         u.Bio,
		PublicRepos: u.PublicRepos,
		Followers:   u.Followers,
		Following:   u.Following,
	}
}

// transformRepositories projects raw repositories. Always returns a
// non-nil slice so the field serializes as [] rather than null.
func transformRepositories(repos []github.Repository) []Repository {
	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, Repository{
			Name:            r.Name,
			FullName:        r.FullName,
			Private:         r.Private,
			Description:     r.Description,
			HTMLURL:         r.HTMLURL,
			Language:        r.Language,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
			StargazersCount: r.StargazersCount,
		})
	}
	return out
}

// transformOrganizations projects raw organizations.
func transformOrganizations(orgs []github.Organization) []Organization {
	out := make([]Organization, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, Organization{
			Login:       o.Login,
			Description: o.Description,
			URL:         o.URL,
		})
	}
	return out
}

// transformPullRequests projects raw pull request search items.
func transformPullRequests(prs []github.PullRequest) []PullRequest {
	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, PullRequest{
			Title:      pr.Title,
			State:      pr.State,
			HTMLURL:    pr.HTMLURL,
			CreatedAt:  pr.CreatedAt,
			Repository: repositoryFromURL(pr.RepositoryURL),
		})
	}
	return out
}

// repositoryFromURL derives "owner/name" from an API repository URL by
// taking its last two path segments. Returns "unknown" for an empty URL.
func repositoryFromURL(repoURL string) string {
	if repoURL == "" {
		return "unknown"
	}

	parts := strings.Split(repoURL, "/")
	if len(parts) < 2 {
		return repoURL
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}
