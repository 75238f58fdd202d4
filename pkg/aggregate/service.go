package aggregate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/devfolio/github-aggregator/pkg/github"
)

// API is the slice of the GitHub client the aggregation needs.
type API interface {
	GetUser(ctx context.Context, token string) (*github.User, error)
	ListRepositories(ctx context.Context, token string) ([]github.Repository, *github.RepositoriesMetadata, error)
	ListOrganizations(ctx context.Context, token string) ([]github.Organization, error)
	SearchPullRequests(ctx context.Context, token, username string) ([]github.PullRequest, error)
}

// Service performs the consolidated user fetch.
type Service struct {
	api    API
	logger zerolog.Logger
}

// NewService creates an aggregation service on top of a GitHub client.
func NewService(api API, logger zerolog.Logger) *Service {
	return &Service{
		api:    api,
		logger: logger.With().Str("component", "aggregator").Logger(),
	}
}

// result is the outcome of one fan-out branch.
type result[T any] struct {
	value T
	err   error
}

// FetchUserInfo assembles the consolidated response for the token's user.
//
// The identity fetch runs first and alone: its login keys the pull-request
// search, so its failure aborts the whole request. The remaining three
// calls fan out concurrently and fail independently; a failed branch
// degrades to an empty collection recorded in the response metadata and
// never aborts the request.
func (s *Service) FetchUserInfo(ctx context.Context, token string) (*UserInfo, error) {
	s.logger.Info().Msg("Starting consolidated user fetch")

	userData, err := s.api.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if userData.Login == "" {
		return nil, fmt.Errorf("unable to determine username: login field is missing")
	}
	username := userData.Login

	var (
		wg    sync.WaitGroup
		repos result[[]github.Repository]
		meta  *github.RepositoriesMetadata
		orgs  result[[]github.Organization]
		prs   result[[]github.PullRequest]
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		repos.value, meta, repos.err = s.api.ListRepositories(ctx, token)
	}()
	go func() {
		defer wg.Done()
		orgs.value, orgs.err = s.api.ListOrganizations(ctx, token)
	}()
	go func() {
		defer wg.Done()
		prs.value, prs.err = s.api.SearchPullRequests(ctx, token, username)
	}()
	wg.Wait()

	info := &UserInfo{
		User: transformUser(userData),
	}
	var errs Errors
	anyFailed := false

	if repos.err != nil {
		s.logger.Warn().Err(repos.err).Msg("Failed to fetch repositories")
		msg := repos.err.Error()
		info.Repositories = []Repository{}
		info.RepositoriesMetadata = github.RepositoriesMetadata{Error: &msg}
		info.Metadata.PartialFailures.Repositories = true
		errs.Repositories = &msg
		anyFailed = true
	} else {
		info.Repositories = transformRepositories(repos.value)
		info.RepositoriesMetadata = *meta
		info.RepositoriesMetadata.TotalFetched = len(info.Repositories)
	}

	if orgs.err != nil {
		s.logger.Warn().Err(orgs.err).Msg("Failed to fetch organizations")
		msg := orgs.err.Error()
		info.Organizations = []Organization{}
		info.Metadata.PartialFailures.Organizations = true
		errs.Organizations = &msg
		anyFailed = true
	} else {
		info.Organizations = transformOrganizations(orgs.value)
	}

	if prs.err != nil {
		s.logger.Warn().Err(prs.err).Msg("Failed to fetch pull requests")
		msg := prs.err.Error()
		info.PullRequests = []PullRequest{}
		info.Metadata.PartialFailures.PullRequests = true
		errs.PullRequests = &msg
		anyFailed = true
	} else {
		info.PullRequests = transformPullRequests(prs.value)
	}

	if anyFailed {
		info.Metadata.Errors = &errs
		s.logger.Warn().Msg("Some sub-resources failed, returning partial data")
	}

	s.logger.Info().
		Str("login", username).
		Int("repositories", len(info.Repositories)).
		Int("organizations", len(info.Organizations)).
		Int("pull_requests", len(info.PullRequests)).
		Bool("partial", anyFailed).
		Msg("Consolidated user fetch complete")

	return info, nil
}
