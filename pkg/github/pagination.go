package github

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// ListRepositories fetches the authenticated user's repositories, all
// visibility levels, most recently updated first, following pagination up
// to MaxPages pages. Traversal stops early on an empty page. The returned
// metadata distinguishes "a next page link was observed" (HasMore) from
// "a next link was still present when the page cap was hit"
// (LimitReached).
//
// A transient failure on any page retries the whole traversal; the page
// cursor never escapes a single operation.
func (c *Client) ListRepositories(ctx context.Context, token string) ([]Repository, *RepositoriesMetadata, error) {
	var (
		all  []Repository
		meta RepositoriesMetadata
	)

	err := c.withRetry(ctx, "/user/repos", func(ctx context.Context) error {
		return c.breaker.Execute(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			repos, m, err := c.fetchRepositoryPages(ctx, token)
			if err != nil {
				return err
			}
			all, meta = repos, m

			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	if meta.LimitReached {
		c.logger.Warn().
			Int("fetched", meta.TotalFetched).
			Int("max_pages", c.config.MaxPages).
			Msg("Repository pagination cap reached, user may have more repositories")
	}

	c.logger.Info().
		Int("count", len(all)).
		Bool("has_more", meta.HasMore).
		Bool("limit_reached", meta.LimitReached).
		Msg("Fetched repositories")

	return all, &meta, nil
}

// fetchRepositoryPages performs one full bounded traversal.
func (c *Client) fetchRepositoryPages(ctx context.Context, token string) ([]Repository, RepositoriesMetadata, error) {
	all := make([]Repository, 0, c.config.PerPage)
	meta := RepositoriesMetadata{}

	for page := 1; page <= c.config.MaxPages; page++ {
		query := url.Values{
			"per_page": {strconv.Itoa(c.config.PerPage)},
			"type":     {"all"},
			"sort":     {"updated"},
			"page":     {strconv.Itoa(page)},
		}

		// Paginated traversal is never served from cache: the cursor is
		// transient and a stale mix of pages would corrupt the listing.
		resp, err := c.doGet(ctx, token, "/user/repos", query, c.config.ReposTimeout, false)
		if err != nil {
			return nil, meta, err
		}

		meta.PagesFetched = page

		var repos []Repository
		if err := json.Unmarshal(resp.body, &repos); err != nil {
			c.logger.Warn().Int("page", page).Msg("Invalid repositories page shape, using empty list")
			repos = nil
		}

		if len(repos) == 0 {
			break
		}

		all = append(all, repos...)

		if hasNextLink(resp.header.Get("Link")) {
			meta.HasMore = true
			if page >= c.config.MaxPages {
				meta.LimitReached = true
			}
		}
	}

	meta.TotalFetched = len(all)
	return all, meta, nil
}

// hasNextLink reports whether a Link header advertises a next page.
// GitHub signals continuation with a rel="next" entry, e.g.
//
//	<https://api.github.com/user/repos?page=2>; rel="next", <...>; rel="last"
func hasNextLink(linkHeader string) bool {
	return strings.Contains(linkHeader, `rel="next"`)
}
