package github

// User is the authenticated user as returned by GET /user.
// Login is the only field this service requires; the rest is passed
// through to the aggregated response.
type User struct {
	Login       string  `json:"login"`
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Bio         *string `json:"bio"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// Repository is a repository as returned by GET /user/repos.
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

// Organization is an organization as returned by GET /user/orgs.
type Organization struct {
	Login       string  `json:"login"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
}

// PullRequest is a pull request item from the GET /search/issues response.
type PullRequest struct {
	Title         string `json:"title"`
	State         string `json:"state"`
	HTMLURL       string `json:"html_url"`
	CreatedAt     string `json:"created_at"`
	RepositoryURL string `json:"repository_url"`
}

// searchResult is the envelope of the search endpoint: an object carrying
// the matching items.
type searchResult struct {
	TotalCount        int           `json:"total_count"`
	IncompleteResults bool          `json:"incomplete_results"`
	Items             []PullRequest `json:"items"`
}

// RepositoriesMetadata describes the outcome of a paginated repository
// listing.
//
// HasMore is true when any fetched page advertised a rel="next" link.
// LimitReached is true when a next link was still present on the final
// page while the page cap was hit, meaning more repositories exist beyond
// what was collected.
type RepositoriesMetadata struct {
	TotalFetched int     `json:"total_fetched"`
	HasMore      bool    `json:"has_more"`
	LimitReached bool    `json:"limit_reached"`
	PagesFetched int     `json:"pages_fetched"`
	Error        *string `json:"error,omitempty"`
}
