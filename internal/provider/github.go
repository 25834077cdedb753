package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// GitHub adapter bounds.
const (
	githubDefaultBaseURL = "https://api.github.com"
	githubMaxRepos       = 5
	githubCommitsPerRepo = 30
	githubPRsPerRepo     = 20
	githubCommitsPerPR   = 100
	githubAcceptHeader   = "application/vnd.github+json"
)

// GitHubMeta describes the authenticated user and the repositories fetched.
type GitHubMeta struct {
	Username            string             `json:"username"`
	Repositories        []GitHubRepository `json:"repositories"`
	TotalReposAvailable int                `json:"total_repos_available"`
	ReposFetched        int                `json:"repos_fetched"`
	FetchedAt           time.Time          `json:"fetched_at"`
}

// GitHubRepository is one repository the user actively pushes to.
type GitHubRepository struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	DefaultBranch string    `json:"default_branch"`
	Branches      []string  `json:"branches,omitempty"`
	IsPrivate     bool      `json:"is_private"`
	PushedAt      time.Time `json:"pushed_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GitHubCommit is one commit observed on a repository.
type GitHubCommit struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	URL          string    `json:"url,omitempty"`
	Branch       string    `json:"branch"`
	Branches     []string  `json:"branches,omitempty"`
	AuthoredAt   time.Time `json:"authored_at"`
	Additions    int       `json:"additions,omitempty"`
	Deletions    int       `json:"deletions,omitempty"`
	FilesChanged int       `json:"files_changed,omitempty"`
}

// GitHubCommitSet is the merged commit collection for one repository.
type GitHubCommitSet struct {
	Commits      []GitHubCommit `json:"commits"`
	TotalCommits int            `json:"total_commits"`
}

// GitHubPullRequest is one pull request with the commit SHAs it claims.
type GitHubPullRequest struct {
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	Action         string     `json:"action,omitempty"`
	URL            string     `json:"url,omitempty"`
	HeadRef        string     `json:"head_ref"`
	BaseRef        string     `json:"base_ref"`
	CommitSHAs     []string   `json:"commit_shas,omitempty"`
	MergeCommitSHA string     `json:"merge_commit_sha,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
}

// GitHubPRSet is the merged pull-request collection for one repository.
type GitHubPRSet struct {
	PullRequests []GitHubPullRequest `json:"pull_requests"`
}

// GitHubRepoData bundles the per-repository collections.
type GitHubRepoData struct {
	Commits GitHubCommitSet `json:"commits"`
	PRs     GitHubPRSet     `json:"prs"`
}

// GitHubPayload is the composite raw output of one github fetch:
// account-level meta plus per-repository data keyed by full name.
type GitHubPayload struct {
	Meta  GitHubMeta                `json:"meta"`
	Repos map[string]GitHubRepoData `json:"repos"`
}

// Platform implements Payload.
func (GitHubPayload) Platform() platform.Platform { return platform.GitHub }

// GitHubProvider fetches the authenticated user's recent activity from the
// GitHub REST API.
type GitHubProvider struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
	// MaxRepos bounds how many recently pushed repositories are fetched.
	MaxRepos int
	// Now is the clock, injectable for tests.
	Now func() time.Time
}

// NewGitHubProvider returns a GitHubProvider with production defaults.
func NewGitHubProvider() *GitHubProvider {
	return &GitHubProvider{
		BaseURL:  githubDefaultBaseURL,
		MaxRepos: githubMaxRepos,
		Now:      time.Now,
	}
}

// Platform implements Provider.
func (g *GitHubProvider) Platform() platform.Platform { return platform.GitHub }

// Fetch retrieves the authenticated user, their most recently pushed
// repositories (bounded by MaxRepos), and each repository's latest commits
// and pull requests.
func (g *GitHubProvider) Fetch(ctx context.Context, token string) (Result, error) {
	client := httpClient(g.Client)

	var user struct {
		Login       string `json:"login"`
		PublicRepos int    `json:"public_repos"`
		OwnedRepos  int    `json:"total_private_repos"`
	}

	resp, err := g.get(ctx, client, token, "/user", &user)
	if err != nil {
		return Result{}, g.classify(resp, err)
	}

	headers := resp.Header

	var repos []struct {
		Name          string    `json:"name"`
		FullName      string    `json:"full_name"`
		DefaultBranch string    `json:"default_branch"`
		Private       bool      `json:"private"`
		PushedAt      time.Time `json:"pushed_at"`
		UpdatedAt     time.Time `json:"updated_at"`
		Owner         struct {
			Login string `json:"login"`
		} `json:"owner"`
	}

	reposPath := fmt.Sprintf("/user/repos?sort=pushed&per_page=%d", g.maxRepos())

	resp, err = g.get(ctx, client, token, reposPath, &repos)
	if err != nil {
		return Result{}, g.classify(resp, err)
	}

	headers = resp.Header

	now := g.now()
	payload := GitHubPayload{
		Meta: GitHubMeta{
			Username:            user.Login,
			TotalReposAvailable: user.PublicRepos + user.OwnedRepos,
			FetchedAt:           now,
		},
		Repos: make(map[string]GitHubRepoData, len(repos)),
	}

	for _, repo := range repos {
		if len(payload.Repos) >= g.maxRepos() {
			break
		}

		repository := GitHubRepository{
			Owner:         repo.Owner.Login,
			Name:          repo.Name,
			FullName:      repo.FullName,
			DefaultBranch: repo.DefaultBranch,
			IsPrivate:     repo.Private,
			PushedAt:      repo.PushedAt,
			UpdatedAt:     repo.UpdatedAt,
		}

		data, repoHeaders, repoErr := g.fetchRepo(ctx, client, token, repository)
		if repoErr != nil {
			return Result{}, repoErr
		}

		if repoHeaders != nil {
			headers = repoHeaders
		}

		payload.Meta.Repositories = append(payload.Meta.Repositories, repository)
		payload.Repos[repo.FullName] = data
	}

	payload.Meta.ReposFetched = len(payload.Repos)

	return Result{Payload: payload, Headers: headers}, nil
}

// fetchRepo retrieves the latest commits and pull requests for one repository.
func (g *GitHubProvider) fetchRepo(
	ctx context.Context, client *http.Client, token string, repo GitHubRepository,
) (GitHubRepoData, http.Header, error) {
	var commits []struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
		Commit  struct {
			Message string `json:"message"`
			Author  struct {
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}

	commitsPath := fmt.Sprintf("/repos/%s/commits?per_page=%d", repo.FullName, githubCommitsPerRepo)

	resp, err := g.get(ctx, client, token, commitsPath, &commits)
	if err != nil {
		return GitHubRepoData{}, nil, g.classify(resp, err)
	}

	headers := resp.Header

	var prs []struct {
		Number         int        `json:"number"`
		Title          string     `json:"title"`
		State          string     `json:"state"`
		HTMLURL        string     `json:"html_url"`
		MergeCommitSHA string     `json:"merge_commit_sha"`
		CreatedAt      time.Time  `json:"created_at"`
		MergedAt       *time.Time `json:"merged_at"`
		Head           struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	}

	prsPath := fmt.Sprintf("/repos/%s/pulls?state=all&sort=updated&direction=desc&per_page=%d",
		repo.FullName, githubPRsPerRepo)

	resp, err = g.get(ctx, client, token, prsPath, &prs)
	if err != nil {
		return GitHubRepoData{}, nil, g.classify(resp, err)
	}

	headers = resp.Header

	data := GitHubRepoData{}

	for _, c := range commits {
		data.Commits.Commits = append(data.Commits.Commits, GitHubCommit{
			SHA:        c.SHA,
			Message:    c.Commit.Message,
			URL:        c.HTMLURL,
			Branch:     repo.DefaultBranch,
			Branches:   []string{repo.DefaultBranch},
			AuthoredAt: c.Commit.Author.Date,
		})
	}

	data.Commits.TotalCommits = len(data.Commits.Commits)

	for _, pr := range prs {
		state := pr.State
		if pr.MergedAt != nil {
			state = "merged"
		}

		// The list-pulls payload carries no per-PR commit SHAs; without a
		// follow-up call a PR could never claim its branch commits.
		shas, shaHeaders, shaErr := g.fetchPRCommitSHAs(ctx, client, token, repo.FullName, pr.Number)
		if shaErr != nil {
			return GitHubRepoData{}, nil, shaErr
		}

		headers = shaHeaders

		data.PRs.PullRequests = append(data.PRs.PullRequests, GitHubPullRequest{
			Number:         pr.Number,
			Title:          pr.Title,
			State:          state,
			URL:            pr.HTMLURL,
			HeadRef:        pr.Head.Ref,
			BaseRef:        pr.Base.Ref,
			CommitSHAs:     shas,
			MergeCommitSHA: pr.MergeCommitSHA,
			CreatedAt:      pr.CreatedAt,
			MergedAt:       pr.MergedAt,
		})
	}

	return data, headers, nil
}

// fetchPRCommitSHAs lists the commit SHAs belonging to one pull request.
func (g *GitHubProvider) fetchPRCommitSHAs(
	ctx context.Context, client *http.Client, token, fullName string, number int,
) ([]string, http.Header, error) {
	var commits []struct {
		SHA string `json:"sha"`
	}

	path := fmt.Sprintf("/repos/%s/pulls/%d/commits?per_page=%d", fullName, number, githubCommitsPerPR)

	resp, err := g.get(ctx, client, token, path, &commits)
	if err != nil {
		return nil, nil, g.classify(resp, err)
	}

	shas := make([]string, 0, len(commits))
	for _, c := range commits {
		shas = append(shas, c.SHA)
	}

	return shas, resp.Header, nil
}

// get issues one GitHub API request with token auth.
func (g *GitHubProvider) get(
	ctx context.Context, client *http.Client, token, path string, out any,
) (*http.Response, error) {
	base := g.BaseURL
	if base == "" {
		base = githubDefaultBaseURL
	}

	return getJSON(ctx, client, base+path, "Bearer "+token, map[string]string{
		"Accept": githubAcceptHeader,
	}, out)
}

// classify maps a non-2xx GitHub response to the tagged error set:
// 429 is always rate_limited; 401/403 with an exhausted rate window is
// rate_limited with retry_after derived from the reset header, otherwise
// auth_expired.
func (g *GitHubProvider) classify(resp *http.Response, err error) error {
	if err != errStatus { //nolint:errorlint // sentinel identity check.
		return err
	}

	body := readErrorBody(resp)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return RateLimited(retryAfterSeconds(resp.Header, g.now()))
	case http.StatusUnauthorized, http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return RateLimited(resetDelaySeconds(resp.Header, g.now()))
		}

		return AuthExpired(body)
	default:
		return APIError(resp.StatusCode, body)
	}
}

func (g *GitHubProvider) maxRepos() int {
	if g.MaxRepos > 0 {
		return g.MaxRepos
	}

	return githubMaxRepos
}

func (g *GitHubProvider) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}

	return time.Now()
}
