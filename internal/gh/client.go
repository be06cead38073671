// Package gh wraps the GitHub REST API behind the small set of listing
// operations the digest needs. All listings are fully paginated and
// share one rate-limit gate.
package gh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gogithub "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/spiffcs/pulse/internal/log"
)

// ErrNotFound is returned by Do for 404 responses. The listing methods
// never surface it; a missing listing resource yields an empty slice.
var ErrNotFound = errors.New("github resource not found")

// Repo describes one repository from the owner listing, carrying the
// current counter values the resolver diffs against.
type Repo struct {
	Name        string
	FullName    string
	HTMLURL     string
	Description string
	Stars       int
	Forks       int
	Fork        bool
}

// Issue is the wire view of an entry from the issue listing. The
// endpoint is dual-purpose and also returns pull requests, flagged here
// so the resolver can drop them.
type Issue struct {
	Number      int
	Title       string
	Author      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	HTMLURL     string
	PullRequest bool
}

// Comment is the wire view of an issue comment. IssueURL references the
// owning issue; the resolver extracts the number from it.
type Comment struct {
	Author    string
	Body      string
	CreatedAt time.Time
	HTMLURL   string
	IssueURL  string
}

// Pull is the wire view of a pull request.
type Pull struct {
	Number    int
	Title     string
	Author    string
	CreatedAt time.Time
	HTMLURL   string
}

// Client wraps the GitHub API client.
type Client struct {
	api  *gogithub.Client
	gate *gate
}

// New creates a GitHub client. An explicit token takes precedence over
// the GITHUB_TOKEN environment variable; with neither, requests are
// sent unauthenticated at the lower anonymous quota.
func New(token string) *Client {
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		log.Debug("no GitHub token resolved, using unauthenticated requests")
	}

	return &Client{
		api:  gogithub.NewClient(httpClient),
		gate: newGate(),
	}
}

// mapError translates a go-github failure into the package error
// taxonomy.
func mapError(endpoint string, resp *gogithub.Response, err error) error {
	var rle *gogithub.RateLimitError
	if errors.As(err, &rle) {
		return &RateLimitError{Endpoint: endpoint, ResetAt: rle.Rate.Reset.Time}
	}
	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &abuse) {
		reset := time.Time{}
		if abuse.RetryAfter != nil {
			reset = time.Now().Add(*abuse.RetryAfter)
		}
		return &RateLimitError{Endpoint: endpoint, ResetAt: reset}
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return &AuthError{Endpoint: endpoint}
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden, http.StatusTooManyRequests:
			return &RateLimitError{Endpoint: endpoint, ResetAt: resp.Rate.Reset.Time}
		}
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	return fmt.Errorf("github request to %s failed: %w", endpoint, err)
}

// ListOwnerRepos fetches every repository owned by owner, in the order
// the server returns them.
func (c *Client) ListOwnerRepos(ctx context.Context, owner string) ([]Repo, error) {
	opts := &gogithub.RepositoryListOptions{
		Type:        "owner",
		Sort:        "full_name",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	p := newPager(c.gate, "repos/"+owner, func(ctx context.Context, page int) ([]*gogithub.Repository, *gogithub.Response, error) {
		opts.Page = page
		return c.api.Repositories.List(ctx, owner, opts)
	})
	raw, err := collect(ctx, p)
	if err != nil {
		return nil, err
	}

	repos := make([]Repo, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, Repo{
			Name:        r.GetName(),
			FullName:    r.GetFullName(),
			HTMLURL:     r.GetHTMLURL(),
			Description: r.GetDescription(),
			Stars:       r.GetStargazersCount(),
			Forks:       r.GetForksCount(),
			Fork:        r.GetFork(),
		})
	}
	log.Debug("listed repositories", "owner", owner, "count", len(repos))
	return repos, nil
}

// ListIssuesSince fetches issues opened or updated since the given
// time. Pull requests returned by the dual-purpose endpoint are flagged,
// not filtered.
func (c *Client) ListIssuesSince(ctx context.Context, owner, repo string, since time.Time) ([]Issue, error) {
	opts := &gogithub.IssueListByRepoOptions{
		State:       "all",
		Since:       since,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	p := newPager(c.gate, fmt.Sprintf("repos/%s/%s/issues", owner, repo), func(ctx context.Context, page int) ([]*gogithub.Issue, *gogithub.Response, error) {
		opts.Page = page
		return c.api.Issues.ListByRepo(ctx, owner, repo, opts)
	})
	raw, err := collect(ctx, p)
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raw))
	for _, is := range raw {
		issues = append(issues, Issue{
			Number:      is.GetNumber(),
			Title:       is.GetTitle(),
			Author:      is.GetUser().GetLogin(),
			CreatedAt:   is.GetCreatedAt().Time,
			UpdatedAt:   is.GetUpdatedAt().Time,
			HTMLURL:     is.GetHTMLURL(),
			PullRequest: is.IsPullRequest(),
		})
	}
	return issues, nil
}

// ListIssueCommentsSince fetches all issue comments in the repository
// created since the given time.
func (c *Client) ListIssueCommentsSince(ctx context.Context, owner, repo string, since time.Time) ([]Comment, error) {
	sort := "created"
	direction := "asc"
	opts := &gogithub.IssueListCommentsOptions{
		Since:       &since,
		Sort:        &sort,
		Direction:   &direction,
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	p := newPager(c.gate, fmt.Sprintf("repos/%s/%s/issues/comments", owner, repo), func(ctx context.Context, page int) ([]*gogithub.IssueComment, *gogithub.Response, error) {
		opts.Page = page
		// Issue number 0 lists comments across the whole repository.
		return c.api.Issues.ListComments(ctx, owner, repo, 0, opts)
	})
	raw, err := collect(ctx, p)
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(raw))
	for _, cm := range raw {
		comments = append(comments, Comment{
			Author:    cm.GetUser().GetLogin(),
			Body:      cm.GetBody(),
			CreatedAt: cm.GetCreatedAt().Time,
			HTMLURL:   cm.GetHTMLURL(),
			IssueURL:  cm.GetIssueURL(),
		})
	}
	return comments, nil
}

// ListPullRequests fetches the open pull requests for a repository.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string) ([]Pull, error) {
	opts := &gogithub.PullRequestListOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	p := newPager(c.gate, fmt.Sprintf("repos/%s/%s/pulls", owner, repo), func(ctx context.Context, page int) ([]*gogithub.PullRequest, *gogithub.Response, error) {
		opts.Page = page
		return c.api.PullRequests.List(ctx, owner, repo, opts)
	})
	raw, err := collect(ctx, p)
	if err != nil {
		return nil, err
	}

	pulls := make([]Pull, 0, len(raw))
	for _, pr := range raw {
		pulls = append(pulls, Pull{
			Number:    pr.GetNumber(),
			Title:     pr.GetTitle(),
			Author:    pr.GetUser().GetLogin(),
			CreatedAt: pr.GetCreatedAt().Time,
			HTMLURL:   pr.GetHTMLURL(),
		})
	}
	return pulls, nil
}

// Do issues a single non-paginated request against the REST API and
// decodes the response into v. 404 responses surface as ErrNotFound so
// callers can decide whether absence is an error.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, v any) error {
	if _, err := c.gate.wait(ctx); err != nil {
		return err
	}

	req, err := c.api.NewRequest(method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building %s request for %s: %w", method, endpoint, err)
	}

	resp, err := c.api.Do(ctx, req, v)
	if resp != nil {
		c.gate.update(resp.Rate)
	}
	if err != nil {
		return mapError(endpoint, resp, err)
	}
	return nil
}
