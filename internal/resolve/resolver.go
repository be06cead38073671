// Package resolve computes per-repository and per-package activity
// deltas against the persisted snapshot.
package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/spiffcs/pulse/internal/format"
	"github.com/spiffcs/pulse/internal/gh"
	"github.com/spiffcs/pulse/internal/log"
	"github.com/spiffcs/pulse/internal/model"
	"github.com/spiffcs/pulse/internal/state"
)

// GitHubClient is the slice of the GitHub client the resolver needs.
type GitHubClient interface {
	ListOwnerRepos(ctx context.Context, owner string) ([]gh.Repo, error)
	ListIssuesSince(ctx context.Context, owner, repo string, since time.Time) ([]gh.Issue, error)
	ListIssueCommentsSince(ctx context.Context, owner, repo string, since time.Time) ([]gh.Comment, error)
	ListPullRequests(ctx context.Context, owner, repo string) ([]gh.Pull, error)
}

// issueURLRegex extracts the owning issue number from an API issue URL.
var issueURLRegex = regexp.MustCompile(`/issues/(\d+)$`)

// Resolver produces one ActivityRecord per repository for a single
// owner.
type Resolver struct {
	client GitHubClient
	owner  string
	// Only is an optional allow-list of repository names; empty means
	// every non-fork repository the owner has.
	Only map[string]bool
}

// NewResolver creates a resolver for the given owner.
func NewResolver(client GitHubClient, owner string) *Resolver {
	return &Resolver{client: client, owner: owner}
}

// Resolve lists the owner's repositories and computes activity records
// against the prior snapshot, in listing order. On a per-repository
// fetch failure it returns the records computed so far together with an
// error naming the repository, so a failed repo is never mistaken for a
// quiet one.
func (r *Resolver) Resolve(ctx context.Context, snap state.Snapshot, cutoff time.Time) ([]model.ActivityRecord, error) {
	repos, err := r.client.ListOwnerRepos(ctx, r.owner)
	if err != nil {
		return nil, fmt.Errorf("listing repositories for %s: %w", r.owner, err)
	}

	records := make([]model.ActivityRecord, 0, len(repos))
	for i, repo := range repos {
		if repo.Fork {
			continue
		}
		if len(r.Only) > 0 && !r.Only[repo.Name] {
			continue
		}

		log.Progress("checking %s (%d/%d)", repo.FullName, i+1, len(repos))
		record, err := r.resolveRepo(ctx, repo, snap, cutoff)
		if err != nil {
			return records, fmt.Errorf("resolving %s: %w", repo.FullName, err)
		}
		records = append(records, record)
	}
	log.ProgressDone()

	return records, nil
}

func (r *Resolver) resolveRepo(ctx context.Context, repo gh.Repo, snap state.Snapshot, cutoff time.Time) (model.ActivityRecord, error) {
	// Prior values default to the current observation: an entity never
	// seen before, or a partially populated legacy entry, yields a zero
	// delta rather than a delta from an implicit zero.
	prevStars := repo.Stars
	prevForks := repo.Forks
	if prior, ok := snap.Repos[repo.Name]; ok {
		if prior.Stars != nil {
			prevStars = *prior.Stars
		}
		if prior.Forks != nil {
			prevForks = *prior.Forks
		}
	}

	record := model.ActivityRecord{
		Name:       repo.Name,
		URL:        repo.HTMLURL,
		Stars:      repo.Stars,
		StarsDelta: repo.Stars - prevStars,
		Forks:      repo.Forks,
		ForksDelta: repo.Forks - prevForks,
	}

	issues, err := r.client.ListIssuesSince(ctx, r.owner, repo.Name, cutoff)
	if err != nil {
		return record, fmt.Errorf("fetching issues: %w", err)
	}
	for _, is := range issues {
		if is.PullRequest {
			// The issues endpoint is dual-purpose and returns PRs too.
			continue
		}
		converted := model.Issue{
			Number:    is.Number,
			Title:     is.Title,
			Author:    is.Author,
			CreatedAt: is.CreatedAt,
			UpdatedAt: is.UpdatedAt,
			HTMLURL:   is.HTMLURL,
		}
		if !is.CreatedAt.Before(cutoff) {
			record.NewIssues = append(record.NewIssues, converted)
		} else {
			// Created before the cutoff but touched since.
			record.UpdatedIssues = append(record.UpdatedIssues, converted)
		}
	}

	comments, err := r.client.ListIssueCommentsSince(ctx, r.owner, repo.Name, cutoff)
	if err != nil {
		return record, fmt.Errorf("fetching comments: %w", err)
	}
	for _, cm := range comments {
		record.NewComments = append(record.NewComments, model.Comment{
			IssueNumber: issueNumberFromURL(cm.IssueURL),
			Author:      cm.Author,
			CreatedAt:   cm.CreatedAt,
			HTMLURL:     cm.HTMLURL,
			Preview:     format.Preview(cm.Body),
		})
	}

	pulls, err := r.client.ListPullRequests(ctx, r.owner, repo.Name)
	if err != nil {
		return record, fmt.Errorf("fetching pull requests: %w", err)
	}
	for _, pr := range pulls {
		if pr.CreatedAt.Before(cutoff) {
			continue
		}
		record.NewPulls = append(record.NewPulls, model.PullRequest{
			Number:    pr.Number,
			Title:     pr.Title,
			Author:    pr.Author,
			CreatedAt: pr.CreatedAt,
			HTMLURL:   pr.HTMLURL,
		})
	}

	record.HasActivity = len(record.NewIssues) > 0 ||
		len(record.NewComments) > 0 ||
		len(record.NewPulls) > 0 ||
		len(record.UpdatedIssues) > 0 ||
		record.StarsDelta != 0 ||
		record.ForksDelta != 0

	return record, nil
}

// issueNumberFromURL pulls the trailing issue number out of an API
// issue URL. A URL that does not match degrades to 0 rather than
// dropping the comment.
func issueNumberFromURL(url string) int {
	m := issueURLRegex.FindStringSubmatch(url)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// BuildPatch converts a run's observations into a snapshot patch. Only
// entities observed this run appear in the patch; the store's merge
// keeps everything else.
func BuildPatch(records []model.ActivityRecord, stats []model.PackageStat, checkedAt time.Time) state.Snapshot {
	last := state.FormatTime(checkedAt)
	patch := state.Snapshot{
		LastCheck: &last,
		Repos:     make(map[string]state.RepoSnapshot, len(records)),
		Packages:  make(map[string]state.PackageSnapshot, len(stats)),
	}
	for _, rec := range records {
		patch.Repos[rec.Name] = state.RepoSnapshot{
			Stars: state.Int(rec.Stars),
			Forks: state.Int(rec.Forks),
		}
	}
	for _, st := range stats {
		patch.Packages[st.Name] = state.PackageSnapshot{
			Downloads: state.Int(st.Downloads),
		}
	}
	return patch
}
