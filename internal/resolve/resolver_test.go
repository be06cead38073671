package resolve

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spiffcs/pulse/internal/gh"
	"github.com/spiffcs/pulse/internal/state"
)

var (
	now    = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	cutoff = now.Add(-24 * time.Hour)
)

type fakeGitHub struct {
	repos    []gh.Repo
	issues   map[string][]gh.Issue
	comments map[string][]gh.Comment
	pulls    map[string][]gh.Pull
	failRepo string
}

var errBoom = errors.New("boom")

func (f *fakeGitHub) ListOwnerRepos(ctx context.Context, owner string) ([]gh.Repo, error) {
	return f.repos, nil
}

func (f *fakeGitHub) ListIssuesSince(ctx context.Context, owner, repo string, since time.Time) ([]gh.Issue, error) {
	if repo == f.failRepo {
		return nil, errBoom
	}
	return f.issues[repo], nil
}

func (f *fakeGitHub) ListIssueCommentsSince(ctx context.Context, owner, repo string, since time.Time) ([]gh.Comment, error) {
	if repo == f.failRepo {
		return nil, errBoom
	}
	return f.comments[repo], nil
}

func (f *fakeGitHub) ListPullRequests(ctx context.Context, owner, repo string) ([]gh.Pull, error) {
	if repo == f.failRepo {
		return nil, errBoom
	}
	return f.pulls[repo], nil
}

func TestResolveFirstRunHasZeroDeltas(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{
			{Name: "widget", Stars: 42, Forks: 9},
			{Name: "gadget", Stars: 1000, Forks: 250},
		},
	}

	records, err := NewResolver(client, "octocat").Resolve(context.Background(), state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{},
		Packages: map[string]state.PackageSnapshot{},
	}, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	for _, rec := range records {
		if rec.StarsDelta != 0 || rec.ForksDelta != 0 {
			t.Errorf("%s: first-run deltas = (%d, %d), want (0, 0)", rec.Name, rec.StarsDelta, rec.ForksDelta)
		}
		if rec.HasActivity {
			t.Errorf("%s: HasActivity = true on first run with no events", rec.Name)
		}
	}
}

func TestResolvePartialPriorDefaultsToCurrent(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{{Name: "widget", Stars: 42, Forks: 9}},
	}
	// Legacy entry: stars recorded, forks never persisted.
	snap := state.Snapshot{
		Repos: map[string]state.RepoSnapshot{
			"widget": {Stars: state.Int(40)},
		},
		Packages: map[string]state.PackageSnapshot{},
	}

	records, err := NewResolver(client, "octocat").Resolve(context.Background(), snap, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	rec := records[0]
	if rec.StarsDelta != 2 {
		t.Errorf("StarsDelta = %d, want 2", rec.StarsDelta)
	}
	if rec.ForksDelta != 0 {
		t.Errorf("ForksDelta = %d, want 0 (missing sub-field defaults to current)", rec.ForksDelta)
	}
}

func TestResolveActiveAndQuietRepos(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{
			{Name: "active-repo", Stars: 12, Forks: 2, HTMLURL: "https://github.com/octocat/active-repo"},
			{Name: "quiet-repo", Stars: 3, Forks: 1},
		},
		issues: map[string][]gh.Issue{
			"active-repo": {
				{Number: 5, Title: "new bug", Author: "alice", CreatedAt: now.Add(-2 * time.Hour)},
			},
		},
	}
	snap := state.Snapshot{
		Repos: map[string]state.RepoSnapshot{
			"active-repo": {Stars: state.Int(10), Forks: state.Int(2)},
			"quiet-repo":  {Stars: state.Int(3), Forks: state.Int(1)},
		},
		Packages: map[string]state.PackageSnapshot{},
	}

	records, err := NewResolver(client, "octocat").Resolve(context.Background(), snap, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	active := records[0]
	if active.StarsDelta != 2 || active.ForksDelta != 0 {
		t.Errorf("active-repo deltas = (%d, %d), want (2, 0)", active.StarsDelta, active.ForksDelta)
	}
	if len(active.NewIssues) != 1 {
		t.Errorf("active-repo NewIssues = %d, want 1", len(active.NewIssues))
	}
	if !active.HasActivity {
		t.Error("active-repo HasActivity = false, want true")
	}

	quiet := records[1]
	if quiet.HasActivity {
		t.Error("quiet-repo HasActivity = true, want false")
	}
}

func TestResolvePartitionsIssuesAndDropsPulls(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{{Name: "widget"}},
		issues: map[string][]gh.Issue{
			"widget": {
				{Number: 1, Title: "fresh", CreatedAt: now.Add(-1 * time.Hour)},
				{Number: 2, Title: "old but touched", CreatedAt: now.Add(-100 * time.Hour), UpdatedAt: now.Add(-1 * time.Hour)},
				{Number: 3, Title: "actually a PR", CreatedAt: now.Add(-1 * time.Hour), PullRequest: true},
			},
		},
		pulls: map[string][]gh.Pull{
			"widget": {
				{Number: 4, Title: "new PR", CreatedAt: now.Add(-2 * time.Hour)},
				{Number: 5, Title: "stale PR", CreatedAt: now.Add(-200 * time.Hour)},
			},
		},
	}

	records, err := NewResolver(client, "octocat").Resolve(context.Background(), state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{},
		Packages: map[string]state.PackageSnapshot{},
	}, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	rec := records[0]
	if len(rec.NewIssues) != 1 || rec.NewIssues[0].Number != 1 {
		t.Errorf("NewIssues = %+v, want only issue 1", rec.NewIssues)
	}
	if len(rec.UpdatedIssues) != 1 || rec.UpdatedIssues[0].Number != 2 {
		t.Errorf("UpdatedIssues = %+v, want only issue 2", rec.UpdatedIssues)
	}
	if len(rec.NewPulls) != 1 || rec.NewPulls[0].Number != 4 {
		t.Errorf("NewPulls = %+v, want only PR 4", rec.NewPulls)
	}
}

func TestResolveCommentNumberAndPreview(t *testing.T) {
	longBody := strings.Repeat("a", 80) + "\nsecond line " + strings.Repeat("b", 60)
	client := &fakeGitHub{
		repos: []gh.Repo{{Name: "widget"}},
		comments: map[string][]gh.Comment{
			"widget": {
				{Author: "carol", Body: longBody, CreatedAt: now.Add(-1 * time.Hour),
					IssueURL: "https://api.github.com/repos/octocat/widget/issues/17"},
				{Author: "dave", Body: "short", CreatedAt: now.Add(-1 * time.Hour),
					IssueURL: "not-a-real-url"},
			},
		},
	}

	records, err := NewResolver(client, "octocat").Resolve(context.Background(), state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{},
		Packages: map[string]state.PackageSnapshot{},
	}, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	comments := records[0].NewComments
	if len(comments) != 2 {
		t.Fatalf("NewComments = %d, want 2", len(comments))
	}
	if comments[0].IssueNumber != 17 {
		t.Errorf("IssueNumber = %d, want 17", comments[0].IssueNumber)
	}
	if n := len([]rune(comments[0].Preview)); n > 103 {
		t.Errorf("Preview length = %d, want <= 103", n)
	}
	if strings.ContainsAny(comments[0].Preview, "\n\r") {
		t.Errorf("Preview contains newlines: %q", comments[0].Preview)
	}
	if comments[1].IssueNumber != 0 {
		t.Errorf("unparseable issue URL should degrade to 0, got %d", comments[1].IssueNumber)
	}
}

func TestResolveSkipsForks(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{
			{Name: "own-repo"},
			{Name: "forked-repo", Fork: true},
		},
	}

	records, err := NewResolver(client, "octocat").Resolve(context.Background(), state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{},
		Packages: map[string]state.PackageSnapshot{},
	}, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(records) != 1 || records[0].Name != "own-repo" {
		t.Errorf("records = %+v, want only own-repo", records)
	}
}

func TestResolveFetchFailureIsNotQuiet(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{
			{Name: "fine-repo"},
			{Name: "broken-repo"},
		},
		failRepo: "broken-repo",
	}

	records, err := NewResolver(client, "octocat").Resolve(context.Background(), state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{},
		Packages: map[string]state.PackageSnapshot{},
	}, cutoff)
	if err == nil {
		t.Fatal("Resolve() error = nil, want failure naming broken-repo")
	}
	if !strings.Contains(err.Error(), "broken-repo") {
		t.Errorf("error %q does not name the failed repo", err)
	}
	// Records computed before the failure survive.
	if len(records) != 1 || records[0].Name != "fine-repo" {
		t.Errorf("records = %+v, want the one resolved before the failure", records)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{{Name: "widget", Stars: 5, Forks: 2}},
		issues: map[string][]gh.Issue{
			"widget": {{Number: 1, Title: "bug", CreatedAt: now.Add(-1 * time.Hour)}},
		},
	}
	snap := state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{"widget": {Stars: state.Int(4), Forks: state.Int(2)}},
		Packages: map[string]state.PackageSnapshot{},
	}

	r := NewResolver(client, "octocat")
	first, err := r.Resolve(context.Background(), snap, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := r.Resolve(context.Background(), snap, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced differing records:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveOnlyFilter(t *testing.T) {
	client := &fakeGitHub{
		repos: []gh.Repo{{Name: "widget"}, {Name: "gadget"}},
	}
	r := NewResolver(client, "octocat")
	r.Only = map[string]bool{"gadget": true}

	records, err := r.Resolve(context.Background(), state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{},
		Packages: map[string]state.PackageSnapshot{},
	}, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(records) != 1 || records[0].Name != "gadget" {
		t.Errorf("records = %+v, want only gadget", records)
	}
}

func TestBuildPatch(t *testing.T) {
	records, err := NewResolver(&fakeGitHub{
		repos: []gh.Repo{{Name: "widget", Stars: 12, Forks: 3}},
	}, "octocat").Resolve(context.Background(), state.Snapshot{
		Repos:    map[string]state.RepoSnapshot{},
		Packages: map[string]state.PackageSnapshot{},
	}, cutoff)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	patch := BuildPatch(records, nil, now)
	if patch.LastCheck == nil || *patch.LastCheck != "2026-08-28T12:00:00Z" {
		t.Errorf("LastCheck = %v, want 2026-08-28T12:00:00Z", patch.LastCheck)
	}
	entry, ok := patch.Repos["widget"]
	if !ok {
		t.Fatal("patch missing widget entry")
	}
	if *entry.Stars != 12 || *entry.Forks != 3 {
		t.Errorf("patch entry = (%d, %d), want (12, 3)", *entry.Stars, *entry.Forks)
	}
}
