// Package model contains domain types for the pulse application.
// These types are independent of any external GitHub or gallery library.
package model

import "time"

// Issue is a lightweight view of an issue returned by the since-listing.
type Issue struct {
	Number    int
	Title     string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
	HTMLURL   string
}

// Comment is a lightweight view of an issue comment. Preview holds a
// whitespace-collapsed snippet of the body, at most 100 characters plus
// a "..." suffix when truncated.
type Comment struct {
	IssueNumber int
	Author      string
	CreatedAt   time.Time
	HTMLURL     string
	Preview     string
}

// PullRequest is a lightweight view of a pull request.
type PullRequest struct {
	Number    int
	Title     string
	Author    string
	CreatedAt time.Time
	HTMLURL   string
}

// ActivityRecord captures everything that changed for one repository
// since the cutoff. Records are built once by the resolver and never
// mutated afterwards.
type ActivityRecord struct {
	Name        string
	URL         string
	Stars       int
	StarsDelta  int
	Forks       int
	ForksDelta  int
	NewIssues   []Issue
	NewComments []Comment
	NewPulls    []PullRequest
	// UpdatedIssues were created before the cutoff but touched since.
	UpdatedIssues []Issue
	HasActivity   bool
}

// PackageStat captures the download movement for one gallery package.
type PackageStat struct {
	Name            string
	Version         string
	Downloads       int
	DownloadDelta   int
	Published       time.Time
	URL             string
	Description     string
	HasNewDownloads bool
}

// Summary is the digest-level fold over activity records and package
// stats. Only records with activity contribute to the totals.
type Summary struct {
	ActiveRepos     int
	NewIssues       int
	NewComments     int
	NewPullRequests int
	StarsGained     int
	DownloadsGained int
	ActivePackages  int
}
