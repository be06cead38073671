// Package digest folds activity records and package stats into one
// run-level summary.
package digest

import "github.com/spiffcs/pulse/internal/model"

// Summarize folds records and package stats into totals. Only records
// with activity contribute; the fold is a pure function of its inputs.
func Summarize(records []model.ActivityRecord, stats []model.PackageStat) model.Summary {
	var s model.Summary

	for _, rec := range records {
		if !rec.HasActivity {
			continue
		}
		s.ActiveRepos++
		s.NewIssues += len(rec.NewIssues)
		s.NewComments += len(rec.NewComments)
		s.NewPullRequests += len(rec.NewPulls)
		s.StarsGained += rec.StarsDelta
	}

	for _, st := range stats {
		if !st.HasNewDownloads {
			continue
		}
		s.ActivePackages++
		s.DownloadsGained += st.DownloadDelta
	}

	return s
}
