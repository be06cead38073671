// Package report renders the computed digest as a console summary or
// an HTML document.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/spiffcs/pulse/internal/format"
	"github.com/spiffcs/pulse/internal/model"
)

// Data carries everything a renderer needs for one run.
type Data struct {
	Owner       string
	Cutoff      time.Time
	GeneratedAt time.Time
	Records     []model.ActivityRecord
	Packages    []model.PackageStat
	Summary     model.Summary
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ConsoleRenderer writes a styled digest summary to a terminal or any
// other writer.
type ConsoleRenderer struct{}

// Render writes the digest to w. Repositories appear in resolution
// order; quiet repositories are summarized in one line.
func (r *ConsoleRenderer) Render(d Data, w io.Writer) error {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Activity for %s since %s", d.Owner, d.Cutoff.Format("2006-01-02 15:04 MST"))))
	fmt.Fprintln(w)

	quiet := 0
	for _, rec := range d.Records {
		if !rec.HasActivity {
			quiet++
			continue
		}
		r.renderRepo(rec, w)
	}
	if quiet > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d repositories with no activity", quiet)))
		fmt.Fprintln(w)
	}

	if len(d.Packages) > 0 {
		r.renderPackages(d.Packages, w)
	}

	r.renderSummary(d.Summary, w)
	return nil
}

func (r *ConsoleRenderer) renderRepo(rec model.ActivityRecord, w io.Writer) {
	nameWidth := 30
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 60 {
		nameWidth = width / 3
	}

	line := format.PadRight(format.Truncate(rec.Name, nameWidth), nameWidth)
	line += fmt.Sprintf("  ★ %d %s", rec.Stars, delta(rec.StarsDelta))
	line += fmt.Sprintf("  ⑂ %d %s", rec.Forks, delta(rec.ForksDelta))
	fmt.Fprintln(w, line)

	for _, is := range rec.NewIssues {
		fmt.Fprintf(w, "  new issue    #%-4d %s  %s\n", is.Number, format.Truncate(is.Title, 50), dimStyle.Render("by "+is.Author+", "+format.Age(is.CreatedAt)))
	}
	for _, is := range rec.UpdatedIssues {
		fmt.Fprintf(w, "  updated      #%-4d %s\n", is.Number, format.Truncate(is.Title, 50))
	}
	for _, pr := range rec.NewPulls {
		fmt.Fprintf(w, "  new PR       #%-4d %s  %s\n", pr.Number, format.Truncate(pr.Title, 50), dimStyle.Render("by "+pr.Author))
	}
	for _, cm := range rec.NewComments {
		fmt.Fprintf(w, "  comment      #%-4d %s\n", cm.IssueNumber, dimStyle.Render(format.Truncate(cm.Preview, 60)))
	}
	fmt.Fprintln(w)
}

func (r *ConsoleRenderer) renderPackages(packages []model.PackageStat, w io.Writer) {
	fmt.Fprintln(w, headerStyle.Render("Gallery packages"))
	for _, p := range packages {
		line := fmt.Sprintf("%s %s  %d downloads %s",
			format.PadRight(p.Name, 24), dimStyle.Render("v"+p.Version), p.Downloads, delta(p.DownloadDelta))
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func (r *ConsoleRenderer) renderSummary(s model.Summary, w io.Writer) {
	parts := []string{
		fmt.Sprintf("%d active repos", s.ActiveRepos),
		fmt.Sprintf("%d new issues", s.NewIssues),
		fmt.Sprintf("%d comments", s.NewComments),
		fmt.Sprintf("%d PRs", s.NewPullRequests),
		fmt.Sprintf("%+d stars", s.StarsGained),
	}
	if s.ActivePackages > 0 {
		parts = append(parts, fmt.Sprintf("%+d downloads", s.DownloadsGained))
	}
	fmt.Fprintln(w, headerStyle.Render("Summary: ")+strings.Join(parts, " | "))
}

// delta renders a signed counter movement: green for gains, red for
// losses, empty when unchanged.
func delta(n int) string {
	switch {
	case n > 0:
		return color.GreenString("(+%d)", n)
	case n < 0:
		return color.RedString("(%d)", n)
	}
	return ""
}
