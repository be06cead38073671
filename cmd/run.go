package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spiffcs/pulse/config"
	"github.com/spiffcs/pulse/internal/digest"
	"github.com/spiffcs/pulse/internal/duration"
	"github.com/spiffcs/pulse/internal/gallery"
	"github.com/spiffcs/pulse/internal/gh"
	"github.com/spiffcs/pulse/internal/log"
	"github.com/spiffcs/pulse/internal/mail"
	"github.com/spiffcs/pulse/internal/model"
	"github.com/spiffcs/pulse/internal/report"
	"github.com/spiffcs/pulse/internal/resolve"
	"github.com/spiffcs/pulse/internal/state"
)

// runContext bundles the resolved settings for a single digest run.
type runContext struct {
	cfg           *config.Config
	owner         string
	galleryAuthor string
	cutoff        time.Time
	store         *state.Store
}

// NewCmdRun creates the run command.
func NewCmdRun(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check for new activity and render a digest (same as root pulse)",
		Long: `Fetches repository and package activity since the last recorded
check, diffs it against the stored snapshot, and renders a digest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDigest(cmd, opts)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

// addRunFlags adds the run-specific flags to a command.
func addRunFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "GitHub account to monitor (overrides config)")
	cmd.Flags().StringVar(&opts.GalleryAuthor, "gallery-author", "", "PowerShell Gallery author name (overrides config)")
	cmd.Flags().StringSliceVar(&opts.Repos, "repos", nil, "Limit to these repository names")
	cmd.Flags().StringVarP(&opts.Since, "since", "s", "", "Activity window (e.g., 24h, 3d, 1w)")
	cmd.Flags().StringVar(&opts.Cutoff, "cutoff", "", "Explicit cutoff timestamp (2006-01-02T15:04:05Z), overrides --since")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Report format (console, html)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.StatePath, "state", "", "Snapshot file location")
	cmd.Flags().BoolVar(&opts.Email, "email", false, "Send the digest by email using the configured SMTP settings")
	cmd.Flags().BoolVar(&opts.SkipGallery, "skip-gallery", false, "Skip the PowerShell Gallery source")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Do not update the snapshot after the run")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug)")
}

func runDigest(cmd *cobra.Command, opts *Options) error {
	log.Initialize(opts.Verbosity, os.Stderr)

	rc, err := setupRun(opts)
	if err != nil {
		return err
	}

	snap := rc.store.Load()
	checkedAt := time.Now().UTC().Truncate(time.Second)

	records, stats, err := fetchActivity(cmd, rc, opts, snap)
	if err != nil {
		return err
	}

	summary := digest.Summarize(records, stats)
	data := report.Data{
		Owner:       rc.owner,
		Cutoff:      rc.cutoff,
		GeneratedAt: checkedAt,
		Records:     records,
		Packages:    stats,
		Summary:     summary,
	}

	if err := renderReport(data, rc.cfg, opts); err != nil {
		return err
	}

	if opts.Email {
		if err := sendDigest(data, rc.cfg); err != nil {
			return err
		}
	}

	if opts.DryRun {
		log.Info("dry run, snapshot not updated")
		return nil
	}
	patch := resolve.BuildPatch(records, stats, checkedAt)
	if err := rc.store.Save(patch); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// setupRun loads configuration and resolves the effective settings,
// with flags taking precedence over config values.
func setupRun(opts *Options) (*runContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	owner := opts.Owner
	if owner == "" {
		owner = cfg.Owner
	}
	if owner == "" {
		return nil, fmt.Errorf("owner not configured. Pass --owner or set owner in the config file")
	}

	galleryAuthor := opts.GalleryAuthor
	if galleryAuthor == "" {
		galleryAuthor = cfg.GalleryAuthor
	}
	if opts.SkipGallery {
		galleryAuthor = ""
	}

	cutoff, err := resolveCutoff(opts, cfg)
	if err != nil {
		return nil, err
	}

	statePath := opts.StatePath
	if statePath == "" {
		statePath = cfg.StatePath
	}
	if statePath == "" {
		statePath, err = state.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve state path: %w", err)
		}
	}

	return &runContext{
		cfg:           cfg,
		owner:         owner,
		galleryAuthor: galleryAuthor,
		cutoff:        cutoff,
		store:         state.NewStore(statePath),
	}, nil
}

// resolveCutoff computes the activity cutoff. An explicit --cutoff
// timestamp wins; otherwise the window comes from --since or config.
func resolveCutoff(opts *Options, cfg *config.Config) (time.Time, error) {
	if opts.Cutoff != "" {
		t, err := state.ParseTime(opts.Cutoff)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cutoff: %w", err)
		}
		return t, nil
	}

	since := opts.Since
	if since == "" {
		since = cfg.Since
	}
	if since == "" {
		since = "24h"
	}
	hours, err := duration.ParseHours(since)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since window: %w", err)
	}
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Truncate(time.Second), nil
}

// fetchActivity pulls the GitHub and Gallery sources concurrently and
// diffs both against the prior snapshot.
func fetchActivity(cmd *cobra.Command, rc *runContext, opts *Options, snap state.Snapshot) ([]model.ActivityRecord, []model.PackageStat, error) {
	client := gh.New(rc.cfg.GetGitHubToken())
	resolver := resolve.NewResolver(client, rc.owner)

	only := opts.Repos
	if len(only) == 0 {
		only = rc.cfg.Repos
	}
	if len(only) > 0 {
		resolver.Only = make(map[string]bool, len(only))
		for _, name := range only {
			resolver.Only[name] = true
		}
	}

	var (
		records []model.ActivityRecord
		stats   []model.PackageStat
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		records, err = resolver.Resolve(ctx, snap, rc.cutoff)
		return err
	})
	if rc.galleryAuthor != "" {
		g.Go(func() error {
			var err error
			stats, err = resolve.ResolvePackages(ctx, gallery.New(), rc.galleryAuthor, snap)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, stats, nil
}

// renderReport writes the digest in the requested format. The output
// flag redirects it to a file; otherwise it goes to stdout.
func renderReport(data report.Data, cfg *config.Config, opts *Options) error {
	format := opts.Format
	if format == "" {
		format = cfg.DefaultFormat
	}
	if format == "" {
		format = "console"
	}

	outputPath := opts.Output
	if outputPath == "" {
		outputPath = cfg.OutputPath
	}

	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "console":
		r := &report.ConsoleRenderer{}
		return r.Render(data, w)
	case "html":
		r := &report.HTMLRenderer{}
		return r.Render(data, w)
	default:
		return fmt.Errorf("invalid format: %s (must be console or html)", format)
	}
}

// sendDigest renders the HTML digest and delivers it over SMTP.
func sendDigest(data report.Data, cfg *config.Config) error {
	if cfg.SMTP == nil {
		return fmt.Errorf("email requested but no smtp section in config")
	}

	var body bytes.Buffer
	r := &report.HTMLRenderer{}
	if err := r.Render(data, &body); err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	sender := mail.NewSender(mail.Settings{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		From: cfg.SMTP.From,
		To:   cfg.SMTP.To,
	})
	subject := fmt.Sprintf("Activity digest for %s (%s)", data.Owner, data.GeneratedAt.Format("2006-01-02"))
	if err := sender.Send(subject, body.String()); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}
	log.Info("digest email sent", "recipients", len(cfg.SMTP.To))
	return nil
}
