package cmd

// Options holds the shared command-line options for the pulse CLI.
type Options struct {
	Owner         string
	GalleryAuthor string
	Repos         []string
	Since         string
	Cutoff        string
	Format        string
	Output        string
	StatePath     string
	Email         bool
	SkipGallery   bool
	DryRun        bool
	Verbosity     int
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		Since:  "24h",
		Format: "console",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithOwner sets the GitHub account to monitor.
func WithOwner(owner string) Option {
	return func(o *Options) {
		o.Owner = owner
	}
}

// WithGalleryAuthor sets the PowerShell Gallery author name.
func WithGalleryAuthor(author string) Option {
	return func(o *Options) {
		o.GalleryAuthor = author
	}
}

// WithRepos limits the run to the named repositories.
func WithRepos(repos []string) Option {
	return func(o *Options) {
		o.Repos = repos
	}
}

// WithSince sets the activity window (e.g., "24h", "3d", "1w").
func WithSince(since string) Option {
	return func(o *Options) {
		o.Since = since
	}
}

// WithCutoff sets an explicit cutoff timestamp, overriding the window.
func WithCutoff(cutoff string) Option {
	return func(o *Options) {
		o.Cutoff = cutoff
	}
}

// WithFormat sets the report format (console, html).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithOutput sets the report output path.
func WithOutput(path string) Option {
	return func(o *Options) {
		o.Output = path
	}
}

// WithStatePath sets the snapshot file location.
func WithStatePath(path string) Option {
	return func(o *Options) {
		o.StatePath = path
	}
}

// WithEmail enables email delivery of the digest.
func WithEmail(email bool) Option {
	return func(o *Options) {
		o.Email = email
	}
}

// WithSkipGallery disables the PowerShell Gallery source.
func WithSkipGallery(skip bool) Option {
	return func(o *Options) {
		o.SkipGallery = skip
	}
}

// WithDryRun leaves the snapshot untouched after the run.
func WithDryRun(dry bool) Option {
	return func(o *Options) {
		o.DryRun = dry
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}
