package resolve

import (
	"context"
	"fmt"

	"github.com/spiffcs/pulse/internal/gallery"
	"github.com/spiffcs/pulse/internal/model"
	"github.com/spiffcs/pulse/internal/state"
)

// GalleryClient is the slice of the gallery client the resolver needs.
type GalleryClient interface {
	FindByAuthor(ctx context.Context, author string) ([]gallery.Package, error)
}

// ResolvePackages fetches the author's gallery packages and computes
// download deltas against the prior snapshot, in feed order.
func ResolvePackages(ctx context.Context, client GalleryClient, author string, snap state.Snapshot) ([]model.PackageStat, error) {
	packages, err := client.FindByAuthor(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("listing gallery packages for %s: %w", author, err)
	}

	stats := make([]model.PackageStat, 0, len(packages))
	for _, p := range packages {
		// A package with no prior entry, or a legacy entry without a
		// recorded count, gets a forced zero delta so the first run
		// never reports the lifetime total as new downloads. An entry
		// with an explicit value, including 0, diffs normally.
		delta := 0
		if prior, ok := snap.Packages[p.Name]; ok && prior.Downloads != nil {
			delta = p.Downloads - *prior.Downloads
		}

		stats = append(stats, model.PackageStat{
			Name:            p.Name,
			Version:         p.Version,
			Downloads:       p.Downloads,
			DownloadDelta:   delta,
			Published:       p.Published,
			URL:             p.URL,
			Description:     p.Description,
			HasNewDownloads: delta > 0,
		})
	}
	return stats, nil
}
