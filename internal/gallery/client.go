// Package gallery queries the PowerShell Gallery NuGet v2 feed for the
// packages published by one author.
package gallery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spiffcs/pulse/internal/log"
)

const defaultBaseURL = "https://www.powershellgallery.com/api/v2"

// Package is one latest-version package row from the gallery feed.
type Package struct {
	Name        string
	Version     string
	Downloads   int
	Published   time.Time
	URL         string
	Description string
}

// Client fetches package listings from a NuGet v2 OData endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a gallery client against the public PowerShell Gallery.
func New() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithBaseURL creates a client against a custom feed endpoint.
func NewWithBaseURL(baseURL string) *Client {
	c := New()
	c.baseURL = baseURL
	return c
}

// Atom feed shapes. The v2 feed mixes the Atom, OData metadata and
// dataservices namespaces; matching on local names is sufficient here.
type atomFeed struct {
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomEntry struct {
	Title      string         `xml:"title"`
	Properties atomProperties `xml:"properties"`
}

type atomProperties struct {
	NormalizedVersion string `xml:"NormalizedVersion"`
	Version           string `xml:"Version"`
	DownloadCount     int    `xml:"DownloadCount"`
	Published         string `xml:"Published"`
	Description       string `xml:"Description"`
}

// FindByAuthor returns the latest version of every package the author
// has published, in feed order. An author with no packages yields an
// empty slice; transport and decode failures are returned to the caller
// rather than coerced to an empty result.
func (c *Client) FindByAuthor(ctx context.Context, author string) ([]Package, error) {
	filter := fmt.Sprintf("Authors eq '%s' and IsLatestVersion", author)
	next := fmt.Sprintf("%s/Packages?$filter=%s", c.baseURL, url.QueryEscape(filter))

	var packages []Package
	for next != "" {
		feed, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		if feed == nil {
			break // 404: feed not present, treat as empty
		}

		for _, e := range feed.Entries {
			packages = append(packages, entryToPackage(e))
		}
		next = nextLink(feed.Links)
	}

	log.Debug("listed gallery packages", "author", author, "count", len(packages))
	return packages, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*atomFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building gallery request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gallery request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gallery responded with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gallery response: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decoding gallery feed: %w", err)
	}
	return &feed, nil
}

func nextLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "next" {
			return l.Href
		}
	}
	return ""
}

func entryToPackage(e atomEntry) Package {
	version := e.Properties.NormalizedVersion
	if version == "" {
		version = e.Properties.Version
	}
	return Package{
		Name:        e.Title,
		Version:     version,
		Downloads:   e.Properties.DownloadCount,
		Published:   parsePublished(e.Properties.Published),
		URL:         fmt.Sprintf("https://www.powershellgallery.com/packages/%s/%s", e.Title, version),
		Description: e.Properties.Description,
	}
}

// parsePublished handles the timestamp shapes the v2 feed emits, with
// and without fractional seconds or a zone suffix.
func parsePublished(s string) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.9999999Z",
		"2006-01-02T15:04:05.9999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
