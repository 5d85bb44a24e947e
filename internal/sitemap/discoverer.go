package sitemap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
)

// maxSitemapBytes caps how much of a single sitemap document is read,
// mirroring the fetcher's body cap to keep one malformed site from
// stalling discovery.
const maxSitemapBytes = 5 * 1024 * 1024

/*
Discoverer

Responsibilities:
- Resolve sitemap locations in spec order: robots.txt Sitemap: entries,
  then /sitemap.xml, then /sitemap_index.xml.
- Expand a sitemap index exactly one level.
- Filter entries to the seed's registrable domain.

Sitemap discovery failures are never fatal to a crawl job: a malformed or
unreachable sitemap is recorded through the metadata sink and Discover
simply returns whatever entries it managed to collect, per spec.md's
"discovery errors ... degraded behavior, not fatal" rule.
*/
type Discoverer struct {
	httpClient   *http.Client
	userAgent    string
	metadataSink metadata.MetadataSink
}

func NewDiscoverer(metadataSink metadata.MetadataSink, userAgent string) *Discoverer {
	return &Discoverer{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  userAgent,
		metadataSink: metadataSink,
	}
}

// NewDiscovererWithClient is the test-friendly constructor, mirroring
// robots.NewRobotsFetcherWithClient.
func NewDiscovererWithClient(metadataSink metadata.MetadataSink, userAgent string, httpClient *http.Client) *Discoverer {
	return &Discoverer{
		httpClient:   httpClient,
		userAgent:    userAgent,
		metadataSink: metadataSink,
	}
}

// Discover resolves sitemap entries for a host reachable at scheme,
// seeded from the robots.txt Sitemap: directives already fetched by
// internal/robots. seedURL determines the registrable domain entries are
// filtered to, so a sitemap that lists third-party URLs (CDN-hosted
// assets, syndicated content) doesn't leak pages outside the crawl's
// target site into the frontier.
func (d *Discoverer) Discover(ctx context.Context, scheme, host string, robotsSitemaps []string, seedURL string) []Entry {
	var locations []string
	var source Source

	if len(robotsSitemaps) > 0 {
		locations = robotsSitemaps
		source = SourceRobots
	} else {
		locations = []string{fmt.Sprintf("%s://%s/sitemap.xml", scheme, host)}
		source = SourceSitemapXML
	}

	entries := d.fetchAll(ctx, locations, source)

	if len(entries) == 0 && source == SourceRobots {
		fallback := fmt.Sprintf("%s://%s/sitemap.xml", scheme, host)
		entries = d.fetchAll(ctx, []string{fallback}, SourceSitemapXML)
	}

	if len(entries) == 0 && source != SourceSitemapIndex {
		fallback := fmt.Sprintf("%s://%s/sitemap_index.xml", scheme, host)
		entries = d.fetchAll(ctx, []string{fallback}, SourceSitemapIndex)
	}

	return filterToRegistrableDomain(entries, seedURL)
}

// fetchAll fetches and parses each location, expanding any sitemap index
// exactly one level, and returns the combined entries. Individual
// failures are recorded and skipped rather than aborting the batch.
func (d *Discoverer) fetchAll(ctx context.Context, locations []string, source Source) []Entry {
	var entries []Entry

	for _, loc := range locations {
		data, err := d.fetch(ctx, loc)
		if err != nil {
			d.recordError(loc, err)
			continue
		}

		parsed, childLocations, parseErr := parseSitemapDocument(data, source)
		if parseErr != nil {
			d.recordError(loc, parseErr)
			continue
		}

		entries = append(entries, parsed...)

		// One level of index expansion: children are parsed as urlset
		// documents only, regardless of source, per spec.md's "expanded
		// one level" rule.
		for _, childLoc := range childLocations {
			childData, childErr := d.fetch(ctx, childLoc)
			if childErr != nil {
				d.recordError(childLoc, childErr)
				continue
			}
			childEntries, _, childParseErr := parseSitemapDocument(childData, SourceSitemapIndex)
			if childParseErr != nil {
				d.recordError(childLoc, childParseErr)
				continue
			}
			entries = append(entries, childEntries...)
		}
	}

	return entries
}

func (d *Discoverer) fetch(ctx context.Context, location string) ([]byte, *SitemapError) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &SitemapError{
			Message:   fmt.Sprintf("failed to build request for %s: %v", location, err),
			Retryable: false,
			Cause:     ErrCauseHttpFetchFailure,
		}
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml,*/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &SitemapError{
			Message:   fmt.Sprintf("failed to fetch %s: %v", location, err),
			Retryable: true,
			Cause:     ErrCauseHttpFetchFailure,
		}
	}
	defer resp.Body.Close()

	if d.metadataSink != nil {
		d.metadataSink.RecordFetch(location, resp.StatusCode, time.Since(start), resp.Header.Get("Content-Type"), 0, 0)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to body read
	case resp.StatusCode >= 500:
		return nil, &SitemapError{
			Message:   fmt.Sprintf("server error (%d) fetching %s", resp.StatusCode, location),
			Retryable: true,
			Cause:     ErrCauseHttpServerError,
		}
	default:
		return nil, &SitemapError{
			Message:   fmt.Sprintf("unexpected status %d fetching %s", resp.StatusCode, location),
			Retryable: false,
			Cause:     ErrCauseHttpUnexpectedStatus,
		}
	}

	limited := io.LimitReader(resp.Body, maxSitemapBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, &SitemapError{
			Message:   fmt.Sprintf("failed to read body of %s: %v", location, err),
			Retryable: true,
			Cause:     ErrCauseHttpFetchFailure,
		}
	}
	if len(data) > maxSitemapBytes {
		return nil, &SitemapError{
			Message:   fmt.Sprintf("sitemap %s exceeded %d bytes", location, maxSitemapBytes),
			Retryable: false,
			Cause:     ErrCauseTooLarge,
		}
	}

	return data, nil
}

func (d *Discoverer) recordError(location string, err *SitemapError) {
	if d.metadataSink == nil {
		return
	}
	d.metadataSink.RecordError(
		time.Now(),
		"sitemap",
		"Discover",
		mapSitemapErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, location),
		},
	)
}

// filterToRegistrableDomain drops entries whose host does not share the
// seed URL's registrable domain (eTLD+1), so a sitemap that lists a CDN
// or third-party host cannot widen the crawl beyond its target site.
func filterToRegistrableDomain(entries []Entry, seedURL string) []Entry {
	seedDomain, err := registrableDomain(seedURL)
	if err != nil {
		return entries
	}

	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		entryDomain, err := registrableDomain(e.URL)
		if err != nil || entryDomain != seedDomain {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func registrableDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}
	if net.ParseIP(parsed.Hostname()) != nil {
		return parsed.Hostname(), nil
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(parsed.Hostname())
	if err != nil {
		// Hosts like "localhost" or bare IPs have no public suffix;
		// fall back to the raw hostname so local/test servers still work.
		return parsed.Hostname(), nil
	}
	return domain, nil
}
