package sitemap

import (
	"encoding/xml"
	"time"
)

// xmlURLSet mirrors the <urlset> root of a sitemap.xml file.
type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// xmlSitemapIndex mirrors the <sitemapindex> root of a sitemap_index.xml
// file, a list of child sitemap locations.
type xmlSitemapIndex struct {
	XMLName  xml.Name        `xml:"sitemapindex"`
	Sitemaps []xmlSitemapRef `xml:"sitemap"`
}

type xmlSitemapRef struct {
	Loc string `xml:"loc"`
}

type rootProbe struct {
	XMLName xml.Name
}

// parseSitemapDocument determines whether data is a <urlset> or a
// <sitemapindex> and parses it accordingly. A malformed or unrecognized
// document returns a SitemapError with Cause ErrCauseParseError.
func parseSitemapDocument(data []byte, source Source) ([]Entry, []string, *SitemapError) {
	var probe rootProbe
	if err := xml.Unmarshal(data, &probe); err != nil {
		return nil, nil, &SitemapError{
			Message:   "malformed sitemap xml: " + err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseError,
		}
	}

	switch probe.XMLName.Local {
	case "urlset":
		var parsed xmlURLSet
		if err := xml.Unmarshal(data, &parsed); err != nil {
			return nil, nil, &SitemapError{
				Message:   "malformed urlset: " + err.Error(),
				Retryable: false,
				Cause:     ErrCauseParseError,
			}
		}
		entries := make([]Entry, 0, len(parsed.URLs))
		for _, u := range parsed.URLs {
			if u.Loc == "" {
				continue
			}
			entries = append(entries, Entry{
				URL:     u.Loc,
				LastMod: parseLastMod(u.LastMod),
				Source:  source,
			})
		}
		return entries, nil, nil

	case "sitemapindex":
		var parsed xmlSitemapIndex
		if err := xml.Unmarshal(data, &parsed); err != nil {
			return nil, nil, &SitemapError{
				Message:   "malformed sitemapindex: " + err.Error(),
				Retryable: false,
				Cause:     ErrCauseParseError,
			}
		}
		childURLs := make([]string, 0, len(parsed.Sitemaps))
		for _, s := range parsed.Sitemaps {
			if s.Loc != "" {
				childURLs = append(childURLs, s.Loc)
			}
		}
		return nil, childURLs, nil

	default:
		return nil, nil, &SitemapError{
			Message:   "unrecognized sitemap root element: " + probe.XMLName.Local,
			Retryable: false,
			Cause:     ErrCauseParseError,
		}
	}
}

// parseLastMod parses a sitemap lastmod value, which may be a full
// RFC3339 timestamp or a bare date. Unparseable or empty values return
// the zero time rather than an error, since lastmod is advisory.
func parseLastMod(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Time{}
}
