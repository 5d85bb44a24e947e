package sitemap

import (
	"testing"
	"time"
)

func TestParseSitemapDocument_URLSet(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/docs/intro</loc>
    <lastmod>2026-01-15</lastmod>
  </url>
  <url>
    <loc>https://example.com/docs/guide</loc>
  </url>
</urlset>`)

	entries, children, err := parseSitemapDocument(doc, SourceSitemapXML)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if children != nil {
		t.Errorf("expected no child sitemaps, got: %v", children)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].URL != "https://example.com/docs/intro" {
		t.Errorf("unexpected URL: %s", entries[0].URL)
	}
	wantLastMod := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !entries[0].LastMod.Equal(wantLastMod) {
		t.Errorf("expected lastmod %v, got %v", wantLastMod, entries[0].LastMod)
	}
	if !entries[1].LastMod.IsZero() {
		t.Errorf("expected zero lastmod when absent, got %v", entries[1].LastMod)
	}
	for _, e := range entries {
		if e.Source != SourceSitemapXML {
			t.Errorf("expected source %s, got %s", SourceSitemapXML, e.Source)
		}
	}
}

func TestParseSitemapDocument_SitemapIndex(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap>
    <loc>https://example.com/sitemap-docs.xml</loc>
  </sitemap>
  <sitemap>
    <loc>https://example.com/sitemap-blog.xml</loc>
  </sitemap>
</sitemapindex>`)

	entries, children, err := parseSitemapDocument(doc, SourceSitemapIndex)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no direct entries from an index, got: %v", entries)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 child sitemap locations, got %d", len(children))
	}
	if children[0] != "https://example.com/sitemap-docs.xml" {
		t.Errorf("unexpected child location: %s", children[0])
	}
}

func TestParseSitemapDocument_Malformed(t *testing.T) {
	doc := []byte(`not xml at all`)

	_, _, err := parseSitemapDocument(doc, SourceSitemapXML)
	if err == nil {
		t.Fatal("expected an error for malformed xml")
	}
	if err.Cause != ErrCauseParseError {
		t.Errorf("expected ErrCauseParseError, got: %s", err.Cause)
	}
}

func TestParseSitemapDocument_UnrecognizedRoot(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?><rss><channel></channel></rss>`)

	_, _, err := parseSitemapDocument(doc, SourceSitemapXML)
	if err == nil {
		t.Fatal("expected an error for an unrecognized root element")
	}
	if err.Cause != ErrCauseParseError {
		t.Errorf("expected ErrCauseParseError, got: %s", err.Cause)
	}
}

func TestParseLastMod(t *testing.T) {
	cases := map[string]bool{
		"":                     true,
		"not-a-date":           true,
		"2026-03-05":           false,
		"2026-03-05T10:00:00Z": false,
	}
	for value, wantZero := range cases {
		got := parseLastMod(value)
		if got.IsZero() != wantZero {
			t.Errorf("parseLastMod(%q): expected zero=%v, got %v", value, wantZero, got)
		}
	}
}
