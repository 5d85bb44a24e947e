package frontier_test

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/config"
	"github.com/llmstxt/llms-txt-gen/internal/frontier"
)

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url %q: %v", raw, err)
	}
	return *u
}

func TestScore_ShallowerPreferredOverDeeper(t *testing.T) {
	u := mustURL(t, "https://example.com/page")
	if frontier.Score(u, 0, false) <= frontier.Score(u, 3, false) {
		t.Fatal("expected a shallower page to score higher than a deeper one")
	}
}

func TestScore_DocLikePathBoosted(t *testing.T) {
	plain := mustURL(t, "https://example.com/misc/page")
	docs := mustURL(t, "https://example.com/docs/page")
	if frontier.Score(docs, 2, false) <= frontier.Score(plain, 2, false) {
		t.Fatal("expected a /docs/ path to score higher than a plain path at the same depth")
	}
}

func TestScore_SitemapPresenceBoosted(t *testing.T) {
	u := mustURL(t, "https://example.com/page")
	if frontier.Score(u, 1, true) <= frontier.Score(u, 1, false) {
		t.Fatal("expected sitemap presence to add a score bonus")
	}
}

func TestScore_BlogLikePathPenalized(t *testing.T) {
	plain := mustURL(t, "https://example.com/misc/page")
	blog := mustURL(t, "https://example.com/blog/page")
	if frontier.Score(blog, 1, false) >= frontier.Score(plain, 1, false) {
		t.Fatal("expected a /blog/ path to score lower than a plain path at the same depth")
	}
}

func TestFrontier_DequeuesHighestScoreFirst(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	deep := mustURL(t, "https://example.com/misc/deep")
	shallowDocs := mustURL(t, "https://example.com/docs/intro")

	f.Submit(frontier.NewCrawlAdmissionCandidate(deep, frontier.SourceSeed, frontier.NewDiscoveryMetadata(3, nil)))
	f.Submit(frontier.NewCrawlAdmissionCandidate(shallowDocs, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil)))

	token, ok := f.Dequeue()
	if !ok {
		t.Fatal("expected a token")
	}
	if token.URL() != shallowDocs {
		t.Fatalf("expected the shallow /docs/ URL first, got %v", token.URL())
	}

	token, ok = f.Dequeue()
	if !ok || token.URL() != deep {
		t.Fatalf("expected the deep URL second, got %v (ok=%v)", token.URL(), ok)
	}
}

func TestFrontier_TiesBrokenByEnqueueOrder(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	a := mustURL(t, "https://example.com/a")
	b := mustURL(t, "https://example.com/b")
	c := mustURL(t, "https://example.com/c")

	for _, u := range []url.URL{a, b, c} {
		f.Submit(frontier.NewCrawlAdmissionCandidate(u, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil)))
	}

	for _, want := range []url.URL{a, b, c} {
		token, ok := f.Dequeue()
		if !ok || token.URL() != want {
			t.Fatalf("expected %v next, got %v (ok=%v)", want, token.URL(), ok)
		}
	}
}

func TestFrontier_DoesNotAllowDuplicateURL(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	a := mustURL(t, "https://example.com/docs")

	f.Submit(frontier.NewCrawlAdmissionCandidate(a, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil)))
	f.Submit(frontier.NewCrawlAdmissionCandidate(a, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(1, nil)))

	token1, ok := f.Dequeue()
	if !ok || token1.URL() != a {
		t.Fatalf("expected the first submission to be dequeued, got %v (ok=%v)", token1.URL(), ok)
	}

	if _, ok := f.Dequeue(); ok {
		t.Fatal("duplicate URL should not have been admitted a second time")
	}
}

func TestFrontier_DepthLimitEnforced(t *testing.T) {
	seedURL, _ := url.Parse("https://example.com/seed")
	cfg, err := config.WithDefault([]url.URL{*seedURL}).WithMaxDepth(2).Build()
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}

	f := frontier.NewCrawlFrontier()
	f.Init(cfg)

	deepURL := mustURL(t, "https://example.com/deep")
	f.Submit(frontier.NewCrawlAdmissionCandidate(deepURL, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(5, nil)))

	if _, ok := f.Dequeue(); ok {
		t.Fatal("URL beyond max depth should have been rejected")
	}
}

func TestFrontier_UnlimitedLimits(t *testing.T) {
	seedURL, _ := url.Parse("https://example.com/seed")
	cfg, _ := config.WithDefault([]url.URL{*seedURL}).WithMaxDepth(0).WithMaxPages(0).Build()

	f := frontier.NewCrawlFrontier()
	f.Init(cfg)

	deepURL := mustURL(t, "https://example.com/a/b/c/d/e/f")
	f.Submit(frontier.NewCrawlAdmissionCandidate(deepURL, frontier.SourceSeed, frontier.NewDiscoveryMetadata(100, nil)))

	token, ok := f.Dequeue()
	if !ok {
		t.Fatal("expected URL to be accepted with unlimited depth")
	}
	if token.Depth() != 100 {
		t.Fatalf("expected depth 100, got %d", token.Depth())
	}
}

func TestFrontier_PageCountLimitEnforced(t *testing.T) {
	seedURL, _ := url.Parse("https://example.com/seed")
	cfg, err := config.WithDefault([]url.URL{*seedURL}).WithMaxPages(2).Build()
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}

	f := frontier.NewCrawlFrontier()
	f.Init(cfg)

	urls := []string{
		"https://example.com/page1",
		"https://example.com/page2",
		"https://example.com/page3",
		"https://example.com/page4",
	}
	for _, raw := range urls {
		f.Submit(frontier.NewCrawlAdmissionCandidate(mustURL(t, raw), frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil)))
	}

	count := 0
	for {
		if _, ok := f.Dequeue(); !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected exactly 2 pages admitted under the page limit, got %d", count)
	}
}

func TestFrontier_Empty(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	if _, ok := f.Dequeue(); ok {
		t.Fatal("Dequeue from empty frontier should return false")
	}
}

func TestFrontier_IsDepthExhausted(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	if !f.IsDepthExhausted(0) {
		t.Error("expected depth 0 to be exhausted for an empty frontier")
	}
	if !f.IsDepthExhausted(-1) {
		t.Error("expected negative depths to always be exhausted")
	}

	a := mustURL(t, "https://example.com/a")
	f.Submit(frontier.NewCrawlAdmissionCandidate(a, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil)))

	if f.IsDepthExhausted(0) {
		t.Error("expected depth 0 to not be exhausted with a pending URL")
	}

	f.Dequeue()

	if !f.IsDepthExhausted(0) {
		t.Error("expected depth 0 to be exhausted after its only URL was dequeued")
	}
}

func TestFrontier_CurrentMinDepth(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	if min := f.CurrentMinDepth(); min != -1 {
		t.Fatalf("expected -1 for an empty frontier, got %d", min)
	}

	d0 := mustURL(t, "https://example.com/d0")
	d2 := mustURL(t, "https://example.com/d2")
	f.Submit(frontier.NewCrawlAdmissionCandidate(d0, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil)))
	f.Submit(frontier.NewCrawlAdmissionCandidate(d2, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(2, nil)))

	if min := f.CurrentMinDepth(); min != 0 {
		t.Fatalf("expected min depth 0, got %d", min)
	}

	f.Dequeue()

	if min := f.CurrentMinDepth(); min != 2 {
		t.Fatalf("expected min depth to advance to 2 (skipping the empty depth 1), got %d", min)
	}
}

func TestFrontier_VisitedCountDeduplicatesAndIsAppendOnly(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	a := mustURL(t, "https://example.com/a")
	for i := 0; i < 5; i++ {
		f.Submit(frontier.NewCrawlAdmissionCandidate(a, frontier.SourceSeed, frontier.NewDiscoveryMetadata(i, nil)))
	}
	if count := f.VisitedCount(); count != 1 {
		t.Fatalf("expected VisitedCount() = 1 (deduplicated), got %d", count)
	}

	b := mustURL(t, "https://example.com/b")
	f.Submit(frontier.NewCrawlAdmissionCandidate(b, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(1, nil)))
	if count := f.VisitedCount(); count != 2 {
		t.Fatalf("expected VisitedCount() = 2, got %d", count)
	}

	f.Dequeue()
	f.Dequeue()
	if count := f.VisitedCount(); count != 2 {
		t.Fatalf("expected VisitedCount() to stay at 2 after dequeuing, got %d", count)
	}
}

func TestFrontier_CanonicalizationDeduplicatesTrailingSlashAndDefaultPort(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	url1 := mustURL(t, "https://example.com:443/path")
	url2 := mustURL(t, "https://example.com/path")
	url3 := mustURL(t, "https://EXAMPLE.com/path/")

	f.Submit(frontier.NewCrawlAdmissionCandidate(url1, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil)))
	f.Submit(frontier.NewCrawlAdmissionCandidate(url2, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(1, nil)))
	f.Submit(frontier.NewCrawlAdmissionCandidate(url3, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(1, nil)))

	if count := f.VisitedCount(); count != 1 {
		t.Fatalf("expected all three URLs to canonicalize to one entry, got %d", count)
	}
}

func TestFrontier_ConcurrentSubmitDequeue(t *testing.T) {
	f := frontier.NewCrawlFrontier()
	f.Init(config.Config{})

	const numWorkers = 10
	const urlsPerWorker = 100
	const totalUrls = numWorkers * urlsPerWorker

	var wg sync.WaitGroup
	wg.Add(numWorkers * 2)

	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < urlsPerWorker; i++ {
				u := mustURL(t, fmt.Sprintf("https://example.com/w%d-p%d", workerID, i))
				depth := (workerID + i) % 5
				f.Submit(frontier.NewCrawlAdmissionCandidate(u, frontier.SourceSeed, frontier.NewDiscoveryMetadata(depth, nil)))
			}
		}(w)
	}

	dequeuedCount := int32(0)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for {
				if _, ok := f.Dequeue(); ok {
					atomic.AddInt32(&dequeuedCount, 1)
				}
				if atomic.LoadInt32(&dequeuedCount) >= totalUrls {
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("test timed out - possible deadlock or missing URLs")
	}

	if got := atomic.LoadInt32(&dequeuedCount); got != totalUrls {
		t.Fatalf("expected %d dequeued URLs, got %d", totalUrls, got)
	}
}
