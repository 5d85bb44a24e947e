package frontier

import (
	"container/heap"
	"net/url"
	"strings"
	"sync"

	"github.com/llmstxt/llms-txt-gen/internal/config"
)

/*
Frontier Responsibilities
- Score and order admitted URLs for crawling: shallower pages first,
  doc-like paths boosted, sitemap presence boosted, blog/changelog-like
  paths penalized, ties broken by submission order
- Deduplicate URLs by canonical form
- Enforce max depth and max page limits
- Knows nothing about:
	- fetching
	- extraction
	- markdown
	- storage

It is a data structure + policy module, not a pipeline executor. The
scheduler is the sole admission authority: by the time a
CrawlAdmissionCandidate reaches Submit, robots, scope, and off-domain
checks have already passed. Submit still enforces depth/page limits and
dedup, since those are the frontier's own structural bounds rather than
admission policy.
*/

var boostedPathSegments = []string{"doc", "docs", "guide", "reference", "api", "tutorial"}
var penalizedPathSegments = []string{"blog", "changelog", "news", "release-notes", "archive"}

// Score computes a URL's pop-order priority: higher scores are dequeued
// first. Depth is penalized linearly so shallower pages are preferred; a
// doc-like path segment or sitemap presence each add a flat bonus, a
// blog-like path segment subtracts one. Matching more than one boosted
// (or penalized) segment does not stack further bonuses.
func Score(u url.URL, depth int, inSitemap bool) int {
	score := -depth

	path := strings.ToLower(u.Path)
	for _, seg := range boostedPathSegments {
		if strings.Contains(path, seg) {
			score += 2
			break
		}
	}
	if inSitemap {
		score++
	}
	for _, seg := range penalizedPathSegments {
		if strings.Contains(path, seg) {
			score--
			break
		}
	}

	return score
}

// scoreBucketHeap is a max-heap of distinct score values with pending
// tokens, letting Dequeue find the next-highest-priority bucket in
// O(log n) instead of rescanning every pending token.
type scoreBucketHeap []int

func (h scoreBucketHeap) Len() int           { return len(h) }
func (h scoreBucketHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h scoreBucketHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scoreBucketHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *scoreBucketHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// CrawlFrontier is the scheduler's URL ordering and deduplication
// structure. Admitted URLs are grouped into FIFO buckets keyed by score;
// Dequeue drains the highest-scoring non-empty bucket first and, within
// a bucket, returns tokens in submission order.
type CrawlFrontier struct {
	mu sync.Mutex

	cfg config.Config

	buckets    map[int]*FIFOQueue[CrawlToken]
	bucketHeap scoreBucketHeap

	visited        Set[string]
	pendingAtDepth map[int]int
}

func NewCrawlFrontier() *CrawlFrontier {
	return &CrawlFrontier{}
}

// Init resets the frontier to an empty state bound to cfg's depth and
// page limits. Must be called before Submit or Dequeue.
func (f *CrawlFrontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cfg = cfg
	f.buckets = make(map[int]*FIFOQueue[CrawlToken])
	f.bucketHeap = scoreBucketHeap{}
	heap.Init(&f.bucketHeap)
	f.visited = NewSet[string]()
	f.pendingAtDepth = make(map[int]int)
}

// SubmitOutcome reports what Submit did with a candidate, so the caller
// can tell a routine duplicate/depth drop from a page-cap rejection that
// spec section 8 requires to be logged as "not crawled".
type SubmitOutcome int

const (
	SubmitAccepted SubmitOutcome = iota
	SubmitDuplicate
	SubmitDepthExceeded
	SubmitPageCapExceeded
)

// Submit enqueues an already-admitted candidate, scoring it for pop
// order. Candidates that are duplicates of an already-seen URL, exceed
// the configured max depth, or would exceed the configured max page
// count are dropped; the outcome tells the caller which.
func (f *CrawlFrontier) Submit(c CrawlAdmissionCandidate) SubmitOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	canonical := canonicalize(c.TargetURL())
	if f.visited.Contains(canonical) {
		return SubmitDuplicate
	}

	depth := c.DiscoveryMetadata().Depth()
	if maxDepth := f.cfg.MaxDepth(); maxDepth > 0 && depth > maxDepth {
		return SubmitDepthExceeded
	}
	if maxPages := f.cfg.MaxPages(); maxPages > 0 && f.visited.Size() >= maxPages {
		return SubmitPageCapExceeded
	}

	f.visited.Add(canonical)

	score := Score(c.TargetURL(), depth, c.DiscoveryMetadata().InSitemap())
	bucket, ok := f.buckets[score]
	if !ok {
		bucket = NewFIFOQueue[CrawlToken]()
		f.buckets[score] = bucket
		heap.Push(&f.bucketHeap, score)
	}
	bucket.Enqueue(NewCrawlToken(c.TargetURL(), depth))
	f.pendingAtDepth[depth]++
	return SubmitAccepted
}

// Dequeue returns the highest-priority pending token, or false if the
// frontier holds nothing eligible to crawl.
func (f *CrawlFrontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.bucketHeap.Len() > 0 {
		top := f.bucketHeap[0]
		bucket := f.buckets[top]
		token, ok := bucket.Dequeue()
		if !ok {
			heap.Pop(&f.bucketHeap)
			delete(f.buckets, top)
			continue
		}
		if bucket.Size() == 0 {
			heap.Pop(&f.bucketHeap)
			delete(f.buckets, top)
		}
		f.pendingAtDepth[token.Depth()]--
		return token, true
	}
	return CrawlToken{}, false
}

// IsDepthExhausted reports whether no admitted URL at depth remains
// pending (either none was ever submitted, or all have been dequeued).
// Negative depths are always reported exhausted.
func (f *CrawlFrontier) IsDepthExhausted(depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if depth < 0 {
		return true
	}
	return f.pendingAtDepth[depth] <= 0
}

// CurrentMinDepth returns the shallowest depth with a pending URL, or -1
// if the frontier is empty.
func (f *CrawlFrontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	min := -1
	for depth, count := range f.pendingAtDepth {
		if count <= 0 {
			continue
		}
		if min == -1 || depth < min {
			min = depth
		}
	}
	return min
}

// VisitedCount returns the number of unique canonical URLs ever
// admitted, including ones already dequeued.
func (f *CrawlFrontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

// canonicalize normalizes a URL for deduplication: lowercases scheme and
// host, strips an explicit default port, and drops a trailing slash on a
// non-root path and any fragment. The query string is kept, since two
// URLs differing only by query can serve different content.
func canonicalize(u url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host += ":" + port
	}

	path := u.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	canonical := scheme + "://" + host + path
	if u.RawQuery != "" {
		canonical += "?" + u.RawQuery
	}
	return canonical
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}
