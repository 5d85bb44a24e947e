package robots

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/robots/cache"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

// Robot is the scheduler's view of the robots.txt decision engine. It is
// the single admission choke point for robots policy: the scheduler
// never inspects RobotsResponse or ruleSet directly, only the resulting
// Decision.
type Robot interface {
	Init(userAgent string)
	Decide(targetURL url.URL) (Decision, *RobotsError)
}

// CachedRobot is the admission-time robots.txt decision engine. One
// CachedRobot is created per crawl job and reused for every URL the
// frontier considers, so the underlying fetcher's per-host cache is
// warmed across the whole crawl instead of per-request.
type CachedRobot struct {
	sink      metadata.MetadataSink
	userAgent string
	fetcher   *RobotsFetcher
}

// NewCachedRobot creates a CachedRobot bound to the given metadata sink.
// Init or InitWithCache must be called before Decide is used.
func NewCachedRobot(sink metadata.MetadataSink) CachedRobot {
	return CachedRobot{sink: sink}
}

// Init configures the robot with an in-memory cache, the common case for
// a single crawl job.
func (r *CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache configures the robot with a caller-supplied cache, which
// tests use to observe or pre-seed fetch behavior.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.userAgent = userAgent
	r.fetcher = NewRobotsFetcher(r.sink, userAgent, c)
}

// Decide fetches (or reuses a cached) robots.txt for u's host and decides
// whether u may be crawled under the configured user agent.
func (r *CachedRobot) Decide(u url.URL) (Decision, *RobotsError) {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}

	result, err := r.fetcher.Fetch(context.Background(), scheme, u.Host)
	if err != nil {
		return Decision{}, err
	}

	if result.Response.IsEmpty() {
		return Decision{Url: u, Allowed: true, Reason: EmptyRuleSet}, nil
	}

	rs := MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt)

	path := u.Path
	if path == "" {
		path = "/"
	}

	return decideForPath(rs, u, path), nil
}

// decideForPath applies robots.txt allow/disallow precedence to a single
// path: the most specific (longest pattern) matching rule wins, and a
// tie between an allow and a disallow of equal specificity is resolved
// in favor of the allow.
func decideForPath(rs ruleSet, u url.URL, path string) Decision {
	if !rs.matchedGroup {
		if rs.hasGroups {
			return Decision{Url: u, Allowed: true, Reason: UserAgentNotMatched}
		}
		return Decision{Url: u, Allowed: true, Reason: EmptyRuleSet}
	}

	type ruleMatch struct {
		allowed     bool
		specificity int
	}

	var matches []ruleMatch
	for _, rule := range rs.AllowRules() {
		if matchesPath(rule.Prefix(), path) {
			matches = append(matches, ruleMatch{allowed: true, specificity: len(rule.Prefix())})
		}
	}
	for _, rule := range rs.DisallowRules() {
		if matchesPath(rule.Prefix(), path) {
			matches = append(matches, ruleMatch{allowed: false, specificity: len(rule.Prefix())})
		}
	}

	decision := Decision{Url: u}
	if delay := rs.CrawlDelay(); delay != nil {
		decision.CrawlDelay = *delay
	}

	if len(matches) == 0 {
		decision.Allowed = true
		decision.Reason = NoMatchingRules
		return decision
	}

	maxSpecificity := -1
	for _, m := range matches {
		if m.specificity > maxSpecificity {
			maxSpecificity = m.specificity
		}
	}

	allowed := false
	for _, m := range matches {
		if m.specificity == maxSpecificity && m.allowed {
			allowed = true
		}
	}

	decision.Allowed = allowed
	if allowed {
		decision.Reason = AllowedByRobots
	} else {
		decision.Reason = DisallowedByRobots
	}
	return decision
}

// matchesPath reports whether a robots.txt path pattern matches path.
// Patterns support "*" as a wildcard for any run of characters and a
// trailing "$" to anchor the match to the end of the path.
func matchesPath(pattern, path string) bool {
	return patternToRegexp(pattern).MatchString(path)
}

var patternCache = struct {
	mu      sync.RWMutex
	entries map[string]*regexp.Regexp
}{entries: make(map[string]*regexp.Regexp)}

func patternToRegexp(pattern string) *regexp.Regexp {
	patternCache.mu.RLock()
	re, ok := patternCache.entries[pattern]
	patternCache.mu.RUnlock()
	if ok {
		return re
	}

	anchored := strings.HasSuffix(pattern, "$")
	body := pattern
	if anchored {
		body = pattern[:len(pattern)-1]
	}

	var sb strings.Builder
	sb.WriteString("^")
	for _, part := range strings.Split(body, "*") {
		sb.WriteString(regexp.QuoteMeta(part))
		sb.WriteString(".*")
	}
	pre := sb.String()
	pre = strings.TrimSuffix(pre, ".*")
	if anchored {
		pre += "$"
	}

	re = regexp.MustCompile(pre)
	patternCache.mu.Lock()
	patternCache.entries[pattern] = re
	patternCache.mu.Unlock()
	return re
}
