package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/fetcher"
)

func TestConcurrencyLimiter_CapsGlobalInFlight(t *testing.T) {
	limiter := fetcher.NewConcurrencyLimiter(2, 0)

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background(), "example.com"); err != nil {
				t.Errorf("unexpected acquire error: %v", err)
				return
			}
			defer limiter.Release("example.com")

			cur := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if cur <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxInFlight); got > 2 {
		t.Fatalf("expected at most 2 concurrent acquisitions, observed %d", got)
	}
}

func TestConcurrencyLimiter_CapsPerHostSeparatelyFromGlobal(t *testing.T) {
	limiter := fetcher.NewConcurrencyLimiter(10, 1)

	if err := limiter.Acquire(context.Background(), "a.example.com"); err != nil {
		t.Fatalf("unexpected error acquiring host a: %v", err)
	}
	defer limiter.Release("a.example.com")

	// A different host should not be blocked by host a's single slot.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(ctx, "b.example.com"); err != nil {
		t.Fatalf("expected host b to acquire independently of host a, got: %v", err)
	}
	limiter.Release("b.example.com")
}

func TestConcurrencyLimiter_NilIsUnbounded(t *testing.T) {
	var limiter *fetcher.ConcurrencyLimiter
	if err := limiter.Acquire(context.Background(), "example.com"); err != nil {
		t.Fatalf("expected nil limiter to never block, got: %v", err)
	}
	limiter.Release("example.com") // must not panic
}

func TestHtmlFetcher_Fetch_BodyExceedsCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("a", 6*1024*1024)))
	}))
	defer server.Close()

	sink := &mockMetadataSink{}
	f := fetcher.NewHtmlFetcher(sink)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	retryParam := createTestRetryParam(1)

	_, err := f.Fetch(context.Background(), 0, fetcher.NewFetchParam(*fetchUrl, "test-user-agent"), retryParam)

	if err == nil {
		t.Fatal("expected an error for a body exceeding the cap, got nil")
	}
	if !strings.Contains(err.Error(), fetcher.ErrCauseBodyTooLarge) {
		t.Errorf("expected error to mention %q, got %q", fetcher.ErrCauseBodyTooLarge, err.Error())
	}
}
