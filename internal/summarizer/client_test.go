package summarizer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/summarizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	metadata.NoopSink
	errorCalled bool
}

func (s *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	errorString string,
	attrs []metadata.Attribute,
) {
	s.errorCalled = true
}

func TestSummarize_SuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"A short summary."}}]}`))
	}))
	defer server.Close()

	sink := &recordingSink{}
	client := summarizer.NewHTTPClient(sink, server.URL, "test-key", "test-model", 5*time.Second, 3, 100)

	sourceURL, _ := url.Parse("https://example.com/docs/page")
	req := summarizer.NewSummarizeRequest(*sourceURL, "Page Title", "Some markdown content.", 30)

	result, err := client.Summarize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", result.Summary())
	assert.False(t, result.Fallback())
	assert.False(t, sink.errorCalled)
}

func TestSummarize_PersistentFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sink := &recordingSink{}
	client := summarizer.NewHTTPClient(sink, server.URL, "test-key", "test-model", 5*time.Second, 1, 100)

	sourceURL, _ := url.Parse("https://example.com/docs/page")
	req := summarizer.NewSummarizeRequest(*sourceURL, "Page Title", "one two three four five six seven eight", 4)

	result, err := client.Summarize(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Fallback())
	assert.NotEmpty(t, result.Summary())
	assert.True(t, sink.errorCalled)
}

func TestFallbackResult_TruncatesToWordBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := &recordingSink{}
	client := summarizer.NewHTTPClient(sink, server.URL, "test-key", "test-model", 2*time.Second, 1, 100)

	sourceURL, _ := url.Parse("https://example.com/docs/page")
	markdown := "one two three four five six seven eight nine ten"
	req := summarizer.NewSummarizeRequest(*sourceURL, "Title", markdown, 3)

	result, err := client.Summarize(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Fallback())
	assert.Contains(t, result.Summary(), "one two three")
}
