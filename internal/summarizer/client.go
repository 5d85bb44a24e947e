package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	expbackoff "github.com/rohmanhakim/exponential-backoff"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
	"golang.org/x/time/rate"
)

/*
Responsibilities

- Condense a page's markdown into a short, one-line summary for the
  compact llms.txt artifact.
- Never block the pipeline indefinitely on a slow or unreachable
  provider: bounded retries, then a deterministic local fallback.
- Never let one job's summarizer calls starve another's: every call is
  gated by a per-job token bucket.

Request Semantics

- Temperature is fixed at 0 so identical input tends toward identical
  output; this is a best-effort determinism aid, not a guarantee the
  provider honors.
- The system prompt is fixed and never derived from page content.
- On persistent failure the caller receives a truncate-and-mark
  SummarizeResult instead of an error, so a flaky LLM never fails a
  whole crawl job.
*/

const systemPrompt = "You summarize documentation pages in one plain sentence, " +
	"no more than the requested word budget. Respond with the summary text only."

// Client is the abstraction the composer depends on. An HTTP-backed
// provider is the only implementation; tests substitute a stub.
type Client interface {
	Summarize(ctx context.Context, req SummarizeRequest) (SummarizeResult, failure.ClassifiedError)
}

// HTTPClient talks to a chat-completions-compatible endpoint (the
// concrete provider is deployment configuration, see config.LLMEndpoint).
type HTTPClient struct {
	httpClient   *http.Client
	metadataSink metadata.MetadataSink
	limiter      *rate.Limiter
	backoff      *expbackoff.Backoff

	endpoint   string
	apiKey     string
	model      string
	maxRetries int
}

func NewHTTPClient(
	metadataSink metadata.MetadataSink,
	endpoint string,
	apiKey string,
	model string,
	timeout time.Duration,
	maxRetries int,
	rateLimitRPS float64,
) HTTPClient {
	return HTTPClient{
		httpClient:   &http.Client{Timeout: timeout},
		metadataSink: metadataSink,
		limiter:      rate.NewLimiter(rate.Limit(rateLimitRPS), 1),
		backoff: expbackoff.New(expbackoff.Config{
			InitialInterval: 250 * time.Millisecond,
			Multiplier:      2.0,
			MaxInterval:     10 * time.Second,
			MaxRetries:      maxRetries,
		}),
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		maxRetries: maxRetries,
	}
}

func (c *HTTPClient) Summarize(ctx context.Context, req SummarizeRequest) (SummarizeResult, failure.ClassifiedError) {
	if err := c.limiter.Wait(ctx); err != nil {
		return SummarizeResult{}, &SummarizationError{
			Message:   fmt.Sprintf("rate limiter wait: %v", err),
			Retryable: false,
			Cause:     ErrCauseRateLimited,
		}
	}

	var summary string
	var lastErr failure.ClassifiedError

	retryErr := c.backoff.Retry(ctx, func() error {
		var doErr failure.ClassifiedError
		summary, doErr = c.doRequest(ctx, req)
		if doErr == nil {
			lastErr = nil
			return nil
		}
		lastErr = doErr
		if doErr.Severity() != failure.SeverityRecoverable {
			return expbackoff.Permanent(doErr)
		}
		return doErr
	})

	if retryErr != nil {
		summarizationErr := lastErr
		if summarizationErr == nil {
			summarizationErr = &SummarizationError{
				Message:   fmt.Sprintf("exhausted retries: %v", retryErr),
				Retryable: false,
				Cause:     ErrCauseExhaustedRetries,
			}
		}
		c.recordError(req.sourceURL, summarizationErr)
		return fallbackResult(req), nil
	}

	return NewSummarizeResult(summary, false), nil
}

func (c *HTTPClient) recordError(sourceURL url.URL, err failure.ClassifiedError) {
	var summarizationErr *SummarizationError
	if ok := asSummarizationError(err, &summarizationErr); !ok {
		summarizationErr = &SummarizationError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidResponse,
		}
	}

	c.metadataSink.RecordError(
		time.Now(),
		"summarizer",
		"HTTPClient.Summarize",
		mapSummarizationErrorToMetadataCause(summarizationErr),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, sourceURL.String()),
		},
	)
}

func asSummarizationError(err failure.ClassifiedError, target **SummarizationError) bool {
	if se, ok := err.(*SummarizationError); ok {
		*target = se
		return true
	}
	return false
}

// fallbackResult truncates the page's own markdown to the word budget
// instead of an LLM summary, so a persistently unreachable provider
// degrades the artifact instead of failing the job.
func fallbackResult(req SummarizeRequest) SummarizeResult {
	words := strings.Fields(req.markdown)
	limit := req.maxWords
	if limit <= 0 || limit > len(words) {
		limit = len(words)
	}
	text := strings.Join(words[:limit], " ")
	if limit < len(words) {
		text += "..."
	}
	return NewSummarizeResult(text, true)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) doRequest(ctx context.Context, req SummarizeRequest) (string, failure.ClassifiedError) {
	userContent := fmt.Sprintf(
		"Summarize this documentation page in at most %d words. Title: %s. URL: %s.\n\n%s",
		req.maxWords, req.title, req.sourceURL.String(), req.markdown,
	)

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &SummarizationError{
			Message:   fmt.Sprintf("encode request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidResponse,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &SummarizationError{
			Message:   fmt.Sprintf("build request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidResponse,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &SummarizationError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &SummarizationError{
			Message:   "provider rate limited the request",
			Retryable: true,
			Cause:     ErrCauseRateLimited,
		}
	}
	if resp.StatusCode >= 500 {
		return "", &SummarizationError{
			Message:   fmt.Sprintf("provider server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	if resp.StatusCode >= 400 {
		return "", &SummarizationError{
			Message:   fmt.Sprintf("provider rejected request: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseProviderRejected,
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &SummarizationError{
			Message:   fmt.Sprintf("decode response: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidResponse,
		}
	}
	if len(parsed.Choices) == 0 {
		return "", &SummarizationError{
			Message:   "provider returned no choices",
			Retryable: false,
			Cause:     ErrCauseInvalidResponse,
		}
	}

	summary := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if summary == "" {
		return "", &SummarizationError{
			Message:   "provider returned an empty summary",
			Retryable: false,
			Cause:     ErrCauseInvalidResponse,
		}
	}

	return summary, nil
}
