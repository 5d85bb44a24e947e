package fetcher

import (
	"context"
	"net/http"

	"github.com/llmstxt/llms-txt-gen/pkg/failure"
	"github.com/llmstxt/llms-txt-gen/pkg/retry"
)

type Fetcher interface {
	Init(httpClient *http.Client)
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
