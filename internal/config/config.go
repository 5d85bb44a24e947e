package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Initial pages to give to the crawler to begin discovering and traversing other pages.
	seedURLs []url.URL
	// Whitelisted hostname. Empty means all hostnames are allowed
	allowedHosts map[string]struct{}
	// Which URL path segments are permitted to be fetched and traversed, even if the links are on the same domain
	allowedPathPrefix []string

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from a seed (root) URL
	maxDepth int
	// Maximum number of total documents are allowed to be fetched
	maxPages int

	//===============
	// Politeness
	//===============
	// Maximum number of crawl worker goroutines processing URLs concurrently;
	// it does not control OS threads or CPU parallelism.
	concurrency int
	// Minimum, fixed waiting time you enforce between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	// Intentional randomness applied to timing.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request in millisecond
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Output
	//===============
	// Root directory in which to store the resulting markdown files
	outputDir string
	// Whether the program will simulates what it would do without
	// actually performing any irreversible or side-effecting actions
	dryRun bool

	//===============
	// Extraction
	//===============
	// BodySpecificityBias is the threshold for preferring a child container over <body>.
	// If a child node's score is >= BodySpecificityBias * bodyScore, the child is preferred.
	// Default: 0.75 (75%)
	bodySpecificityBias float64
	// LinkDensityThreshold is the maximum ratio of link text to total text before
	// applying a penalty. Higher values allow more link-heavy content.
	// Default: 0.80 (80%)
	linkDensityThreshold float64
	// ScoreMultiplierNonWhitespaceDivisor is the divisor for calculating text score.
	// Score gets +1 point per NonWhitespaceDivisor characters.
	// Default: 50.0
	scoreMultiplierNonWhitespaceDivisor float64
	// ScoreMultiplierParagraphs is the score multiplier for each paragraph element.
	// Default: 5.0
	scoreMultiplierParagraphs float64
	// ScoreMultiplierHeadings is the score multiplier for each heading element (h1-h3).
	// Default: 10.0
	scoreMultiplierHeadings float64
	// ScoreMultiplierCodeBlocks is the score multiplier for each code block.
	// Default: 15.0
	scoreMultiplierCodeBlocks float64
	// ScoreMultiplierListItems is the score multiplier for each list item.
	// Default: 2.0
	scoreMultiplierListItems float64
	// ThresholdMinNonWhitespace is the minimum number of non-whitespace characters
	// required for content to be considered meaningful.
	// Default: 50
	thresholdMinNonWhitespace int
	// ThresholdMinHeadings is the minimum number of headings required.
	// Headings are optional but valuable.
	// Default: 0
	thresholdMinHeadings int
	// ThresholdMinParagraphsOrCode is the minimum number of paragraphs OR code blocks
	// required for content to be considered meaningful.
	// Default: 1
	thresholdMinParagraphsOrCode int
	// ThresholdMaxLinkDensity is the maximum ratio of link text to total text before
	// content is considered navigation-only and rejected.
	// Default: 0.8 (80%)
	thresholdMaxLinkDensity float64

	//===============
	// Artifact limits
	//===============
	// maxArtifactKB caps the size of a single composed artifact (llms.txt or
	// llms-full.txt), in kilobytes, before the composer starts trimming
	// sections.
	maxArtifactKB int

	//===============
	// Summarizer
	//===============
	// llmAPIKey authenticates requests to the summarizer's LLM provider.
	// Empty disables summarization; the composer falls back to truncation.
	llmAPIKey string
	// llmEndpoint is the chat-completions-compatible URL the summarizer
	// posts requests to.
	llmEndpoint string
	// llmModel selects the model identifier sent with every request.
	llmModel string
	// llmTimeout bounds a single summarization HTTP call.
	llmTimeout time.Duration
	// llmMaxRetries caps how many times a transient summarizer failure is retried.
	llmMaxRetries int
	// llmRateLimitRPS is the token bucket rate, in requests per second,
	// shared across a job's summarizer calls.
	llmRateLimitRPS float64

	//===============
	// Storage / job lifecycle
	//===============
	// storageBackend selects the Artifact Store implementation: "memory" or
	// "object_store".
	storageBackend     string
	objectStoreBucket  string
	objectStorePrefix  string
	objectStoreRegion  string
	// jobTTL is how long a completed/failed/cancelled job's record and
	// artifacts are retained before the retention sweep deletes them.
	jobTTL time.Duration
}

type configDTO struct {
	SeedURLs               []url.URL           `json:"seedUrls"`
	AllowedHosts           map[string]struct{} `json:"allowedHosts,omitempty"`
	AllowedPathPrefix      []string            `json:"allowedPathPrefix,omitempty"`
	MaxDepth               int                 `json:"maxDepth,omitempty"`
	MaxPages               int                 `json:"maxPages,omitempty"`
	Concurrency            int                 `json:"concurrency,omitempty"`
	BaseDelay              time.Duration       `json:"baseDelay,omitempty"`
	Jitter                 time.Duration       `json:"jitter,omitempty"`
	RandomSeed             int64               `json:"randomSeed,omitempty"`
	MaxAttempt             int                 `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration       `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64             `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration       `json:"backoffMaxDuration,omitempty"`
	Timeout                time.Duration       `json:"timeout,omitempty"`
	UserAgent              string              `json:"userAgent,omitempty"`
	OutputDir              string              `json:"outputDir,omitempty"`
	DryRun                 bool                `json:"dryRun,omitempty"`
	// Extraction parameters
	BodySpecificityBias                 float64 `json:"bodySpecificityBias,omitempty"`
	LinkDensityThreshold                float64 `json:"linkDensityThreshold,omitempty"`
	ScoreMultiplierNonWhitespaceDivisor float64 `json:"scoreMultiplierNonWhitespaceDivisor,omitempty"`
	ScoreMultiplierParagraphs           float64 `json:"scoreMultiplierParagraphs,omitempty"`
	ScoreMultiplierHeadings             float64 `json:"scoreMultiplierHeadings,omitempty"`
	ScoreMultiplierCodeBlocks           float64 `json:"scoreMultiplierCodeBlocks,omitempty"`
	ScoreMultiplierListItems            float64 `json:"scoreMultiplierListItems,omitempty"`
	ThresholdMinNonWhitespace           int     `json:"thresholdMinNonWhitespace,omitempty"`
	ThresholdMinHeadings                int     `json:"thresholdMinHeadings,omitempty"`
	ThresholdMinParagraphsOrCode        int     `json:"thresholdMinParagraphsOrCode,omitempty"`
	ThresholdMaxLinkDensity             float64 `json:"thresholdMaxLinkDensity,omitempty"`
	// Summarizer parameters
	LLMAPIKey       string        `json:"llmApiKey,omitempty"`
	LLMEndpoint     string        `json:"llmEndpoint,omitempty"`
	LLMModel        string        `json:"llmModel,omitempty"`
	LLMTimeout      time.Duration `json:"llmTimeout,omitempty"`
	LLMMaxRetries   int           `json:"llmMaxRetries,omitempty"`
	LLMRateLimitRPS float64       `json:"llmRateLimitRps,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {

	// Start with default config
	cfg, err := WithDefault(dto.SeedURLs).Build()
	if err != nil {
		return Config{}, err
	}

	// AllowedHosts can be empty - if so, default to seed URLs hostnames
	if len(dto.AllowedHosts) > 0 {
		cfg.allowedHosts = dto.AllowedHosts
	}

	// AllowedPathPrefix can be empty - always use DTO values
	cfg.allowedPathPrefix = dto.AllowedPathPrefix

	// For other fields, only override if non-zero value is provided
	if dto.MaxDepth != 0 {
		cfg.maxDepth = dto.MaxDepth
	}
	if dto.MaxPages != 0 {
		cfg.maxPages = dto.MaxPages
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}

	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	// DryRun is a boolean, check if explicitly set (we use the DTO value as-is since bool zero value is false)
	cfg.dryRun = dto.DryRun

	// Extraction parameters - only override if non-zero value is provided
	// For float64, we check if value is not 0 (which is also the zero value)
	if dto.BodySpecificityBias != 0 {
		cfg.bodySpecificityBias = dto.BodySpecificityBias
	}
	if dto.LinkDensityThreshold != 0 {
		cfg.linkDensityThreshold = dto.LinkDensityThreshold
	}
	if dto.ScoreMultiplierNonWhitespaceDivisor != 0 {
		cfg.scoreMultiplierNonWhitespaceDivisor = dto.ScoreMultiplierNonWhitespaceDivisor
	}
	if dto.ScoreMultiplierParagraphs != 0 {
		cfg.scoreMultiplierParagraphs = dto.ScoreMultiplierParagraphs
	}
	if dto.ScoreMultiplierHeadings != 0 {
		cfg.scoreMultiplierHeadings = dto.ScoreMultiplierHeadings
	}
	if dto.ScoreMultiplierCodeBlocks != 0 {
		cfg.scoreMultiplierCodeBlocks = dto.ScoreMultiplierCodeBlocks
	}
	if dto.ScoreMultiplierListItems != 0 {
		cfg.scoreMultiplierListItems = dto.ScoreMultiplierListItems
	}
	if dto.ThresholdMinNonWhitespace != 0 {
		cfg.thresholdMinNonWhitespace = dto.ThresholdMinNonWhitespace
	}
	// Note: ThresholdMinHeadings can be 0 (which is a valid value), so we don't check for non-zero
	cfg.thresholdMinHeadings = dto.ThresholdMinHeadings
	if dto.ThresholdMinParagraphsOrCode != 0 {
		cfg.thresholdMinParagraphsOrCode = dto.ThresholdMinParagraphsOrCode
	}
	if dto.ThresholdMaxLinkDensity != 0 {
		cfg.thresholdMaxLinkDensity = dto.ThresholdMaxLinkDensity
	}

	if dto.LLMAPIKey != "" {
		cfg.llmAPIKey = dto.LLMAPIKey
	}
	if dto.LLMEndpoint != "" {
		cfg.llmEndpoint = dto.LLMEndpoint
	}
	if dto.LLMModel != "" {
		cfg.llmModel = dto.LLMModel
	}
	if dto.LLMTimeout != 0 {
		cfg.llmTimeout = dto.LLMTimeout
	}
	if dto.LLMMaxRetries != 0 {
		cfg.llmMaxRetries = dto.LLMMaxRetries
	}
	if dto.LLMRateLimitRPS != 0 {
		cfg.llmRateLimitRPS = dto.LLMRateLimitRPS
	}

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with the provided seed URLs and default values for all other fields.
// seedUrls is mandatory and must not be empty - an error will be returned if it is.
func WithDefault(seedUrls []url.URL) *Config {
	defaultConfig := Config{
		seedURLs:     seedUrls,
		allowedHosts: map[string]struct{}{},
		allowedPathPrefix: []string{
			"/",
		},
		maxDepth:               3,
		maxPages:               100,
		concurrency:            10,
		baseDelay:              time.Second,
		jitter:                 time.Millisecond * 500,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             10,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		timeout:                time.Second * 10,
		userAgent:              "llms-txt-gen/1.0",
		outputDir:              "output",
		dryRun:                 false,
		// Extraction defaults
		bodySpecificityBias:                 0.75,
		linkDensityThreshold:                0.80,
		scoreMultiplierNonWhitespaceDivisor: 50.0,
		scoreMultiplierParagraphs:           5.0,
		scoreMultiplierHeadings:             10.0,
		scoreMultiplierCodeBlocks:           15.0,
		scoreMultiplierListItems:            2.0,
		thresholdMinNonWhitespace:           50,
		thresholdMinHeadings:                0,
		thresholdMinParagraphsOrCode:        1,
		thresholdMaxLinkDensity:             0.8,
		maxArtifactKB:                       500,
		storageBackend:                      "memory",
		jobTTL:                              7 * 24 * time.Hour,
		llmEndpoint:                         "https://api.openai.com/v1/chat/completions",
		llmModel:                            "gpt-4o-mini",
		llmTimeout:                          30 * time.Second,
		llmMaxRetries:                       3,
		llmRateLimitRPS:                     2.0,
	}
	return &defaultConfig
}

func (c *Config) WithSeedUrls(urls []url.URL) *Config {
	c.seedURLs = urls
	return c
}

func (c *Config) WithAllowedHosts(hosts map[string]struct{}) *Config {
	c.allowedHosts = hosts
	return c
}

func (c *Config) WithAllowedPathPrefix(prefixes []string) *Config {
	c.allowedPathPrefix = prefixes
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxPages(pages int) *Config {
	c.maxPages = pages
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithBodySpecificityBias(bias float64) *Config {
	c.bodySpecificityBias = bias
	return c
}

func (c *Config) WithLinkDensityThreshold(threshold float64) *Config {
	c.linkDensityThreshold = threshold
	return c
}

func (c *Config) WithScoreMultiplierNonWhitespaceDivisor(divisor float64) *Config {
	c.scoreMultiplierNonWhitespaceDivisor = divisor
	return c
}

func (c *Config) WithScoreMultiplierParagraphs(multiplier float64) *Config {
	c.scoreMultiplierParagraphs = multiplier
	return c
}

func (c *Config) WithScoreMultiplierHeadings(multiplier float64) *Config {
	c.scoreMultiplierHeadings = multiplier
	return c
}

func (c *Config) WithScoreMultiplierCodeBlocks(multiplier float64) *Config {
	c.scoreMultiplierCodeBlocks = multiplier
	return c
}

func (c *Config) WithScoreMultiplierListItems(multiplier float64) *Config {
	c.scoreMultiplierListItems = multiplier
	return c
}

func (c *Config) WithThresholdMinNonWhitespace(min int) *Config {
	c.thresholdMinNonWhitespace = min
	return c
}

func (c *Config) WithThresholdMinHeadings(min int) *Config {
	c.thresholdMinHeadings = min
	return c
}

func (c *Config) WithThresholdMinParagraphsOrCode(min int) *Config {
	c.thresholdMinParagraphsOrCode = min
	return c
}

func (c *Config) WithThresholdMaxLinkDensity(max float64) *Config {
	c.thresholdMaxLinkDensity = max
	return c
}

func (c *Config) WithMaxArtifactKB(kb int) *Config {
	c.maxArtifactKB = kb
	return c
}

func (c *Config) WithLLMAPIKey(key string) *Config {
	c.llmAPIKey = key
	return c
}

func (c *Config) WithLLMEndpoint(endpoint string) *Config {
	c.llmEndpoint = endpoint
	return c
}

func (c *Config) WithLLMModel(model string) *Config {
	c.llmModel = model
	return c
}

func (c *Config) WithLLMTimeout(timeout time.Duration) *Config {
	c.llmTimeout = timeout
	return c
}

func (c *Config) WithLLMMaxRetries(retries int) *Config {
	c.llmMaxRetries = retries
	return c
}

func (c *Config) WithLLMRateLimitRPS(rps float64) *Config {
	c.llmRateLimitRPS = rps
	return c
}

func (c *Config) WithStorageBackend(backend string) *Config {
	c.storageBackend = backend
	return c
}

func (c *Config) WithObjectStore(bucket, prefix, region string) *Config {
	c.objectStoreBucket = bucket
	c.objectStorePrefix = prefix
	c.objectStoreRegion = region
	return c
}

func (c *Config) WithJobTTL(ttl time.Duration) *Config {
	c.jobTTL = ttl
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}

	// If allowedHosts is empty, default to seed URLs hostnames
	if len(c.allowedHosts) == 0 {
		c.allowedHosts = make(map[string]struct{})
		for _, u := range c.seedURLs {
			if u.Host != "" {
				c.allowedHosts[u.Host] = struct{}{}
			}
		}
	}

	return *c, nil
}

func (c Config) SeedURLs() []url.URL {
	urls := make([]url.URL, len(c.seedURLs))
	copy(urls, c.seedURLs)
	return urls
}

func (c Config) AllowedHosts() map[string]struct{} {
	hosts := make(map[string]struct{})
	for k, v := range c.allowedHosts {
		hosts[k] = v
	}
	return hosts
}

func (c Config) AllowedPathPrefix() []string {
	prefixes := make([]string, len(c.allowedPathPrefix))
	copy(prefixes, c.allowedPathPrefix)
	return prefixes
}

func (c Config) MaxDepth() int {
	return c.maxDepth
}

func (c Config) MaxPages() int {
	return c.maxPages
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) BodySpecificityBias() float64 {
	return c.bodySpecificityBias
}

func (c Config) LinkDensityThreshold() float64 {
	return c.linkDensityThreshold
}

func (c Config) ScoreMultiplierNonWhitespaceDivisor() float64 {
	return c.scoreMultiplierNonWhitespaceDivisor
}

func (c Config) ScoreMultiplierParagraphs() float64 {
	return c.scoreMultiplierParagraphs
}

func (c Config) ScoreMultiplierHeadings() float64 {
	return c.scoreMultiplierHeadings
}

func (c Config) ScoreMultiplierCodeBlocks() float64 {
	return c.scoreMultiplierCodeBlocks
}

func (c Config) ScoreMultiplierListItems() float64 {
	return c.scoreMultiplierListItems
}

func (c Config) ThresholdMinNonWhitespace() int {
	return c.thresholdMinNonWhitespace
}

func (c Config) ThresholdMinHeadings() int {
	return c.thresholdMinHeadings
}

func (c Config) ThresholdMinParagraphsOrCode() int {
	return c.thresholdMinParagraphsOrCode
}

func (c Config) ThresholdMaxLinkDensity() float64 {
	return c.thresholdMaxLinkDensity
}

func (c Config) MaxArtifactKB() int {
	return c.maxArtifactKB
}

func (c Config) LLMAPIKey() string {
	return c.llmAPIKey
}

func (c Config) SummarizationEnabled() bool {
	return c.llmAPIKey != ""
}

func (c Config) LLMEndpoint() string {
	return c.llmEndpoint
}

func (c Config) LLMModel() string {
	return c.llmModel
}

func (c Config) LLMTimeout() time.Duration {
	return c.llmTimeout
}

func (c Config) LLMMaxRetries() int {
	return c.llmMaxRetries
}

func (c Config) LLMRateLimitRPS() float64 {
	return c.llmRateLimitRPS
}

func (c Config) StorageBackend() string {
	return c.storageBackend
}

func (c Config) ObjectStoreBucket() string {
	return c.objectStoreBucket
}

func (c Config) ObjectStorePrefix() string {
	return c.objectStorePrefix
}

func (c Config) ObjectStoreRegion() string {
	return c.objectStoreRegion
}

func (c Config) JobTTL() time.Duration {
	return c.jobTTL
}

// FromEnv builds a server-wide default Config from the process
// environment. It mirrors WithConfigFile's override-on-presence
// semantics but reads MAX_PAGES, MAX_DEPTH, MAX_KB, REQUEST_DELAY,
// USER_AGENT, LLM_API_KEY, STORAGE_BACKEND, OBJECT_STORE_BUCKET,
// OBJECT_STORE_PREFIX, OBJECT_STORE_REGION and JOB_TTL_DAYS instead of a
// JSON file. The returned Config carries no seed URLs; callers build a
// per-job Config by cloning the relevant fields onto a fresh
// WithDefault(seedURLs).
func FromEnv() (Config, error) {
	cfg := *WithDefault(nil)

	if v := os.Getenv("MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: MAX_PAGES: %s", ErrInvalidEnv, err)
		}
		cfg.maxPages = n
	}
	if v := os.Getenv("MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: MAX_DEPTH: %s", ErrInvalidEnv, err)
		}
		cfg.maxDepth = n
	}
	if v := os.Getenv("MAX_KB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: MAX_KB: %s", ErrInvalidEnv, err)
		}
		cfg.maxArtifactKB = n
	}
	if v := os.Getenv("REQUEST_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: REQUEST_DELAY: %s", ErrInvalidEnv, err)
		}
		cfg.baseDelay = d
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.userAgent = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.llmAPIKey = v
	}
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.llmEndpoint = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.llmModel = v
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: LLM_TIMEOUT: %s", ErrInvalidEnv, err)
		}
		cfg.llmTimeout = d
	}
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: LLM_MAX_RETRIES: %s", ErrInvalidEnv, err)
		}
		cfg.llmMaxRetries = n
	}
	if v := os.Getenv("LLM_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: LLM_RATE_LIMIT_RPS: %s", ErrInvalidEnv, err)
		}
		cfg.llmRateLimitRPS = f
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.storageBackend = v
	}
	cfg.objectStoreBucket = os.Getenv("OBJECT_STORE_BUCKET")
	cfg.objectStorePrefix = os.Getenv("OBJECT_STORE_PREFIX")
	cfg.objectStoreRegion = os.Getenv("OBJECT_STORE_REGION")
	if v := os.Getenv("JOB_TTL_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: JOB_TTL_DAYS: %s", ErrInvalidEnv, err)
		}
		cfg.jobTTL = time.Duration(n) * 24 * time.Hour
	}

	return cfg, nil
}

// GenerationInput is the validated shape of a single job request: a seed
// URL plus the caller's optional overrides of the server defaults. It is
// deliberately separate from Config, which also carries extraction
// tuning knobs no API caller should be able to touch.
type GenerationInput struct {
	SeedURL  url.URL
	MaxPages int
	MaxDepth int
	MaxKB    int
	// RequestFull asks the job to also compose llms-full.txt. It has no
	// server-side default to overlay, so it is read directly off the
	// request by the job manager rather than through ApplyTo.
	RequestFull bool
	// RespectRobots defaults to true when nil; an explicit false lets a
	// caller opt out, mirroring the CLI's --no-robots flag.
	RespectRobots *bool
	// Language is an optional <html lang> filter; empty means unfiltered.
	// It has no server-side default to overlay, so the job manager reads
	// it directly off the request rather than through ApplyTo.
	Language string
}

// RespectRobotsOrDefault resolves the tri-state RespectRobots override to
// the spec's documented default of true.
func (g GenerationInput) RespectRobotsOrDefault() bool {
	if g.RespectRobots == nil {
		return true
	}
	return *g.RespectRobots
}

// Validate enforces the bounds spec callers depend on: 1-1000 pages,
// 1-10 hops of depth. Zero means "use the server default" and is
// resolved by ApplyTo, not here.
func (g GenerationInput) Validate() error {
	if g.SeedURL.Host == "" || (g.SeedURL.Scheme != "http" && g.SeedURL.Scheme != "https") {
		return ErrInvalidSeedURL
	}
	if g.MaxPages != 0 && (g.MaxPages < 1 || g.MaxPages > 1000) {
		return ErrMaxPagesOutOfRange
	}
	if g.MaxDepth != 0 && (g.MaxDepth < 1 || g.MaxDepth > 10) {
		return ErrMaxDepthOutOfRange
	}
	if g.MaxKB != 0 && (g.MaxKB < 1 || g.MaxKB > 10240) {
		return ErrMaxKBOutOfRange
	}
	return nil
}

// ApplyTo overlays the input's overrides on top of a server-default
// Config, returning the fully built per-job Config.
func (g GenerationInput) ApplyTo(defaults Config) (Config, error) {
	builder := WithDefault([]url.URL{g.SeedURL}).
		WithMaxPages(defaults.maxPages).
		WithMaxDepth(defaults.maxDepth).
		WithConcurrency(defaults.concurrency).
		WithBaseDelay(defaults.baseDelay).
		WithJitter(defaults.jitter).
		WithUserAgent(defaults.userAgent).
		WithTimeout(defaults.timeout).
		WithMaxArtifactKB(defaults.maxArtifactKB).
		WithLLMAPIKey(defaults.llmAPIKey).
		WithLLMEndpoint(defaults.llmEndpoint).
		WithLLMModel(defaults.llmModel).
		WithLLMTimeout(defaults.llmTimeout).
		WithLLMMaxRetries(defaults.llmMaxRetries).
		WithLLMRateLimitRPS(defaults.llmRateLimitRPS).
		WithStorageBackend(defaults.storageBackend).
		WithObjectStore(defaults.objectStoreBucket, defaults.objectStorePrefix, defaults.objectStoreRegion).
		WithJobTTL(defaults.jobTTL)

	if g.MaxPages != 0 {
		builder = builder.WithMaxPages(g.MaxPages)
	}
	if g.MaxDepth != 0 {
		builder = builder.WithMaxDepth(g.MaxDepth)
	}
	if g.MaxKB != 0 {
		builder = builder.WithMaxArtifactKB(g.MaxKB)
	}

	return builder.Build()
}
