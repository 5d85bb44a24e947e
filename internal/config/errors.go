package config

import "errors"

var ErrFileDoesNotExist = errors.New("config file does not exist")
var ErrReadConfigFail = errors.New("failed to read config file")
var ErrConfigParsingFail = errors.New("failed to parse config file")
var ErrInvalidConfig = errors.New("invalid config file")
var ErrInvalidEnv = errors.New("invalid environment configuration")

var (
	ErrNoSeedURL        = errors.New("seedUrl is required")
	ErrInvalidSeedURL   = errors.New("seedUrl must be an absolute http(s) URL")
	ErrMaxPagesOutOfRange = errors.New("maxPages must be between 1 and 1000")
	ErrMaxDepthOutOfRange = errors.New("maxDepth must be between 1 and 10")
	ErrMaxKBOutOfRange    = errors.New("maxArtifactKB must be between 1 and 10240")
)
