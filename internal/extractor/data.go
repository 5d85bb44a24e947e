package extractor

import "golang.org/x/net/html"

// ExtractionResult holds the extraction outcome.
// DocumentRoot is the original parsed HTML document.
// ContentNode is the extracted meaningful content node (semantic container).
type ExtractionResult struct {
	DocumentRoot *html.Node
	ContentNode  *html.Node
}

// ExtractParam tunes the layer-3 heuristic (text-density scoring after
// explicit chrome removal). Layers 1 and 2 (semantic containers, known doc
// selectors) don't use these.
type ExtractParam struct {
	// LinkDensityThreshold is the link-text-to-total-text ratio above which
	// a candidate's score is penalized, to demote navigation-heavy blocks.
	LinkDensityThreshold float64
	// BodySpecificityBias is how close a child candidate's score must get
	// to <body>'s score (as a fraction of it) before the child is preferred
	// over <body>, so a single huge wrapper <div> isn't skipped in favor of
	// the whole page.
	BodySpecificityBias float64
}

// DefaultExtractParam returns the thresholds used when a caller has no
// reason to tune them.
func DefaultExtractParam() ExtractParam {
	return ExtractParam{
		LinkDensityThreshold: 0.5,
		BodySpecificityBias:  0.5,
	}
}
