package httpapi

import "time"

// CreateGenerationRequest is the body of POST /v1/generations.
type CreateGenerationRequest struct {
	URL           string `json:"url"`
	MaxPages      int    `json:"max_pages,omitempty"`
	MaxDepth      int    `json:"max_depth,omitempty"`
	MaxKB         int    `json:"max_kb,omitempty"`
	FullVersion   bool   `json:"full_version,omitempty"`
	RespectRobots *bool  `json:"respect_robots,omitempty"`
	Language      string `json:"language,omitempty"`
}

// CreateGenerationResponse is returned 202 Accepted from a successful create.
type CreateGenerationResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// JobView mirrors spec.md section 6.1's documented Job view field names.
type JobView struct {
	JobID           string    `json:"job_id"`
	Status          string    `json:"status"`
	Progress        float64   `json:"progress"`
	Message         string    `json:"message"`
	CurrentPhase    string    `json:"current_phase"`
	CurrentPageURL  string    `json:"current_page_url,omitempty"`
	PagesDiscovered int       `json:"pages_discovered"`
	PagesProcessed  int       `json:"pages_processed"`
	ProcessingLogs  []string  `json:"processing_logs"`
	PagesCrawled    int       `json:"pages_crawled"`
	TotalSizeKB     int       `json:"total_size_kb"`
	LlmTxtURL       string    `json:"llm_txt_url,omitempty"`
	LlmsFullTxtURL  string    `json:"llms_full_txt_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	CompletedAt     time.Time `json:"completed_at,omitempty"`
}

// JobViewResponse wraps JobView with the envelope fields every response
// carries, grounded on raito's JobDetailResponse shape.
type JobViewResponse struct {
	Success bool     `json:"success"`
	Code    string   `json:"code,omitempty"`
	Error   string   `json:"error,omitempty"`
	Job     *JobView `json:"job,omitempty"`
}

// MessageResponse covers the cancel endpoint's 200 body and every plain
// error envelope that carries no extra payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// DownloadResponse is the default JSON-wrapped shape for a download when
// ?raw=1 is absent.
type DownloadResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Content string `json:"content,omitempty"`
}
