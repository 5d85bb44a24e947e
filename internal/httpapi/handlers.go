package httpapi

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/llmstxt/llms-txt-gen/internal/config"
	"github.com/llmstxt/llms-txt-gen/internal/job"
	"github.com/llmstxt/llms-txt-gen/internal/store"
)

// managerFromContext recovers the *job.Manager NewServer injected via
// c.Locals, the dependency-injection seam SPEC_FULL.md asks this
// boundary to use instead of a package-level global.
func managerFromContext(c *fiber.Ctx) *job.Manager {
	return c.Locals(localsManagerKey).(*job.Manager)
}

// createGeneration implements POST /v1/generations.
func (s *Server) createGeneration(c *fiber.Ctx) error {
	var body CreateGenerationRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(CreateGenerationResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "request body is not valid JSON: " + err.Error(),
		})
	}

	seedURL, err := url.Parse(body.URL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(CreateGenerationResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "url is not a valid URL: " + err.Error(),
		})
	}

	inputs := config.GenerationInput{
		SeedURL:       *seedURL,
		MaxPages:      body.MaxPages,
		MaxDepth:      body.MaxDepth,
		MaxKB:         body.MaxKB,
		RequestFull:   body.FullVersion,
		RespectRobots: body.RespectRobots,
		Language:      body.Language,
	}

	jobID, createErr := managerFromContext(c).Create(c.Context(), inputs)
	if createErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(CreateGenerationResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   createErr.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(CreateGenerationResponse{
		Success: true,
		JobID:   jobID,
		Status:  string(job.StatusPending),
		Message: "generation job accepted",
	})
}

// getGeneration implements GET /v1/generations/{job_id}.
func (s *Server) getGeneration(c *fiber.Ctx) error {
	view, err := managerFromContext(c).Get(c.Params("job_id"))
	if err != nil {
		return jobLookupError(c, err)
	}
	return c.JSON(JobViewResponse{Success: true, Job: toJobView(view)})
}

// cancelGeneration implements DELETE /v1/generations/{job_id}.
func (s *Server) cancelGeneration(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	err := managerFromContext(c).Cancel(jobID)
	switch {
	case err == nil:
		return c.JSON(MessageResponse{Success: true, Message: "cancellation requested"})
	case errors.Is(err, job.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(MessageResponse{
			Success: false, Code: "NOT_FOUND", Error: err.Error(),
		})
	case errors.Is(err, job.ErrAlreadyTerminal):
		return c.Status(fiber.StatusConflict).JSON(MessageResponse{
			Success: false, Code: "CONFLICT", Error: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{
			Success: false, Code: "INTERNAL", Error: err.Error(),
		})
	}
}

// downloadArtifact implements
// GET /v1/generations/{job_id}/download/{llm.txt|llms-full.txt}. The
// default shape wraps the content as JSON; ?raw=1 streams it back as
// text/plain with a Content-Disposition header instead, resolving spec.md
// section 6.1's "or binary with ?raw=1" clause.
func (s *Server) downloadArtifact(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	artifact := c.Params("artifact")

	key, ok := artifactKey(artifact)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(MessageResponse{
			Success: false, Code: "NOT_FOUND", Error: "unknown artifact: " + artifact,
		})
	}

	content, err := managerFromContext(c).Download(c.Context(), jobID, key)
	if err != nil {
		return downloadError(c, err)
	}

	if c.Query("raw") == "1" {
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, "attachment; filename=\""+artifact+"\"")
		return c.Send(content)
	}

	return c.JSON(DownloadResponse{Success: true, Content: string(content)})
}

func artifactKey(name string) (store.Key, bool) {
	switch name {
	case "llm.txt":
		return store.KeyLlmTxt, true
	case "llms-full.txt":
		return store.KeyLlmsFullTxt, true
	default:
		return "", false
	}
}

func jobLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, job.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(JobViewResponse{
			Success: false, Code: "NOT_FOUND", Error: err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(JobViewResponse{
		Success: false, Code: "INTERNAL", Error: err.Error(),
	})
}

func downloadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, job.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(MessageResponse{
			Success: false, Code: "NOT_FOUND", Error: err.Error(),
		})
	case errors.Is(err, job.ErrNotReady):
		return c.Status(fiber.StatusNotFound).JSON(MessageResponse{
			Success: false, Code: "NOT_READY", Error: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{
			Success: false, Code: "INTERNAL", Error: err.Error(),
		})
	}
}

func toJobView(v job.View) *JobView {
	return &JobView{
		JobID:           v.JobID,
		Status:          string(v.Status),
		Progress:        v.Progress,
		Message:         v.Message,
		CurrentPhase:    string(v.Phase),
		CurrentPageURL:  v.CurrentPageURL,
		PagesDiscovered: v.PagesDiscovered,
		PagesProcessed:  v.PagesProcessed,
		ProcessingLogs:  v.ProcessingLogs,
		PagesCrawled:    v.PagesCrawled,
		TotalSizeKB:     v.TotalSizeKB,
		LlmTxtURL:       v.LlmTxtURL,
		LlmsFullTxtURL:  v.LlmsFullTxtURL,
		CreatedAt:       v.CreatedAt,
		CompletedAt:     v.CompletedAt,
	}
}
