// Package cmd is the CLI surface described in spec.md section 6.4: a
// single command that drives one generation job end to end and writes
// its artifacts to a local directory, exiting with a code that tells a
// calling script why it failed without it having to parse messages.
//
// It keeps the teacher's cobra command shape, generalized from a
// config-inspection command to one that actually runs a job against
// internal/orchestrator and internal/job; Run replaces the teacher's
// InitConfigWithError as the testable entry point cobra's RunE delegates
// to.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmstxt/llms-txt-gen/internal/build"
	"github.com/llmstxt/llms-txt-gen/internal/config"
	"github.com/llmstxt/llms-txt-gen/internal/job"
	"github.com/llmstxt/llms-txt-gen/internal/logging"
	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/orchestrator"
	"github.com/llmstxt/llms-txt-gen/internal/store"
)

// Exit codes, per spec.md section 6.4.
const (
	ExitSuccess         = 0
	ExitOther           = 1
	ExitValidationError = 2
	ExitNoUsableContent = 3
	ExitCancelled       = 4
)

var (
	seedURL     string
	maxPages    int
	maxDepth    int
	maxKB       int
	requestFull bool
	noRobots    bool
	outputDir   string
)

var rootCmd = &cobra.Command{
	Use:   "llms-txt-gen",
	Short: "Generate llms.txt and llms-full.txt for a documentation site.",
	Long: `llms-txt-gen crawls a documentation website starting from a single
seed URL, extracts and summarizes its pages, and composes an llms.txt
(and optionally an llms-full.txt) index, writing both to a local output
directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := Run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		if code != ExitSuccess {
			os.Exit(code)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&seedURL, "url", "", "seed URL to start crawling from (required)")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum number of pages to fetch (0 uses the server default)")
	rootCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth from the seed URL (0 uses the server default)")
	rootCmd.Flags().IntVar(&maxKB, "max-kb", 0, "maximum size in KB for a composed artifact (0 uses the server default)")
	rootCmd.Flags().BoolVar(&requestFull, "full", false, "also compose llms-full.txt")
	rootCmd.Flags().BoolVar(&noRobots, "no-robots", false, "ignore robots.txt disallow rules")
	rootCmd.Flags().StringVar(&outputDir, "output", ".", "directory to write llm.txt and llms-full.txt to")
}

// Execute runs the root command under ctx and exits the process with
// its result code. It is called by main.main(); it only needs to
// happen once. Cancelling ctx (SIGINT/SIGTERM from main) makes
// waitForTerminal return ctx.Err() before the job reaches a terminal
// status, which Run reports as ExitOther; ExitCancelled is returned only
// for a job that itself reached the cancelled status.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "llms-txt-gen:", err)
		os.Exit(ExitOther)
	}
}

// Run drives one generation job synchronously and writes its artifacts
// to outputDir, returning the process exit code spec.md section 6.4
// documents. It is split out from rootCmd's RunE so tests can invoke it
// directly without going through cobra's os.Exit-adjacent plumbing.
func Run(ctx context.Context, stdout, stderr io.Writer) int {
	inputs, err := buildInputs()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitValidationError
	}

	defaults, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(stderr, "error loading config:", err)
		return ExitOther
	}

	log := logging.NewDevelopmentLogger()
	artifactStore := store.NewMemoryStore()
	orch := orchestrator.NewOrchestrator(defaults, log, build.FullVersion())
	manager := job.NewManager(artifactStore, orch, log, metadata.NoopSink{}, 1, time.Hour)
	orch.Manager = manager

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go manager.Start(runCtx)

	jobID, err := manager.Create(runCtx, inputs)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitValidationError
	}

	view, err := waitForTerminal(runCtx, manager, jobID)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitOther
	}

	return report(stdout, stderr, manager, runCtx, view)
}

// buildInputs validates the CLI flags into a config.GenerationInput,
// the same request shape the HTTP API builds from a JSON body.
func buildInputs() (config.GenerationInput, error) {
	if seedURL == "" {
		return config.GenerationInput{}, fmt.Errorf("--url is required")
	}
	parsed, err := url.Parse(seedURL)
	if err != nil {
		return config.GenerationInput{}, fmt.Errorf("--url is not a valid URL: %w", err)
	}

	respectRobots := !noRobots
	inputs := config.GenerationInput{
		SeedURL:       *parsed,
		MaxPages:      maxPages,
		MaxDepth:      maxDepth,
		MaxKB:         maxKB,
		RequestFull:   requestFull,
		RespectRobots: &respectRobots,
	}
	if err := inputs.Validate(); err != nil {
		return config.GenerationInput{}, err
	}
	return inputs, nil
}

// waitForTerminal polls the job manager until the job reaches a
// terminal status. The CLI runs exactly one job at a time, so polling
// a tight loop is simpler than plumbing a completion channel through
// job.Manager for a single caller.
func waitForTerminal(ctx context.Context, manager *job.Manager, jobID string) (job.View, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		view, err := manager.Get(jobID)
		if err != nil {
			return job.View{}, err
		}
		if view.Status.Terminal() {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return job.View{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// report maps a terminal job view to stdout output, downloaded
// artifacts on disk, and the process exit code spec.md section 6.4
// documents for each outcome.
func report(stdout, stderr io.Writer, manager *job.Manager, ctx context.Context, view job.View) int {
	switch view.Status {
	case job.StatusCompleted:
		if err := writeArtifacts(ctx, manager, view); err != nil {
			fmt.Fprintln(stderr, "error writing artifacts:", err)
			return ExitOther
		}
		fmt.Fprintln(stdout, "generation completed:", view.Message)
		return ExitSuccess

	case job.StatusCancelled:
		fmt.Fprintln(stderr, "generation cancelled")
		return ExitCancelled

	case job.StatusFailed:
		fmt.Fprintln(stderr, "generation failed:", view.Message)
		switch view.FailureCause {
		case job.ErrCauseValidation:
			return ExitValidationError
		case job.ErrCauseNoUsableContent:
			return ExitNoUsableContent
		default:
			return ExitOther
		}

	default:
		fmt.Fprintln(stderr, "generation ended in unexpected status:", view.Status)
		return ExitOther
	}
}

// writeArtifacts downloads the completed job's llm.txt (and, if
// requested, llms-full.txt) through the same Manager.Download path the
// HTTP API uses, then writes them under outputDir.
func writeArtifacts(ctx context.Context, manager *job.Manager, view job.View) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	llmTxt, err := manager.Download(ctx, view.JobID, store.KeyLlmTxt)
	if err != nil {
		return fmt.Errorf("downloading llm.txt: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "llm.txt"), llmTxt, 0o644); err != nil {
		return fmt.Errorf("writing llm.txt: %w", err)
	}

	if view.LlmsFullTxtURL == "" {
		return nil
	}
	llmsFullTxt, err := manager.Download(ctx, view.JobID, store.KeyLlmsFullTxt)
	if err != nil {
		return fmt.Errorf("downloading llms-full.txt: %w", err)
	}
	return os.WriteFile(filepath.Join(outputDir, "llms-full.txt"), llmsFullTxt, 0o644)
}

// ResetFlags restores every flag to its zero value, used between test
// cases so flag state set by one test never leaks into the next.
func ResetFlags() {
	seedURL = ""
	maxPages = 0
	maxDepth = 0
	maxKB = 0
	requestFull = false
	noRobots = false
	outputDir = "."
}
