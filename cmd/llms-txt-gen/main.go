// Command llms-txt-gen is the CLI described in spec.md section 6.4: it
// runs a single generation job end to end and writes llm.txt (and
// optionally llms-full.txt) to a local directory.
package main

import (
	"context"
	"os/signal"
	"syscall"

	cmd "github.com/llmstxt/llms-txt-gen/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd.Execute(ctx)
}
