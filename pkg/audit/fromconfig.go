package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venslabs/depaudit/pkg/config"
	"github.com/venslabs/depaudit/pkg/scanner"
	"github.com/venslabs/depaudit/pkg/summarizer"
)

// NewFromConfig wires the tool invoker and the summarizer described by c.
// obs may be nil.
func NewFromConfig(ctx context.Context, c *config.Config, obs Observer) (*Pipeline, error) {
	tool, err := c.Scanner.ResolveTool()
	if err != nil {
		return nil, err
	}
	inv, err := scanner.New(scanner.Opts{Tool: tool, Timeout: c.Scanner.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create the scanner: %w", err)
	}
	slog.DebugContext(ctx, "Using audit tool", "tool", tool.Name, "command", tool.Command, "timeout", c.Scanner.Timeout)
	return New(Opts{
		Runner:     inv,
		Summarizer: summarizer.NewFromConfig(ctx, c.LLM),
		Observer:   obs,
	})
}
