// Copyright 2025 venslabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package summarizer turns scan findings into a natural-language summary.
//
// Summaries are best-effort enrichment: Summarize never fails, it returns a
// fixed diagnostic string when the LLM cannot be reached.
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/venslabs/depaudit/pkg/api/types"
	"github.com/venslabs/depaudit/pkg/config"
	"github.com/venslabs/depaudit/pkg/llm"
	"github.com/venslabs/depaudit/pkg/llm/llmfactory"
	"github.com/venslabs/depaudit/pkg/requestid"
)

const (
	// CleanMessage is the summary of a scan without findings.
	CleanMessage = "Scan complete. No vulnerabilities found."
	// EmptyReportMessage is returned when Summarize is called without findings.
	EmptyReportMessage = "No vulnerabilities found or report is empty."

	DefaultTimeout = 60 * time.Second
)

// Summarizer produces a human-readable summary of vulnerable dependencies.
type Summarizer interface {
	Summarize(ctx context.Context, deps []types.SimplifiedDependency) string
}

// Disabled is the Summarizer used when no LLM is configured.
type Disabled struct {
	Message string
}

func (d Disabled) Summarize(context.Context, []types.SimplifiedDependency) string {
	return d.Message
}

// UnavailableMessage is the summary when the credential of backend is missing.
func UnavailableMessage(backend string) string {
	if env := llm.CredentialEnv(backend); env != "" {
		return fmt.Sprintf("LLM service is not available. Please check your %s environment variable.", env)
	}
	return fmt.Sprintf("LLM service is not available. Please check the %s configuration.", llm.Resolve(backend))
}

// NewFromConfig builds the Summarizer for c. When the backend cannot be
// set up, e.g. because its API key is missing, it returns a Disabled one.
func NewFromConfig(ctx context.Context, c config.LLM) Summarizer {
	model, err := llmfactory.New(ctx, llmfactory.Opts{Backend: c.Backend, Model: c.Model, ServerURL: c.ServerURL})
	if err != nil {
		slog.WarnContext(ctx, "LLM summaries disabled", "backend", llm.Resolve(c.Backend), "error", err)
		if errors.Is(err, llm.ErrMissingCredential) {
			return Disabled{Message: UnavailableMessage(c.Backend)}
		}
		return Disabled{Message: fmt.Sprintf("LLM service is not available: %v", err)}
	}
	s, err := New(Opts{
		LLM:         model,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
		DebugDir:    c.DebugDir,
	})
	if err != nil {
		return Disabled{Message: fmt.Sprintf("LLM service is not available: %v", err)}
	}
	return s
}

// Opts configures the LLM summarizer.
type Opts struct {
	LLM         llms.Model
	Temperature float64
	Timeout     time.Duration
	DebugDir    string
}

// LLMSummarizer asks a language model for the summary.
type LLMSummarizer struct {
	o Opts
}

// New creates a new LLMSummarizer with the given options.
func New(o Opts) (*LLMSummarizer, error) {
	s := &LLMSummarizer{o: o}
	if s.o.LLM == nil {
		return nil, errors.New("no model")
	}
	if s.o.Timeout <= 0 {
		s.o.Timeout = DefaultTimeout
	}
	if s.o.DebugDir != "" {
		if err := os.MkdirAll(s.o.DebugDir, 0755); err != nil {
			slog.Error("failed to create the debug dir", "error", err)
			s.o.DebugDir = ""
		}
	}
	return s, nil
}

func (s *LLMSummarizer) Summarize(ctx context.Context, deps []types.SimplifiedDependency) string {
	if len(deps) == 0 {
		return EmptyReportMessage
	}
	summary, err := s.summarize(ctx, deps)
	if err != nil {
		slog.WarnContext(ctx, "LLM summary failed", "error", err)
		return fmt.Sprintf("Error communicating with LLM API: %v", err)
	}
	return summary
}

func (s *LLMSummarizer) summarize(ctx context.Context, deps []types.SimplifiedDependency) (string, error) {
	depsJSON, err := json.MarshalIndent(deps, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal dependencies: %w", err)
	}
	humanPrompt := buildHumanPrompt(string(depsJSON))

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, humanPrompt),
	}
	var callOpts []llms.CallOption
	if s.o.Temperature > 0.0 {
		slog.Debug("Using temperature", "temperature", s.o.Temperature)
		callOpts = append(callOpts, llms.WithTemperature(s.o.Temperature))
	}

	if s.o.DebugDir != "" {
		s.writePrompt(ctx, "system.prompt", systemPrompt)
		s.writePrompt(ctx, "human.prompt", humanPrompt)
	}

	ctx, cancel := context.WithTimeout(ctx, s.o.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.o.LLM.GenerateContent(ctx, msgs, callOpts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("empty response")
	}
	slog.DebugContext(ctx, "LLM summary generated", "elapsed", time.Since(start), "dependencies", len(deps))
	return resp.Choices[0].Content, nil
}

// writePrompt dumps a prompt into the debug dir. Service requests get their
// own files, prefixed with the request ID.
func (s *LLMSummarizer) writePrompt(ctx context.Context, name, prompt string) {
	if id := requestid.From(ctx); id != "" {
		name = id + "." + name
	}
	if err := os.WriteFile(filepath.Join(s.o.DebugDir, name), []byte(prompt), 0644); err != nil {
		slog.ErrorContext(ctx, "failed to write "+name, "error", err)
	}
}
