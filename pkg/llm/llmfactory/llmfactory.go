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

// This implementation is adapted from github.com/AkihiroSuda/vexllm/pkg/llm/llmfactory

package llmfactory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/venslabs/depaudit/pkg/llm"
)

// Opts selects and configures a backend.
type Opts struct {
	Backend string
	Model   string
	// ServerURL is only used by ollama.
	ServerURL string
}

// New instantiates an LLM. It fails with llm.ErrMissingCredential when the
// backend's API key is not in the environment.
func New(ctx context.Context, o Opts) (llms.Model, error) {
	name := llm.Resolve(o.Backend)
	if name != o.Backend {
		slog.DebugContext(ctx, "Automatically choosing model", "name", name)
	}
	model := o.Model
	if model == "" {
		model = llm.DefaultModel(name)
	}

	switch name {
	case llm.OpenAI, llm.Anthropic, llm.GoogleAI:
	case llm.Ollama:
		opts := []ollama.Option{ollama.WithModel(model)}
		if o.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(o.ServerURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown LLM %q, make sure to use one of %v", name, llm.Names)
	}

	key, ok := llm.Credential(name)
	if !ok {
		return nil, fmt.Errorf("%w: $%s is not set", llm.ErrMissingCredential, llm.CredentialEnv(name))
	}
	switch name {
	case llm.OpenAI:
		opts := []openai.Option{openai.WithToken(key)}
		if model != "" {
			opts = append(opts, openai.WithModel(model))
		}
		return openai.New(opts...)
	case llm.Anthropic:
		opts := []anthropic.Option{anthropic.WithToken(key)}
		if model != "" {
			opts = append(opts, anthropic.WithModel(model))
		}
		return anthropic.New(opts...)
	default:
		opts := []googleai.Option{googleai.WithAPIKey(key)}
		if model != "" {
			opts = append(opts, googleai.WithDefaultModel(model))
		}
		return googleai.New(ctx, opts...)
	}
}
