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

package llm

import (
	"errors"
	"os"
)

// Supported LLM backends and selection helpers
const (
	Auto      = "auto"
	OpenAI    = "openai"
	Ollama    = "ollama"
	Anthropic = "anthropic"
	GoogleAI  = "googleai"
)

// Names lists the supported backend names for help text and validation.
var Names = []string{OpenAI, Ollama, Anthropic, GoogleAI}

// ErrMissingCredential is returned when a backend's API key is not set.
var ErrMissingCredential = errors.New("missing LLM API credential")

// credentialEnv maps a backend to the environment variable holding its API key.
// Ollama runs locally and needs none.
var credentialEnv = map[string]string{
	OpenAI:    "OPENAI_API_KEY",
	Anthropic: "ANTHROPIC_API_KEY",
	GoogleAI:  "GOOGLE_API_KEY",
}

var defaultModel = map[string]string{
	OpenAI: "gpt-4o-mini",
	Ollama: "llama3.1",
}

// Resolve maps Auto and "" to the default backend.
func Resolve(name string) string {
	switch name {
	case "", Auto:
		return OpenAI
	}
	return name
}

// CredentialEnv returns the environment variable holding the API key of
// backend, or "" if the backend needs none.
func CredentialEnv(backend string) string {
	return credentialEnv[Resolve(backend)]
}

// Credential reads the API key of backend from the environment.
func Credential(backend string) (string, bool) {
	env := CredentialEnv(backend)
	if env == "" {
		return "", true
	}
	v := os.Getenv(env)
	return v, v != ""
}

// DefaultModel returns the model used when none is configured. An empty
// string lets the client library pick.
func DefaultModel(backend string) string {
	return defaultModel[Resolve(backend)]
}
