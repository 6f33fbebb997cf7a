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

package scanner

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ManifestPlaceholder is replaced by the manifest path in a tool command line.
const ManifestPlaceholder = "{manifest}"

// Supported audit tool presets
const (
	PipAudit = "pip-audit"
	Safety   = "safety"
	Trivy    = "trivy"
)

// DefaultTool is used when neither a preset nor a command is configured.
const DefaultTool = PipAudit

// Tool describes how to invoke an external audit tool.
type Tool struct {
	// Name is used in log and error messages.
	Name string
	// Command is the argv, with ManifestPlaceholder where the manifest path goes.
	Command     []string
	InstallHint string
}

var presets = map[string]Tool{
	PipAudit: {
		Name:        PipAudit,
		Command:     []string{"pip-audit", "-r", ManifestPlaceholder, "-f", "json"},
		InstallHint: "pip install pip-audit",
	},
	Safety: {
		Name:        Safety,
		Command:     []string{"safety", "scan", "-r", ManifestPlaceholder, "--output", "json"},
		InstallHint: "pip install safety",
	},
	Trivy: {
		Name:        Trivy,
		Command:     []string{"trivy", "fs", "--scanners", "vuln", "--format", "json", "--quiet", ManifestPlaceholder},
		InstallHint: "see https://trivy.dev/latest/getting-started/installation/",
	},
}

// Names lists the preset names for help text and validation.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Preset returns the named tool preset.
func Preset(name string) (Tool, error) {
	t, ok := presets[name]
	if !ok {
		return Tool{}, fmt.Errorf("unknown tool %q, make sure to use one of %v", name, Names())
	}
	return t, nil
}

// ParseCommand builds a Tool from a shell-quoted command line such as
// `safety scan -r {manifest} --output json`. The manifest path is appended
// when the line has no placeholder.
func ParseCommand(line string) (Tool, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return Tool{}, fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return Tool{}, fmt.Errorf("empty command")
	}
	if !slices.ContainsFunc(argv, func(a string) bool { return strings.Contains(a, ManifestPlaceholder) }) {
		argv = append(argv, ManifestPlaceholder)
	}
	name := filepath.Base(argv[0])
	return Tool{
		Name:        name,
		Command:     argv,
		InstallHint: fmt.Sprintf("make sure %q is installed and on $PATH", argv[0]),
	}, nil
}

// Argv returns the command with the manifest path substituted.
func (t Tool) Argv(manifest string) []string {
	argv := make([]string, len(t.Command))
	for i, a := range t.Command {
		argv[i] = strings.ReplaceAll(a, ManifestPlaceholder, manifest)
	}
	return argv
}
