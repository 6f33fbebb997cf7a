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

// Package report normalizes audit tool output into vulnerable dependencies.
//
// Audit tools changed their JSON schema across versions, and deployments pin
// different versions, so the output is matched against an ordered list of
// known variants. A well-formed document that matches none of them is a
// clean report, never a failure.
package report

import (
	"bytes"
	"encoding/json"

	"github.com/venslabs/depaudit/pkg/api/types"
	"github.com/venslabs/depaudit/pkg/scanerror"
)

// Report is the classified output of one tool run.
type Report struct {
	// Schema is the variant that matched; empty for a clean report.
	Schema               Schema
	VulnerabilitiesFound bool
	VulnerabilityCount   int
	Dependencies         []types.VulnerableDependency
	// Raw is the tool output; nil when the tool printed nothing.
	Raw json.RawMessage
}

// PackageCount returns the number of affected dependencies.
func (r *Report) PackageCount() int { return len(r.Dependencies) }

// Parse classifies the standard output of tool. Empty output is a clean
// report. Errors are *scanerror.Error of kind MalformedOutput or
// ToolExecutionFailed.
func Parse(tool, stdout string) (*Report, error) {
	raw := bytes.TrimSpace([]byte(stdout))
	if len(raw) == 0 {
		return &Report{}, nil
	}
	if !json.Valid(raw) {
		var v any
		err := json.Unmarshal(raw, &v)
		return nil, scanerror.Wrap(scanerror.MalformedOutput, err,
			"Failed to parse %s output as JSON: %v\nraw output:\n%s", tool, err, stdout)
	}

	for _, r := range recognizers {
		f, ok := r.recognize(raw)
		if !ok {
			continue
		}
		rep := &Report{
			Schema:               r.schema,
			VulnerabilitiesFound: true,
			Dependencies:         f.dependencies,
			Raw:                  json.RawMessage(raw),
		}
		if f.count > 0 {
			rep.VulnerabilityCount = f.count
		} else {
			for _, d := range f.dependencies {
				rep.VulnerabilityCount += d.VulnerabilityCount
			}
		}
		return rep, nil
	}

	if msg, ok := errorIndicator(raw); ok {
		return nil, scanerror.New(scanerror.ToolExecutionFailed, "%s reported an error: %s", tool, msg)
	}
	return &Report{Raw: json.RawMessage(raw)}, nil
}

// errorIndicator reports an explicit top-level error, either
// {"error": "msg"} or {"error": true, "message": "msg"}.
func errorIndicator(raw []byte) (string, bool) {
	var r struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &r); err != nil || len(r.Error) == 0 {
		return "", false
	}
	switch s := asString(r.Error); s {
	case "true":
		if m := asString(r.Message); m != "" {
			return m, true
		}
		return "unknown error", true
	case "false":
		return "", false
	case "":
		if r.Error[0] == '{' {
			return string(r.Error), true
		}
		return "", false
	default:
		return s, true
	}
}
