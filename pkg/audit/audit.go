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

// Package audit runs one manifest through validation, the audit tool, report
// normalization and summarization.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/venslabs/depaudit/pkg/api/types"
	"github.com/venslabs/depaudit/pkg/report"
	"github.com/venslabs/depaudit/pkg/scanerror"
	"github.com/venslabs/depaudit/pkg/scanner"
	"github.com/venslabs/depaudit/pkg/summarizer"
)

// Runner executes the audit tool against a manifest.
type Runner interface {
	Run(ctx context.Context, manifest string) (*scanner.Result, error)
	ToolName() string
}

// Observer is notified once per finished scan.
type Observer interface {
	ObserveScan(outcome string, elapsed time.Duration)
}

const (
	OutcomeClean      = "clean"
	OutcomeVulnerable = "vulnerable"
)

// Outcome labels res: OutcomeClean, OutcomeVulnerable or the error kind.
func Outcome(res *types.ScanResult, err error) string {
	switch {
	case err != nil:
		return string(scanerror.KindOf(err))
	case res.VulnerabilitiesFound:
		return OutcomeVulnerable
	}
	return OutcomeClean
}

type Opts struct {
	Runner     Runner
	Summarizer summarizer.Summarizer
	// Observer is optional.
	Observer Observer
	// OnStage, if set, is called on every stage transition.
	OnStage func(Stage)
}

type Pipeline struct {
	o Opts
}

func New(o Opts) (*Pipeline, error) {
	if o.Runner == nil {
		return nil, errors.New("no runner")
	}
	if o.Summarizer == nil {
		return nil, errors.New("no summarizer")
	}
	return &Pipeline{o: o}, nil
}

// Scan never fails: every error ends up in the Error field of the result.
func (p *Pipeline) Scan(ctx context.Context, req types.ScanRequest) *types.ScanResult {
	res, _ := p.ScanErr(ctx, req)
	return res
}

// ScanErr is Scan that also returns the terminal error, if any, so that
// callers can branch on its kind. The returned result is never nil.
func (p *Pipeline) ScanErr(ctx context.Context, req types.ScanRequest) (res *types.ScanResult, err error) {
	start := time.Now()
	st := &state{stage: StageInit, onStep: p.o.OnStage}
	defer func() {
		if r := recover(); r != nil {
			e := scanerror.New(scanerror.UnexpectedError, "Unexpected error during %s step (after %s stage): %v", st.step, st.stage, r)
			e.Trace = string(debug.Stack())
			res, err = failed(e), e
		}
		st.advance(ctx, StageDone)
		outcome := Outcome(res, err)
		slog.InfoContext(ctx, "Scan finished", "file", req.FilePath, "outcome", outcome, "elapsed", time.Since(start))
		if p.o.Observer != nil {
			p.o.Observer.ObserveScan(outcome, time.Since(start))
		}
	}()

	st.begin("validate")
	if err := scanner.Validate(req.FilePath); err != nil {
		return failed(err), err
	}
	st.advance(ctx, StageValidated)

	st.begin("invoke")
	out, err := p.o.Runner.Run(ctx, req.FilePath)
	if err != nil {
		return failed(err), err
	}
	st.advance(ctx, StageInvoked)

	st.begin("parse")
	rep, err := report.Parse(p.o.Runner.ToolName(), out.Stdout)
	if err != nil {
		res := failed(err)
		if scanerror.KindOf(err) == scanerror.MalformedOutput {
			res.RawReport = map[string]string{"raw_output": out.Stdout}
		}
		return res, err
	}
	st.advance(ctx, StageParsed)

	st.begin("classify")
	res = &types.ScanResult{
		VulnerabilitiesFound: rep.VulnerabilitiesFound,
		VulnerabilityCount:   rep.VulnerabilityCount,
		PackageCount:         rep.PackageCount(),
	}
	st.advance(ctx, StageClassified)

	if !rep.VulnerabilitiesFound {
		if rep.Raw != nil {
			res.RawReport = rep.Raw
		}
		res.LLMSummary = ptr(summarizer.CleanMessage)
		st.advance(ctx, StageClean)
		return res, nil
	}

	st.begin("summarize")
	res.RawReport = types.Compact(rep.Dependencies)
	res.Dependencies = rep.Dependencies
	slog.InfoContext(ctx, "Vulnerabilities found", "schema", rep.Schema,
		"vulnerabilities", res.VulnerabilityCount, "packages", res.PackageCount)
	res.LLMSummary = ptr(p.o.Summarizer.Summarize(ctx, types.Simplify(rep.Dependencies)))
	st.advance(ctx, StageSummarized)
	return res, nil
}

func failed(err error) *types.ScanResult {
	slog.Debug("Scan failed", "kind", scanerror.KindOf(err), "error", err)
	return &types.ScanResult{Error: ptr(err.Error())}
}

func ptr[T any](v T) *T { return &v }

