package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venslabs/depaudit/pkg/api/types"
	"github.com/venslabs/depaudit/pkg/scanerror"
	"github.com/venslabs/depaudit/pkg/scanner"
	"github.com/venslabs/depaudit/pkg/summarizer"
)

type stubRunner struct {
	name   string
	stdout string
	exit   int
	err    error
	panic  any
	calls  int
}

func (r *stubRunner) ToolName() string { return r.name }

func (r *stubRunner) Run(context.Context, string) (*scanner.Result, error) {
	r.calls++
	if r.panic != nil {
		panic(r.panic)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &scanner.Result{Stdout: r.stdout, ExitCode: r.exit}, nil
}

type stubSummarizer struct {
	reply string
	calls int
	got   []types.SimplifiedDependency
}

func (s *stubSummarizer) Summarize(_ context.Context, deps []types.SimplifiedDependency) string {
	s.calls++
	s.got = deps
	return s.reply
}

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveScan(outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func manifest(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(p, []byte("django==1.8\n"), 0o644))
	return p
}

func newPipeline(t *testing.T, r Runner, s summarizer.Summarizer) (*Pipeline, *recordingObserver, *[]Stage) {
	t.Helper()
	obs := &recordingObserver{}
	var stages []Stage
	p, err := New(Opts{
		Runner:     r,
		Summarizer: s,
		Observer:   obs,
		OnStage:    func(st Stage) { stages = append(stages, st) },
	})
	require.NoError(t, err)
	return p, obs, &stages
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestScan_VulnerabilitiesWithMockedSummary(t *testing.T) {
	r := &stubRunner{name: "safety", exit: 1, stdout: `[
		{
			"package": "django",
			"installed": "1.8",
			"affected": "<2.2.13",
			"id": "12345",
			"more_info_url": "https://example.com/vuln/12345",
			"vulnerability": "SQL injection vulnerability"
		}
	]`}
	s := &stubSummarizer{reply: "This is a mocked LLM summary."}
	p, obs, stages := newPipeline(t, r, s)

	res := p.Scan(context.Background(), types.ScanRequest{FilePath: manifest(t)})

	assert.Equal(t, 1, s.calls)
	require.NotNil(t, res.LLMSummary)
	assert.Equal(t, "This is a mocked LLM summary.", *res.LLMSummary)
	assert.Nil(t, res.Error)
	assert.True(t, res.VulnerabilitiesFound)
	assert.Equal(t, 1, res.VulnerabilityCount)
	assert.Equal(t, 1, res.PackageCount)
	assert.JSONEq(t, `{"dependencies":[{"name":"django","version":"1.8","vulnerability_count":1}]}`, marshal(t, res.RawReport))
	require.Len(t, s.got, 1)
	assert.Equal(t, types.SimplifiedDependency{
		Package:            "django",
		CurrentVersion:     "1.8",
		VulnerabilityCount: 1,
		RecommendedUpgrade: types.NoFixAvailable,
		ExampleDescription: "SQL injection vulnerability",
	}, s.got[0])
	assert.Len(t, res.Dependencies, 1)

	assert.Equal(t, []string{OutcomeVulnerable}, obs.outcomes)
	assert.Equal(t, []Stage{StageValidated, StageInvoked, StageParsed, StageClassified, StageSummarized, StageDone}, *stages)
}

func TestScan_DependenciesExample(t *testing.T) {
	r := &stubRunner{name: "pip-audit", exit: 1,
		stdout: `{"dependencies":[{"name":"django","version":"1.8","vulns":[{"fix_versions":["2.2.13"],"description":"SQLi"}]}]}`}
	s := &stubSummarizer{reply: "summary"}
	p, _, _ := newPipeline(t, r, s)

	res := p.Scan(context.Background(), types.ScanRequest{FilePath: manifest(t)})
	assert.Nil(t, res.Error)
	assert.True(t, res.VulnerabilitiesFound)
	assert.Equal(t, 1, res.VulnerabilityCount)
	assert.Equal(t, 1, res.PackageCount)
	assert.JSONEq(t, `{"dependencies":[{"name":"django","version":"1.8","vulnerability_count":1}]}`, marshal(t, res.RawReport))
	require.Len(t, s.got, 1)
	assert.Equal(t, "2.2.13", s.got[0].RecommendedUpgrade)
	assert.Equal(t, "SQLi", s.got[0].ExampleDescription)
}

func TestScan_NoVulnerabilities(t *testing.T) {
	for _, tc := range []struct {
		name    string
		stdout  string
		wantRaw string
	}{
		{name: "empty list", stdout: "[]", wantRaw: "[]"},
		{name: "clean dependencies", stdout: `{"dependencies":[{"name":"flask","version":"3.0.0","vulns":[]}]}`,
			wantRaw: `{"dependencies":[{"name":"flask","version":"3.0.0","vulns":[]}]}`},
		{name: "empty output", stdout: "", wantRaw: "null"},
		{name: "unrecognized", stdout: `{"meta":{"version":"3"}}`, wantRaw: `{"meta":{"version":"3"}}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := &stubSummarizer{reply: "unused"}
			p, obs, stages := newPipeline(t, &stubRunner{name: "safety", stdout: tc.stdout}, s)

			res := p.Scan(context.Background(), types.ScanRequest{FilePath: manifest(t)})
			assert.Zero(t, s.calls)
			require.NotNil(t, res.LLMSummary)
			assert.Equal(t, summarizer.CleanMessage, *res.LLMSummary)
			assert.Nil(t, res.Error)
			assert.False(t, res.VulnerabilitiesFound)
			assert.Zero(t, res.VulnerabilityCount)
			assert.Zero(t, res.PackageCount)
			assert.JSONEq(t, tc.wantRaw, marshal(t, res.RawReport))
			assert.Equal(t, []string{OutcomeClean}, obs.outcomes)
			assert.Equal(t, []Stage{StageValidated, StageInvoked, StageParsed, StageClassified, StageClean, StageDone}, *stages)
		})
	}
}

func TestScan_NonexistentFile(t *testing.T) {
	r := &stubRunner{name: "safety"}
	s := &stubSummarizer{}
	p, obs, stages := newPipeline(t, r, s)

	res := p.Scan(context.Background(), types.ScanRequest{FilePath: filepath.Join(t.TempDir(), "nonexistent_file.txt")})
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "File not found")
	assert.Nil(t, res.LLMSummary)
	assert.Nil(t, res.RawReport)
	assert.Zero(t, r.calls, "the tool must not run for a missing file")
	assert.Zero(t, s.calls)
	assert.Equal(t, []string{string(scanerror.FileNotFound)}, obs.outcomes)
	assert.Equal(t, []Stage{StageDone}, *stages)
}

func TestScan_RunnerErrors(t *testing.T) {
	for _, kind := range []scanerror.Kind{scanerror.ToolNotInstalled, scanerror.Timeout, scanerror.ToolExecutionFailed, scanerror.UnexpectedError} {
		t.Run(string(kind), func(t *testing.T) {
			s := &stubSummarizer{}
			r := &stubRunner{name: "safety", err: scanerror.New(kind, "safety failed: %s", kind)}
			p, obs, _ := newPipeline(t, r, s)

			res, err := p.ScanErr(context.Background(), types.ScanRequest{FilePath: manifest(t)})
			require.Error(t, err)
			assert.Equal(t, kind, scanerror.KindOf(err))
			require.NotNil(t, res.Error)
			assert.Equal(t, "safety failed: "+string(kind), *res.Error)
			assert.Nil(t, res.LLMSummary)
			assert.Nil(t, res.RawReport)
			assert.False(t, res.VulnerabilitiesFound)
			assert.Zero(t, s.calls)
			assert.Equal(t, []string{string(kind)}, obs.outcomes)
		})
	}
}

func TestScan_InvalidJSON(t *testing.T) {
	s := &stubSummarizer{}
	p, _, _ := newPipeline(t, &stubRunner{name: "safety", stdout: "This is not valid JSON"}, s)

	res, err := p.ScanErr(context.Background(), types.ScanRequest{FilePath: manifest(t)})
	assert.Equal(t, scanerror.MalformedOutput, scanerror.KindOf(err))
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "Failed to parse safety output as JSON")
	assert.Contains(t, *res.Error, "This is not valid JSON")
	assert.Nil(t, res.LLMSummary)
	assert.JSONEq(t, `{"raw_output":"This is not valid JSON"}`, marshal(t, res.RawReport))
	assert.Zero(t, s.calls)
}

func TestScan_ToolReportedError(t *testing.T) {
	p, _, _ := newPipeline(t, &stubRunner{name: "safety", exit: 1, stdout: `{"error":"invalid API key"}`}, &stubSummarizer{})

	res, err := p.ScanErr(context.Background(), types.ScanRequest{FilePath: manifest(t)})
	assert.Equal(t, scanerror.ToolExecutionFailed, scanerror.KindOf(err))
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "invalid API key")
	assert.Nil(t, res.LLMSummary)
}

func TestScan_Panic(t *testing.T) {
	p, obs, stages := newPipeline(t, &stubRunner{name: "safety", panic: "boom"}, &stubSummarizer{})

	var res *types.ScanResult
	require.NotPanics(t, func() {
		res = p.Scan(context.Background(), types.ScanRequest{FilePath: manifest(t)})
	})
	require.NotNil(t, res)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "Unexpected error during invoke step (after validated stage): boom")
	assert.Contains(t, *res.Error, "goroutine")
	assert.Nil(t, res.LLMSummary)
	assert.Equal(t, []string{string(scanerror.UnexpectedError)}, obs.outcomes)
	assert.Equal(t, StageDone, (*stages)[len(*stages)-1])
}

type panickingSummarizer struct{}

func (panickingSummarizer) Summarize(context.Context, []types.SimplifiedDependency) string {
	panic("llm client bug")
}

func TestScan_PanicNamesStepInProgress(t *testing.T) {
	r := &stubRunner{name: "safety", stdout: `[{"package":"django","installed":"1.8","id":"1"}]`}
	p, _, stages := newPipeline(t, r, panickingSummarizer{})

	res, err := p.ScanErr(context.Background(), types.ScanRequest{FilePath: manifest(t)})
	assert.Equal(t, scanerror.UnexpectedError, scanerror.KindOf(err))
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "Unexpected error during summarize step (after classified stage): llm client bug")
	assert.Nil(t, res.LLMSummary)
	assert.Equal(t, []Stage{StageValidated, StageInvoked, StageParsed, StageClassified, StageDone}, *stages)
}

func TestScan_ExactlyOneOfSummaryOrError(t *testing.T) {
	for _, r := range []*stubRunner{
		{name: "safety", stdout: "[]"},
		{name: "safety", stdout: `[{"package":"a","installed":"1"}]`},
		{name: "safety", stdout: "{"},
		{name: "safety", err: scanerror.New(scanerror.Timeout, "timed out")},
	} {
		p, _, _ := newPipeline(t, r, &stubSummarizer{reply: "s"})
		res := p.Scan(context.Background(), types.ScanRequest{FilePath: manifest(t)})
		assert.True(t, (res.LLMSummary == nil) != (res.Error == nil), "stdout %q", r.stdout)
	}
}

func TestNew(t *testing.T) {
	_, err := New(Opts{Summarizer: &stubSummarizer{}})
	assert.Error(t, err)
	_, err = New(Opts{Runner: &stubRunner{}})
	assert.Error(t, err)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "classified", StageClassified.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
