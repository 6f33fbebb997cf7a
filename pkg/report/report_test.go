package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venslabs/depaudit/pkg/api/types"
	"github.com/venslabs/depaudit/pkg/scanerror"
)

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(b)
}

func TestParse_Example(t *testing.T) {
	out := `{"dependencies":[{"name":"django","version":"1.8","vulns":[{"fix_versions":["2.2.13"],"description":"SQLi"}]}]}`

	rep, err := Parse("pip-audit", out)
	require.NoError(t, err)
	assert.True(t, rep.VulnerabilitiesFound)
	assert.Equal(t, SchemaDependencies, rep.Schema)
	assert.Equal(t, 1, rep.VulnerabilityCount)
	assert.Equal(t, 1, rep.PackageCount())
	assert.Equal(t, []types.VulnerableDependency{{
		Name:               "django",
		Version:            "1.8",
		Ecosystem:          "pypi",
		VulnerabilityCount: 1,
		ExampleDescription: "SQLi",
		RecommendedVersion: "2.2.13",
	}}, rep.Dependencies)

	b, err := json.Marshal(types.Compact(rep.Dependencies))
	require.NoError(t, err)
	assert.JSONEq(t, `{"dependencies":[{"name":"django","version":"1.8","vulnerability_count":1}]}`, string(b))
}

func TestParse_PipAudit(t *testing.T) {
	rep, err := Parse("pip-audit", readTestdata(t, "pip_audit.json"))
	require.NoError(t, err)
	require.True(t, rep.VulnerabilitiesFound)
	assert.Equal(t, 3, rep.VulnerabilityCount)
	require.Equal(t, 2, rep.PackageCount())

	django := rep.Dependencies[0]
	assert.Equal(t, "django", django.Name)
	assert.Equal(t, 2, django.VulnerabilityCount)
	assert.Equal(t, []string{"PYSEC-2020-73", "PYSEC-2021-9"}, django.VulnerabilityIDs)
	assert.Equal(t, "SQL injection in QuerySet.order_by", django.ExampleDescription)
	// lexicographic, across both records
	assert.Equal(t, "3.1.6", django.RecommendedVersion)

	assert.Equal(t, "requests", rep.Dependencies[1].Name)
	assert.Equal(t, "2.20.0", rep.Dependencies[1].RecommendedVersion)
}

func TestParse_SafetyVulnerabilities(t *testing.T) {
	rep, err := Parse("safety", readTestdata(t, "safety_vulnerabilities.json"))
	require.NoError(t, err)
	assert.Equal(t, SchemaVulnerabilities, rep.Schema)
	assert.Equal(t, 3, rep.VulnerabilityCount)
	require.Equal(t, 2, rep.PackageCount())

	jinja := rep.Dependencies[0]
	assert.Equal(t, "jinja2", jinja.Name)
	assert.Equal(t, "2.10", jinja.Version)
	assert.Equal(t, 2, jinja.VulnerabilityCount)
	assert.Equal(t, "2.11.3", jinja.RecommendedVersion)
	assert.Equal(t, "Sandbox escape via str.format_map", jinja.ExampleDescription)
	assert.Equal(t, "urllib3", rep.Dependencies[1].Name)
}

func TestParse_Trivy(t *testing.T) {
	rep, err := Parse("trivy", readTestdata(t, "trivy.json"))
	require.NoError(t, err)
	assert.Equal(t, SchemaTrivy, rep.Schema)
	assert.Equal(t, 2, rep.VulnerabilityCount)
	require.Equal(t, 1, rep.PackageCount())

	flask := rep.Dependencies[0]
	assert.Equal(t, "2.3.2", flask.RecommendedVersion)
	assert.Equal(t, "pypi", flask.Ecosystem)
	assert.Equal(t, []string{"CVE-2023-30861", "CVE-2024-1234"}, flask.VulnerabilityIDs)
	assert.Equal(t, "Possible disclosure of permanent session cookie", flask.ExampleDescription)
}

func TestParse_LegacyList(t *testing.T) {
	out := `[
		{"package": "django", "installed": "1.8", "affected": "<2.2.13", "id": "12345", "vulnerability": "SQL injection vulnerability"},
		["django", "<1.11.29", "1.8", "Potential SQL injection via StringAgg", "38010"],
		{"package": "pyyaml", "installed": "5.1", "id": "38100", "vulnerability": "Arbitrary code execution", "fixed_versions": "5.4"}
	]`
	rep, err := Parse("safety", out)
	require.NoError(t, err)
	assert.Equal(t, SchemaLegacyList, rep.Schema)
	assert.Equal(t, 3, rep.VulnerabilityCount)
	require.Equal(t, 2, rep.PackageCount())

	django := rep.Dependencies[0]
	assert.Equal(t, 2, django.VulnerabilityCount)
	assert.Equal(t, []string{"12345", "38010"}, django.VulnerabilityIDs)
	assert.Equal(t, types.NoFixAvailable, django.RecommendedVersion)
	assert.Equal(t, "5.4", rep.Dependencies[1].RecommendedVersion)
}

func TestParse_ScanTargetCounter(t *testing.T) {
	rep, err := Parse("safety", `{"scan_target": {"vulnerabilities_found": 4}}`)
	require.NoError(t, err)
	assert.True(t, rep.VulnerabilitiesFound)
	assert.Equal(t, SchemaScanTarget, rep.Schema)
	assert.Equal(t, 4, rep.VulnerabilityCount)
	assert.Equal(t, 0, rep.PackageCount())
}

func TestParse_FilesIssues(t *testing.T) {
	out := `{"files": [
		{"location": "a/requirements.txt", "issues": []},
		{"location": "b/requirements.txt", "issues": [{"package_name": "numpy", "analyzed_version": "1.15.0", "advisory": "Pickle RCE", "fix_versions": ["1.16.3", "1.16.10"]}]}
	]}`
	rep, err := Parse("safety", out)
	require.NoError(t, err)
	assert.Equal(t, SchemaFiles, rep.Schema)
	assert.Equal(t, 1, rep.VulnerabilityCount)
	require.Equal(t, 1, rep.PackageCount())
	// "1.16.3" > "1.16.10" as strings
	assert.Equal(t, "1.16.3", rep.Dependencies[0].RecommendedVersion)
}

func TestParse_RuleOrder(t *testing.T) {
	// dependencies wins over vulnerabilities when both have findings
	out := `{
		"dependencies": [{"name": "a", "version": "1", "issues": [{"id": "X"}]}],
		"vulnerabilities": [{"package_name": "b", "analyzed_version": "2"}, {"package_name": "c"}]
	}`
	rep, err := Parse("tool", out)
	require.NoError(t, err)
	assert.Equal(t, SchemaDependencies, rep.Schema)
	assert.Equal(t, 1, rep.VulnerabilityCount)

	// empty dependencies fall through to the next rule
	out = `{"dependencies": [{"name": "a", "version": "1", "vulns": []}], "scan_target": {"vulnerabilities_found": 2}}`
	rep, err = Parse("tool", out)
	require.NoError(t, err)
	assert.Equal(t, SchemaScanTarget, rep.Schema)
}

func TestParse_MistypedSiblingEntries(t *testing.T) {
	tests := []struct {
		name      string
		out       string
		schema    Schema
		count     int
		wantNames []string
	}{
		{
			name:      "dependency with numeric version",
			out:       `{"dependencies":[{"name":"django","version":"1.8","vulns":[{"id":"X"}]},{"name":"odd","version":1.0}]}`,
			schema:    SchemaDependencies,
			count:     1,
			wantNames: []string{"django"},
		},
		{
			name:      "numeric version on a vulnerable dependency",
			out:       `{"dependencies":[{"name":"numpy","version":1.15,"vulns":[{"id":"Y"}]}]}`,
			schema:    SchemaDependencies,
			count:     1,
			wantNames: []string{"numpy"},
		},
		{
			name:      "junk dependency entry",
			out:       `{"dependencies":["junk",{"name":"django","version":"1.8","vulns":[{"id":"X"}]}]}`,
			schema:    SchemaDependencies,
			count:     1,
			wantNames: []string{"django"},
		},
		{
			name:      "vulns is not a list",
			out:       `{"dependencies":[{"name":"a","version":"1","vulns":"n/a"},{"name":"b","version":"2","issues":[{"id":"Z"}]}]}`,
			schema:    SchemaDependencies,
			count:     1,
			wantNames: []string{"b"},
		},
		{
			name:      "junk file entry",
			out:       `{"files":[1,{"issues":[{"package_name":"a"}]}]}`,
			schema:    SchemaFiles,
			count:     1,
			wantNames: []string{"a"},
		},
		{
			name:      "trivy result with mistyped sibling",
			out:       `{"SchemaVersion":"two","Results":[{"Type":"pip","Vulnerabilities":[{"VulnerabilityID":"CVE-1","PkgName":"jinja2","InstalledVersion":"2.10"},{"VulnerabilityID":7}]},"junk"]}`,
			schema:    SchemaTrivy,
			count:     1,
			wantNames: []string{"jinja2"},
		},
		{
			name:   "fractional counter",
			out:    `{"scan_target":{"vulnerabilities_found":0.5}}`,
			schema: SchemaScanTarget,
			count:  1,
		},
		{
			name:   "huge counter",
			out:    `{"scan_target":{"vulnerabilities_found":1e300}}`,
			schema: SchemaScanTarget,
			count:  maxCount,
		},
		{
			name:   "string counter",
			out:    `{"scan_target":{"vulnerabilities_found":"3"}}`,
			schema: SchemaScanTarget,
			count:  3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := Parse("tool", tt.out)
			require.NoError(t, err)
			assert.True(t, rep.VulnerabilitiesFound)
			assert.Equal(t, tt.schema, rep.Schema)
			assert.Equal(t, tt.count, rep.VulnerabilityCount)
			var names []string
			for _, d := range rep.Dependencies {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestCounter(t *testing.T) {
	for in, want := range map[counter]int{
		0:    0,
		-2:   0,
		0.1:  1,
		2:    2,
		2.5:  3,
		1e10: maxCount,
	} {
		assert.Equal(t, want, in.count(), "%v", float64(in))
	}
	assert.Zero(t, counter(math.NaN()).count())
	assert.Equal(t, maxCount, counter(math.Inf(1)).count())
}

func TestParse_Clean(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantRaw json.RawMessage
	}{
		{"empty output", "", nil},
		{"whitespace", "  \n", nil},
		{"empty list", "[]", json.RawMessage("[]")},
		{"pip-audit clean", `{"dependencies":[{"name":"flask","version":"3.0.0","vulns":[]}],"fixes":[]}`, nil},
		{"safety clean", `{"vulnerabilities":[],"scan_target":{"vulnerabilities_found":0}}`, nil},
		{"unknown object", `{"hello":"world"}`, nil},
		{"scalar", `42`, json.RawMessage("42")},
		{"wrong types", `{"dependencies":"many","vulnerabilities":7,"files":{"x":1}}`, nil},
		{"error false", `{"error": false}`, nil},
		{"negative counter", `{"scan_target":{"vulnerabilities_found":-1}}`, nil},
		{"non-numeric counter", `{"scan_target":{"vulnerabilities_found":"many"}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := Parse("tool", tt.out)
			require.NoError(t, err)
			assert.False(t, rep.VulnerabilitiesFound)
			assert.Zero(t, rep.VulnerabilityCount)
			assert.Empty(t, rep.Dependencies)
			assert.Empty(t, rep.Schema)
			if tt.wantRaw != nil {
				assert.Equal(t, tt.wantRaw, rep.Raw)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("safety", "This is not valid JSON")
	require.Error(t, err)
	assert.Equal(t, scanerror.MalformedOutput, scanerror.KindOf(err))
	assert.Contains(t, err.Error(), "Failed to parse safety output as JSON")
	assert.Contains(t, err.Error(), "This is not valid JSON")
}

func TestParse_ErrorIndicator(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"string", `{"error": "Authentication required"}`, "Authentication required"},
		{"flag with message", `{"error": true, "message": "invalid requirement"}`, "invalid requirement"},
		{"object", `{"error": {"code": 3}}`, `{"code": 3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("safety", tt.out)
			require.Error(t, err)
			assert.Equal(t, scanerror.ToolExecutionFailed, scanerror.KindOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	out := readTestdata(t, "pip_audit.json")
	a, err := Parse("pip-audit", out)
	require.NoError(t, err)
	b, err := Parse("pip-audit", out)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHighestVersion(t *testing.T) {
	assert.Equal(t, types.NoFixAvailable, highestVersion(nil))
	assert.Equal(t, types.NoFixAvailable, highestVersion([]string{"", " "}))
	assert.Equal(t, "9.0", highestVersion([]string{"10.0", "9.0"}))
	assert.Equal(t, "2.2.13", highestVersion([]string{"2.2.13", "2.2.1", ""}))
}
