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

package report

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/venslabs/depaudit/pkg/api/types"
)

// Schema names the tool output variant a report was recognized as.
type Schema string

const (
	SchemaDependencies    Schema = "dependencies"
	SchemaVulnerabilities Schema = "vulnerabilities"
	SchemaScanTarget      Schema = "scan_target"
	SchemaFiles           Schema = "files"
	SchemaLegacyList      Schema = "legacy_list"
	SchemaTrivy           Schema = "trivy"
)

// findings is what a recognizer extracts from a matching report.
type findings struct {
	dependencies []types.VulnerableDependency
	// count overrides the per-dependency sum when the schema only has a counter.
	count int
}

// A recognizer interprets raw JSON as one schema variant. It reports false
// when the JSON is not that variant or when it shows no vulnerabilities.
type recognizer struct {
	schema    Schema
	recognize func(raw []byte) (*findings, bool)
}

// recognizers are tried in order; the first match wins.
var recognizers = []recognizer{
	{SchemaDependencies, recognizeDependencies},
	{SchemaVulnerabilities, recognizeVulnerabilities},
	{SchemaScanTarget, recognizeScanTarget},
	{SchemaFiles, recognizeFiles},
	{SchemaLegacyList, recognizeLegacyList},
	{SchemaTrivy, recognizeTrivy},
}

// pip-audit: {"dependencies":[{"name","version","vulns":[...]}]}
type dependencyListReport struct {
	Dependencies list[dependencyEntry] `json:"dependencies"`
}

type dependencyEntry struct {
	Name    scalar           `json:"name"`
	Version scalar           `json:"version"`
	Vulns   list[vulnRecord] `json:"vulns"`
	Issues  list[vulnRecord] `json:"issues"`
}

func recognizeDependencies(raw []byte) (*findings, bool) {
	var r dependencyListReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	agg := newAggregator()
	for _, d := range r.Dependencies {
		recs := slices.Concat(d.Vulns, d.Issues)
		if len(recs) == 0 {
			continue
		}
		agg.add(string(d.Name), string(d.Version), defaultEcosystem, recs...)
	}
	return found(agg)
}

// safety 2.x: {"vulnerabilities":[{"package_name","analyzed_version",...}]}
type vulnerabilityListReport struct {
	Vulnerabilities list[vulnRecord] `json:"vulnerabilities"`
}

func recognizeVulnerabilities(raw []byte) (*findings, bool) {
	var r vulnerabilityListReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	agg := newAggregator()
	agg.addRecords(defaultEcosystem, r.Vulnerabilities)
	return found(agg)
}

// safety 3.x summary: {"scan_target":{"vulnerabilities_found":N}}
type scanTargetReport struct {
	ScanTarget struct {
		VulnerabilitiesFound counter `json:"vulnerabilities_found"`
	} `json:"scan_target"`
}

func recognizeScanTarget(raw []byte) (*findings, bool) {
	var r scanTargetReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	n := r.ScanTarget.VulnerabilitiesFound.count()
	if n == 0 {
		return nil, false
	}
	return &findings{count: n}, true
}

// {"files":[{"location","issues":[...]}]}
type fileListReport struct {
	Files list[fileEntry] `json:"files"`
}

type fileEntry struct {
	Location scalar           `json:"location"`
	Issues   list[vulnRecord] `json:"issues"`
}

func recognizeFiles(raw []byte) (*findings, bool) {
	var r fileListReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	agg := newAggregator()
	for _, f := range r.Files {
		agg.addRecords(defaultEcosystem, f.Issues)
	}
	return found(agg)
}

// safety 1.x and early 2.x: a bare list of records.
func recognizeLegacyList(raw []byte) (*findings, bool) {
	var recs list[vulnRecord]
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false
	}
	agg := newAggregator()
	agg.addRecords(defaultEcosystem, recs)
	return found(agg)
}

// trivy: {"Results":[{"Type","Vulnerabilities":[...]}]}
type trivyReport struct {
	Results list[trivyResult] `json:"Results"`
}

type trivyResult struct {
	Type            scalar                         `json:"Type"`
	Vulnerabilities list[types.TrivyVulnerability] `json:"Vulnerabilities"`
}

func recognizeTrivy(raw []byte) (*findings, bool) {
	var r trivyReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	agg := newAggregator()
	for _, res := range r.Results {
		eco := trivyEcosystem(string(res.Type))
		for _, v := range res.Vulnerabilities {
			desc := v.Title
			if desc == "" {
				desc = v.Description
			}
			agg.add(v.PkgName, v.InstalledVersion, eco, vulnRecord{
				ID:          v.VulnerabilityID,
				Description: desc,
				FixVersions: splitFixedVersions(v.FixedVersion),
			})
		}
	}
	return found(agg)
}

func found(agg *aggregator) (*findings, bool) {
	deps := agg.result()
	if len(deps) == 0 {
		return nil, false
	}
	return &findings{dependencies: deps}, true
}

// trivyEcosystem maps a Trivy result type to a purl type.
func trivyEcosystem(t string) string {
	switch t {
	case "pip", "pipenv", "poetry", "uv", "python-pkg":
		return "pypi"
	case "npm", "yarn", "pnpm", "bun", "node-pkg":
		return "npm"
	case "gomod", "gobinary":
		return "golang"
	case "cargo", "rust-binary":
		return "cargo"
	case "composer":
		return "composer"
	case "bundler", "gemspec":
		return "gem"
	case "nuget", "dotnet-core":
		return "nuget"
	case "jar", "pom", "gradle", "sbt":
		return "maven"
	case "":
		return defaultEcosystem
	default:
		return t
	}
}

func splitFixedVersions(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
