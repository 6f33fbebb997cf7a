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

package outputhandler

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/package-url/packageurl-go"
	"github.com/venslabs/depaudit/pkg/api/types"
)

// NewCycloneDxVexOutputHandler returns an OutputHandler that accumulates
// vulnerable dependencies and emits a CycloneDX VEX BOM on Close.
func NewCycloneDxVexOutputHandler(w io.Writer) OutputHandler { return &cycloneDxVexWriter{w: w} }

type cycloneDxVexWriter struct {
	w      io.Writer
	deps   []types.VulnerableDependency
	closed bool
}

func (c *cycloneDxVexWriter) HandleResult(r *types.ScanResult) error {
	if r.Error != nil {
		return fmt.Errorf("cannot build a VEX document from a failed scan: %s", *r.Error)
	}
	c.deps = append(c.deps, r.Dependencies...)
	return nil
}

func (c *cycloneDxVexWriter) Close() error {
	if c.closed {
		return nil
	}
	bom := cyclonedx.NewBOM()

	comps := make([]cyclonedx.Component, 0, len(c.deps))
	var vulns []cyclonedx.Vulnerability
	// a vulnerability shared by several components is listed once
	byID := make(map[string]int)
	for _, d := range c.deps {
		ref := purl(d)
		comps = append(comps, cyclonedx.Component{
			BOMRef:     ref,
			Type:       cyclonedx.ComponentTypeLibrary,
			Name:       d.Name,
			Version:    d.Version,
			PackageURL: ref,
		})
		for _, id := range d.VulnerabilityIDs {
			affect := cyclonedx.Affects{Ref: ref}
			if i, ok := byID[id]; ok {
				*vulns[i].Affects = append(*vulns[i].Affects, affect)
				continue
			}
			byID[id] = len(vulns)
			vulns = append(vulns, cyclonedx.Vulnerability{
				BOMRef:         id + "@" + ref,
				ID:             id,
				Source:         source(id),
				Description:    d.ExampleDescription,
				Recommendation: recommendation(d.RecommendedVersion),
				Analysis:       &cyclonedx.VulnerabilityAnalysis{State: cyclonedx.IASInTriage},
				Affects:        &[]cyclonedx.Affects{affect},
			})
		}
	}
	if len(comps) > 0 {
		bom.Components = &comps
	}
	if len(vulns) > 0 {
		bom.Vulnerabilities = &vulns
	}

	enc := cyclonedx.NewBOMEncoder(c.w, cyclonedx.BOMFileFormatJSON)
	enc.SetPretty(true)
	if err := enc.Encode(bom); err != nil {
		return err
	}
	c.closed = true
	return nil
}

func purl(d types.VulnerableDependency) string {
	return packageurl.NewPackageURL(d.Ecosystem, "", d.Name, d.Version, nil, "").ToString()
}

func recommendation(v string) string {
	if v == "" || v == types.NoFixAvailable {
		return "No fixed version is available."
	}
	return fmt.Sprintf("Upgrade to version %s or higher.", v)
}

func source(id string) *cyclonedx.Source {
	switch {
	case strings.HasPrefix(id, "CVE-"):
		return &cyclonedx.Source{Name: "NVD", URL: "https://nvd.nist.gov/vuln/detail/" + id}
	case strings.HasPrefix(id, "GHSA-"):
		return &cyclonedx.Source{Name: "GitHub", URL: "https://github.com/advisories/" + id}
	case strings.HasPrefix(id, "PYSEC-"), strings.HasPrefix(id, "GO-"), strings.HasPrefix(id, "RUSTSEC-"):
		return &cyclonedx.Source{Name: "OSV", URL: "https://osv.dev/vulnerability/" + id}
	default:
		slog.Debug("No known source for vulnerability", "id", id)
		return nil
	}
}
