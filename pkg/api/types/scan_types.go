package types

// NoFixAvailable is reported as the recommended version when no vulnerability
// record of a dependency carries a fix version.
const NoFixAvailable = "Not available"

// ScanRequest names the dependency manifest to scan.
type ScanRequest struct {
	FilePath string `json:"file_path"`
}

// ScanResult is the caller-facing outcome of one scan.
//
// RawReport holds the compacted report once vulnerabilities are found, the
// parsed tool output on a clean scan, and {"raw_output": ...} when the tool
// output could not be parsed. It is nil otherwise.
type ScanResult struct {
	VulnerabilitiesFound bool    `json:"vulnerabilities_found"`
	VulnerabilityCount   int     `json:"vulnerability_count"`
	PackageCount         int     `json:"package_count"`
	RawReport            any     `json:"raw_report"`
	LLMSummary           *string `json:"llm_summary"`
	Error                *string `json:"error"`

	// Dependencies keeps the full per-dependency findings for renderers.
	// Never serialized, so the payload stays bounded.
	Dependencies []VulnerableDependency `json:"-"`
}

// VulnerableDependency aggregates every vulnerability record of one package.
type VulnerableDependency struct {
	Name               string
	Version            string
	Ecosystem          string
	VulnerabilityCount int
	VulnerabilityIDs   []string
	ExampleDescription string
	// RecommendedVersion is the lexicographic maximum of all fix versions.
	// It is not SemVer-aware: "9.0" sorts above "10.0".
	RecommendedVersion string
}

// CompactReport replaces the raw tool report once findings exist.
type CompactReport struct {
	Dependencies []CompactDependency `json:"dependencies"`
}

type CompactDependency struct {
	Name               string `json:"name"`
	Version            string `json:"version"`
	VulnerabilityCount int    `json:"vulnerability_count"`
}

// SimplifiedDependency is what the summarizer sees of a dependency.
type SimplifiedDependency struct {
	Package            string `json:"package"`
	CurrentVersion     string `json:"current_version"`
	VulnerabilityCount int    `json:"vulnerability_count"`
	RecommendedUpgrade string `json:"recommended_upgrade"`
	ExampleDescription string `json:"example_description,omitempty"`
}

// Compact builds the size-bounded report of the given dependencies.
func Compact(deps []VulnerableDependency) *CompactReport {
	r := &CompactReport{Dependencies: make([]CompactDependency, 0, len(deps))}
	for _, d := range deps {
		r.Dependencies = append(r.Dependencies, CompactDependency{
			Name:               d.Name,
			Version:            d.Version,
			VulnerabilityCount: d.VulnerabilityCount,
		})
	}
	return r
}

// Simplify reduces the dependencies to the fields sent to the summarizer.
func Simplify(deps []VulnerableDependency) []SimplifiedDependency {
	out := make([]SimplifiedDependency, 0, len(deps))
	for _, d := range deps {
		out = append(out, SimplifiedDependency{
			Package:            d.Name,
			CurrentVersion:     d.Version,
			VulnerabilityCount: d.VulnerabilityCount,
			RecommendedUpgrade: d.RecommendedVersion,
			ExampleDescription: d.ExampleDescription,
		})
	}
	return out
}
