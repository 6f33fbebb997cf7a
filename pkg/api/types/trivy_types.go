package types

// TrivyVulnerability is a subset of the vulnerability of a Trivy JSON report,
// see https://pkg.go.dev/github.com/aquasecurity/trivy@v0.67.2/pkg/types
type TrivyVulnerability struct {
	VulnerabilityID  string   `json:",omitempty"`
	PkgID            string   `json:",omitempty"`
	PkgName          string   `json:",omitempty"`
	InstalledVersion string   `json:",omitempty"`
	FixedVersion     string   `json:",omitempty"` // comma separated, e.g. "2.2.13, 3.0.7"
	Title            string   `json:",omitempty"`
	Description      string   `json:",omitempty"`
	Severity         string   `json:",omitempty"`
	CweIDs           []string `json:",omitempty"`
}
