package report

import (
	"slices"
	"strings"

	"github.com/venslabs/depaudit/pkg/api/types"
)

const (
	unknownPackage   = "unknown"
	defaultEcosystem = "pypi"
)

type depKey struct {
	name, version string
}

// aggregator groups vulnerability records by dependency, keeping first-seen order.
type aggregator struct {
	order []depKey
	deps  map[depKey]*types.VulnerableDependency
	fixes map[depKey][]string
}

func newAggregator() *aggregator {
	return &aggregator{
		deps:  make(map[depKey]*types.VulnerableDependency),
		fixes: make(map[depKey][]string),
	}
}

func (a *aggregator) add(name, version, ecosystem string, recs ...vulnRecord) {
	if name == "" {
		name = unknownPackage
	}
	if ecosystem == "" {
		ecosystem = defaultEcosystem
	}
	k := depKey{name: name, version: version}
	d, ok := a.deps[k]
	if !ok {
		d = &types.VulnerableDependency{Name: name, Version: version, Ecosystem: ecosystem}
		a.deps[k] = d
		a.order = append(a.order, k)
	}
	for _, r := range recs {
		d.VulnerabilityCount++
		if r.ID != "" {
			d.VulnerabilityIDs = append(d.VulnerabilityIDs, r.ID)
		}
		if d.ExampleDescription == "" {
			d.ExampleDescription = r.Description
		}
		a.fixes[k] = append(a.fixes[k], r.FixVersions...)
	}
}

// addRecords groups records that carry their own package and version.
func (a *aggregator) addRecords(ecosystem string, recs []vulnRecord) {
	for _, r := range recs {
		a.add(r.Package, r.Version, ecosystem, r)
	}
}

func (a *aggregator) result() []types.VulnerableDependency {
	out := make([]types.VulnerableDependency, 0, len(a.order))
	for _, k := range a.order {
		d := *a.deps[k]
		d.RecommendedVersion = highestVersion(a.fixes[k])
		out = append(out, d)
	}
	return out
}

// highestVersion returns the lexicographic maximum of versions, ignoring
// blanks. Plain string order, so "9.0" > "10.0".
func highestVersion(versions []string) string {
	versions = slices.DeleteFunc(slices.Clone(versions), func(v string) bool {
		return strings.TrimSpace(v) == ""
	})
	if len(versions) == 0 {
		return types.NoFixAvailable
	}
	return slices.Max(versions)
}
