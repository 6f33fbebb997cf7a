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
	"bytes"
	"encoding/json"
	"strings"
)

// vulnRecord is one vulnerability as emitted by pip-audit, safety 2.x
// (object form) or safety 1.x (array form).
type vulnRecord struct {
	ID          string
	Package     string
	Version     string
	Description string
	FixVersions []string
}

// Field names seen across tool versions, in lookup order.
var (
	idKeys          = []string{"id", "vulnerability_id"}
	packageKeys     = []string{"package_name", "package", "name"}
	versionKeys     = []string{"analyzed_version", "installed_version", "installed", "version"}
	descriptionKeys = []string{"description", "advisory", "vulnerability"}
	fixKeys         = []string{"fix_versions", "fixed_versions"}
)

func (r *vulnRecord) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		r.ID = lookupString(m, idKeys...)
		r.Package = lookupString(m, packageKeys...)
		r.Version = lookupString(m, versionKeys...)
		r.Description = lookupString(m, descriptionKeys...)
		r.FixVersions = lookupStrings(m, fixKeys...)
		return nil
	case b[0] == '[':
		// safety 1.x: [name, spec, installed version, advisory, id]
		var tuple []json.RawMessage
		if err := json.Unmarshal(b, &tuple); err != nil {
			return err
		}
		fields := make([]string, 5)
		for i := 0; i < len(tuple) && i < len(fields); i++ {
			fields[i] = asString(tuple[i])
		}
		r.Package, r.Version, r.Description, r.ID = fields[0], fields[2], fields[3], fields[4]
		return nil
	default:
		r.Description = asString(b)
		return nil
	}
}

func lookupString(m map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func lookupStrings(m map[string]json.RawMessage, keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(v, &list); err == nil {
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s := asString(item); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
		if s := asString(v); s != "" {
			return []string{s}
		}
	}
	return nil
}

// asString renders a JSON scalar as text. Strings are unquoted, numbers and
// booleans keep their literal form, anything else yields "".
func asString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	t := string(bytes.TrimSpace(v))
	if t == "" || t == "null" || t[0] == '{' || t[0] == '[' {
		return ""
	}
	return t
}
