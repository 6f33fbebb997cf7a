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
	"strconv"
	"strings"

	"github.com/aquasecurity/table"
	"github.com/aquasecurity/tml"
	"github.com/venslabs/depaudit/pkg/api/types"
)

type tableOutputHandler struct {
	w io.Writer
	r []*types.ScanResult
}

// NewTableOutputHandler renders the vulnerable dependencies as a table
// followed by the summary.
func NewTableOutputHandler(w io.Writer) OutputHandler {
	return &tableOutputHandler{w: w}
}

func (h *tableOutputHandler) HandleResult(r *types.ScanResult) error {
	h.r = append(h.r, r)
	return nil
}

func (h *tableOutputHandler) Close() error {
	for _, r := range h.r {
		if err := h.render(r); err != nil {
			return err
		}
	}
	return nil
}

func (h *tableOutputHandler) render(r *types.ScanResult) error {
	if r.Error != nil {
		_, err := fmt.Fprintln(h.w, tml.Sprintf("<red><bold>Error:</bold></red> ")+*r.Error)
		return err
	}

	if len(r.Dependencies) > 0 {
		t := table.New(h.w)
		t.SetHeaders("Package", "Installed", "Vulnerabilities", "Recommended", "IDs")
		t.SetAlignment(table.AlignLeft, table.AlignLeft, table.AlignRight, table.AlignLeft, table.AlignLeft)
		for _, d := range r.Dependencies {
			t.AddRow(
				d.Name,
				d.Version,
				colorCount(d.VulnerabilityCount),
				colorRecommendation(d.RecommendedVersion),
				strings.Join(d.VulnerabilityIDs, "\n"),
			)
		}
		t.Render()
	}

	if r.LLMSummary != nil {
		if _, err := fmt.Fprintf(h.w, "\n%s\n", *r.LLMSummary); err != nil {
			return err
		}
	}
	return nil
}

func colorCount(n int) string {
	s := strconv.Itoa(n)
	switch {
	case n >= 5:
		return tml.Sprintf("<red><bold>%s</bold></red>", s)
	case n > 1:
		return tml.Sprintf("<red>%s</red>", s)
	default:
		return tml.Sprintf("<yellow>%s</yellow>", s)
	}
}

func colorRecommendation(v string) string {
	if v == types.NoFixAvailable {
		return tml.Sprintf("<dim>%s</dim>", v)
	}
	return tml.Sprintf("<green>%s</green>", v)
}
