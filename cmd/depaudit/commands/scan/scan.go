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

package scan

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aquasecurity/tml"
	"github.com/spf13/cobra"
	"github.com/venslabs/depaudit/cmd/depaudit/commands/cmdutil"
	"github.com/venslabs/depaudit/pkg/api/types"
	"github.com/venslabs/depaudit/pkg/audit"
	"github.com/venslabs/depaudit/pkg/outputhandler"
	"github.com/venslabs/depaudit/pkg/trivypluginutil"
)

func Example() string {
	exe := trivypluginutil.CommandName()
	return fmt.Sprintf(`  # Audit a requirements file with pip-audit and summarize the findings with OpenAI
  export OPENAI_API_KEY=...
  %s scan requirements.txt

  # Use safety and a local Ollama model
  %s scan --tool safety --llm ollama --llm-model llama3.1 requirements.txt

  # Emit a CycloneDX VEX document
  %s scan --output-format cyclonedxvex requirements.txt > vex.cdx.json
`, exe, exe, exe)
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scan [flags] MANIFEST",
		Short:   "Audit a dependency manifest",
		Long:    "Run the audit tool against MANIFEST, normalize its report and summarize the vulnerable dependencies with an LLM.",
		Example: Example(),
		Args:    cobra.ExactArgs(1),
		RunE:    action,
	}

	flags := cmd.Flags()
	cmdutil.AddConfigFlags(flags)
	flags.String("output-format", outputhandler.FormatJSON,
		fmt.Sprintf("Output format (%s)", strings.Join(outputhandler.Formats, ", ")))

	return cmd
}

func action(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	outputFormat, _ := cmd.Flags().GetString("output-format")
	handler, err := outputhandler.New(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	c, err := cmdutil.LoadConfig(cmd)
	if err != nil {
		return err
	}
	pipeline, err := audit.NewFromConfig(ctx, c, nil)
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Scanning", "file", args[0])
	res := pipeline.Scan(ctx, types.ScanRequest{FilePath: args[0]})

	if err := handler.HandleResult(res); err != nil {
		slog.ErrorContext(ctx, "Failed to render the result", "format", outputFormat, "error", err)
	} else if err := handler.Close(); err != nil {
		return fmt.Errorf("failed to write the result: %w", err)
	}

	return printStatus(cmd.ErrOrStderr(), res)
}

// printStatus writes the one-line outcome and returns cmdutil.ErrSilentExit
// when the exit status must be 1.
func printStatus(w io.Writer, res *types.ScanResult) error {
	switch {
	case res.Error != nil:
		fmt.Fprintln(w, tml.Sprintf("\n<red><bold>SCAN FAILED:</bold></red> ")+*res.Error)
		return cmdutil.ErrSilentExit
	case res.VulnerabilitiesFound:
		fmt.Fprintln(w, tml.Sprintf("\n<yellow><bold>VULNERABILITIES DETECTED:</bold></yellow> %d issues in %d package(s)",
			res.VulnerabilityCount, res.PackageCount))
		return cmdutil.ErrSilentExit
	default:
		fmt.Fprintln(w, tml.Sprintf("\n<green><bold>SCAN COMPLETE:</bold></green> No vulnerabilities found"))
		return nil
	}
}
