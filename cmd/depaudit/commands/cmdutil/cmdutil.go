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

// Package cmdutil holds the flags and config loading shared by the commands.
package cmdutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/venslabs/depaudit/pkg/config"
	"github.com/venslabs/depaudit/pkg/llm"
	"github.com/venslabs/depaudit/pkg/scanner"
)

// ErrSilentExit makes main exit with status 1 without logging: the command
// already reported the outcome.
var ErrSilentExit = errors.New("silent exit")

const FlagConfigFile = "config-file"

// AddConfigFlags registers the flags understood by LoadConfig. Defaults are
// shown for help only; a flag overrides the config file and the environment
// only when it is set explicitly.
func AddConfigFlags(flags *pflag.FlagSet) {
	def := config.Default()
	flags.String(FlagConfigFile, "", "Path to a config.yaml file")
	flags.String(config.FlagTool, def.Scanner.Tool,
		fmt.Sprintf("Audit tool preset (%s) [$DEPAUDIT_TOOL]", strings.Join(scanner.Names(), ", ")))
	flags.String(config.FlagCommand, "",
		"Custom audit command line, e.g. 'osv-scanner --format json -L {manifest}' [$DEPAUDIT_COMMAND]")
	flags.Duration(config.FlagTimeout, def.Scanner.Timeout, "Audit tool timeout [$DEPAUDIT_TIMEOUT]")
	flags.String(config.FlagLLM, def.LLM.Backend,
		fmt.Sprintf("LLM backend (auto, %s) [$DEPAUDIT_LLM]", strings.Join(llm.Names, ", ")))
	flags.String(config.FlagLLMModel, "", "LLM model, empty for the backend default [$DEPAUDIT_LLM_MODEL]")
	flags.Duration(config.FlagLLMTimeout, def.LLM.Timeout, "LLM request timeout [$DEPAUDIT_LLM_TIMEOUT]")
	flags.String(config.FlagLLMDebugDir, "", "Directory to write the LLM prompts to [$DEPAUDIT_LLM_DEBUG_DIR]")
}

// LoadConfig layers defaults, the config file, the environment and the
// flags of cmd, then validates the result.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString(FlagConfigFile)
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.ApplyEnv()

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	c.ApplyFlags(v)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
