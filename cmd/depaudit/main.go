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

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/venslabs/depaudit/cmd/depaudit/commands/cmdutil"
	"github.com/venslabs/depaudit/cmd/depaudit/commands/scan"
	"github.com/venslabs/depaudit/cmd/depaudit/commands/serve"
	"github.com/venslabs/depaudit/cmd/depaudit/version"
	"github.com/venslabs/depaudit/pkg/envutil"
	"github.com/venslabs/depaudit/pkg/server"
	"github.com/venslabs/depaudit/pkg/trivypluginutil"
)

var logLevel = new(slog.LevelVar)

func main() {
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(server.NewContextHandler(logHandler)))

	// .env must be loaded before the flag defaults read the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, cmdutil.ErrSilentExit) {
			slog.Error("Error", "error", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           trivypluginutil.CommandName(),
		Short:         "Audit dependency manifests for known vulnerabilities and summarize them",
		Example:       scan.Example(),
		Version:       version.GetVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()

	// The debug flag value is determined by: CLI flag > DEBUG env var > default (false)
	flags.Bool("debug", envutil.Bool("DEBUG", false), "debug mode [$DEBUG]")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logLevel.Set(slog.LevelDebug)
		}
		return nil
	}

	cmd.AddCommand(
		scan.New(),
		serve.New(),
	)

	return cmd
}
