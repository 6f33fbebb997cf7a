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

package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/venslabs/depaudit/cmd/depaudit/commands/cmdutil"
	"github.com/venslabs/depaudit/pkg/audit"
	"github.com/venslabs/depaudit/pkg/config"
	"github.com/venslabs/depaudit/pkg/metrics"
	"github.com/venslabs/depaudit/pkg/scanerror"
	"github.com/venslabs/depaudit/pkg/server"
	"github.com/venslabs/depaudit/pkg/trivypluginutil"
)

func New() *cobra.Command {
	exe := trivypluginutil.CommandName()
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve scans over HTTP",
		Long: `Serve the scan pipeline over HTTP.

  POST /scan     {"file_path": "requirements.txt"} returns the scan result
  GET  /health   liveness probe
  GET  /metrics  Prometheus metrics`,
		Example: fmt.Sprintf(`  %s serve --listen-addr :8080
  curl -s -XPOST localhost:8080/scan -d '{"file_path":"requirements.txt"}'`, exe),
		Args: cobra.NoArgs,
		RunE: action,
	}

	flags := cmd.Flags()
	cmdutil.AddConfigFlags(flags)
	flags.String(config.FlagListenAddr, config.DefaultListenAddr, "Address to listen on [$DEPAUDIT_LISTEN_ADDR]")

	return cmd
}

func action(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := cmdutil.LoadConfig(cmd)
	if err != nil {
		return err
	}

	outcomes := []string{audit.OutcomeClean, audit.OutcomeVulnerable}
	for _, k := range scanerror.Kinds {
		outcomes = append(outcomes, string(k))
	}
	m := metrics.New(outcomes...)

	pipeline, err := audit.NewFromConfig(ctx, c, m)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Opts{
		Scanner:    pipeline,
		Metrics:    m,
		ListenAddr: c.Server.ListenAddr,
		// the LLM call follows the tool run
		WriteTimeout: c.Scanner.Timeout + c.LLM.Timeout + 30*time.Second,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
