// Copyright 2026 The cmux-proxy Authors
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
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	envListen       = "CMUX_PROXY_LISTEN"
	envUpstreamHost = "CMUX_PROXY_UPSTREAM_HOST"
	envMetricsAddr  = "CMUX_PROXY_METRICS_ADDR"
)

var defaultListen = []string{"0.0.0.0:8080", "127.0.0.1:8080"}

// rootCommand builds the cmux-proxy CLI. Flags default from environment
// variables, then from the values above, matching the external-config
// contract: the core engine never reads the environment itself.
func rootCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "cmux-proxy",
		Short: "Header-driven multiplexing reverse proxy for colocated workspace processes",
		Long: `cmux-proxy fronts a pool of colocated workspace processes, each
running its own HTTP/WebSocket/TCP services on ephemeral ports, behind
a single listener. Requests are dispatched to an upstream host:port
derived from the X-Cmux-Port-Internal / X-Cmux-Workspace-Internal
headers, or from a "<workspace>-<port>.localhost" Host fallback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.listen, "listen", listenDefault(), "address to listen on (repeatable)")
	flags.StringVar(&opts.upstreamHost, "upstream-host", envOr(envUpstreamHost, "127.0.0.1"), "default upstream host used when no workspace routing header applies")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", envOr(envMetricsAddr, ""), "address to serve Prometheus metrics on (empty disables)")
	flags.DurationVar(&opts.drainTimeout, "drain-timeout", 10*time.Second, "max time to wait for in-flight requests to finish per listener on shutdown")

	return cmd
}

// runOptions collects the resolved CLI configuration handed to runServe.
type runOptions struct {
	listen       []string
	upstreamHost string
	metricsAddr  string
	drainTimeout time.Duration
}

func listenDefault() []string {
	raw, ok := os.LookupEnv(envListen)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultListen
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultListen
	}
	return out
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
