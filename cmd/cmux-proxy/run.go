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
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lawrencecchen/cmux-proxy/internal/logging"
	"github.com/lawrencecchen/cmux-proxy/internal/metrics"
	"github.com/lawrencecchen/cmux-proxy/proxy"
)

// runServe wires the logger, metrics registry, and listener supervisor
// together and blocks until ctx is canceled (by a SIGINT/SIGTERM caught
// in main). A listener that fails to bind is logged and the others keep
// serving; runServe returns early only when no listener bound at all.
func runServe(ctx context.Context, opts runOptions) error {
	logger := logging.New()
	defer logger.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	var metricsSrv *http.Server
	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: opts.metricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", zap.Error(err))
			}
		}()
		logger.Info("metrics listening", zap.String("addr", opts.metricsAddr))
	}

	sup := proxy.NewSupervisor(proxy.Config{
		UpstreamHost: opts.upstreamHost,
		Logger:       logger,
		Metrics:      recorder,
	})

	bound, err := sup.Start(opts.listen)
	if err != nil {
		if len(bound) == 0 {
			return fmt.Errorf("starting listeners: %w", err)
		}
		logger.Error("some listeners failed to bind", zap.Error(err))
	}
	for _, addr := range bound {
		logger.Info("listening", zap.String("addr", addr))
	}

	err = sup.Wait(ctx, opts.drainTimeout)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.drainTimeout)
		defer cancel()
		if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("metrics server shutdown", zap.Error(serr))
		}
	}

	return err
}
