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

// Package proxy implements the header-driven multiplexing reverse
// proxy: request classification, HTTP forwarding, upgrade tunneling,
// and CONNECT tunneling, plus the multi-listener supervisor that binds
// and drains them.
package proxy

import (
	"time"

	"go.uber.org/zap"

	"github.com/lawrencecchen/cmux-proxy/internal/metrics"
)

// connectTimeout bounds both the shared HTTP client's dial and the raw
// CONNECT tunnel's dial, so the one constant governs both paths.
const connectTimeout = 5 * time.Second

// idleConnsPerHost is the shared client's keep-alive pool size.
const idleConnsPerHost = 8

// Config is the immutable configuration shared by every listener
// instance. It lives for the full process lifetime: created at
// startup, discarded at shutdown.
type Config struct {
	// UpstreamHost is the default upstream host used when a request
	// supplies no workspace routing header and no Host-subdomain
	// fallback applies.
	UpstreamHost string

	// Logger receives structured events for every stage of request
	// handling. A nil Logger is replaced with zap.NewNop() by NewServer
	// and NewSupervisor.
	Logger *zap.Logger

	// Metrics records request/tunnel counters. A nil Metrics is valid;
	// every Recorder method tolerates a nil receiver.
	Metrics *metrics.Recorder
}

// withDefaults returns a copy of c with nil fields replaced by no-op
// defaults, so call sites never need to nil-check.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
