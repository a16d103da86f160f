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

package proxy

import (
	"net"
	"net/http"
)

// Server is an http.Handler that classifies and dispatches every
// inbound request to the HTTP forwarder, the upgrade tunnel, or the
// CONNECT tunnel. One Server is shared by every listener the
// supervisor binds, because its upstream client pool must be shared
// across all of them (see spec §5, "Shared resources").
type Server struct {
	cfg    Config
	client *http.Client
}

// NewServer builds a Server ready to be handed to any number of
// http.Server instances. The returned Server owns a pooled HTTP/1.1
// client: 5s connect timeout, up to 8 idle keep-alive connections per
// host, body streaming left to the transport (no in-memory buffering).
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()

	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: idleConnsPerHost,
		ForceAttemptHTTP2:   false,
	}

	return &Server{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
	}
}

// ServeHTTP implements the three-way dispatch from spec §4.D: CONNECT,
// then upgrade, then plain HTTP forwarding.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// net/http moves the Host header out of r.Header into r.Host; put it
	// back so routing.Resolve can apply the Host-subdomain fallback.
	if r.Header.Get("Host") == "" && r.Host != "" {
		r.Header.Set("Host", r.Host)
	}

	switch Classify(r) {
	case ClassConnect:
		s.handleConnect(w, r)
	case ClassUpgrade:
		s.handleUpgrade(w, r)
	default:
		s.handleHTTP(w, r)
	}
}

// writePlainText writes a minimal plain-text diagnostic response; used
// for the 400/502 error paths across §4.E/F/G.
func writePlainText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
