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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const wildcardIPv4 = "0.0.0.0"

// Supervisor binds a set of listen addresses and runs one HTTP/1.1
// server per surviving address, all sharing a single Server (and thus
// a single upstream client pool). It owns their combined lifetime.
type Supervisor struct {
	cfg     Config
	server  *Server
	servers []*http.Server
}

// NewSupervisor builds a Supervisor around cfg. Use Start to bind and
// serve.
func NewSupervisor(cfg Config) *Supervisor {
	cfg = cfg.withDefaults()
	return &Supervisor{
		cfg:    cfg,
		server: NewServer(cfg),
	}
}

// Start deduplicates addrs, binds an HTTP/1.1-only server on each
// survivor, and begins accepting immediately. It returns the addresses
// actually bound (post-OS assignment for port-zero binds) alongside a
// joined error naming every address that failed to bind (spec §7,
// ConfigError): a bind failure is fatal for that one address, but
// sibling listeners that already bound keep running and serving.
func (sup *Supervisor) Start(addrs []string) ([]string, error) {
	survivors := dedupeListenAddrs(addrs)

	var bound []string
	var listeners []net.Listener
	var errs []error
	for _, addr := range survivors {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			sup.cfg.Logger.Error("listener bind failed", zap.String("addr", addr), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}
		listeners = append(listeners, ln)
		bound = append(bound, ln.Addr().String())
		sup.cfg.Logger.Info("listener bound", zap.String("addr", ln.Addr().String()))
	}

	for _, ln := range listeners {
		srv := &http.Server{
			Handler:     sup.server,
			ReadTimeout: 0,
		}
		sup.servers = append(sup.servers, srv)
		go func(ln net.Listener, srv *http.Server) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sup.cfg.Logger.Error("listener exited", zap.String("addr", ln.Addr().String()), zap.Error(err))
			}
		}(ln, srv)
	}

	return bound, errors.Join(errs...)
}

// Wait blocks until ctx is canceled, then gracefully drains every
// server concurrently (stop accepting, let in-flight requests finish;
// upgraded tunnels live on until their own termination) and returns
// once all of them have exited.
func (sup *Supervisor) Wait(ctx context.Context, drainTimeout time.Duration) error {
	<-ctx.Done()

	var g errgroup.Group
	for _, srv := range sup.servers {
		srv := srv
		g.Go(func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	err := g.Wait()
	sup.cfg.Logger.Info("all listeners drained")
	return err
}

// dedupeListenAddrs applies spec §4.H's rule: if any entry for port P
// has the IPv4 wildcard 0.0.0.0, every other IPv4 entry on port P is
// dropped (it would otherwise fail to bind as "address already in
// use"); non-IPv4 entries (e.g. IPv6) always pass through, and
// everything else is deduped by (ip, port).
type listenAddr struct {
	raw    string
	host   string
	port   string
	isIPv4 bool
	isWild bool
}

func dedupeListenAddrs(addrs []string) []string {
	type key struct{ host, port string }

	wildcardPorts := map[string]bool{}
	parsed := make([]listenAddr, 0, len(addrs))

	for _, addr := range addrs {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			// Not a host:port pair we can classify; pass through
			// unfiltered rather than drop silently.
			parsed = append(parsed, listenAddr{raw: addr})
			continue
		}

		ip := net.ParseIP(host)
		isIPv4 := ip != nil && ip.To4() != nil
		isWild := isIPv4 && host == wildcardIPv4
		if isWild {
			wildcardPorts[port] = true
		}

		parsed = append(parsed, listenAddr{raw: addr, host: host, port: port, isIPv4: isIPv4, isWild: isWild})
	}

	seen := map[key]bool{}
	var out []string
	for _, p := range parsed {
		if p.host == "" && p.port == "" {
			out = append(out, p.raw)
			continue
		}
		if !p.isIPv4 {
			out = append(out, p.raw)
			continue
		}
		if wildcardPorts[p.port] && !p.isWild {
			continue
		}
		k := key{host: p.host, port: p.port}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p.raw)
	}
	return out
}
