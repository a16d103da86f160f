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
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/lawrencecchen/cmux-proxy/internal/routing"
)

// badGatewayRaw is written directly onto an already-hijacked connection
// when the upstream dial for a CONNECT tunnel fails, since by that
// point the HTTP response machinery has already been bypassed.
const badGatewayRaw = "HTTP/1.1 502 Bad Gateway\r\nContent-Length: 0\r\n\r\n"

// handleConnect implements spec §4.G. The target host:port comes from
// the routing headers, never from the CONNECT request-target: the
// proxy trusts its own in-band routing, not client-supplied
// authority-form.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	dec, rerr := routing.Resolve(r.Header, s.cfg.UpstreamHost)
	if rerr != nil {
		writePlainText(w, http.StatusBadRequest, rerr.Error())
		return
	}
	target := fmt.Sprintf("%s:%d", dec.Host, dec.Port)

	hj, ok := w.(http.Hijacker)
	if !ok {
		writePlainText(w, http.StatusInternalServerError, "connection does not support hijacking")
		return
	}

	// Hijack before writing anything: http.ResponseWriter buffers the
	// status line until the first body Write or Flush, and Hijack does
	// not flush that buffer, so the 200 must be written to the raw
	// connection directly, not through w.
	clientConn, _, err := hj.Hijack()
	if err != nil {
		s.cfg.Logger.Warn("hijack failed", zap.Error(err))
		return
	}

	if err := write200(clientConn); err != nil {
		clientConn.Close()
		s.cfg.Logger.Warn("failed writing 200 to client", zap.Error(err))
		return
	}

	s.cfg.Logger.Debug("tcp tunnel via CONNECT",
		zap.String("remote", r.RemoteAddr),
		zap.String("target", target),
	)

	dialer := net.Dialer{Timeout: connectTimeout}
	upstreamConn, err := dialer.DialContext(r.Context(), "tcp", target)
	if err != nil {
		s.cfg.Logger.Warn("failed to connect to upstream for CONNECT", zap.String("target", target), zap.Error(err))
		clientConn.Write([]byte(badGatewayRaw))
		clientConn.Close()
		return
	}

	s.cfg.Metrics.TunnelOpened("connect")
	res := splice(clientConn, upstreamConn)
	s.cfg.Metrics.TunnelClosed("connect")
	s.cfg.Metrics.TunnelBytes("connect", "client_to_upstream", res.clientToUpstream)
	s.cfg.Metrics.TunnelBytes("connect", "upstream_to_client", res.upstreamToClient)
	if res.err != nil {
		s.cfg.Logger.Warn("connect tunnel closed", zap.Error(res.err))
	}
}

// write200 writes the 200 OK that precedes a CONNECT tunnel splice.
// Per spec §4.G this is a plain 200, not "200 Connection Established":
// the Connection: upgrade header is what signals the impending raw
// tunnel to the client.
func write200(conn net.Conn) error {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Connection": []string{"upgrade"}},
	}
	return resp.Write(conn)
}
