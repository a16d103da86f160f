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
	"bufio"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/lawrencecchen/cmux-proxy/internal/routing"
)

// handleUpgrade implements the upgrade handshake and post-101 splice
// from spec §4.F. Phase 1 resolves routing, dials the upstream directly
// (not through the shared client) and writes the handshake onto that
// connection; phase 2 splits on the upstream's status; phase
// 3 hijacks both connections and splices them bidirectionally.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	dec, rerr := routing.Resolve(r.Header, s.cfg.UpstreamHost)
	if rerr != nil {
		writePlainText(w, http.StatusBadRequest, rerr.Error())
		return
	}

	target := fmt.Sprintf("%s:%d", dec.Host, dec.Port)
	dialer := net.Dialer{Timeout: connectTimeout}
	upstreamConn, err := dialer.DialContext(r.Context(), "tcp", target)
	if err != nil {
		writePlainText(w, http.StatusBadGateway, fmt.Sprintf("failed to connect to upstream: %v", err))
		return
	}

	outreq, err := s.buildUpstreamRequest(r, dec, true)
	if err != nil {
		upstreamConn.Close()
		writePlainText(w, http.StatusBadGateway, "failed to build upstream request: "+err.Error())
		return
	}

	s.cfg.Logger.Debug("proxy upgrade",
		zap.String("remote", r.RemoteAddr),
		zap.String("upstream", target),
	)

	if err := outreq.Write(upstreamConn); err != nil {
		upstreamConn.Close()
		writePlainText(w, http.StatusBadGateway, fmt.Sprintf("failed to write upgrade request upstream: %v", err))
		return
	}

	upstreamReader := bufio.NewReader(upstreamConn)
	upstreamResp, err := http.ReadResponse(upstreamReader, outreq)
	if err != nil {
		upstreamConn.Close()
		writePlainText(w, http.StatusBadGateway, fmt.Sprintf("failed to read upstream response: %v", err))
		return
	}

	if upstreamResp.StatusCode != http.StatusSwitchingProtocols {
		// Not an upgrade after all: propagate verbatim, no tunneling.
		defer upstreamConn.Close()
		defer upstreamResp.Body.Close()
		routing.StripHopByHop(upstreamResp.Header, false)
		copyHeader(w.Header(), upstreamResp.Header)
		w.WriteHeader(upstreamResp.StatusCode)
		pooledCopy(w, upstreamResp.Body)
		return
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		upstreamConn.Close()
		writePlainText(w, http.StatusInternalServerError, "connection does not support hijacking")
		return
	}

	clientConn, clientBuf, err := hj.Hijack()
	if err != nil {
		upstreamConn.Close()
		s.cfg.Logger.Warn("hijack failed", zap.Error(err))
		return
	}

	if err := write101(clientConn, upstreamResp.Header); err != nil {
		clientConn.Close()
		upstreamConn.Close()
		s.cfg.Logger.Warn("failed writing 101 to client", zap.Error(err))
		return
	}

	// Any bytes net/http already buffered past the header terminator
	// must reach upstream before the splice starts, or they are lost.
	if n := clientBuf.Reader.Buffered(); n > 0 {
		buffered, _ := clientBuf.Reader.Peek(n)
		upstreamConn.Write(buffered)
	}
	// Likewise for bytes buffered past the upstream's own header block.
	if n := upstreamReader.Buffered(); n > 0 {
		buffered, _ := upstreamReader.Peek(n)
		clientConn.Write(buffered)
	}

	s.cfg.Metrics.TunnelOpened("upgrade")
	res := splice(clientConn, upstreamConn)
	s.cfg.Metrics.TunnelClosed("upgrade")
	s.cfg.Metrics.TunnelBytes("upgrade", "client_to_upstream", res.clientToUpstream)
	s.cfg.Metrics.TunnelBytes("upgrade", "upstream_to_client", res.upstreamToClient)
	if res.err != nil {
		s.cfg.Logger.Warn("upgrade tunnel closed", zap.Error(res.err))
	}
}

// write101 writes a 101 Switching Protocols response line mirroring
// upstream's handshake headers, forcing Connection: upgrade, with an
// empty body.
func write101(conn net.Conn, upstreamHeaders http.Header) error {
	resp := &http.Response{
		StatusCode: http.StatusSwitchingProtocols,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     upstreamHeaders.Clone(),
	}
	resp.Header.Set("Connection", "upgrade")
	return resp.Write(conn)
}
