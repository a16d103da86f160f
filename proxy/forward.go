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
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/lawrencecchen/cmux-proxy/internal/routing"
)

// handleHTTP implements the plain HTTP/1.1 forwarding path (spec §4.E).
func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	dec, rerr := routing.Resolve(r.Header, s.cfg.UpstreamHost)
	if rerr != nil {
		writePlainText(w, http.StatusBadRequest, rerr.Error())
		return
	}

	outreq, err := s.buildUpstreamRequest(r, dec, false)
	if err != nil {
		writePlainText(w, http.StatusBadGateway, "failed to build upstream request: "+err.Error())
		return
	}

	s.cfg.Logger.Debug("proxy http",
		zap.String("remote", r.RemoteAddr),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("upstream", outreq.URL.Host),
	)

	resp, err := s.client.Do(outreq)
	if err != nil {
		s.cfg.Metrics.ObserveRequest(r.Method, http.StatusBadGateway)
		writePlainText(w, http.StatusBadGateway, fmt.Sprintf("upstream request error: %v", err))
		return
	}
	defer resp.Body.Close()

	routing.StripHopByHop(resp.Header, false)
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)

	s.cfg.Metrics.ObserveRequest(r.Method, resp.StatusCode)
}

// buildUpstreamRequest rewrites r into a request addressed at the
// resolved upstream, carrying every original header except the two
// internal routing headers, with hop-by-hop headers applied per
// preserveUpgrade. The original body is forwarded unread and
// unbuffered.
func (s *Server) buildUpstreamRequest(r *http.Request, dec routing.Decision, preserveUpgrade bool) (*http.Request, error) {
	pathAndQuery := r.URL.RequestURI()
	if pathAndQuery == "" {
		pathAndQuery = "/"
	}
	url := fmt.Sprintf("http://%s:%d%s", dec.Host, dec.Port, pathAndQuery)

	outreq, err := http.NewRequestWithContext(r.Context(), r.Method, url, r.Body)
	if err != nil {
		return nil, err
	}
	outreq.Header = r.Header.Clone()
	outreq.ContentLength = r.ContentLength
	outreq.Host = r.Host

	routing.StripHopByHop(outreq.Header, preserveUpgrade)
	return outreq, nil
}

// copyHeader copies every header from src to dst, matching the
// reverse-proxy convention of replacing rather than appending
// pre-existing entries for any given key.
func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		dst.Del(k)
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
