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

// Package metrics collects the prometheus metrics emitted by the
// proxy's request, upgrade, and CONNECT paths.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder bundles the metrics tracked for one proxy process. A nil
// *Recorder is valid and every method becomes a no-op, so callers never
// need a guard before recording.
type Recorder struct {
	requestsTotal *prometheus.CounterVec
	activeTunnels *prometheus.GaugeVec
	tunnelBytes   *prometheus.CounterVec
}

// NewRecorder builds a Recorder and registers its collectors with reg.
// Pass prometheus.NewRegistry() to keep metrics isolated per test, or
// prometheus.DefaultRegisterer in production.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	const ns = "cmuxproxy"

	r := &Recorder{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests forwarded, by method and response code.",
		}, []string{"method", "code"}),
		activeTunnels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_tunnels",
			Help:      "Number of upgrade/CONNECT tunnels currently spliced.",
		}, []string{"kind"}),
		tunnelBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "tunnel_bytes_total",
			Help:      "Bytes spliced through upgrade/CONNECT tunnels, by direction.",
		}, []string{"kind", "direction"}),
	}

	reg.MustRegister(r.requestsTotal, r.activeTunnels, r.tunnelBytes)
	return r
}

// ObserveRequest records one completed HTTP forward.
func (r *Recorder) ObserveRequest(method string, code int) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(SanitizeMethod(method), SanitizeCode(code)).Inc()
}

// TunnelOpened increments the active-tunnel gauge for kind ("upgrade" or
// "connect"). Every TunnelOpened must be paired with a TunnelClosed.
func (r *Recorder) TunnelOpened(kind string) {
	if r == nil {
		return
	}
	r.activeTunnels.WithLabelValues(kind).Inc()
}

// TunnelClosed decrements the active-tunnel gauge for kind.
func (r *Recorder) TunnelClosed(kind string) {
	if r == nil {
		return
	}
	r.activeTunnels.WithLabelValues(kind).Dec()
}

// TunnelBytes records n bytes spliced for kind in the given direction
// ("client_to_upstream" or "upstream_to_client").
func (r *Recorder) TunnelBytes(kind, direction string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.tunnelBytes.WithLabelValues(kind, direction).Add(float64(n))
}

func SanitizeCode(s int) string {
	switch s {
	case 0, 200:
		return "200"
	default:
		return strconv.Itoa(s)
	}
}

// Only support the list of "regular" HTTP methods, see
// https://developer.mozilla.org/en-US/docs/Web/HTTP/Methods
var methodMap = map[string]string{
	"GET": http.MethodGet, "get": http.MethodGet,
	"HEAD": http.MethodHead, "head": http.MethodHead,
	"PUT": http.MethodPut, "put": http.MethodPut,
	"POST": http.MethodPost, "post": http.MethodPost,
	"DELETE": http.MethodDelete, "delete": http.MethodDelete,
	"CONNECT": http.MethodConnect, "connect": http.MethodConnect,
	"OPTIONS": http.MethodOptions, "options": http.MethodOptions,
	"TRACE": http.MethodTrace, "trace": http.MethodTrace,
	"PATCH": http.MethodPatch, "patch": http.MethodPatch,
}

// SanitizeMethod sanitizes the method for use as a metric label. This helps
// prevent high cardinality on the method label. The name is always upper case.
func SanitizeMethod(m string) string {
	if m, ok := methodMap[m]; ok {
		return m
	}

	return "OTHER"
}
