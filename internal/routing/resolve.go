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

// Package routing derives the upstream (host, port) pair for an inbound
// request from its headers, and strips the headers that must never
// cross the proxy boundary.
package routing

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/lawrencecchen/cmux-proxy/internal/workspace"
)

// Header names consumed and stripped by the proxy. They are
// proxy-internal and must never reach the upstream.
const (
	HeaderPortInternal      = "X-Cmux-Port-Internal"
	HeaderWorkspaceInternal = "X-Cmux-Workspace-Internal"
)

const hostSuffix = ".localhost"

// Decision is the resolved upstream for one request. It is produced at
// request entry and discarded at request completion; nothing about it
// is persisted across requests.
type Decision struct {
	Host string
	Port uint16
}

// Error is a routing failure that must be surfaced to the client as a
// 400 Bad Request with a plain-text body naming the offending input.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func badRequest(msg string) *Error { return &Error{Message: msg} }

// Resolve extracts the upstream routing decision from h, falling back
// to the Host header's "<workspace>-<port>.localhost[:anything]"
// subdomain pattern when the explicit headers are absent. defaultHost
// is used when neither an explicit workspace header nor a workspace
// subdomain segment is present.
func Resolve(h http.Header, defaultHost string) (Decision, *Error) {
	fallbackWorkspace, fallbackPort, haveFallback := parseHostFallback(h.Get("Host"))

	port, err := resolvePort(h, fallbackPort, haveFallback)
	if err != nil {
		return Decision{}, err
	}

	host, err := resolveHost(h, defaultHost, fallbackWorkspace, haveFallback)
	if err != nil {
		return Decision{}, err
	}

	return Decision{Host: host, Port: port}, nil
}

func resolvePort(h http.Header, fallbackPort uint16, haveFallback bool) (uint16, *Error) {
	// h.Get returns "" both when the header is absent and when it is
	// present-but-empty; h.Values distinguishes the two, and a
	// present-but-empty header must 400 rather than silently fall
	// through to the Host-subdomain fallback.
	if vals := h.Values(HeaderPortInternal); len(vals) > 0 {
		trimmed := strings.TrimSpace(vals[0])
		if trimmed == "" {
			return 0, badRequest(HeaderPortInternal + " cannot be empty")
		}
		port, err := strconv.ParseUint(trimmed, 10, 16)
		if err != nil {
			return 0, badRequest("invalid " + HeaderPortInternal + ": " + trimmed)
		}
		return uint16(port), nil
	}

	if haveFallback {
		return fallbackPort, nil
	}

	return 0, badRequest("missing required header: " + HeaderPortInternal)
}

func resolveHost(h http.Header, defaultHost, fallbackWorkspace string, haveFallback bool) (string, *Error) {
	if vals := h.Values(HeaderWorkspaceInternal); len(vals) > 0 {
		ws := strings.TrimSpace(vals[0])
		if ws == "" {
			return "", badRequest(HeaderWorkspaceInternal + " cannot be empty")
		}
		addr, ok := workspace.IPFromName(ws)
		if !ok {
			return "", badRequest("invalid workspace name: " + ws)
		}
		return addr.String(), nil
	}

	if haveFallback {
		addr, ok := workspace.IPFromName(fallbackWorkspace)
		if !ok {
			return "", badRequest("invalid workspace name: " + fallbackWorkspace)
		}
		return addr.String(), nil
	}

	return defaultHost, nil
}

// parseHostFallback parses a Host header of the form
// "<workspace>-<port>.localhost[:anything]", case-insensitively on the
// ".localhost" suffix. An optional ":port" suffix on Host is stripped
// first. Both workspace and port must be non-empty and the port must
// parse as a uint16; the split happens at the last '-' in the label.
func parseHostFallback(hostHeader string) (ws string, port uint16, ok bool) {
	hostHeader = strings.TrimSpace(hostHeader)
	if hostHeader == "" {
		return "", 0, false
	}

	hostOnly := hostHeader
	if idx := strings.LastIndexByte(hostHeader, ':'); idx != -1 {
		hostOnly = hostHeader[:idx]
	}

	if len(hostOnly) <= len(hostSuffix) || !strings.EqualFold(hostOnly[len(hostOnly)-len(hostSuffix):], hostSuffix) {
		return "", 0, false
	}
	label := hostOnly[:len(hostOnly)-len(hostSuffix)]

	dash := strings.LastIndexByte(label, '-')
	if dash < 0 {
		return "", 0, false
	}
	wsPart, portPart := label[:dash], label[dash+1:]
	if wsPart == "" || portPart == "" {
		return "", 0, false
	}

	p, err := strconv.ParseUint(portPart, 10, 16)
	if err != nil {
		return "", 0, false
	}
	return wsPart, uint16(p), true
}
