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

package routing

import (
	"net/http"
	"strings"
)

// hopByHopHeaders are removed when forwarding, per RFC 7230 §6.1, plus
// the two internal routing headers which must never reach upstream.
// http://www.w3.org/Protocols/rfc2616/rfc2616-sec13.html
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
	"Proxy-Connection",
	HeaderPortInternal,
	HeaderWorkspaceInternal,
}

// upgradeExempt are the hop-by-hop headers an upgrade handshake must
// keep on its way to the upstream; everything else in hopByHopHeaders
// is still stripped.
var upgradeExempt = map[string]bool{
	"Connection": true,
	"Upgrade":    true,
}

// StripHopByHop removes hop-by-hop headers from h in place, including
// any header named in h's own Connection header (RFC 7230 §6.1). When
// preserveUpgrade is true (the upgrade handshake path), Connection and
// Upgrade themselves are left intact.
func StripHopByHop(h http.Header, preserveUpgrade bool) {
	if conn := h.Get("Connection"); conn != "" {
		for _, tok := range strings.Split(conn, ",") {
			name := strings.TrimSpace(tok)
			if name == "" {
				continue
			}
			if preserveUpgrade && upgradeExempt[http.CanonicalHeaderKey(name)] {
				continue
			}
			h.Del(name)
		}
	}

	for _, name := range hopByHopHeaders {
		if preserveUpgrade && upgradeExempt[http.CanonicalHeaderKey(name)] {
			continue
		}
		h.Del(name)
	}
}
