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
	"testing"
)

func TestResolveExplicitHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderPortInternal, " 4021 ")
	h.Set(HeaderWorkspaceInternal, "workspace-1")

	dec, err := Resolve(h, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Port != 4021 {
		t.Errorf("expected port 4021, got %d", dec.Port)
	}
	if dec.Host != "127.18.0.1" {
		t.Errorf("expected host 127.18.0.1, got %s", dec.Host)
	}
}

func TestResolveDefaultHostNoWorkspace(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderPortInternal, "8081")

	dec, err := Resolve(h, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %s", dec.Host)
	}
}

func TestResolveHostSubdomainFallback(t *testing.T) {
	h := http.Header{}
	h.Set("Host", "workspace-1-12345.localhost")

	dec, err := Resolve(h, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Port != 12345 {
		t.Errorf("expected port 12345, got %d", dec.Port)
	}
	if dec.Host != "127.18.0.1" {
		t.Errorf("expected host 127.18.0.1, got %s", dec.Host)
	}
}

func TestResolveHostSubdomainWithPortSuffix(t *testing.T) {
	h := http.Header{}
	h.Set("Host", "WORKSPACE-1-12345.LOCALHOST:9999")

	dec, err := Resolve(h, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Port != 12345 || dec.Host != "127.18.0.1" {
		t.Errorf("unexpected decision: %+v", dec)
	}
}

func TestResolveExplicitPortOverridesFallbackHost(t *testing.T) {
	h := http.Header{}
	h.Set("Host", "workspace-1-12345.localhost")
	h.Set(HeaderPortInternal, "9999")

	dec, err := Resolve(h, "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Port != 9999 {
		t.Errorf("explicit port header must win, got %d", dec.Port)
	}
	if dec.Host != "127.18.0.1" {
		t.Errorf("fallback workspace should still supply host, got %s", dec.Host)
	}
}

func TestResolveMissingEverything(t *testing.T) {
	h := http.Header{}
	h.Set("Host", "example.com")

	_, err := Resolve(h, "127.0.0.1")
	if err == nil {
		t.Fatal("expected error for missing routing input")
	}
}

func TestResolveMalformedPort(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderPortInternal, "not-a-port")

	_, err := Resolve(h, "127.0.0.1")
	if err == nil {
		t.Fatal("expected error for malformed port")
	}
}

func TestResolveEmptyPortHeader(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderPortInternal, "   ")

	_, err := Resolve(h, "127.0.0.1")
	if err == nil {
		t.Fatal("expected error for empty port header")
	}
}

func TestResolveEmptyWorkspaceHeader(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderPortInternal, "80")
	h.Set(HeaderWorkspaceInternal, "   ")

	_, err := Resolve(h, "127.0.0.1")
	if err == nil {
		t.Fatal("expected error for empty workspace header")
	}
}

func TestResolveEmptyPortHeaderIgnoresHostFallback(t *testing.T) {
	h := http.Header{}
	h.Set("Host", "workspace-1-12345.localhost")
	h.Set(HeaderPortInternal, "   ")

	_, err := Resolve(h, "127.0.0.1")
	if err == nil {
		t.Fatal("expected error: a present-but-empty port header must 400, not fall back to Host")
	}
}

func TestResolveEmptyWorkspaceHeaderIgnoresHostFallback(t *testing.T) {
	h := http.Header{}
	h.Set("Host", "workspace-1-12345.localhost")
	h.Set(HeaderPortInternal, "9999")
	h.Set(HeaderWorkspaceInternal, "   ")

	_, err := Resolve(h, "127.0.0.1")
	if err == nil {
		t.Fatal("expected error: a present-but-empty workspace header must 400, not fall back to Host")
	}
}

func TestParseHostFallbackRejectsMissingDash(t *testing.T) {
	if _, _, ok := parseHostFallback("noport.localhost"); ok {
		t.Error("expected fallback parse to fail without a dash-separated port")
	}
}

func TestParseHostFallbackRejectsNonLocalhost(t *testing.T) {
	if _, _, ok := parseHostFallback("workspace-1-8080.example.com"); ok {
		t.Error("expected fallback parse to fail for non-.localhost suffix")
	}
}

func TestParseHostFallbackRejectsBadPort(t *testing.T) {
	if _, _, ok := parseHostFallback("workspace-abc.localhost"); ok {
		t.Error("expected fallback parse to fail for non-numeric port segment")
	}
}
