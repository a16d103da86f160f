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
	"io"
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestDedupeListenAddrs(t *testing.T) {
	tests := []struct {
		name  string
		addrs []string
		want  []string
	}{
		{
			name:  "wildcard drops sibling ipv4, ipv6 survives",
			addrs: []string{"0.0.0.0:8080", "127.0.0.1:8080", "[::1]:8080"},
			want:  []string{"0.0.0.0:8080", "[::1]:8080"},
		},
		{
			name:  "no wildcard, distinct ports all survive",
			addrs: []string{"127.0.0.1:8080", "127.0.0.1:9090"},
			want:  []string{"127.0.0.1:8080", "127.0.0.1:9090"},
		},
		{
			name:  "exact duplicate collapses",
			addrs: []string{"127.0.0.1:8080", "127.0.0.1:8080"},
			want:  []string{"127.0.0.1:8080"},
		},
		{
			name:  "wildcard on one port doesn't affect another",
			addrs: []string{"0.0.0.0:8080", "127.0.0.1:9090"},
			want:  []string{"0.0.0.0:8080", "127.0.0.1:9090"},
		},
		{
			name:  "unparseable entry passes through",
			addrs: []string{"not-an-addr", "127.0.0.1:8080"},
			want:  []string{"not-an-addr", "127.0.0.1:8080"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupeListenAddrs(tt.addrs)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("dedupeListenAddrs(%v) = %v, want %v", tt.addrs, got, tt.want)
			}
		})
	}
}

func TestSupervisorStartAndWait(t *testing.T) {
	sup := NewSupervisor(Config{UpstreamHost: "127.0.0.1"})

	bound, err := sup.Start([]string{"127.0.0.1:0", "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(bound) != 2 {
		t.Fatalf("expected 2 bound addrs, got %d: %v", len(bound), bound)
	}

	resp, err := http.Get("http://" + bound[0] + "/")
	if err != nil {
		t.Fatalf("request to bound listener failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		// No routing headers supplied and UpstreamHost has no port
		// fallback wired, so this should fail routing resolution, not
		// hang or panic.
		t.Fatalf("expected 400 from unroutable request, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- sup.Wait(ctx, time.Second) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
}

func TestSupervisorStartBindFailureLeavesSiblingsServing(t *testing.T) {
	sup := NewSupervisor(Config{UpstreamHost: "127.0.0.1"})
	bound, err := sup.Start([]string{"127.0.0.1:0", "this-is-not-a-valid-address"})
	if err == nil {
		t.Fatal("expected error binding the invalid address")
	}
	if len(bound) != 1 {
		t.Fatalf("expected the one good address to have bound despite the sibling failure, got %v", bound)
	}

	resp, err := http.Get("http://" + bound[0] + "/")
	if err != nil {
		t.Fatalf("sibling listener should still be serving: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 from unroutable request, got %d", resp.StatusCode)
	}
}
