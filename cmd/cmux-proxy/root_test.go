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

package main

import (
	"reflect"
	"testing"
)

func TestListenDefaultFallsBackWithoutEnv(t *testing.T) {
	t.Setenv("CMUX_PROXY_LISTEN", "")
	if got := listenDefault(); !reflect.DeepEqual(got, defaultListen) {
		t.Errorf("listenDefault() = %v, want %v", got, defaultListen)
	}
}

func TestListenDefaultParsesEnvCSV(t *testing.T) {
	t.Setenv("CMUX_PROXY_LISTEN", "127.0.0.1:9000, 0.0.0.0:9001 ,")
	want := []string{"127.0.0.1:9000", "0.0.0.0:9001"}
	if got := listenDefault(); !reflect.DeepEqual(got, want) {
		t.Errorf("listenDefault() = %v, want %v", got, want)
	}
}

func TestEnvOrFallsBackWhenUnset(t *testing.T) {
	t.Setenv("CMUX_PROXY_UPSTREAM_HOST_TEST_UNSET", "")
	if got := envOr("CMUX_PROXY_UPSTREAM_HOST_TEST_UNSET_MISSING", "fallback"); got != "fallback" {
		t.Errorf("envOr() = %q, want %q", got, "fallback")
	}
}

func TestEnvOrReturnsSetValue(t *testing.T) {
	t.Setenv("CMUX_PROXY_UPSTREAM_HOST_TEST", "10.0.0.1")
	if got := envOr("CMUX_PROXY_UPSTREAM_HOST_TEST", "fallback"); got != "10.0.0.1" {
		t.Errorf("envOr() = %q, want %q", got, "10.0.0.1")
	}
}

func TestRootCommandBuilds(t *testing.T) {
	cmd := rootCommand()
	if cmd.Use != "cmux-proxy" {
		t.Errorf("Use = %q, want cmux-proxy", cmd.Use)
	}
	if _, err := cmd.Flags().GetStringArray("listen"); err != nil {
		t.Errorf("listen flag not registered: %v", err)
	}
}
