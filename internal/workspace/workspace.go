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

// Package workspace maps a workspace name to a deterministic loopback
// IPv4 address. The mapping must agree bit-exactly with any other
// component (e.g. a connect(2)-rewriting shim in a workspace process)
// that derives the same address from the same name, so every constant
// here is fixed by contract, not a style choice.
package workspace

import (
	"net/netip"
	"strconv"
	"strings"
)

// fnvOffsetBasis and fnvPrime are the 32-bit FNV-1a parameters. These
// are required for cross-implementation agreement and must not change.
const (
	fnvOffsetBasis uint32 = 0x811C9DC5
	fnvPrime       uint32 = 0x01000193
)

// secondOctet is fixed to avoid collision with common loopback uses.
const secondOctet = 18

// IPFromName computes the workspace's loopback address in 127.18.0.0/16.
//
// If name contains '/', only the final segment is considered. From that
// base: the trailing run of ASCII decimal digits (if any) is parsed as
// the low 16 bits directly; otherwise a 32-bit FNV-1a hash of the
// lowercased base is computed and its low 16 bits are used. An empty
// base, or a trailing-digit run that overflows uint32, reports ok=false.
func IPFromName(name string) (addr netip.Addr, ok bool) {
	base := name
	if idx := strings.LastIndexByte(name, '/'); idx != -1 {
		base = name[idx+1:]
	}
	if base == "" {
		return netip.Addr{}, false
	}

	var n uint32
	if digits, has := trailingDigits(base); has {
		v, err := strconv.ParseUint(digits, 10, 32)
		if err != nil {
			return netip.Addr{}, false
		}
		n = uint32(v)
	} else {
		n = fnv1a32(base)
	}

	b2 := byte((n >> 8) & 0xFF)
	b3 := byte(n & 0xFF)
	return netip.AddrFrom4([4]byte{127, secondOctet, b2, b3}), true
}

// trailingDigits returns the greedy, right-to-left run of ASCII decimal
// digits at the end of s, or has=false if s has no trailing digit.
func trailingDigits(s string) (digits string, has bool) {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end {
		return "", false
	}
	return s[start:end], true
}

// fnv1a32 returns the 32-bit FNV-1a hash of the ASCII-lowercased base
// string; only its low 16 bits end up in the resulting address.
func fnv1a32(base string) uint32 {
	h := fnvOffsetBasis
	for i := 0; i < len(base); i++ {
		c := base[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		h ^= uint32(c)
		h *= fnvPrime
	}
	return h
}
