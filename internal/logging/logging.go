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

// Package logging builds the zap.Logger used across the proxy, reading
// its level from an environment variable the way the CLI layer reads
// its other external configuration.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnv is the environment variable consulted for the log level.
// It is external configuration (see spec §6) and is not otherwise
// parsed by the core engine.
const LevelEnv = "CMUX_PROXY_LOG_LEVEL"

// New builds a production-shaped zap.Logger whose level is read from
// CMUX_PROXY_LOG_LEVEL (default "info"). Unrecognized levels fall back
// to info rather than failing startup.
func New() *zap.Logger {
	level := zapcore.InfoLevel
	if raw, ok := os.LookupEnv(LevelEnv); ok {
		if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
			level = zapcore.InfoLevel
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		// zap.NewProductionConfig().Build() only fails on a broken
		// sink/encoder registration, which never happens with the
		// stock config; fall back to a no-op logger rather than
		// panicking the whole process over logging.
		return zap.NewNop()
	}
	return logger
}
