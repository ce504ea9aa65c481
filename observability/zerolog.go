// Copyright 2026 The JazzPetri Authors
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

package observability

import (
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger writes JSON log lines of at least level to w.
func NewZerologLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	return &ZerologLogger{logger: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NewConsoleLogger writes human readable log lines of at least level to w.
func NewConsoleLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	out := zerolog.ConsoleWriter{Out: w, NoColor: true}
	return &ZerologLogger{logger: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: l}
}

// ParseLevel parses a level name such as "debug" or "warn".
func ParseLevel(s string) (zerolog.Level, error) {
	return zerolog.ParseLevel(s)
}

// Debug implements Logger.
func (z *ZerologLogger) Debug(msg string, fields map[string]interface{}) {
	z.logger.Debug().Fields(fields).Msg(msg)
}

// Info implements Logger.
func (z *ZerologLogger) Info(msg string, fields map[string]interface{}) {
	z.logger.Info().Fields(fields).Msg(msg)
}

// Warn implements Logger.
func (z *ZerologLogger) Warn(msg string, fields map[string]interface{}) {
	z.logger.Warn().Fields(fields).Msg(msg)
}

// Error implements Logger.
func (z *ZerologLogger) Error(msg string, fields map[string]interface{}) {
	z.logger.Error().Fields(fields).Msg(msg)
}
