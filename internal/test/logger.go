// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	kindlog "sigs.k8s.io/kind/pkg/log"
)

// NewKindLogger creates a kind logger writing through zap to w. Messages above verbosity are dropped.
func NewKindLogger(w io.Writer, verbosity kindlog.Level) kindlog.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return kindLogger{logger: zap.New(core).Named("kind"), verbosity: verbosity, enabled: true}
}

type kindLogger struct {
	logger    *zap.Logger
	verbosity kindlog.Level
	enabled   bool
}

func (l kindLogger) Warn(message string) {
	l.logger.Warn(message)
}

func (l kindLogger) Warnf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l kindLogger) Error(message string) {
	l.logger.Error(message)
}

func (l kindLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l kindLogger) V(level kindlog.Level) kindlog.InfoLogger {
	return kindLogger{logger: l.logger, verbosity: l.verbosity, enabled: level <= l.verbosity}
}

func (l kindLogger) Info(message string) {
	if l.enabled {
		l.logger.Info(message)
	}
}

func (l kindLogger) Infof(format string, args ...any) {
	if l.enabled {
		l.logger.Info(fmt.Sprintf(format, args...))
	}
}

func (l kindLogger) Enabled() bool {
	return l.enabled
}
