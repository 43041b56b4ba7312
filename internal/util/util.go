// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/yaml"
)

var logger = log.Log.WithName("util")

// Clock is the source of timers for SleepWithContext.
var Clock clock.WithTicker = clock.RealClock{}

// SleepWithContext waits for sleepFor or until ctx is done, whichever happens first.
func SleepWithContext(ctx context.Context, sleepFor time.Duration) error {
	if sleepFor <= 0 {
		return ctx.Err()
	}
	timer := Clock.NewTimer(sleepFor)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

// ReadAndUnmarshall reads the YAML file at filename and unmarshalls it into a T.
func ReadAndUnmarshall[T any](filename string) (*T, error) {
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	t := new(T)
	if err = yaml.Unmarshal(configBytes, t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file %s: %w", filename, err)
	}
	return t, nil
}

// LookupEnv returns the trimmed value of the environment variable key and whether it is set to a non-blank value.
func LookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", false
	}
	logger.V(4).Info("using value from environment", "key", key)
	return value, true
}
