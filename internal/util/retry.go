// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
)

// SleepFn is used to wait between two attempts.
var SleepFn = SleepWithContext

var errConditionNotMet = errors.New("condition not met")

// RetryPolicy bounds the number of attempts of an operation and the fixed delay between two attempts.
// The first attempt is never delayed, so at most MaxAttempts-1 delays are taken.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Validate checks that the policy allows at least one attempt and has a non-negative delay.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("maxAttempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %s", p.Delay)
	}
	return nil
}

// Budget is the longest time the policy will spend waiting between attempts.
func (p RetryPolicy) Budget() time.Duration {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Delay
}

func (p RetryPolicy) String() string {
	return fmt.Sprintf("%d attempts every %s", p.MaxAttempts, p.Delay)
}

// RetryResult is the outcome of Retry and Poll. Value is only meaningful when Err is nil.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
}

// Retry calls fn until it succeeds, canRetry rejects its error or policy.MaxAttempts is reached.
func Retry[T any](ctx context.Context, logger logr.Logger, operation string, fn func() (T, error), policy RetryPolicy, canRetry func(error) bool) RetryResult[T] {
	if canRetry == nil {
		canRetry = AlwaysRetry
	}
	numAttempts := max(policy.MaxAttempts, 1)
	var err error
	for i := 1; i <= numAttempts; i++ {
		if i > 1 {
			if sleepErr := SleepFn(ctx, policy.Delay); sleepErr != nil {
				logger.Error(sleepErr, "context has been cancelled, stopping retry", "operation", operation)
				return RetryResult[T]{Err: sleepErr, Attempts: i - 1}
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Error(ctxErr, "context has been cancelled, stopping retry", "operation", operation)
			return RetryResult[T]{Err: ctxErr, Attempts: i - 1}
		}
		var result T
		result, err = fn()
		if err == nil {
			return RetryResult[T]{Value: result, Attempts: i}
		}
		if !canRetry(err) {
			logger.Error(err, "exiting retry as canRetry has returned false", "operation", operation, "exitOnAttempt", i)
			return RetryResult[T]{Err: err, Attempts: i}
		}
		if i < numAttempts {
			logger.V(4).Info("will attempt to retry operation", "operation", operation, "currentAttempt", i, "error", err.Error())
		}
	}
	return RetryResult[T]{Err: err, Attempts: numAttempts}
}

// Poll evaluates predicateFn until it returns true or policy.MaxAttempts is reached.
// A predicate error that canRetry accepts counts as a failed attempt, any other error stops polling at once.
// When the attempts run out the result carries an ErrResourceNotReady error, unless the last attempt
// itself failed with an error, in which case that error is returned.
func Poll(ctx context.Context, logger logr.Logger, operation string, predicateFn func() (bool, error), policy RetryPolicy, canRetry func(error) bool) RetryResult[bool] {
	if canRetry == nil {
		canRetry = AlwaysRetry
	}
	result := Retry(ctx, logger, operation, func() (bool, error) {
		ok, err := predicateFn()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errConditionNotMet
		}
		return true, nil
	}, policy, func(err error) bool {
		return errors.Is(err, errConditionNotMet) || canRetry(err)
	})
	if errors.Is(result.Err, errConditionNotMet) {
		result.Err = e2eerrors.New(e2eerrors.ErrResourceNotReady, fmt.Sprintf("%s: condition not met after %d attempt(s)", operation, result.Attempts))
	}
	return result
}

// AlwaysRetry accepts every error as retryable.
func AlwaysRetry(error) bool {
	return true
}

// NeverRetry rejects every error.
func NeverRetry(error) bool {
	return false
}
