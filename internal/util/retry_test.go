// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package util_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
	testutil "github.com/blackducksoftware/operator-e2e/internal/test"
	"github.com/blackducksoftware/operator-e2e/internal/util"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

var _ = Describe("Retry", func() {
	var (
		ctx      context.Context
		cancelFn context.CancelFunc
		recorder *sleepRecorder
		calls    []string
		policy   util.RetryPolicy
		pass     func() (string, error)
		fail     func() (string, error)
	)

	BeforeEach(func() {
		ctx, cancelFn = context.WithCancel(context.Background())
		DeferCleanup(cancelFn)
		recorder = &sleepRecorder{}
		DeferCleanup(testutil.WithVar(&util.SleepFn, recorder.sleep))
		calls = nil
		policy = util.RetryPolicy{MaxAttempts: 3, Delay: 4 * time.Second}
		pass = func() (string, error) {
			calls = append(calls, "pass")
			return "pass", nil
		}
		fail = func() (string, error) {
			calls = append(calls, "fail")
			return "fail", fmt.Errorf("fail")
		}
	})

	It("should not wait before the first attempt when it succeeds", func() {
		result := util.Retry(ctx, logr.Discard(), "pass", pass, policy, util.AlwaysRetry)
		Expect(result.Err).ToNot(HaveOccurred())
		Expect(result.Value).To(Equal("pass"))
		Expect(result.Attempts).To(Equal(1))
		Expect(recorder.delays).To(BeEmpty())
	})

	It("should not return error if task function eventually succeeds", func() {
		i := 0
		passEventually := func() (string, error) {
			i++
			if i%3 == 0 {
				return pass()
			}
			return fail()
		}
		result := util.Retry(ctx, logr.Discard(), "pass-eventually", passEventually, policy, util.AlwaysRetry)
		Expect(result.Err).ToNot(HaveOccurred())
		Expect(result.Value).To(Equal("pass"))
		Expect(result.Attempts).To(Equal(3))
		Expect(calls).To(Equal([]string{"fail", "fail", "pass"}))
		Expect(recorder.delays).To(Equal([]time.Duration{4 * time.Second, 4 * time.Second}))
	})

	It("should return the last error and a zero value if it exceeds number of attempts", func() {
		result := util.Retry(ctx, logr.Discard(), "fail", fail, policy, util.AlwaysRetry)
		Expect(calls).To(HaveLen(3))
		Expect(result.Err).To(MatchError("fail"))
		Expect(result.Value).To(BeEmpty())
		Expect(result.Attempts).To(Equal(3))
		Expect(recorder.delays).To(HaveLen(2))
	})

	It("should stop if canRetry returns false", func() {
		result := util.Retry(ctx, logr.Discard(), "fail", fail, policy, util.NeverRetry)
		Expect(calls).To(HaveLen(1))
		Expect(result.Err).To(MatchError("fail"))
		Expect(result.Attempts).To(Equal(1))
		Expect(recorder.delays).To(BeEmpty())
	})

	It("should make exactly one attempt when max attempts is not positive", func() {
		result := util.Retry(ctx, logr.Discard(), "fail", fail, util.RetryPolicy{}, util.AlwaysRetry)
		Expect(calls).To(HaveLen(1))
		Expect(result.Attempts).To(Equal(1))
		Expect(recorder.delays).To(BeEmpty())
	})

	It("should stop if context is cancelled before task is run", func() {
		cancelFn()
		result := util.Retry(ctx, logr.Discard(), "pass", pass, policy, util.AlwaysRetry)
		Expect(result.Err).To(Equal(context.Canceled))
		Expect(result.Attempts).To(BeZero())
		Expect(calls).To(BeEmpty())
	})

	It("should stop if context is cancelled between attempts", func() {
		result := util.Retry(ctx, logr.Discard(), "cancel", func() (string, error) {
			calls = append(calls, "fail")
			cancelFn()
			return "", fmt.Errorf("fail")
		}, policy, util.AlwaysRetry)
		Expect(result.Err).To(Equal(context.Canceled))
		Expect(result.Attempts).To(Equal(1))
		Expect(calls).To(HaveLen(1))
	})
})

var _ = Describe("Poll", func() {
	var (
		ctx      context.Context
		recorder *sleepRecorder
		policy   util.RetryPolicy
	)

	BeforeEach(func() {
		ctx = context.Background()
		recorder = &sleepRecorder{}
		DeferCleanup(testutil.WithVar(&util.SleepFn, recorder.sleep))
		policy = util.RetryPolicy{MaxAttempts: 5, Delay: 2 * time.Second}
	})

	It("should return true and stop once the predicate holds", func() {
		evaluations := 0
		result := util.Poll(ctx, logr.Discard(), "third-time-lucky", func() (bool, error) {
			evaluations++
			return evaluations == 3, nil
		}, policy, util.AlwaysRetry)
		Expect(result.Err).ToNot(HaveOccurred())
		Expect(result.Value).To(BeTrue())
		Expect(result.Attempts).To(Equal(3))
		Expect(evaluations).To(Equal(3))
		Expect(recorder.delays).To(Equal([]time.Duration{2 * time.Second, 2 * time.Second}))
	})

	It("should report not ready after exhausting all attempts", func() {
		evaluations := 0
		result := util.Poll(ctx, logr.Discard(), "never", func() (bool, error) {
			evaluations++
			return false, nil
		}, policy, util.AlwaysRetry)
		Expect(result.Value).To(BeFalse())
		Expect(e2eerrors.IsResourceNotReady(result.Err)).To(BeTrue())
		Expect(result.Attempts).To(Equal(5))
		Expect(evaluations).To(Equal(5))
		Expect(recorder.delays).To(HaveLen(4))
	})

	It("should treat a retryable error as not yet satisfied", func() {
		evaluations := 0
		result := util.Poll(ctx, logr.Discard(), "flaky", func() (bool, error) {
			evaluations++
			if evaluations == 1 {
				return false, errors.New("etcdserver: request timed out")
			}
			return true, nil
		}, policy, util.AlwaysRetry)
		Expect(result.Err).ToNot(HaveOccurred())
		Expect(result.Value).To(BeTrue())
		Expect(result.Attempts).To(Equal(2))
	})

	It("should abort at once on an error that cannot be retried", func() {
		forbidden := errors.New("forbidden")
		evaluations := 0
		result := util.Poll(ctx, logr.Discard(), "forbidden", func() (bool, error) {
			evaluations++
			return false, forbidden
		}, policy, util.NeverRetry)
		Expect(result.Value).To(BeFalse())
		Expect(result.Err).To(MatchError(forbidden))
		Expect(evaluations).To(Equal(1))
		Expect(recorder.delays).To(BeEmpty())
	})

	It("should surface a retryable error seen on the last attempt instead of not ready", func() {
		timeout := errors.New("timeout")
		result := util.Poll(ctx, logr.Discard(), "timeout", func() (bool, error) {
			return false, timeout
		}, policy, util.AlwaysRetry)
		Expect(result.Value).To(BeFalse())
		Expect(result.Err).To(MatchError(timeout))
		Expect(e2eerrors.IsResourceNotReady(result.Err)).To(BeFalse())
		Expect(result.Attempts).To(Equal(5))
	})

	It("should re-sample state on every call", func() {
		ready := false
		predicate := func() (bool, error) { return ready, nil }
		first := util.Poll(ctx, logr.Discard(), "resample", predicate, util.RetryPolicy{MaxAttempts: 1}, nil)
		ready = true
		second := util.Poll(ctx, logr.Discard(), "resample", predicate, util.RetryPolicy{MaxAttempts: 1}, nil)
		Expect(first.Value).To(BeFalse())
		Expect(second.Value).To(BeTrue())
	})
})

var _ = Describe("RetryPolicy", func() {
	DescribeTable("Validate",
		func(policy util.RetryPolicy, valid bool) {
			if valid {
				Expect(policy.Validate()).To(Succeed())
			} else {
				Expect(policy.Validate()).ToNot(Succeed())
			}
		},
		Entry("single attempt without delay", util.RetryPolicy{MaxAttempts: 1}, true),
		Entry("ten attempts every four seconds", util.RetryPolicy{MaxAttempts: 10, Delay: 4 * time.Second}, true),
		Entry("zero attempts", util.RetryPolicy{MaxAttempts: 0, Delay: time.Second}, false),
		Entry("negative delay", util.RetryPolicy{MaxAttempts: 2, Delay: -time.Second}, false),
	)

	It("should compute the budget as delays between attempts", func() {
		Expect(util.RetryPolicy{MaxAttempts: 10, Delay: 4 * time.Second}.Budget()).To(Equal(36 * time.Second))
		Expect(util.RetryPolicy{MaxAttempts: 1, Delay: 4 * time.Second}.Budget()).To(BeZero())
	})
})
