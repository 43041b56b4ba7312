// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"errors"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"

	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
)

// IsTransientError reports whether err is a failure of the API server or the connection to it which
// is expected to go away on its own. Such errors are retried by waits, all others abort them.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	var herr *e2eerrors.HarnessError
	if errors.As(err, &herr) && herr.Cause != nil {
		err = herr.Cause
	}
	switch {
	case apierrors.IsInternalError(err),
		apierrors.IsTimeout(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err),
		utilnet.IsProbableEOF(err),
		utilnet.IsConnectionReset(err),
		utilnet.IsConnectionRefused(err):
		return true
	}
	_, retryAfter := apierrors.SuggestsClientDelay(err)
	return retryAfter
}
