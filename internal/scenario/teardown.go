// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"sync"

	multierr "github.com/hashicorp/go-multierror"

	"github.com/blackducksoftware/operator-e2e/internal/resource"
)

// tracker remembers the operators, namespaces and local files a scenario may have created.
type tracker struct {
	mu         sync.Mutex
	operators  []string
	namespaces []string
	files      []string
}

func newTracker() *tracker {
	return &tracker{}
}

func (t *tracker) addOperator(namespace string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.operators, namespace) {
		t.operators = append(t.operators, namespace)
	}
}

func (t *tracker) removeOperator(namespace string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operators = slices.DeleteFunc(t.operators, func(ns string) bool { return ns == namespace })
}

func (t *tracker) addNamespace(namespace string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.namespaces, namespace) {
		t.namespaces = append(t.namespaces, namespace)
	}
}

func (t *tracker) addFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.files, path) {
		t.files = append(t.files, path)
	}
}

func (t *tracker) trackedFiles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.files)
}

func (t *tracker) snapshot() (operators, namespaces []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.operators), slices.Clone(t.namespaces)
}

// teardown removes everything tracked so far and every managed CRD, then verifies that it is gone.
// Later steps run even if earlier ones failed.
func (s *steps) teardown() []Step {
	kinds := resource.ManagedKinds()
	return []Step{
		{
			Name: "destroy-remaining-operators",
			Fn: func(ctx context.Context) error {
				operators, _ := s.tracker.snapshot()
				var errs error
				for _, namespace := range operators {
					if err := s.env.Adapter(resource.OperatorKind).Destroy(ctx, namespace, resource.Options{}).Err; err != nil {
						errs = multierr.Append(errs, err)
						continue
					}
					s.tracker.removeOperator(namespace)
				}
				return errs
			},
		},
		{
			Name: "purge-custom-resources",
			Fn: func(ctx context.Context) error {
				var errs error
				for _, kind := range kinds {
					if err := s.env.Mutator.PurgeCustomResources(ctx, kind.GroupVersionKind()); err != nil {
						errs = multierr.Append(errs, err)
					}
				}
				return errs
			},
		},
		{
			Name: "delete-crds",
			Fn: func(ctx context.Context) error {
				var errs error
				for _, name := range resource.OperatorKind.ManagedCRDs() {
					if err := s.env.Mutator.DeleteCustomResourceDefinition(ctx, name); err != nil {
						errs = multierr.Append(errs, err)
					}
				}
				return errs
			},
		},
		{
			Name: "delete-namespaces",
			Fn: func(ctx context.Context) error {
				_, namespaces := s.tracker.snapshot()
				var errs error
				for _, namespace := range namespaces {
					if err := s.env.Mutator.DeleteNamespace(ctx, namespace); err != nil {
						errs = multierr.Append(errs, err)
					}
				}
				return errs
			},
		},
		{
			Name: "remove-files",
			Fn: func(context.Context) error {
				var errs error
				for _, path := range s.tracker.trackedFiles() {
					if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
						errs = multierr.Append(errs, err)
					}
				}
				return errs
			},
		},
		{
			Name: "verify-crds-gone",
			Fn: func(ctx context.Context) error {
				return verifyCRDsGone(ctx, s.env, kinds)
			},
		},
		{
			Name: "verify-namespaces-gone",
			Fn: func(ctx context.Context) error {
				_, namespaces := s.tracker.snapshot()
				return verifyNamespacesGone(ctx, s.env, namespaces)
			},
		},
	}
}
