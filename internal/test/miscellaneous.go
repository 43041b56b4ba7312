// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ValidateIfFileExists fails the test if file does not exist.
func ValidateIfFileExists(file string, t *testing.T) {
	g := NewWithT(t)
	_, err := os.Stat(file)
	if errors.Is(err, os.ErrNotExist) {
		t.Fatalf("%s does not exist. This should not have happened. Check testdata directory.\n", file)
	}
	g.Expect(err).ToNot(HaveOccurred(), "File at path %v should exist", file)
}

// CreateTestNamespace creates a namespace named namePrefix followed by a random suffix and returns its name.
func CreateTestNamespace(ctx context.Context, g *WithT, cli client.Client, namePrefix string) string {
	name := fmt.Sprintf("%s-%s", namePrefix, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	g.Expect(cli.Create(ctx, ns)).To(Succeed())
	return name
}

// WithVar sets *dst to val and returns a function that restores the previous value.
func WithVar[T any](dst *T, val T) func() {
	old := *dst
	*dst = val
	return func() { *dst = old }
}
