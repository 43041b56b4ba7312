// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"fmt"

	multierr "github.com/hashicorp/go-multierror"
	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Mutator changes cluster state directly. It is used to prepare namespaces, to apply generated
// manifests and to clean up during teardown. Deleting something that is already gone is not an error.
type Mutator interface {
	// CreateNamespace creates the namespace name unless it exists already.
	CreateNamespace(ctx context.Context, name string) error
	// DeleteNamespace deletes the namespace name.
	DeleteNamespace(ctx context.Context, name string) error
	// DeleteCustomResourceDefinition deletes the CRD name.
	DeleteCustomResourceDefinition(ctx context.Context, name string) error
	// PurgeCustomResources removes the finalizers of all objects of kind gvk in all namespaces and deletes them.
	PurgeCustomResources(ctx context.Context, gvk schema.GroupVersionKind) error
	// Apply creates obj or updates it if it exists already. Namespaced objects without a namespace are put into namespace.
	Apply(ctx context.Context, obj *unstructured.Unstructured, namespace string) error
}

type mutator struct {
	client client.Client
}

// NewMutator creates a Mutator writing through c.
func NewMutator(c client.Client) Mutator {
	return &mutator{client: c}
}

func (m *mutator) CreateNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if err := m.client.Create(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

func (m *mutator) DeleteNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if err := client.IgnoreNotFound(m.client.Delete(ctx, ns)); err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}
	logger.V(4).Info("Deleted namespace", "namespace", name)
	return nil
}

func (m *mutator) DeleteCustomResourceDefinition(ctx context.Context, name string) error {
	crd := &apiextensionsv1.CustomResourceDefinition{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if err := client.IgnoreNotFound(m.client.Delete(ctx, crd)); err != nil {
		return fmt.Errorf("failed to delete customresourcedefinition %s: %w", name, err)
	}
	logger.V(4).Info("Deleted customresourcedefinition", "name", name)
	return nil
}

func (m *mutator) PurgeCustomResources(ctx context.Context, gvk schema.GroupVersionKind) error {
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(gvk.GroupVersion().WithKind(gvk.Kind + "List"))
	if err := m.client.List(ctx, list); err != nil {
		if meta.IsNoMatchError(err) || apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to list %s: %w", gvk.Kind, err)
	}
	var errs error
	for i := range list.Items {
		obj := &list.Items[i]
		if err := m.removeFinalizers(ctx, obj); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := client.IgnoreNotFound(m.client.Delete(ctx, obj)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to delete %s %s: %w", gvk.Kind, client.ObjectKeyFromObject(obj), err))
		}
	}
	return errs
}

func (m *mutator) removeFinalizers(ctx context.Context, obj *unstructured.Unstructured) error {
	if len(obj.GetFinalizers()) == 0 {
		return nil
	}
	patch := client.MergeFrom(obj.DeepCopy())
	obj.SetFinalizers(nil)
	if err := client.IgnoreNotFound(m.client.Patch(ctx, obj, patch)); err != nil {
		return fmt.Errorf("failed to remove finalizers from %s %s: %w", obj.GetKind(), client.ObjectKeyFromObject(obj), err)
	}
	return nil
}

func (m *mutator) Apply(ctx context.Context, obj *unstructured.Unstructured, namespace string) error {
	if obj.GetNamespace() == "" && namespace != "" {
		namespaced, err := m.client.IsObjectNamespaced(obj)
		if err != nil {
			return fmt.Errorf("failed to determine scope of %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}
		if namespaced {
			obj.SetNamespace(namespace)
		}
	}
	err := m.client.Create(ctx, obj)
	switch {
	case err == nil:
		return nil
	case !apierrors.IsAlreadyExists(err):
		return fmt.Errorf("failed to create %s %s: %w", obj.GetKind(), client.ObjectKeyFromObject(obj), err)
	}
	existing := &unstructured.Unstructured{}
	existing.SetGroupVersionKind(obj.GroupVersionKind())
	if err = m.client.Get(ctx, client.ObjectKeyFromObject(obj), existing); err != nil {
		return fmt.Errorf("failed to get %s %s: %w", obj.GetKind(), client.ObjectKeyFromObject(obj), err)
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	if err = m.client.Update(ctx, obj); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", obj.GetKind(), client.ObjectKeyFromObject(obj), err)
	}
	return nil
}
