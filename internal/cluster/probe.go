// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
)

// PodObservation is a snapshot of a single pod.
type PodObservation struct {
	Name  string
	Phase corev1.PodPhase
	// NodeAffinity is the node affinity of the pod spec, nil if it has none.
	NodeAffinity *corev1.NodeAffinity
}

// Probe answers read-only questions about the current cluster state. Each call takes one snapshot.
// Absence is reported as false or an empty slice, a failed query as an ErrProbeQuery error.
type Probe interface {
	// ListPods returns the pods in namespace matching selector.
	ListPods(ctx context.Context, namespace, selector string) ([]PodObservation, error)
	// NamespaceExists checks if the namespace name exists.
	NamespaceExists(ctx context.Context, name string) (bool, error)
	// CustomResourceDefinitionExists checks if the CRD name (e.g. alerts.synopsys.com) is registered.
	CustomResourceDefinitionExists(ctx context.Context, name string) (bool, error)
	// CustomResourceExists checks if an object of kind gvk exists. An unregistered kind counts as absent.
	CustomResourceExists(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (bool, error)
}

type probe struct {
	reader client.Reader
}

// NewProbe creates a Probe reading through reader.
func NewProbe(reader client.Reader) Probe {
	return &probe{reader: reader}
}

func (p *probe) ListPods(ctx context.Context, namespace, selector string) ([]PodObservation, error) {
	labelSelector, err := labels.Parse(selector)
	if err != nil {
		return nil, e2eerrors.WrapError(err, e2eerrors.ErrProbeQuery, fmt.Sprintf("invalid label selector %q", selector))
	}
	podList := &corev1.PodList{}
	if err = p.reader.List(ctx, podList, client.InNamespace(namespace), client.MatchingLabelsSelector{Selector: labelSelector}); err != nil {
		return nil, e2eerrors.WrapError(err, e2eerrors.ErrProbeQuery, fmt.Sprintf("failed to list pods with selector %q in namespace %s", selector, namespace))
	}
	observations := make([]PodObservation, 0, len(podList.Items))
	for _, pod := range podList.Items {
		observation := PodObservation{Name: pod.Name, Phase: pod.Status.Phase}
		if pod.Spec.Affinity != nil {
			observation.NodeAffinity = pod.Spec.Affinity.NodeAffinity
		}
		observations = append(observations, observation)
	}
	return observations, nil
}

func (p *probe) NamespaceExists(ctx context.Context, name string) (bool, error) {
	return p.exists(ctx, &corev1.Namespace{}, client.ObjectKey{Name: name}, "namespace "+name)
}

func (p *probe) CustomResourceDefinitionExists(ctx context.Context, name string) (bool, error) {
	return p.exists(ctx, &apiextensionsv1.CustomResourceDefinition{}, client.ObjectKey{Name: name}, "customresourcedefinition "+name)
}

func (p *probe) CustomResourceExists(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (bool, error) {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)
	return p.exists(ctx, obj, client.ObjectKey{Namespace: namespace, Name: name}, fmt.Sprintf("%s %s/%s", gvk.Kind, namespace, name))
}

func (p *probe) exists(ctx context.Context, obj client.Object, key client.ObjectKey, description string) (bool, error) {
	err := p.reader.Get(ctx, key, obj)
	switch {
	case err == nil:
		return true, nil
	case apierrors.IsNotFound(err), meta.IsNoMatchError(err):
		return false, nil
	default:
		return false, e2eerrors.WrapError(err, e2eerrors.ErrProbeQuery, "failed to get "+description)
	}
}

// AllPodsRunning checks that pods is non-empty and every pod is in phase Running.
func AllPodsRunning(pods []PodObservation) bool {
	if len(pods) == 0 {
		return false
	}
	for _, pod := range pods {
		if pod.Phase != corev1.PodRunning {
			return false
		}
	}
	return true
}
