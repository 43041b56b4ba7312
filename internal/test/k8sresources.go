// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/utils/ptr"
)

// PodSpec describes a pod to generate.
type PodSpec struct {
	Name   string
	Labels map[string]string
	Phase  corev1.PodPhase
	// NodeAffinity is set as the node affinity of the pod if not nil.
	NodeAffinity *corev1.NodeAffinity
}

// GeneratePods generates pods in namespace. The status is part of the returned objects, fake clients
// created with WithStatusSubresource need a separate status update to persist it.
func GeneratePods(namespace string, podSpecs ...PodSpec) []*corev1.Pod {
	pods := make([]*corev1.Pod, 0, len(podSpecs))
	for _, podSpec := range podSpecs {
		var affinity *corev1.Affinity
		if podSpec.NodeAffinity != nil {
			affinity = &corev1.Affinity{NodeAffinity: podSpec.NodeAffinity}
		}
		pods = append(pods, &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:      podSpec.Name,
				Namespace: namespace,
				Labels:    podSpec.Labels,
			},
			Spec: corev1.PodSpec{
				Containers: []corev1.Container{{Name: podSpec.Name, Image: DefaultImage}},
				Affinity:   affinity,
			},
			Status: corev1.PodStatus{
				Phase: podSpec.Phase,
			},
		})
	}
	return pods
}

// GeneratePodsForSelector generates count pods labelled with app=appLabel, all in the given phase.
func GeneratePodsForSelector(namespace, appLabel string, count int, phase corev1.PodPhase) []*corev1.Pod {
	podSpecs := make([]PodSpec, 0, count)
	for i := range count {
		podSpecs = append(podSpecs, PodSpec{
			Name:   fmt.Sprintf("%s-%d", appLabel, i),
			Labels: map[string]string{"app": appLabel},
			Phase:  phase,
		})
	}
	return GeneratePods(namespace, podSpecs...)
}

// GenerateCRD generates a namespaced CustomResourceDefinition serving gvk. The CRD name is <plural>.<group>.
func GenerateCRD(gvk schema.GroupVersionKind) *apiextensionsv1.CustomResourceDefinition {
	plural := strings.ToLower(gvk.Kind) + "s"
	return &apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{
			Name: plural + "." + gvk.Group,
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: gvk.Group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   plural,
				Singular: strings.ToLower(gvk.Kind),
				Kind:     gvk.Kind,
				ListKind: gvk.Kind + "List",
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    gvk.Version,
					Served:  true,
					Storage: true,
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
							Type:                   "object",
							XPreserveUnknownFields: ptr.To(true),
						},
					},
				},
			},
		},
	}
}

// GenerateCustomResource generates an unstructured object of kind gvk.
func GenerateCustomResource(gvk schema.GroupVersionKind, namespace, name string, finalizers ...string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)
	obj.SetNamespace(namespace)
	obj.SetName(name)
	obj.SetFinalizers(finalizers)
	return obj
}
