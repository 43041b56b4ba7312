// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package scenario_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	"sigs.k8s.io/yaml"

	"github.com/blackducksoftware/operator-e2e/internal/resource"
	testutil "github.com/blackducksoftware/operator-e2e/internal/test"
)

const podsPerInstance = 2

var valueFlags = []string{"-n", "-i", "--mock", "--mock-kube", "--admin-password", "--postgres-password", "--user-password", "--node-affinity-file-path"}

// simulatedCluster plays the control CLI and the operator on top of a fake client. Creating or deleting a
// managed custom resource through the client starts or stops its pods, as the operator would. Pods applied from
// a manifest become running right away and deleting a namespace removes its pods.
type simulatedCluster struct {
	client client.Client

	mu sync.Mutex
	// operators maps the namespace of each deployed operator to the kinds it enables.
	operators map[string][]resource.Kind
	// created records <namespace>/<name> of every managed custom resource created.
	created []string
	// failing lists prefixes of command lines that fail.
	failing []string
	// leakyDestroy makes destroy remove the pods of all operators.
	leakyDestroy bool
	// keepCRDsOnDestroy makes destroy leave all CRDs behind.
	keepCRDsOnDestroy bool
	// ignoreNodeAffinity makes create start the pods of a node affinity file without their affinities.
	ignoreNodeAffinity bool
}

func newSimulatedCluster() *simulatedCluster {
	sim := &simulatedCluster{operators: map[string][]resource.Kind{}}
	var gvks []schema.GroupVersionKind
	for _, kind := range resource.ManagedKinds() {
		gvks = append(gvks, kind.GroupVersionKind())
	}
	sim.client = testutil.NewFakeClientBuilder(gvks...).WithInterceptorFuncs(interceptor.Funcs{
		Create: func(ctx context.Context, cl client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
			if err := cl.Create(ctx, obj, opts...); err != nil {
				return err
			}
			if u, ok := obj.(*unstructured.Unstructured); ok && u.GetKind() == "Pod" {
				return markRunning(ctx, cl, client.ObjectKeyFromObject(u))
			}
			kind := managedKindOf(obj)
			if kind == nil {
				return nil
			}
			sim.mu.Lock()
			sim.created = append(sim.created, obj.GetNamespace()+"/"+obj.GetName())
			sim.mu.Unlock()
			return startPods(ctx, cl, obj.GetNamespace(), fmt.Sprintf("%s-%s", kind.Name(), obj.GetName()), kind)
		},
		Delete: func(ctx context.Context, cl client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
			if err := cl.Delete(ctx, obj, opts...); err != nil {
				return err
			}
			if ns, ok := obj.(*corev1.Namespace); ok {
				return cl.DeleteAllOf(ctx, &corev1.Pod{}, client.InNamespace(ns.Name))
			}
			if kind := managedKindOf(obj); kind != nil {
				return stopPods(ctx, cl, obj.GetNamespace(), kind)
			}
			return nil
		},
	}).Build()
	return sim
}

func (s *simulatedCluster) failOn(prefixes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = append(s.failing, prefixes...)
}

func (s *simulatedCluster) createdResources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.created)
}

// handle answers one run of the control CLI.
func (s *simulatedCluster) handle(_ string, args ...string) ([]byte, error) {
	line := strings.Join(args, " ")
	s.mu.Lock()
	for _, prefix := range s.failing {
		if strings.HasPrefix(line, prefix) {
			s.mu.Unlock()
			return nil, fmt.Errorf("simulated failure of %q", line)
		}
	}
	s.mu.Unlock()

	ctx := context.Background()
	positional, flags := parseArgs(args)
	if len(positional) == 0 {
		return nil, errors.New("missing subcommand")
	}
	switch positional[0] {
	case "deploy":
		return s.deploy(ctx, flags)
	case "destroy":
		namespace := resource.DefaultOperatorNamespace
		if len(positional) > 1 {
			namespace = positional[1]
		}
		return s.destroy(ctx, namespace)
	}
	if len(positional) < 3 {
		if positional[0] == "get" && len(positional) == 2 {
			return s.get(ctx, positional[1], flags["-n"])
		}
		return nil, fmt.Errorf("unsupported command %q", line)
	}
	kind, err := resource.ByName(positional[1])
	if err != nil {
		return nil, err
	}
	name := positional[2]
	namespace := name
	if ns, ok := flags["-n"]; ok {
		namespace = ns
	}
	switch positional[0] {
	case "create":
		if format, ok := flags["--mock"]; ok {
			return render(kind, name, format)
		}
		if format, ok := flags["--mock-kube"]; ok {
			return renderKube(kind, name, format)
		}
		out, err := s.create(ctx, kind, namespace, name)
		if err != nil {
			return nil, err
		}
		if path, ok := flags["--node-affinity-file-path"]; ok {
			if err = s.startAffinityPods(ctx, kind, namespace, name, path); err != nil {
				return nil, err
			}
		}
		return out, nil
	case "stop", "start", "update":
		obj := testutil.GenerateCustomResource(kind.GroupVersionKind(), namespace, name)
		if err = s.client.Get(ctx, client.ObjectKeyFromObject(obj), obj); err != nil {
			return nil, err
		}
		switch positional[0] {
		case "stop":
			err = stopPods(ctx, s.client, namespace, kind)
		case "start":
			err = startPods(ctx, s.client, namespace, fmt.Sprintf("%s-%s", kind.Name(), name), kind)
		}
		if err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%s %s: %s done", kind.Name(), name, positional[0])), nil
	case "delete":
		obj := testutil.GenerateCustomResource(kind.GroupVersionKind(), namespace, name)
		if err = s.client.Delete(ctx, obj); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%s %s deleted", kind.Name(), name)), nil
	case "describe":
		obj := testutil.GenerateCustomResource(kind.GroupVersionKind(), namespace, name)
		if err = s.client.Get(ctx, client.ObjectKeyFromObject(obj), obj); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("Name: %s\nNamespace: %s\n", name, namespace)), nil
	}
	return nil, fmt.Errorf("unsupported command %q", line)
}

func (s *simulatedCluster) deploy(ctx context.Context, flags map[string]string) ([]byte, error) {
	namespace := resource.DefaultOperatorNamespace
	if ns, ok := flags["-n"]; ok {
		namespace = ns
	}
	var kinds []resource.Kind
	for flag := range flags {
		if name, ok := strings.CutPrefix(flag, "--enable-"); ok {
			kind, err := resource.ByName(name)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, kind)
		}
	}
	s.mu.Lock()
	if _, ok := s.operators[namespace]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("operator already deployed in namespace %s", namespace)
	}
	s.operators[namespace] = kinds
	s.mu.Unlock()
	if err := s.ensureNamespace(ctx, namespace); err != nil {
		return nil, err
	}
	for _, kind := range kinds {
		if err := client.IgnoreAlreadyExists(s.client.Create(ctx, testutil.GenerateCRD(kind.GroupVersionKind()))); err != nil {
			return nil, err
		}
	}
	if err := startPods(ctx, s.client, namespace, "synopsys-operator", resource.OperatorKind); err != nil {
		return nil, err
	}
	return []byte("operator deployed"), nil
}

func (s *simulatedCluster) destroy(ctx context.Context, namespace string) ([]byte, error) {
	s.mu.Lock()
	if _, ok := s.operators[namespace]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("no operator deployed in namespace %s", namespace)
	}
	delete(s.operators, namespace)
	stillEnabled := map[string]bool{}
	for _, kinds := range s.operators {
		for _, kind := range kinds {
			stillEnabled[kind.Name()] = true
		}
	}
	operatorNamespaces := []string{namespace}
	if s.leakyDestroy {
		for ns := range s.operators {
			operatorNamespaces = append(operatorNamespaces, ns)
		}
	}
	s.mu.Unlock()
	for _, ns := range operatorNamespaces {
		if err := stopPods(ctx, s.client, ns, resource.OperatorKind); err != nil {
			return nil, err
		}
	}
	for _, kind := range resource.ManagedKinds() {
		if stillEnabled[kind.Name()] || s.keepCRDsOnDestroy {
			continue
		}
		crd := &apiextensionsv1.CustomResourceDefinition{ObjectMeta: metav1.ObjectMeta{Name: kind.CRDName()}}
		if err := client.IgnoreNotFound(s.client.Delete(ctx, crd)); err != nil {
			return nil, err
		}
	}
	return []byte("operator destroyed"), nil
}

func (s *simulatedCluster) create(ctx context.Context, kind resource.Kind, namespace, name string) ([]byte, error) {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	if err := s.client.Get(ctx, client.ObjectKey{Name: kind.CRDName()}, crd); err != nil {
		return nil, fmt.Errorf("customresourcedefinition %s is not registered: %w", kind.CRDName(), err)
	}
	if err := s.ensureNamespace(ctx, namespace); err != nil {
		return nil, err
	}
	if err := s.client.Create(ctx, testutil.GenerateCustomResource(kind.GroupVersionKind(), namespace, name)); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%s %s created", kind.Name(), name)), nil
}

// startAffinityPods starts one pod per entry of the node affinity file at path, named after the entry.
func (s *simulatedCluster) startAffinityPods(ctx context.Context, kind resource.Kind, namespace, name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	affinities := map[string][]resource.NodeAffinity{}
	if err = json.Unmarshal(data, &affinities); err != nil {
		return err
	}
	podLabels, err := labels.ConvertSelectorToLabelsMap(kind.LabelSelector())
	if err != nil {
		return err
	}
	for podName, podAffinities := range affinities {
		spec := testutil.PodSpec{Name: fmt.Sprintf("%s-%s-%s", kind.Name(), name, podName), Labels: podLabels, Phase: corev1.PodPending}
		if !s.ignoreNodeAffinity {
			spec.NodeAffinity = resource.ToNodeAffinity(podAffinities)
		}
		if err = startPod(ctx, s.client, testutil.GeneratePods(namespace, spec)[0]); err != nil {
			return err
		}
	}
	return nil
}

func (s *simulatedCluster) get(ctx context.Context, plural, namespace string) ([]byte, error) {
	for _, kind := range resource.ManagedKinds() {
		if kind.Plural() != plural {
			continue
		}
		list := &unstructured.UnstructuredList{}
		list.SetGroupVersionKind(kind.GroupVersionKind().GroupVersion().WithKind(kind.GroupVersionKind().Kind + "List"))
		var opts []client.ListOption
		if namespace != "" {
			opts = append(opts, client.InNamespace(namespace))
		}
		if err := s.client.List(ctx, list, opts...); err != nil {
			return nil, err
		}
		out := []string{"NAME"}
		for _, item := range list.Items {
			out = append(out, item.GetName())
		}
		return []byte(strings.Join(out, "\n")), nil
	}
	return nil, fmt.Errorf("unknown resource type %q", plural)
}

func (s *simulatedCluster) ensureNamespace(ctx context.Context, namespace string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}}
	if err := s.client.Create(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		return err
	}
	return nil
}

func (s *simulatedCluster) crdNames(ctx context.Context) ([]string, error) {
	crds := &apiextensionsv1.CustomResourceDefinitionList{}
	if err := s.client.List(ctx, crds); err != nil {
		return nil, err
	}
	var names []string
	for _, crd := range crds.Items {
		names = append(names, crd.Name)
	}
	return names, nil
}

func (s *simulatedCluster) namespaceNames(ctx context.Context) ([]string, error) {
	namespaces := &corev1.NamespaceList{}
	if err := s.client.List(ctx, namespaces); err != nil {
		return nil, err
	}
	var names []string
	for _, ns := range namespaces.Items {
		names = append(names, ns.Name)
	}
	return names, nil
}

func (s *simulatedCluster) podCount(ctx context.Context, namespace string, kind resource.Kind) (int, error) {
	selector, err := labels.Parse(kind.LabelSelector())
	if err != nil {
		return 0, err
	}
	pods := &corev1.PodList{}
	if err = s.client.List(ctx, pods, client.InNamespace(namespace), client.MatchingLabelsSelector{Selector: selector}); err != nil {
		return 0, err
	}
	return len(pods.Items), nil
}

func managedKindOf(obj client.Object) resource.Kind {
	gvk := obj.GetObjectKind().GroupVersionKind()
	for _, kind := range resource.ManagedKinds() {
		if kind.GroupVersionKind() == gvk {
			return kind
		}
	}
	return nil
}

func startPods(ctx context.Context, cl client.Client, namespace, prefix string, kind resource.Kind) error {
	podLabels, err := labels.ConvertSelectorToLabelsMap(kind.LabelSelector())
	if err != nil {
		return err
	}
	specs := make([]testutil.PodSpec, 0, podsPerInstance)
	for i := range podsPerInstance {
		specs = append(specs, testutil.PodSpec{Name: fmt.Sprintf("%s-%d", prefix, i), Labels: podLabels, Phase: corev1.PodPending})
	}
	for _, pod := range testutil.GeneratePods(namespace, specs...) {
		if err = startPod(ctx, cl, pod); err != nil {
			return err
		}
	}
	return nil
}

// startPod creates pod and sets it running. The fake client drops the status on create.
func startPod(ctx context.Context, cl client.Client, pod *corev1.Pod) error {
	if err := cl.Create(ctx, pod); err != nil {
		return err
	}
	pod.Status.Phase = corev1.PodRunning
	return cl.Status().Update(ctx, pod)
}

func markRunning(ctx context.Context, cl client.Client, key client.ObjectKey) error {
	pod := &corev1.Pod{}
	if err := cl.Get(ctx, key, pod); err != nil {
		return err
	}
	pod.Status.Phase = corev1.PodRunning
	return cl.Status().Update(ctx, pod)
}

func stopPods(ctx context.Context, cl client.Client, namespace string, kind resource.Kind) error {
	podLabels, err := labels.ConvertSelectorToLabelsMap(kind.LabelSelector())
	if err != nil {
		return err
	}
	return cl.DeleteAllOf(ctx, &corev1.Pod{}, client.InNamespace(namespace), client.MatchingLabels(podLabels))
}

func render(kind resource.Kind, name, format string) ([]byte, error) {
	obj := testutil.GenerateCustomResource(kind.GroupVersionKind(), "", name)
	if err := unstructured.SetNestedField(obj.Object, false, "spec", "persistentStorage"); err != nil {
		return nil, err
	}
	data, err := obj.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return encode(data, format)
}

// renderKube renders a list holding a config map and a pod of kind, as --mock-kube does.
func renderKube(kind resource.Kind, name, format string) ([]byte, error) {
	podLabels, err := labels.ConvertSelectorToLabelsMap(kind.LabelSelector())
	if err != nil {
		return nil, err
	}
	configMap := unstructured.Unstructured{}
	configMap.SetAPIVersion("v1")
	configMap.SetKind("ConfigMap")
	configMap.SetName(name + "-config")
	pod := unstructured.Unstructured{}
	pod.SetAPIVersion("v1")
	pod.SetKind("Pod")
	pod.SetName(fmt.Sprintf("%s-%s", name, kind.Name()))
	pod.SetLabels(podLabels)
	containers := []any{map[string]any{"name": kind.Name(), "image": "docker.io/blackducksoftware/" + kind.Name()}}
	if err = unstructured.SetNestedSlice(pod.Object, containers, "spec", "containers"); err != nil {
		return nil, err
	}
	list := &unstructured.UnstructuredList{Items: []unstructured.Unstructured{configMap, pod}}
	list.SetAPIVersion("v1")
	list.SetKind("List")
	data, err := list.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return encode(data, format)
}

func encode(data []byte, format string) ([]byte, error) {
	switch format {
	case "json":
		return data, nil
	case "yaml":
		return yaml.JSONToYAML(data)
	}
	return nil, fmt.Errorf("unsupported mock format %q", format)
}

// parseArgs splits a command line into positional arguments and flags.
func parseArgs(args []string) ([]string, map[string]string) {
	var positional []string
	flags := map[string]string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		if key, value, ok := strings.Cut(arg, "="); ok {
			flags[key] = value
			continue
		}
		if slices.Contains(valueFlags, arg) && i+1 < len(args) {
			flags[arg] = args[i+1]
			i++
			continue
		}
		flags[arg] = "true"
	}
	return positional, flags
}
