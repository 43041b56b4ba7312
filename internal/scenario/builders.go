// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	"github.com/blackducksoftware/operator-e2e/internal/harness"
	"github.com/blackducksoftware/operator-e2e/internal/resource"
)

// Names of the scenarios.
const (
	LifecycleName          = "lifecycle"
	NamespaceIsolationName = "namespace-isolation"
	MockManifestsName      = "mock-manifests"
	NodeAffinityName       = "node-affinity"
)

// MockFormats are the output formats of `create alert`. Formats prefixed with resource.MockKubePrefix render plain
// kubernetes objects with --mock-kube instead of the custom resource.
var MockFormats = []string{"yaml", "json", resource.MockKubePrefix + "yaml", resource.MockKubePrefix + "json"}

// DocumentationPod is the blackduck pod pinned by the node-affinity scenario.
const DocumentationPod = "documentation"

// ErrMissingCredentials is returned by ByName for scenarios that deploy a blackduck when no blackduck credentials
// are configured.
var ErrMissingCredentials = errors.New("no blackduck credentials configured")

// Names returns the names of all scenarios.
func Names() []string {
	return []string{LifecycleName, NamespaceIsolationName, MockManifestsName, NodeAffinityName}
}

// ByName builds the scenario called name. Without blackduck credentials the lifecycle scenario leaves out the
// blackduck kind and the scenarios that cannot do without it fail with ErrMissingCredentials.
func ByName(env *harness.Env, name string) (*Scenario, error) {
	hasCredentials := env.Config.BlackDuck != nil
	switch name {
	case LifecycleName:
		kinds := resource.ManagedKinds()
		if !hasCredentials {
			kinds = slices.DeleteFunc(kinds, func(k resource.Kind) bool { return k == resource.BlackDuckKind })
		}
		return Lifecycle(env, kinds...), nil
	case NamespaceIsolationName:
		if !hasCredentials {
			return nil, fmt.Errorf("scenario %s: %w", name, ErrMissingCredentials)
		}
		return NamespaceIsolation(env), nil
	case MockManifestsName:
		return MockManifests(env, MockFormats...), nil
	case NodeAffinityName:
		if !hasCredentials {
			return nil, fmt.Errorf("scenario %s: %w", name, ErrMissingCredentials)
		}
		return NodeAffinity(env, DefaultNodeAffinity()), nil
	}
	return nil, fmt.Errorf("unknown scenario %q, supported scenarios are %v", name, Names())
}

// DefaultNodeAffinity requires the architecture of the host, which every node of a local kind cluster shares.
func DefaultNodeAffinity() resource.NodeAffinity {
	return resource.NodeAffinity{AffinityType: resource.AffinityHard, Key: corev1.LabelArchStable, Op: string(corev1.NodeSelectorOpIn), Values: []string{runtime.GOARCH}}
}

// Lifecycle deploys the operator cluster scoped, takes every kind through create, stop, start, list, update and
// delete and finally destroys the operator and checks that all managed CRDs are gone.
// Every instance lives in a namespace named after it.
func Lifecycle(env *harness.Env, kinds ...resource.Kind) *Scenario {
	s := newSteps(env)
	operatorNamespace := env.Config.OperatorNamespace
	operatorOpts := env.Options(resource.OperatorKind, "")
	operatorOpts.ClusterScoped = true
	operatorOpts.EnabledKinds = resource.ManagedKinds()

	sc := &Scenario{Name: LifecycleName}
	sc.Steps = append(sc.Steps,
		s.deployOperator(operatorNamespace, operatorOpts),
		s.podsRunning(resource.OperatorKind, operatorNamespace),
		s.crdsRegistered(resource.ManagedKinds()...),
	)
	for _, kind := range kinds {
		name := env.InstanceName(kind)
		opts := env.Options(kind, name)
		if kind == resource.AlertKind {
			opts.PersistentStorage = ptr.To(false)
		}
		sc.Steps = append(sc.Steps,
			s.create(kind, name, opts),
			s.podsRunning(kind, name),
			s.act(resource.ActionStop, kind, name, opts),
			s.podsDeleted(kind, name),
			s.act(resource.ActionStart, kind, name, opts),
			s.podsRunning(kind, name),
			s.listed(kind, name, name),
			s.act(resource.ActionUpdate, kind, name, opts),
			s.podsRunning(kind, name),
			s.delete(kind, name, opts),
			s.podsDeleted(kind, name),
		)
	}
	sc.Steps = append(sc.Steps,
		s.destroyOperator(operatorNamespace),
		s.podsDeleted(resource.OperatorKind, operatorNamespace),
		s.crdsGone(resource.ManagedKinds()...),
	)
	sc.Teardown = s.teardown()
	return sc
}

// NamespaceIsolation deploys one operator for alerts into the first isolation namespace and one for blackducks into
// the second. It checks that each comes up on its own and that removing the first leaves the second untouched.
func NamespaceIsolation(env *harness.Env) *Scenario {
	s := newSteps(env)
	if n := len(env.Config.Instances.IsolationNamespaces); n != 2 {
		return &Scenario{
			Name:     NamespaceIsolationName,
			Steps:    []Step{{Name: "check-isolation-namespaces", Fn: failWith(fmt.Errorf("namespace isolation needs exactly 2 namespaces, got %d", n))}},
			Teardown: s.teardown(),
		}
	}
	nsA, nsB := env.Config.Instances.IsolationNamespaces[0], env.Config.Instances.IsolationNamespaces[1]
	operatorA := env.Options(resource.OperatorKind, "")
	operatorA.EnabledKinds = []resource.Kind{resource.AlertKind}
	operatorB := env.Options(resource.OperatorKind, "")
	operatorB.EnabledKinds = []resource.Kind{resource.BlackDuckKind}
	alert := env.Options(resource.AlertKind, env.InstanceName(resource.AlertKind))
	blackDuck := env.Options(resource.BlackDuckKind, env.InstanceName(resource.BlackDuckKind))

	return &Scenario{
		Name: NamespaceIsolationName,
		Steps: []Step{
			s.deployOperator(nsA, operatorA),
			s.podsRunning(resource.OperatorKind, nsA),
			s.deployOperator(nsB, operatorB),
			s.podsRunning(resource.OperatorKind, nsB),
			s.crdsRegistered(resource.AlertKind, resource.BlackDuckKind),
			s.create(resource.AlertKind, nsA, alert),
			s.podsRunning(resource.AlertKind, nsA),
			s.create(resource.BlackDuckKind, nsB, blackDuck),
			s.podsRunning(resource.BlackDuckKind, nsB),
			s.delete(resource.AlertKind, nsA, alert),
			s.podsDeleted(resource.AlertKind, nsA),
			s.destroyOperator(nsA),
			s.podsDeleted(resource.OperatorKind, nsA),
			s.podsRunning(resource.OperatorKind, nsB),
			s.podsRunning(resource.BlackDuckKind, nsB),
			s.delete(resource.BlackDuckKind, nsB, blackDuck),
			s.podsDeleted(resource.BlackDuckKind, nsB),
			s.destroyOperator(nsB),
			s.podsDeleted(resource.OperatorKind, nsB),
			s.crdsGone(resource.AlertKind, resource.BlackDuckKind),
		},
		Teardown: s.teardown(),
	}
}

// MockManifests renders alert manifests with `create alert --mock <format>` and applies them through the cluster API
// into a namespace named after the instance. The custom resource is removed with `delete alert`, plain kubernetes
// objects rendered with --mock-kube are removed together with their namespace.
func MockManifests(env *harness.Env, formats ...string) *Scenario {
	s := newSteps(env)
	operatorNamespace := env.Config.OperatorNamespace
	operatorOpts := env.Options(resource.OperatorKind, "")
	operatorOpts.ClusterScoped = true
	operatorOpts.EnabledKinds = []resource.Kind{resource.AlertKind}

	sc := &Scenario{Name: MockManifestsName}
	sc.Steps = append(sc.Steps,
		s.deployOperator(operatorNamespace, operatorOpts),
		s.podsRunning(resource.OperatorKind, operatorNamespace),
		s.crdsRegistered(resource.AlertKind),
	)
	for _, format := range formats {
		name := fmt.Sprintf("%s-%s", env.InstanceName(resource.AlertKind), format)
		opts := resource.Options{Name: name, PersistentStorage: ptr.To(false), MockFormat: format}
		args, err := resource.AlertKind.DeployArgs(name, opts)
		if err != nil {
			sc.Steps = append(sc.Steps, Step{Name: "render-" + name, Fn: failWith(err)})
			continue
		}
		manifest := new([]byte)
		remove := s.delete(resource.AlertKind, name, resource.Options{Name: name})
		if strings.HasPrefix(format, resource.MockKubePrefix) {
			remove = s.deleteNamespace(name)
		}
		sc.Steps = append(sc.Steps,
			s.render(name, manifest, args...),
			s.createNamespace(name),
			s.apply(name, name, manifest),
			s.podsRunning(resource.AlertKind, name),
			remove,
			s.podsDeleted(resource.AlertKind, name),
		)
	}
	sc.Steps = append(sc.Steps,
		s.destroyOperator(operatorNamespace),
		s.podsDeleted(resource.OperatorKind, operatorNamespace),
		s.crdsGone(resource.AlertKind),
	)
	sc.Teardown = s.teardown()
	return sc
}

// NodeAffinity creates a blackduck whose DocumentationPod must carry affinity and checks that the operator puts it
// into the pod spec. The node affinity file is written to the temp directory and removed in the teardown.
func NodeAffinity(env *harness.Env, affinity resource.NodeAffinity) *Scenario {
	s := newSteps(env)
	operatorNamespace := env.Config.OperatorNamespace
	operatorOpts := env.Options(resource.OperatorKind, "")
	operatorOpts.ClusterScoped = true
	operatorOpts.EnabledKinds = []resource.Kind{resource.BlackDuckKind}

	name := env.InstanceName(resource.BlackDuckKind)
	path := filepath.Join(os.TempDir(), harness.UniqueName(NodeAffinityName)+".json")
	opts := env.Options(resource.BlackDuckKind, name)
	opts.PersistentStorage = ptr.To(false)
	opts.NodeAffinityFile = path

	return &Scenario{
		Name: NodeAffinityName,
		Steps: []Step{
			s.deployOperator(operatorNamespace, operatorOpts),
			s.podsRunning(resource.OperatorKind, operatorNamespace),
			s.crdsRegistered(resource.BlackDuckKind),
			s.writeNodeAffinities(path, map[string][]resource.NodeAffinity{DocumentationPod: {affinity}}),
			s.create(resource.BlackDuckKind, name, opts),
			s.podsRunning(resource.BlackDuckKind, name),
			s.nodeAffinityApplied(resource.BlackDuckKind, name, DocumentationPod, affinity),
			s.delete(resource.BlackDuckKind, name, opts),
			s.podsDeleted(resource.BlackDuckKind, name),
			s.destroyOperator(operatorNamespace),
			s.podsDeleted(resource.OperatorKind, operatorNamespace),
			s.crdsGone(resource.BlackDuckKind),
		},
		Teardown: s.teardown(),
	}
}
