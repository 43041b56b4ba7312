// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// Group is the API group of all managed kinds.
	Group = "synopsys.com"
	// Version is the served version of all managed kinds.
	Version = "v1"
	// DefaultOperatorNamespace is where a cluster-scoped operator is deployed when no namespace is given.
	DefaultOperatorNamespace = "synopsys-operator"
)

// Kind describes how one kind of resource is identified in the cluster and which control CLI arguments
// deploy and destroy it. A Kind never holds a namespace, the namespace is passed on every call.
type Kind interface {
	// Name is the singular name used on the control CLI, e.g. alert.
	Name() string
	// Plural is the name used by `get`, e.g. alerts.
	Plural() string
	// LabelSelector selects the pods belonging to the kind.
	LabelSelector() string
	// CRDName is the name of the CustomResourceDefinition registering the kind. It is empty for the operator.
	CRDName() string
	// GroupVersionKind is the kind of the custom objects. It is empty for the operator.
	GroupVersionKind() schema.GroupVersionKind
	// DeployArgs returns the control CLI arguments bringing up the kind in namespace.
	DeployArgs(namespace string, opts Options) ([]string, error)
	// DestroyArgs returns the control CLI arguments removing the kind from namespace.
	DestroyArgs(namespace string, opts Options) ([]string, error)
	// ActionArgs returns the control CLI arguments running action on an existing instance in namespace.
	ActionArgs(action Action, namespace string, opts Options) ([]string, error)
}

// Action is a control CLI verb changing an existing instance.
type Action string

const (
	// ActionUpdate reapplies the spec of an instance.
	ActionUpdate Action = "update"
	// ActionStop scales an instance down to no pods while keeping its custom resource.
	ActionStop Action = "stop"
	// ActionStart brings a stopped instance back up.
	ActionStart Action = "start"
)

// MockKubePrefix marks mock formats rendering plain Kubernetes objects (--mock-kube) instead of the custom resource (--mock).
const MockKubePrefix = "kube-"

// Credentials are the passwords required to create a Black Duck instance.
type Credentials struct {
	AdminPassword    string `json:"adminPassword"`
	PostgresPassword string `json:"postgresPassword"`
	UserPassword     string `json:"userPassword"`
}

// Options parameterise DeployArgs and DestroyArgs. Each kind only reads the fields it understands.
type Options struct {
	// Name of the instance. Required by managed kinds.
	Name string
	// Image overrides the operator image.
	Image string
	// ClusterScoped deploys the operator with cluster wide permissions.
	ClusterScoped bool
	// EnabledKinds are the managed kinds the operator registers CRDs for.
	EnabledKinds []Kind
	// PersistentStorage is passed as --persistent-storage when set.
	PersistentStorage *bool
	// Credentials for Black Duck.
	Credentials *Credentials
	// MockFormat makes `create` print the manifests instead of creating them. json and yaml render the
	// custom resource, kube-json and kube-yaml the Kubernetes objects of the instance.
	MockFormat string
	// NodeAffinityFile is the path of a file with node affinities per pod. Only Black Duck understands it.
	NodeAffinityFile string
	// ExtraArgs are appended unchanged to the deploy and destroy arguments.
	ExtraArgs []string
}

type identity struct {
	name     string
	plural   string
	appLabel string
	kind     string
}

func (i identity) Name() string {
	return i.name
}

func (i identity) Plural() string {
	return i.plural
}

func (i identity) LabelSelector() string {
	return "app=" + i.appLabel
}

func (i identity) CRDName() string {
	if i.kind == "" {
		return ""
	}
	return i.plural + "." + Group
}

func (i identity) GroupVersionKind() schema.GroupVersionKind {
	if i.kind == "" {
		return schema.GroupVersionKind{}
	}
	return schema.GroupVersionKind{Group: Group, Version: Version, Kind: i.kind}
}

func (i identity) String() string {
	return i.name
}

// createArgs builds `create <kind> <name>` for a managed kind. The namespace defaults to the instance name
// on the control CLI, so -n is only passed when it differs.
func (i identity) createArgs(namespace string, opts Options) ([]string, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%s requires an instance name", i.name)
	}
	args := []string{"create", i.name, opts.Name}
	args = appendNamespace(args, namespace, opts.Name)
	if opts.PersistentStorage != nil {
		args = append(args, "--persistent-storage="+strconv.FormatBool(*opts.PersistentStorage))
	}
	if opts.MockFormat != "" {
		if format, ok := strings.CutPrefix(opts.MockFormat, MockKubePrefix); ok {
			args = append(args, "--mock-kube", format)
		} else {
			args = append(args, "--mock", opts.MockFormat)
		}
	}
	return args, nil
}

func (i identity) actionArgs(action Action, namespace string, opts Options) ([]string, error) {
	switch action {
	case ActionUpdate, ActionStop, ActionStart:
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("%s requires an instance name", i.name)
	}
	args := []string{string(action), i.name, opts.Name}
	return appendNamespace(args, namespace, opts.Name), nil
}

func (i identity) deleteArgs(namespace string, opts Options) ([]string, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%s requires an instance name", i.name)
	}
	args := []string{"delete", i.name, opts.Name}
	return append(appendNamespace(args, namespace, opts.Name), opts.ExtraArgs...), nil
}

func appendNamespace(args []string, namespace, implicitNamespace string) []string {
	if namespace == "" || namespace == implicitNamespace {
		return args
	}
	return append(args, "-n", namespace)
}
