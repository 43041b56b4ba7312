// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// OperatorKind is the control plane reconciling all managed kinds.
	OperatorKind = &Operator{identity{name: "operator", plural: "operators", appLabel: "synopsys-operator"}}
	// AlertKind is the alerting instance.
	AlertKind = &Alert{identity{name: "alert", plural: "alerts", appLabel: "alert", kind: "Alert"}}
	// BlackDuckKind is the storage scanning instance.
	BlackDuckKind = &BlackDuck{identity{name: "blackduck", plural: "blackducks", appLabel: "blackduck", kind: "Blackduck"}}
	// OpsSightKind is the advisor instance.
	OpsSightKind = &OpsSight{identity{name: "opssight", plural: "opssights", appLabel: "opssight", kind: "OpsSight"}}
)

// ManagedKinds returns the kinds reconciled by the operator.
func ManagedKinds() []Kind {
	return []Kind{AlertKind, BlackDuckKind, OpsSightKind}
}

// ByName returns the kind with the given control CLI name.
func ByName(name string) (Kind, error) {
	for _, kind := range append([]Kind{OperatorKind}, ManagedKinds()...) {
		if kind.Name() == name {
			return kind, nil
		}
	}
	return nil, fmt.Errorf("unknown kind %q, supported kinds are operator, alert, blackduck and opssight", name)
}

// Operator deploys the control plane with `deploy` and removes it with `destroy`.
type Operator struct {
	identity
}

// ManagedCRDs returns the names of the CRDs the operator registers.
func (o *Operator) ManagedCRDs() []string {
	crds := make([]string, 0, 3)
	for _, kind := range ManagedKinds() {
		crds = append(crds, kind.CRDName())
	}
	return crds
}

// DeployArgs builds `deploy [-i image] [--cluster-scoped] [--enable-<kind>...] [-n namespace]`.
func (o *Operator) DeployArgs(namespace string, opts Options) ([]string, error) {
	args := []string{"deploy"}
	if opts.Image != "" {
		args = append(args, "-i", opts.Image)
	}
	if opts.ClusterScoped {
		args = append(args, "--cluster-scoped")
	}
	for _, kind := range opts.EnabledKinds {
		if !slices.Contains(ManagedKinds(), kind) {
			return nil, fmt.Errorf("operator cannot enable kind %s", kind.Name())
		}
		args = append(args, "--enable-"+kind.Name())
	}
	args = appendNamespace(args, namespace, DefaultOperatorNamespace)
	return append(args, opts.ExtraArgs...), nil
}

// DestroyArgs builds `destroy [namespace]`.
func (o *Operator) DestroyArgs(namespace string, opts Options) ([]string, error) {
	args := []string{"destroy"}
	if namespace != "" && namespace != DefaultOperatorNamespace {
		args = append(args, namespace)
	}
	return append(args, opts.ExtraArgs...), nil
}

// ActionArgs fails, the operator has no instance to act on.
func (o *Operator) ActionArgs(action Action, _ string, _ Options) ([]string, error) {
	return nil, fmt.Errorf("operator does not support %s", action)
}

// Alert is created with `create alert <name>` and supports mock output.
type Alert struct {
	identity
}

func (a *Alert) DeployArgs(namespace string, opts Options) ([]string, error) {
	args, err := a.createArgs(namespace, opts)
	if err != nil {
		return nil, err
	}
	return append(args, opts.ExtraArgs...), nil
}

func (a *Alert) DestroyArgs(namespace string, opts Options) ([]string, error) {
	return a.deleteArgs(namespace, opts)
}

func (a *Alert) ActionArgs(action Action, namespace string, opts Options) ([]string, error) {
	return a.actionArgs(action, namespace, opts)
}

// BlackDuck is created with `create blackduck <name>` and requires credentials.
type BlackDuck struct {
	identity
}

func (b *BlackDuck) DeployArgs(namespace string, opts Options) ([]string, error) {
	creds := opts.Credentials
	if creds == nil || creds.AdminPassword == "" || creds.PostgresPassword == "" || creds.UserPassword == "" {
		return nil, errors.New("blackduck requires admin, postgres and user passwords")
	}
	args, err := b.createArgs(namespace, opts)
	if err != nil {
		return nil, err
	}
	args = append(args,
		"--admin-password", creds.AdminPassword,
		"--postgres-password", creds.PostgresPassword,
		"--user-password", creds.UserPassword)
	if opts.NodeAffinityFile != "" {
		args = append(args, "--node-affinity-file-path", opts.NodeAffinityFile)
	}
	return append(args, opts.ExtraArgs...), nil
}

func (b *BlackDuck) DestroyArgs(namespace string, opts Options) ([]string, error) {
	return b.deleteArgs(namespace, opts)
}

func (b *BlackDuck) ActionArgs(action Action, namespace string, opts Options) ([]string, error) {
	return b.actionArgs(action, namespace, opts)
}

// OpsSight is created with `create opssight <name>`.
type OpsSight struct {
	identity
}

func (o *OpsSight) DeployArgs(namespace string, opts Options) ([]string, error) {
	args, err := o.createArgs(namespace, opts)
	if err != nil {
		return nil, err
	}
	return append(args, opts.ExtraArgs...), nil
}

func (o *OpsSight) DestroyArgs(namespace string, opts Options) ([]string, error) {
	return o.deleteArgs(namespace, opts)
}

func (o *OpsSight) ActionArgs(action Action, namespace string, opts Options) ([]string, error) {
	return o.actionArgs(action, namespace, opts)
}
