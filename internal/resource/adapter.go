// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/blackducksoftware/operator-e2e/internal/cluster"
	"github.com/blackducksoftware/operator-e2e/internal/command"
	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
	"github.com/blackducksoftware/operator-e2e/internal/util"
)

// Policies are the retry policies of the waits of an Adapter.
type Policies struct {
	PodsRunning util.RetryPolicy
	PodsDeleted util.RetryPolicy
	CRD         util.RetryPolicy
}

// Adapter gives uniform lifecycle operations for one Kind. It only reads the cluster through the probe
// and only changes it through the control CLI.
type Adapter struct {
	kind     Kind
	tool     *command.Tool
	probe    cluster.Probe
	policies Policies
	logger   logr.Logger
}

// NewAdapter creates an Adapter for kind.
func NewAdapter(kind Kind, tool *command.Tool, probe cluster.Probe, policies Policies, logger logr.Logger) *Adapter {
	return &Adapter{
		kind:     kind,
		tool:     tool,
		probe:    probe,
		policies: policies,
		logger:   logger.WithValues("kind", kind.Name()),
	}
}

// Kind returns the kind handled by the adapter.
func (a *Adapter) Kind() Kind {
	return a.kind
}

// ArePodsRunning waits until at least one pod of the kind exists in namespace and all of them are running.
func (a *Adapter) ArePodsRunning(ctx context.Context, namespace string) util.RetryResult[bool] {
	a.logger.Info("Waiting for pods to be running", "namespace", namespace, "selector", a.kind.LabelSelector(), "policy", a.policies.PodsRunning.String())
	return util.Poll(ctx, a.logger, fmt.Sprintf("pods-running-%s-%s", a.kind.Name(), namespace), func() (bool, error) {
		pods, err := a.probe.ListPods(ctx, namespace, a.kind.LabelSelector())
		if err != nil {
			return false, err
		}
		a.logger.V(4).Info("Observed pods", "namespace", namespace, "pods", pods)
		return cluster.AllPodsRunning(pods), nil
	}, a.policies.PodsRunning, cluster.IsTransientError)
}

// ArePodsDeleted waits until no pod of the kind is left in namespace.
func (a *Adapter) ArePodsDeleted(ctx context.Context, namespace string) util.RetryResult[bool] {
	a.logger.Info("Waiting for pods to be deleted", "namespace", namespace, "selector", a.kind.LabelSelector(), "policy", a.policies.PodsDeleted.String())
	return util.Poll(ctx, a.logger, fmt.Sprintf("pods-deleted-%s-%s", a.kind.Name(), namespace), func() (bool, error) {
		pods, err := a.probe.ListPods(ctx, namespace, a.kind.LabelSelector())
		if err != nil {
			return false, err
		}
		return len(pods) == 0, nil
	}, a.policies.PodsDeleted, cluster.IsTransientError)
}

// DoesCRDExist waits until the CRD of the kind is registered. Kinds without a CRD succeed at once.
func (a *Adapter) DoesCRDExist(ctx context.Context) util.RetryResult[bool] {
	return a.pollCRD(ctx, true)
}

// IsCRDGone waits until the CRD of the kind is no longer registered. Kinds without a CRD succeed at once.
func (a *Adapter) IsCRDGone(ctx context.Context) util.RetryResult[bool] {
	return a.pollCRD(ctx, false)
}

func (a *Adapter) pollCRD(ctx context.Context, wantPresent bool) util.RetryResult[bool] {
	crdName := a.kind.CRDName()
	if crdName == "" {
		return util.RetryResult[bool]{Value: true}
	}
	a.logger.Info("Waiting for customresourcedefinition", "name", crdName, "present", wantPresent, "policy", a.policies.CRD.String())
	return util.Poll(ctx, a.logger, fmt.Sprintf("crd-%s-present-%t", crdName, wantPresent), func() (bool, error) {
		exists, err := a.probe.CustomResourceDefinitionExists(ctx, crdName)
		if err != nil {
			return false, err
		}
		return exists == wantPresent, nil
	}, a.policies.CRD, cluster.IsTransientError)
}

// CRDExists takes a single snapshot of the existence of the CRD of the kind.
func (a *Adapter) CRDExists(ctx context.Context) (bool, error) {
	if a.kind.CRDName() == "" {
		return false, nil
	}
	return a.probe.CustomResourceDefinitionExists(ctx, a.kind.CRDName())
}

// Deploy brings up the kind in namespace through the control CLI.
func (a *Adapter) Deploy(ctx context.Context, namespace string, opts Options) command.Result {
	args, err := a.kind.DeployArgs(namespace, opts)
	if err != nil {
		return command.Result{Err: e2eerrors.WrapError(err, e2eerrors.ErrCommandExecution, fmt.Sprintf("cannot build deploy command for %s", a.kind.Name()))}
	}
	return a.tool.Exec(ctx, args...)
}

// Destroy removes the kind from namespace through the control CLI.
func (a *Adapter) Destroy(ctx context.Context, namespace string, opts Options) command.Result {
	args, err := a.kind.DestroyArgs(namespace, opts)
	if err != nil {
		return command.Result{Err: e2eerrors.WrapError(err, e2eerrors.ErrCommandExecution, fmt.Sprintf("cannot build destroy command for %s", a.kind.Name()))}
	}
	return a.tool.Exec(ctx, args...)
}

// List runs `get <plural>`.
func (a *Adapter) List(ctx context.Context, namespace string) command.Result {
	var args []string
	if namespace != "" {
		args = []string{"-n", namespace}
	}
	return a.tool.Get(ctx, a.kind.Plural(), args...)
}

// Describe runs `describe <kind> <name>`.
func (a *Adapter) Describe(ctx context.Context, namespace, name string) command.Result {
	return a.tool.Describe(ctx, a.kind.Name(), name, appendNamespace(nil, namespace, name)...)
}

// Update runs `update <kind> <name>`.
func (a *Adapter) Update(ctx context.Context, namespace string, opts Options) command.Result {
	return a.act(ctx, ActionUpdate, namespace, opts)
}

// Stop runs `stop <kind> <name>`.
func (a *Adapter) Stop(ctx context.Context, namespace string, opts Options) command.Result {
	return a.act(ctx, ActionStop, namespace, opts)
}

// Start runs `start <kind> <name>`.
func (a *Adapter) Start(ctx context.Context, namespace string, opts Options) command.Result {
	return a.act(ctx, ActionStart, namespace, opts)
}

func (a *Adapter) act(ctx context.Context, action Action, namespace string, opts Options) command.Result {
	args, err := a.kind.ActionArgs(action, namespace, opts)
	if err != nil {
		return command.Result{Err: e2eerrors.WrapError(err, e2eerrors.ErrCommandExecution, fmt.Sprintf("cannot build %s command for %s", action, a.kind.Name()))}
	}
	return a.tool.Exec(ctx, args...)
}
