// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/blackducksoftware/operator-e2e/internal/harness"
	"github.com/blackducksoftware/operator-e2e/internal/resource"
	"github.com/blackducksoftware/operator-e2e/internal/util"
)

// Conditions the wait command can wait for.
const (
	ConditionRunning = "running"
	ConditionDeleted = "deleted"
	ConditionCRD     = "crd"
	ConditionCRDGone = "crd-gone"
)

var (
	// WaitCmd waits for one kind to reach a condition
	WaitCmd = &Command{
		Name:      "wait",
		UsageLine: "wait --kind <operator|alert|blackduck|opssight> --for <running|deleted|crd|crd-gone> [--namespace <namespace>]",
		ShortDesc: "Waits until the pods or the CRD of a kind reach a condition",
		LongDesc: `Polls the cluster with the retry policy of the configuration until the condition holds or the attempts are used up.

Flags:
	--config-file
		Path of the harness configuration file. <optional>
	--kubeconfig
		Path of the kubeconfig of the target cluster. Overrides E2E_KUBECONFIG. <optional>
	--kube-context
		Context of the kubeconfig to use. Overrides E2E_KUBECONTEXT. <optional>
	--kind
		Kind to wait for.
	--namespace
		Namespace of the pods. Required for running and deleted.
	--for
		Condition to wait for.
`,
		AddFlags: addWaitFlags,
		Run:      waitForCondition,
	}
	waitOpts = waitOptions{}
)

type waitOptions struct {
	SharedOpts
	Kind      string
	Namespace string
	Condition string
}

func addWaitFlags(fs *flag.FlagSet) {
	SetSharedOpts(fs, &waitOpts.SharedOpts)
	fs.StringVar(&waitOpts.Kind, "kind", "", "Kind to wait for")
	fs.StringVar(&waitOpts.Namespace, "namespace", "", "Namespace of the pods")
	fs.StringVar(&waitOpts.Condition, "for", ConditionRunning, "Condition to wait for")
}

func (o *waitOptions) validate() (resource.Kind, error) {
	kind, err := resource.ByName(o.Kind)
	if err != nil {
		return nil, err
	}
	v := new(util.Validator)
	switch o.Condition {
	case ConditionRunning, ConditionDeleted:
		v.MustNotBeEmpty("namespace", o.Namespace)
	case ConditionCRD, ConditionCRDGone:
		if kind.CRDName() == "" {
			return nil, fmt.Errorf("kind %s has no customresourcedefinition", kind.Name())
		}
	default:
		return nil, fmt.Errorf("unknown condition %q", o.Condition)
	}
	return kind, v.Error
}

func waitForCondition(ctx context.Context, _ []string, logger logr.Logger) error {
	kind, err := waitOpts.validate()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(&waitOpts.SharedOpts)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", waitOpts.ConfigFile, err)
	}
	env, err := harness.NewEnvForConfig(cfg, logger)
	if err != nil {
		return err
	}
	result := wait(ctx, env.Adapter(kind), waitOpts.Condition, waitOpts.Namespace)
	if result.Err != nil {
		return result.Err
	}
	logger.Info("Condition met", "kind", kind.Name(), "condition", waitOpts.Condition, "namespace", waitOpts.Namespace, "attempts", result.Attempts)
	return nil
}

func wait(ctx context.Context, adapter *resource.Adapter, condition, namespace string) util.RetryResult[bool] {
	switch condition {
	case ConditionRunning:
		return adapter.ArePodsRunning(ctx, namespace)
	case ConditionDeleted:
		return adapter.ArePodsDeleted(ctx, namespace)
	case ConditionCRD:
		return adapter.DoesCRDExist(ctx)
	default:
		return adapter.IsCRDGone(ctx)
	}
}
