// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package harness

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/exec"
	"sigs.k8s.io/controller-runtime/pkg/client"

	hapi "github.com/blackducksoftware/operator-e2e/api/harness"
	"github.com/blackducksoftware/operator-e2e/internal/cluster"
	"github.com/blackducksoftware/operator-e2e/internal/command"
	"github.com/blackducksoftware/operator-e2e/internal/config"
	"github.com/blackducksoftware/operator-e2e/internal/resource"
)

// Env is the explicit context handed to every scenario. It bundles the access to the cluster, the control CLI
// and one Adapter per kind.
type Env struct {
	Config  *hapi.Config
	Client  client.Client
	Tool    *command.Tool
	Probe   cluster.Probe
	Mutator cluster.Mutator
	Logger  logr.Logger

	adapters map[string]*resource.Adapter
}

// NewEnv creates an Env from a loaded configuration, a cluster client and the executor running the control CLI.
func NewEnv(cfg *hapi.Config, c client.Client, executor exec.Interface, logger logr.Logger) *Env {
	tool := command.NewTool(command.NewRunner(executor, logger.WithName("runner")), cfg.ToolPath, config.ToRetryPolicy(cfg.Policies.Command))
	probe := cluster.NewProbe(c)
	policies := config.AdapterPolicies(cfg)
	adapters := make(map[string]*resource.Adapter)
	for _, kind := range append([]resource.Kind{resource.OperatorKind}, resource.ManagedKinds()...) {
		adapters[kind.Name()] = resource.NewAdapter(kind, tool, probe, policies, logger.WithName("adapter"))
	}
	return &Env{
		Config:   cfg,
		Client:   c,
		Tool:     tool,
		Probe:    probe,
		Mutator:  cluster.NewMutator(c),
		Logger:   logger,
		adapters: adapters,
	}
}

// NewEnvForConfig connects to the cluster named by the configuration and runs the control CLI on the local host.
func NewEnvForConfig(cfg *hapi.Config, logger logr.Logger) (*Env, error) {
	c, err := cluster.NewClient(cfg.Kubeconfig, cfg.KubeContext)
	if err != nil {
		return nil, err
	}
	return NewEnv(cfg, c, exec.New(), logger), nil
}

// Adapter returns the adapter of kind.
func (e *Env) Adapter(kind resource.Kind) *resource.Adapter {
	return e.adapters[kind.Name()]
}

// InstanceName returns the configured instance name of a managed kind.
func (e *Env) InstanceName(kind resource.Kind) string {
	switch kind {
	case resource.AlertKind:
		return e.Config.Instances.Alert
	case resource.BlackDuckKind:
		return e.Config.Instances.BlackDuck
	case resource.OpsSightKind:
		return e.Config.Instances.OpsSight
	}
	return kind.Name()
}

// Options returns the deploy options of kind for the instance called name.
func (e *Env) Options(kind resource.Kind, name string) resource.Options {
	opts := resource.Options{Name: name}
	switch kind {
	case resource.OperatorKind:
		opts.Image = e.Config.OperatorImage
	case resource.BlackDuckKind:
		if creds := e.Config.BlackDuck; creds != nil {
			opts.Credentials = &resource.Credentials{
				AdminPassword:    creds.AdminPassword,
				PostgresPassword: creds.PostgresPassword,
				UserPassword:     creds.UserPassword,
			}
		}
	}
	return opts
}

// UniqueName appends a random suffix to prefix. The result is a valid namespace name as long as prefix is one.
func UniqueName(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", prefix, suffix)
}
