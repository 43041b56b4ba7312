// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	multierr "github.com/hashicorp/go-multierror"

	"github.com/blackducksoftware/operator-e2e/internal/harness"
	"github.com/blackducksoftware/operator-e2e/internal/scenario"
)

var (
	// RunCmd runs end-to-end scenarios against a cluster
	RunCmd = &Command{
		Name:      "run",
		UsageLine: "run [--config-file <file>] [--scenarios lifecycle,namespace-isolation,mock-manifests,node-affinity]",
		ShortDesc: "Runs end-to-end scenarios against the cluster of the kubeconfig",
		LongDesc: `Runs the selected scenarios one after the other. Each scenario stops at its first failing step and always
tears down the namespaces and CRDs it may have created. The command fails if any scenario failed.

Flags:
	--config-file
		Path of the harness configuration file. <optional>
	--tool-path
		Path of the control CLI executable. Overrides E2E_TOOL_PATH. <optional>
	--kubeconfig
		Path of the kubeconfig of the target cluster. Overrides E2E_KUBECONFIG. <optional>
	--kube-context
		Context of the kubeconfig to use. Overrides E2E_KUBECONTEXT. <optional>
	--scenarios
		Comma separated names of the scenarios to run. Defaults to all scenarios. Without blackduck credentials
		in the configuration the lifecycle leaves out blackducks and the scenarios needing one are skipped.
`,
		AddFlags: addRunFlags,
		Run:      runScenarios,
	}
	runOpts = runOptions{}
)

type runOptions struct {
	SharedOpts
	Scenarios string
}

func addRunFlags(fs *flag.FlagSet) {
	SetSharedOpts(fs, &runOpts.SharedOpts)
	fs.StringVar(&runOpts.Scenarios, "scenarios", strings.Join(scenario.Names(), ","), "Comma separated names of the scenarios to run")
}

func runScenarios(ctx context.Context, _ []string, logger logr.Logger) error {
	cfg, err := loadConfig(&runOpts.SharedOpts)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", runOpts.ConfigFile, err)
	}
	env, err := harness.NewEnvForConfig(cfg, logger)
	if err != nil {
		return err
	}
	scenarios, err := selectScenarios(env, runOpts.Scenarios, logger)
	if err != nil {
		return err
	}
	var errs error
	for _, sc := range scenarios {
		if err = sc.Run(ctx, logger); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("scenario %s failed: %w", sc.Name, err))
		}
	}
	return errs
}

func selectScenarios(env *harness.Env, names string, logger logr.Logger) ([]*scenario.Scenario, error) {
	var scenarios []*scenario.Scenario
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sc, err := scenario.ByName(env, name)
		if errors.Is(err, scenario.ErrMissingCredentials) {
			logger.Info("Skipping scenario", "scenario", name, "reason", err.Error())
			continue
		}
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenario selected, supported scenarios are %v", scenario.Names())
	}
	return scenarios, nil
}
