// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"flag"

	"github.com/go-logr/logr"

	hapi "github.com/blackducksoftware/operator-e2e/api/harness"
	"github.com/blackducksoftware/operator-e2e/internal/config"
)

var (
	// Commands are all commands supported by the CLI
	Commands = []*Command{
		RunCmd,
		WaitCmd,
	}
)

// Command is a sub command of the CLI
type Command struct {
	Name      string
	UsageLine string
	ShortDesc string
	LongDesc  string
	AddFlags  func(fs *flag.FlagSet)
	Run       func(ctx context.Context, args []string, logger logr.Logger) error
}

// SharedOpts are the options shared by all commands
type SharedOpts struct {
	// ConfigFile is the path of the harness configuration file. If empty the defaults are used.
	ConfigFile string
	// ToolPath is the path of the control CLI. It takes precedence over the configuration file and the environment.
	ToolPath string
	// Kubeconfig is the path of the kubeconfig of the target cluster. It takes precedence over the configuration file and the environment.
	Kubeconfig string
	// KubeContext is the kubeconfig context to use.
	KubeContext string

	kubeconfigFlag *flag.Flag
}

// SetSharedOpts binds the shared options to fs
func SetSharedOpts(fs *flag.FlagSet, opts *SharedOpts) {
	fs.StringVar(&opts.ConfigFile, "config-file", "", "Path of the config file containing the harness configuration")
	fs.StringVar(&opts.ToolPath, "tool-path", "", "Path of the control CLI executable")
	// controller-runtime registers --kubeconfig on the default flag set
	if f := fs.Lookup("kubeconfig"); f != nil {
		opts.kubeconfigFlag = f
	} else {
		fs.StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path of the kubeconfig of the target cluster")
	}
	fs.StringVar(&opts.KubeContext, "kube-context", "", "Context of the kubeconfig to use")
}

// loadConfig loads the configuration file and applies the command line overrides.
func loadConfig(opts *SharedOpts) (*hapi.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.ToolPath != "" {
		cfg.ToolPath = opts.ToolPath
	}
	if opts.kubeconfigFlag != nil {
		opts.Kubeconfig = opts.kubeconfigFlag.Value.String()
	}
	if opts.Kubeconfig != "" {
		cfg.Kubeconfig = opts.Kubeconfig
	}
	if opts.KubeContext != "" {
		cfg.KubeContext = opts.KubeContext
	}
	return cfg, nil
}
