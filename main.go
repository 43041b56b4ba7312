// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// so that kubeconfigs using them can be loaded.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/blackducksoftware/operator-e2e/cmd"
)

func main() {
	args := os.Args[1:]
	checkArgs(args)
	ctx := ctrl.SetupSignalHandler()
	opts := zap.Options{
		Development: false,
		Level:       zapcore.InfoLevel,
		TimeEncoder: zapcore.RFC3339TimeEncoder,
	}
	opts.BindFlags(flag.CommandLine)
	cmdArgs, command, err := parseCommand(args)
	if err != nil {
		os.Exit(2)
	}
	// initializing global logger
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	// creating root logger from global logger
	logger := ctrl.Log.WithName("operator-e2e")

	if err = command.Run(ctx, cmdArgs, logger); err != nil {
		logger.Error(err, fmt.Sprintf("failed to run command %s", command.Name))
		os.Exit(1)
	}
}

func checkArgs(args []string) {
	switch {
	case len(args) < 1, args[0] == "-h", args[0] == "--help":
		cmd.PrintCliUsage(os.Stdout)
		os.Exit(0)
	case args[0] == "help":
		if len(args) == 1 {
			_, _ = fmt.Fprintf(os.Stderr, "Incorrect usage. To get the CLI usage help use `-h | --help`. To get a command help use `operator-e2e help <command-name>`\n")
			os.Exit(2)
		}
		requestedCommand := args[1]
		if _, err := getCommand(requestedCommand); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cmd.PrintHelp(requestedCommand, os.Stdout)
		os.Exit(0)
	}
}

func getCommand(cmdName string) (*cmd.Command, error) {
	supportedCmdNames := make([]string, 0, len(cmd.Commands))
	for _, cmnd := range cmd.Commands {
		supportedCmdNames = append(supportedCmdNames, cmnd.Name)
		if cmdName == cmnd.Name {
			return cmnd, nil
		}
	}
	return nil, fmt.Errorf("unknown command %s. Supported commands are: %v", cmdName, supportedCmdNames)
}

func parseCommand(args []string) ([]string, *cmd.Command, error) {
	requestedCmdName := args[0]
	command, err := getCommand(requestedCmdName)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	fs := flag.CommandLine
	fs.Usage = func() {}
	if command.AddFlags != nil {
		command.AddFlags(fs)
	}
	if err = fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			cmd.PrintHelp(requestedCmdName, os.Stdout)
			return nil, nil, err
		}
		cmd.PrintHelp(requestedCmdName, os.Stderr)
		return nil, nil, err
	}
	return fs.Args(), command, nil
}
