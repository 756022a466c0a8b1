// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli wires the Shipmaster command-line interface together: flag
// parsing, configuration loading, the passphrase prompt and the handoff
// to the deployment workflows.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/shipmaster/internal/config"
	"github.com/toeirei/shipmaster/internal/deploy"
	"github.com/toeirei/shipmaster/internal/logging"
)

var (
	production bool
	verbose    bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipmaster",
		Short: "Deploy the appserver bundle to a remote host over SSH",
		Long: `Shipmaster uploads a zipped application bundle to a remote host and
brings it into a running state: unpacked into a disposable test directory
by default, or installed over the production service with --production.

Configuration is read from ` + config.FileName + ` in the working directory;
the file is created with defaults on first run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetDebug(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, auth, ok, err := prepare()
			if err != nil || !ok {
				return err
			}
			mode := "test"
			if production {
				mode = "production"
			}
			fmt.Println(titleStyle.Render("shipmaster: " + mode + " deployment"))
			return deploy.Deploy(target, auth, production, deploy.SessionDial)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	cmd.Flags().BoolVarP(&production, "production", "p", false,
		"deploy to the production directory and cycle the service")

	cmd.AddCommand(newRunCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the test-deployed executable, streaming its output",
		Long: `Runs the executable unpacked by a previous test deployment with its
working directory set to the test directory. Output streams to the local
terminal; an interrupt closes the local channel and returns, leaving the
remote process to its own devices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, auth, ok, err := prepare()
			if err != nil || !ok {
				return err
			}
			if err := target.Validate(false); err != nil {
				return err
			}

			session, err := deploy.Connect(target, auth)
			if err != nil {
				return err
			}
			defer session.Close()

			watcher := deploy.NewCancelWatcher()
			defer watcher.Stop()

			w := deploy.NewWorkflow(session, target)
			return w.RunTestApp(os.Stdout, watcher)
		},
	}
}

// prepare loads the configuration and builds the deployment target and
// authentication strategy. ok=false with a nil error means the config file
// was just created and the user should fill it in first.
func prepare() (deploy.Target, deploy.Auth, bool, error) {
	cfg, created, err := config.Load()
	if err != nil {
		return deploy.Target{}, nil, false, err
	}
	if created {
		fmt.Println(hintStyle.Render(fmt.Sprintf(
			"Created %s in the current working directory. Please fill in the desired values, then run shipmaster again.",
			config.FileName)))
		return deploy.Target{}, nil, false, nil
	}

	target := targetFromConfig(cfg)
	auth, err := authFromConfig(cfg)
	if err != nil {
		return deploy.Target{}, nil, false, err
	}
	return target, auth, true, nil
}

func targetFromConfig(cfg config.Config) deploy.Target {
	return deploy.Target{
		Host:             cfg.TargetHost,
		Port:             cfg.TargetPort,
		Username:         cfg.Username,
		KeyFile:          cfg.PrivateKeyFile,
		BundleZip:        cfg.BundleZip,
		TestDir:          cfg.TestDir,
		TestSettingsFile: cfg.TestSettingsFile,
		ProductionDir:    cfg.ProductionDir,
		ProductionUser:   cfg.ProductionUser,
	}
}

// authFromConfig picks the authentication strategy: a configured key file
// selects key-file auth with an interactive passphrase prompt, otherwise a
// running SSH agent is used.
func authFromConfig(cfg config.Config) (deploy.Auth, error) {
	if cfg.PrivateKeyFile == "" {
		return deploy.AgentAuth{}, nil
	}
	passphrase, err := promptPassphrase(cfg.PrivateKeyFile)
	if err != nil {
		return nil, err
	}
	return deploy.KeyFileAuth{Path: cfg.PrivateKeyFile, Passphrase: passphrase}, nil
}

// promptPassphrase reads the key passphrase from the controlling terminal
// without echo. A non-terminal stdin yields an empty passphrase, which is
// right for unencrypted keys in scripted use.
func promptPassphrase(keyFile string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil
	}
	fmt.Printf("Enter passphrase for private key %s: ", keyFile)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("could not read passphrase: %w", err)
	}
	return passphrase, nil
}

// Execute runs the Shipmaster CLI and returns any terminal error after
// printing it. The caller maps a non-nil result to a nonzero exit code.
func Execute() error {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("deployment failed: ")+err.Error())
		return err
	}
	return nil
}
