// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"testing"

	"github.com/toeirei/shipmaster/internal/config"
	"github.com/toeirei/shipmaster/internal/deploy"
)

func TestTargetFromConfig(t *testing.T) {
	cfg := config.Config{
		TargetHost:       "host",
		TargetPort:       2222,
		Username:         "user",
		PrivateKeyFile:   "/keys/id",
		BundleZip:        "./bundle.zip",
		TestDir:          "/srv/test",
		TestSettingsFile: "./settings.yaml",
		ProductionDir:    "/opt/appserver",
		ProductionUser:   "www-data",
	}

	target := targetFromConfig(cfg)
	if target.Addr() != "host:2222" {
		t.Errorf("Addr() = %q", target.Addr())
	}
	if target.KeyFile != cfg.PrivateKeyFile || target.ProductionUser != cfg.ProductionUser {
		t.Errorf("mapping lost fields: %+v", target)
	}
}

func TestAuthSelection(t *testing.T) {
	// Empty key file selects the agent strategy.
	auth, err := authFromConfig(config.Config{})
	if err != nil {
		t.Fatalf("authFromConfig: %v", err)
	}
	if _, ok := auth.(deploy.AgentAuth); !ok {
		t.Errorf("auth = %T, want AgentAuth", auth)
	}

	// A configured key file selects key-file auth. Stdin is not a terminal
	// under go test, so no passphrase prompt happens.
	auth, err = authFromConfig(config.Config{PrivateKeyFile: "/keys/id"})
	if err != nil {
		t.Fatalf("authFromConfig: %v", err)
	}
	kf, ok := auth.(deploy.KeyFileAuth)
	if !ok {
		t.Fatalf("auth = %T, want KeyFileAuth", auth)
	}
	if kf.Path != "/keys/id" {
		t.Errorf("Path = %q", kf.Path)
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	if cmd.Flags().Lookup("production") == nil {
		t.Error("missing --production flag")
	}
	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("missing --verbose flag")
	}

	var hasRun bool
	for _, sub := range cmd.Commands() {
		if sub.Name() == "run" {
			hasRun = true
		}
	}
	if !hasRun {
		t.Error("missing run subcommand")
	}
}
