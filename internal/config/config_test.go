// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"strings"
	"testing"

	"github.com/toeirei/shipmaster/internal/config"
)

// inTempDir runs the test with a temporary working directory, since the
// config file always lives in the working directory.
func inTempDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoadCreatesDefaultFileOnFirstRun(t *testing.T) {
	inTempDir(t)

	cfg, created, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first run")
	}
	if cfg.TargetPort != 22 {
		t.Errorf("default TargetPort = %d, want 22", cfg.TargetPort)
	}

	data, err := os.ReadFile(config.FileName)
	if err != nil {
		t.Fatalf("config file was not written: %v", err)
	}
	if !strings.Contains(string(data), "target_port: 22") {
		t.Errorf("written defaults missing target_port, got:\n%s", data)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	inTempDir(t)

	want := config.Config{
		TargetHost:       "deploy.example.com",
		TargetPort:       2222,
		Username:         "deployer",
		PrivateKeyFile:   "/home/me/.ssh/id_ed25519",
		BundleZip:        "./bundle.zip",
		TestDir:          "/srv/test",
		TestSettingsFile: "./settings.yaml",
		ProductionDir:    "/opt/appserver",
		ProductionUser:   "www-data",
	}
	if err := config.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, created, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if created {
		t.Fatal("created=true for an existing file")
	}
	if got != want {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestLoadResavesToPickUpNewFields(t *testing.T) {
	inTempDir(t)

	// A config written by an older version knows nothing about most fields.
	old := "target_host: legacy.example.com\n"
	if err := os.WriteFile(config.FileName, []byte(old), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	cfg, _, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetHost != "legacy.example.com" {
		t.Errorf("TargetHost = %q", cfg.TargetHost)
	}
	if cfg.TargetPort != 22 {
		t.Errorf("TargetPort default = %d, want 22", cfg.TargetPort)
	}

	data, err := os.ReadFile(config.FileName)
	if err != nil {
		t.Fatalf("read re-saved config: %v", err)
	}
	for _, field := range []string{"username", "bundle_zip", "production_user"} {
		if !strings.Contains(string(data), field) {
			t.Errorf("re-saved config missing new field %q:\n%s", field, data)
		}
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	inTempDir(t)

	if err := os.WriteFile(config.FileName, []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	if _, _, err := config.Load(); err == nil {
		t.Fatal("Load accepted a malformed file")
	}
}
