// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// Names that are fixed for every deployment, remote and local. These are
// deliberately constants rather than configuration: the bundle layout and
// the service unit are part of the application contract, not of any one
// target host.
const (
	// RemoteScratchDir is where uploaded bundles land before extraction.
	RemoteScratchDir = "/tmp"
	// BundleExecutable is the executable expected at the root of the bundle.
	BundleExecutable = "appserver"
	// BundleStaticDir is the static-assets directory expected in the bundle.
	BundleStaticDir = "static"
	// ServiceName is the systemd unit managing the production instance.
	ServiceName = "appserver.service"
	// PersistenceDir is the runtime state subdirectory created inside a
	// test deployment.
	PersistenceDir = "persistence"
	// SettingsFileName is the name the uploaded settings file gets on the
	// remote side.
	SettingsFileName = "app_config.yaml"
)

// Target describes one remote deployment destination for the duration of a
// single run. It is built from validated configuration and not mutated
// afterwards.
type Target struct {
	Host     string
	Port     int
	Username string

	// KeyFile is the path to the private key used for authentication. An
	// empty value selects SSH agent authentication instead.
	KeyFile string

	// BundleZip is the local zip archive holding the application bundle.
	BundleZip string

	// TestDir is the remote directory a test deployment unpacks into. It is
	// emptied on every test deploy.
	TestDir string
	// TestSettingsFile is the local settings file uploaded into the test
	// deployment's persistence directory.
	TestSettingsFile string

	// ProductionDir holds the production executable and static assets.
	ProductionDir string
	// ProductionUser is the user:group ownership given to production files.
	ProductionUser string
}

// Addr returns the host:port dial address, defaulting the port to 22.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// Validate checks everything that can be checked without touching the
// network: required fields for the selected workflow and existence of the
// local files it will read. Any failure is a *ConfigError.
func (t Target) Validate(production bool) error {
	if t.Host == "" {
		return &ConfigError{Msg: "no target host configured"}
	}
	if t.Username == "" {
		return &ConfigError{Msg: "no username configured"}
	}
	if t.BundleZip == "" {
		return &ConfigError{Msg: "no bundle zip configured"}
	}
	if err := mustExist(t.BundleZip, "bundle zip"); err != nil {
		return err
	}
	if t.KeyFile != "" {
		if err := mustExist(t.KeyFile, "private key file"); err != nil {
			return err
		}
	}

	if production {
		if t.ProductionDir == "" {
			return &ConfigError{Msg: "no production directory configured"}
		}
		if t.ProductionUser == "" {
			return &ConfigError{Msg: "no production user configured"}
		}
		return nil
	}

	if t.TestDir == "" {
		return &ConfigError{Msg: "no test directory configured"}
	}
	if t.TestSettingsFile == "" {
		return &ConfigError{Msg: "no test settings file configured"}
	}
	return mustExist(t.TestSettingsFile, "test settings file")
}

func mustExist(path, what string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &ConfigError{Msg: fmt.Sprintf("%s does not exist: %q", what, path)}
		}
		return &ConfigError{Msg: fmt.Sprintf("cannot read %s %q", what, path), Err: err}
	}
	return nil
}
