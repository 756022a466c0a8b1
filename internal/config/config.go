// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads and saves the Shipmaster configuration file. The
// file lives in the working directory, is created with defaults on first
// run and is re-saved after every successful load so newly introduced
// fields show up with their defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"
)

// FileName is the configuration file Shipmaster reads from the working
// directory.
const FileName = "shipmaster.yaml"

// Config is the on-disk settings record. Every field the deployment
// workflows consume comes from here.
type Config struct {
	// TargetHost is the hostname or IP the bundle is deployed to.
	TargetHost string `mapstructure:"target_host" yaml:"target_host"`
	// TargetPort is the SSH port on the target.
	TargetPort int `mapstructure:"target_port" yaml:"target_port"`
	// Username to log in as on the target.
	Username string `mapstructure:"username" yaml:"username"`
	// PrivateKeyFile is the key used for authentication. Leave empty to use
	// a running SSH agent instead.
	PrivateKeyFile string `mapstructure:"private_key_file" yaml:"private_key_file"`

	// BundleZip is the local zip archive containing the built appserver
	// executable and the static directory.
	BundleZip string `mapstructure:"bundle_zip" yaml:"bundle_zip"`

	// TestDir is the remote directory used for test deployments. It is
	// emptied on every test deploy.
	TestDir string `mapstructure:"test_dir" yaml:"test_dir"`
	// TestSettingsFile is the local file that becomes the application's
	// settings file in a test deployment.
	TestSettingsFile string `mapstructure:"test_settings_file" yaml:"test_settings_file"`

	// ProductionDir is where the production executable and static assets
	// live on the target.
	ProductionDir string `mapstructure:"production_dir" yaml:"production_dir"`
	// ProductionUser is the user and group given to production files, as in
	// chown user:user.
	ProductionUser string `mapstructure:"production_user" yaml:"production_user"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{TargetPort: 22}
}

// Load reads the configuration file from the working directory. When the
// file does not exist it is created with defaults and created=true is
// returned so the caller can instruct the user and exit. A successfully
// loaded file is immediately saved back to pick up new fields.
func Load() (cfg Config, created bool, err error) {
	v := viper.New()
	v.SetConfigFile(FileName)
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault("target_port", def.TargetPort)

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) || isNotFound(err) {
			def := Default()
			if werr := Save(def); werr != nil {
				return def, false, werr
			}
			return def, true, nil
		}
		return cfg, false, fmt.Errorf("could not read %s: %w", FileName, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, false, fmt.Errorf("could not parse %s: %w", FileName, err)
	}

	// Re-save so fields added since the file was written appear with their
	// defaults.
	if err := Save(cfg); err != nil {
		return cfg, false, err
	}
	return cfg, false, nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

// Save writes the configuration to the working directory.
func Save(c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not serialize configuration: %w", err)
	}
	if err := os.WriteFile(FileName, data, 0o644); err != nil {
		return fmt.Errorf("could not save %s: %w", FileName, err)
	}
	return nil
}
