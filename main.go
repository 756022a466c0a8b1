// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Shipmaster.
//
// Usage:
//
//	go run . [flags]
//	./shipmaster [flags]
//
// This launches the Shipmaster CLI. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/shipmaster/internal/cli"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X main.version=1.2.3"
var version = "dev"

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
