// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))
)
