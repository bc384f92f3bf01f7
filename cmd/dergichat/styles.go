// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "github.com/charmbracelet/lipgloss"

// DergiChat palette - warm magazine tones
var (
	colorAccent = lipgloss.Color("#E8A33D") // Amber - prompts, highlights
	colorBot    = lipgloss.Color("#7FB4CA") // Sky blue - bot text
	colorMuted  = lipgloss.Color("#5C6773") // Slate - secondary text
	colorError  = lipgloss.Color("#E74C3C") // Red - errors
)

var styles = struct {
	Prompt     lipgloss.Style
	Bot        lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Attachment lipgloss.Style
}{
	Prompt:     lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Bot:        lipgloss.NewStyle().Foreground(colorBot),
	Muted:      lipgloss.NewStyle().Foreground(colorMuted),
	Error:      lipgloss.NewStyle().Foreground(colorError),
	Attachment: lipgloss.NewStyle().Foreground(colorAccent),
}
