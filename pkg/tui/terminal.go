package tui

import (
	"os"

	"golang.org/x/term"
)

// TerminalInfo holds information about the current terminal
type TerminalInfo struct {
	Width  int
	Height int
	IsTTY  bool
}

// GetTerminalInfo returns the size of stdout, falling back to 80x24 when
// stdout is not a terminal
func GetTerminalInfo() TerminalInfo {
	info := TerminalInfo{Width: 80, Height: 24}

	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return info
	}
	info.IsTTY = true

	if w, h, err := term.GetSize(fd); err == nil && w > 0 && h > 0 {
		info.Width, info.Height = w, h
	}
	return info
}

// IsInteractive reports whether both stdin and stdout are terminals, which
// prompts and the dashboard require
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ColumnWidth splits the terminal width across n table columns, keeping
// each between 12 and 60 cells
func (t TerminalInfo) ColumnWidth(n int) int {
	if n <= 0 {
		return 60
	}
	w := (t.Width - 3*n) / n
	if w < 12 {
		return 12
	}
	if w > 60 {
		return 60
	}
	return w
}
