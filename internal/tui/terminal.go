package tui

import (
	"os"

	"golang.org/x/term"
)

// Interactive reports whether stdin and stdout are both terminals, which
// the dashboard needs for raw-mode input and the alternate screen.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

