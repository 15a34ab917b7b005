package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/weaver/internal/diagnostics"
)

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// colorEnabled reports whether diagnostics written to f may be colored.
func colorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printDiagnostics(w io.Writer, diags []*diagnostics.DiagnosticError, color bool) {
	for _, d := range diags {
		if !color {
			fmt.Fprintln(w, d.Error())
			continue
		}
		c := ansiYellow
		if d.IsError() {
			c = ansiRed
		}
		fmt.Fprintf(w, "%s%s%s\n", c, d.Error(), ansiReset)
	}
	if n := len(diags); n > 0 {
		errs := 0
		for _, d := range diags {
			if d.IsError() {
				errs++
			}
		}
		fmt.Fprintf(w, "%d error(s), %d warning(s)\n", errs, n-errs)
	}
}
