package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"go/scanner"

	"github.com/mna/mainer"

	"github.com/loxlang/loxvm/lang/vm"
)

// Repl reads one line at a time from stdio.Stdin, compiling and running
// each as its own program against a single, persistent VM: globals and
// natives survive across lines, and a runtime error on one line does not
// prevent the next line from running (spec §4.4.1/§4.4.7).
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	m := vm.New(stdio.Stdout, stdio.Stderr)
	scan := bufio.NewScanner(stdio.Stdin)

	fmt.Fprint(stdio.Stdout, "> ")
	for scan.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scan.Text()
		if err := m.Interpret(line); err != nil {
			if errs, ok := err.(scanner.ErrorList); ok {
				scanner.PrintError(stdio.Stderr, errs)
			}
			// runtime errors are already printed by vm.Interpret; either way
			// the REPL keeps going on the next line.
		}
		fmt.Fprint(stdio.Stdout, "> ")
	}
	fmt.Fprintln(stdio.Stdout)
	return scan.Err()
}
