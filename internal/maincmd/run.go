package maincmd

import (
	"context"
	"go/scanner"
	"os"

	"github.com/mna/mainer"

	"github.com/loxlang/loxvm/lang/vm"
)

// Run compiles and executes the script at args[0]. Validate has already
// checked that exactly one path is present.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	m := vm.New(stdio.Stdout, stdio.Stderr)
	if err := m.Interpret(string(source)); err != nil {
		if errs, ok := err.(scanner.ErrorList); ok {
			scanner.PrintError(stdio.Stderr, errs)
		}
		return err
	}
	return nil
}
