package vm

import "github.com/loxlang/loxvm/lang/chunk"

// frame is the VM's bookkeeping for one active call: the closure being
// run, the instruction pointer into its chunk, and the base index into the
// operand stack at which its first local/parameter lives.
type frame struct {
	closure *chunk.Closure
	ip      int
	base    int
}

// functionName names fr for a stack-trace line (spec §4.4.7): the
// top-level script frame is "script", every other frame is "NAME()".
func (fr *frame) functionName() string {
	if name := fr.closure.Function.Name; name != "" {
		return name + "()"
	}
	return "script"
}
