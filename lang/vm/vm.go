// Package vm implements the stack-based virtual machine that executes the
// bytecode produced by lang/compiler: the operand stack, the call-frame
// stack, global variables, upvalue capture/close, the built-in natives and
// runtime error reporting (spec §4.4).
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/compiler"
	"github.com/loxlang/loxvm/lang/table"
	"github.com/loxlang/loxvm/lang/value"
)

// framesMax bounds the depth of nested calls; exceeding it is reported as
// "Call stack overflow." rather than growing without bound.
const framesMax = 64

// stackMax is the fixed capacity of the operand stack. It is sized
// generously relative to framesMax so ordinary programs never come close;
// the array is fixed-size (rather than a growable slice) so that open
// upvalues, which hold a *value.Value pointing directly into this array,
// are never invalidated by a reallocation.
const stackMax = framesMax * 256

// VM executes compiled Lox programs. Its zero value is not usable; use
// New. A VM may run more than one program in sequence (the REPL calls
// Interpret once per line), reusing the same globals and heap across
// calls.
type VM struct {
	stack    [stackMax]value.Value
	stackTop int

	frames     [framesMax]frame
	frameCount int

	globals      *table.Table[*value.ObjString, value.Value]
	heap         *value.Heap
	openUpvalues []*chunk.Upvalue // sorted descending by Slot; head = highest address

	stdout io.Writer
	stderr io.Writer
}

// New returns a VM with its heap, globals and built-in natives ready to
// run programs. A nil stdout/stderr defaults to os.Stdout/os.Stderr.
func New(stdout, stderr io.Writer) *VM {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	vm := &VM{
		globals: table.New[*value.ObjString, value.Value](),
		heap:    value.NewHeap(),
		stdout:  stdout,
		stderr:  stderr,
	}
	registerNatives(vm)
	return vm
}

// Stdout implements value.NativeContext.
func (vm *VM) Stdout() io.Writer { return vm.stdout }

// Heap returns the object heap backing this VM, for diagnostics such as
// introspecting the live object graph.
func (vm *VM) Heap() *value.Heap { return vm.heap }

// Interpret compiles and runs source as one program (spec §4.4.1). A
// compile error is returned as-is (a compiler.ErrorList, already
// formatted per-diagnostic); a runtime error is already written to stderr
// (with its stack trace) before being returned.
func (vm *VM) Interpret(source string) error {
	fn, err := compiler.Compile(source, vm.heap)
	if err != nil {
		return err
	}

	closure := chunk.NewClosure(fn)
	vm.heap.Track(closure)
	vm.push(value.FromObj(closure))
	if err := vm.call(closure, 0); err != nil {
		return err
	}

	if err := vm.run(); err != nil {
		return err
	}

	if vm.stackTop != 0 || vm.frameCount != 0 {
		panic(fmt.Sprintf("internal error: VM finished OK with stackTop=%d frameCount=%d", vm.stackTop, vm.frameCount))
	}
	return nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// run is the dispatch loop (spec §4.4.2): decode one instruction, execute
// it, repeat until an OP_RETURN unwinds the last frame or a runtime error
// is raised.
func (vm *VM) run() error {
	fr := &vm.frames[vm.frameCount-1]
	ck := fr.closure.Function.Chunk

	readByte := func() byte {
		b := ck.ReadByte(fr.ip)
		fr.ip++
		return b
	}
	readUint32 := func() uint32 {
		v := ck.ReadUint32(fr.ip)
		fr.ip += 4
		return v
	}
	readUint16 := func() uint16 {
		v := ck.ReadUint16(fr.ip)
		fr.ip += 2
		return v
	}

	for {
		op := chunk.Op(readByte())
		switch op {
		case chunk.OpConstant:
			vm.push(ck.ConstantAt(uint32(readByte())))
		case chunk.OpConstantLong:
			vm.push(ck.ConstantAt(readUint32()))
		case chunk.OpNil:
			vm.push(value.Nil)
		case chunk.OpTrue:
			vm.push(value.True)
		case chunk.OpFalse:
			vm.push(value.False)
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			vm.push(vm.stack[fr.base+int(readByte())])
		case chunk.OpGetLocalLong:
			vm.push(vm.stack[fr.base+int(readUint32())])
		case chunk.OpSetLocal:
			vm.stack[fr.base+int(readByte())] = vm.peek(0)
		case chunk.OpSetLocalLong:
			vm.stack[fr.base+int(readUint32())] = vm.peek(0)

		case chunk.OpGetGlobal, chunk.OpGetGlobalLong:
			name := vm.readGlobalName(ck, op, readByte, readUint32)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.String())
			}
			vm.push(v)
		case chunk.OpDefineGlobal, chunk.OpDefineGlobalLong:
			name := vm.readGlobalName(ck, op, readByte, readUint32)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal, chunk.OpSetGlobalLong:
			name := vm.readGlobalName(ck, op, readByte, readUint32)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.String())
			}

		case chunk.OpGetUpvalue:
			vm.push(fr.closure.Upvalues[readByte()].Get())
		case chunk.OpGetUpvalueLong:
			vm.push(fr.closure.Upvalues[readUint32()].Get())
		case chunk.OpSetUpvalue:
			fr.closure.Upvalues[readByte()].Set(vm.peek(0))
		case chunk.OpSetUpvalueLong:
			fr.closure.Upvalues[readUint32()].Set(vm.peek(0))

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case chunk.OpNot:
			vm.push(value.Bool(!value.Truthy(vm.pop())))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case chunk.OpJump:
			rel := int16(readUint16())
			fr.ip += int(rel)
		case chunk.OpJumpIfFalse:
			rel := int16(readUint16())
			if !value.Truthy(vm.peek(0)) {
				fr.ip += int(rel)
			}
		case chunk.OpJumpIfTrue:
			rel := int16(readUint16())
			if value.Truthy(vm.peek(0)) {
				fr.ip += int(rel)
			}

		case chunk.OpCall:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			fr = &vm.frames[vm.frameCount-1]
			ck = fr.closure.Function.Chunk

		case chunk.OpClosure:
			idx := readByte()
			fn, _ := value.Is[*chunk.Function](ck.ConstantAt(uint32(idx)))
			closure := chunk.NewClosure(fn)
			vm.heap.Track(closure)
			for i := range fn.Upvalues {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(fr.base + int(index))
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}
			vm.push(value.FromObj(closure))

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(fr.base)
			vm.frameCount--
			vm.stackTop = fr.base - 1
			if vm.frameCount == 0 {
				return nil
			}
			vm.push(result)
			fr = &vm.frames[vm.frameCount-1]
			ck = fr.closure.Function.Chunk

		default:
			return vm.runtimeError("Unknown opcode %s.", op)
		}
	}
}

// readGlobalName reads the short or long form constant-pool index
// following a global opcode and returns the interned name it addresses.
func (vm *VM) readGlobalName(ck *chunk.Chunk, op chunk.Op, readByte func() byte, readUint32 func() uint32) *value.ObjString {
	var v value.Value
	if op.IsLong() {
		v = ck.ConstantAt(readUint32())
	} else {
		v = ck.ConstantAt(uint32(readByte()))
	}
	name, _ := value.Is[*value.ObjString](v)
	return name
}

func (vm *VM) binaryNumberOp(f func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b, a := vm.pop(), vm.pop()
	vm.push(f(a.AsNumber(), b.AsNumber()))
	return nil
}

// add implements OP_ADD: numeric addition, or string concatenation when
// both operands are strings (spec §4.4.2).
func (vm *VM) add() error {
	bStr, bIsStr := value.Is[*value.ObjString](vm.peek(0))
	aStr, aIsStr := value.Is[*value.ObjString](vm.peek(1))
	switch {
	case aIsStr && bIsStr:
		vm.pop()
		vm.pop()
		vm.push(value.FromObj(vm.heap.InternString(aStr.String() + bStr.String())))
		return nil
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b, a := vm.pop(), vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
}

// callValue dispatches OP_CALL to either a Closure or a native function
// (spec §4.4.3); anything else is not callable.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if callee.IsObj() {
		switch c := callee.AsObj().(type) {
		case *chunk.Closure:
			return vm.call(c, argCount)
		case *value.ObjNative:
			return vm.callNative(c, argCount)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

func (vm *VM) call(closure *chunk.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Call stack overflow.")
	}
	calleeSlot := vm.stackTop - argCount - 1
	fr := &vm.frames[vm.frameCount]
	fr.closure = closure
	fr.ip = 0
	fr.base = calleeSlot + 1
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(native *value.ObjNative, argCount int) error {
	if native.Arity != value.Variadic && argCount != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
	}
	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, ok := native.Fn(vm, args)
	if !ok {
		return vm.runtimeError("Call to native '%s' failed.", native.Name)
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

// captureUpvalue returns the open upvalue bound to the absolute stack
// index slot, reusing one already tracking it, else allocating and
// splicing one into the sorted-descending open-upvalue list (spec §4.4.5).
func (vm *VM) captureUpvalue(slot int) *chunk.Upvalue {
	for _, uv := range vm.openUpvalues {
		if uv.Slot == slot {
			return uv
		}
	}
	created := chunk.NewOpenUpvalue(slot, &vm.stack[slot])
	vm.heap.Track(created)

	insertAt := len(vm.openUpvalues)
	for i, uv := range vm.openUpvalues {
		if uv.Slot < slot {
			insertAt = i
			break
		}
	}
	vm.openUpvalues = append(vm.openUpvalues, nil)
	copy(vm.openUpvalues[insertAt+1:], vm.openUpvalues[insertAt:])
	vm.openUpvalues[insertAt] = created
	return created
}

// closeUpvalues closes every open upvalue whose slot is at or above slot,
// detaching it from the stack (spec §4.4.5).
func (vm *VM) closeUpvalues(slot int) {
	for len(vm.openUpvalues) > 0 && vm.openUpvalues[0].Slot >= slot {
		vm.openUpvalues[0].Close()
		vm.openUpvalues = vm.openUpvalues[1:]
	}
}
