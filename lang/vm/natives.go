package vm

import (
	"fmt"
	"time"

	"github.com/dolthub/swiss"
	"github.com/loxlang/loxvm/lang/value"
)

// registerNatives builds the fixed set of built-in natives (spec §4.4.6)
// and installs each into vm's globals under its stable name. The
// intermediate swiss.Map is the registry a diagnostic command could list
// without walking the globals table looking for ObjNative values; the
// globals table itself remains the only thing the dispatch loop consults
// to resolve a bare name at OP_GET_GLOBAL.
func registerNatives(vm *VM) {
	registry := swiss.NewMap[string, *value.ObjNative](8)

	add := func(name string, arity int, fn value.NativeFunc) {
		n := &value.ObjNative{Name: name, Arity: arity, Fn: fn}
		vm.heap.Track(n)
		registry.Put(name, n)
	}

	add("clock", 0, func(_ value.NativeContext, _ []value.Value) (value.Value, bool) {
		return value.Number(float64(time.Now().UnixNano()) / 1e9), true
	})

	add("tostring", 1, func(_ value.NativeContext, args []value.Value) (value.Value, bool) {
		return value.FromObj(vm.heap.InternString(args[0].String())), true
	})

	add("assert", 1, func(_ value.NativeContext, args []value.Value) (value.Value, bool) {
		if !value.Truthy(args[0]) {
			return value.Nil, false
		}
		return value.Nil, true
	})

	add("printf", value.Variadic, func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		for _, a := range args {
			fmt.Fprint(ctx.Stdout(), a.String())
		}
		fmt.Fprintln(ctx.Stdout())
		return value.Nil, true
	})

	add("dump", value.Variadic, func(ctx value.NativeContext, args []value.Value) (value.Value, bool) {
		for i, a := range args {
			fmt.Fprintf(ctx.Stdout(), "[%d] %s = %s\n", i, a.TypeName(), a)
		}
		return value.Nil, true
	})

	registry.Iter(func(name string, native *value.ObjNative) bool {
		vm.globals.Set(vm.heap.InternString(name), value.FromObj(native))
		return false
	})
}
