package vm

import (
	"fmt"
	"math"
	"time"

	"github.com/qalam-lang/qalam/internal/bytecode"
	"github.com/qalam-lang/qalam/internal/config"
)

// NativeFunction is a host function callable from script. The VM checks
// arity before invoking Fn. Natives may re-enter the VM: push the callable
// and its arguments, call callValue, then drive Step until the frame count
// returns to its baseline.
type NativeFunction struct {
	Name  string
	Arity int
	Fn    func(vm *VM, args []Value) (Value, error)
}

func (vm *VM) defineNative(name string, arity int, fn func(vm *VM, args []Value) (Value, error)) {
	vm.globals[name] = NativeVal(&NativeFunction{Name: name, Arity: arity, Fn: fn})
}

func (vm *VM) registerBuiltins() {
	printLine, printRaw := "printLine", "printL"
	if vm.locale == config.Arabic {
		printLine, printRaw = "اطبع_سطر", "اطبع_س"
	}
	vm.defineNative(printLine, 1, nativePrintLine)
	vm.defineNative(printRaw, 1, nativePrint)

	vm.defineNative("clock", 0, nativeClock)
	vm.defineNative("exp", 1, nativeExp)
	vm.defineNative("sqrt", 1, nativeSqrt)
	vm.defineNative("len", 1, nativeLen)
	vm.defineNative("forEach", 2, nativeForEach)
	vm.defineNative("map", 2, nativeMap)
	vm.defineNative("dis", 1, nativeDis)
}

func nativePrintLine(vm *VM, args []Value) (Value, error) {
	s := vm.FormatValue(args[0])
	vm.pushOutput(s)
	vm.stdio.Println(s)
	return NilVal(), nil
}

func nativePrint(vm *VM, args []Value) (Value, error) {
	s := vm.FormatValue(args[0])
	vm.pushOutput(s)
	vm.stdio.Print(s)
	return NilVal(), nil
}

func nativeClock(_ *VM, _ []Value) (Value, error) {
	return NumberVal(float64(time.Now().UnixMilli())), nil
}

func nativeExp(_ *VM, args []Value) (Value, error) {
	if !args[0].IsNumber() {
		return NilVal(), fmt.Errorf("Invalid call: expected number, got %s", TypeName(args[0]))
	}
	return NumberVal(math.Exp(args[0].AsNumber())), nil
}

func nativeSqrt(_ *VM, args []Value) (Value, error) {
	if !args[0].IsNumber() {
		return NilVal(), fmt.Errorf("Invalid call: expected number, got %s", TypeName(args[0]))
	}
	return NumberVal(math.Sqrt(args[0].AsNumber())), nil
}

// nativeLen is defined on strings (byte length) and lists (element count).
func nativeLen(vm *VM, args []Value) (Value, error) {
	switch args[0].Type {
	case ValString:
		return NumberVal(float64(len(vm.heap.GetString(args[0].Handle())))), nil
	case ValList:
		return NumberVal(float64(len(vm.heap.GetList(args[0].Handle()).Elements))), nil
	}
	return NilVal(), fmt.Errorf("Object of type %s has no len", TypeName(args[0]))
}

// callReentrant invokes callable with one argument from inside a native
// and returns the result, popped off the stack. For closures callValue only sets up
// a frame, so the native drives Step until the frame stack drains back to
// its baseline; native and class callees complete synchronously.
func (vm *VM) callReentrant(callable, arg Value) (Value, error) {
	vm.push(callable)
	vm.push(arg)
	baseline := len(vm.frames)

	if err := vm.callValue(callable, 1); err != nil {
		return NilVal(), err
	}
	for len(vm.frames) > baseline {
		if err := vm.Step(); err != nil {
			return NilVal(), err
		}
	}
	return vm.pop(), nil
}

func nativeForEach(vm *VM, args []Value) (Value, error) {
	if args[0].Type != ValList {
		return NilVal(), fmt.Errorf("Can't call forEach on value of type %s", TypeName(args[0]))
	}
	elements := make([]Value, len(vm.heap.GetList(args[0].Handle()).Elements))
	copy(elements, vm.heap.GetList(args[0].Handle()).Elements)

	callable := args[1]
	for _, el := range elements {
		if _, err := vm.callReentrant(callable, el); err != nil {
			return NilVal(), err
		}
	}
	return NilVal(), nil
}

func nativeMap(vm *VM, args []Value) (Value, error) {
	if args[1].Type != ValList {
		return NilVal(), fmt.Errorf("Can't call map on value of type %s", TypeName(args[1]))
	}
	elements := make([]Value, len(vm.heap.GetList(args[1].Handle()).Elements))
	copy(elements, vm.heap.GetList(args[1].Handle()).Elements)

	// Results accumulate in a heap list from the start so a collection
	// during a later callback cannot reclaim earlier ones.
	results := &ObjList{Elements: make([]Value, 0, len(elements))}
	out := ListVal(vm.heap.ManageList(results))
	saved := len(vm.tempRoots)
	vm.tempRoots = append(vm.tempRoots, out)
	defer func() { vm.tempRoots = vm.tempRoots[:saved] }()

	callable := args[0]
	for _, el := range elements {
		res, err := vm.callReentrant(callable, el)
		if err != nil {
			return NilVal(), err
		}
		results.Elements = append(results.Elements, res)
	}
	return out, nil
}

func nativeDis(vm *VM, args []Value) (Value, error) {
	if args[0].Type != ValFunction {
		return NilVal(), fmt.Errorf("Invalid call: expected function, got %s", TypeName(args[0]))
	}
	fn := vm.heap.GetClosure(args[0].Handle()).Function
	vm.stdio.Print(bytecode.Disassemble(fn.Chunk, fn.Name))
	return NilVal(), nil
}
