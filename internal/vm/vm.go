// Package vm is the bytecode interpreter: a serial fetch-decode-dispatch
// loop over a value stack and a call-frame stack, with closures, classes,
// lists and a tracing collector over the typed heap.
package vm

import (
	"fmt"
	"strings"

	"github.com/qalam-lang/qalam/internal/bytecode"
	"github.com/qalam-lang/qalam/internal/config"
)

// MaxFrames bounds call depth so runaway recursion surfaces as a runtime
// error instead of exhausting the host.
const MaxFrames = 4096

// RuntimeError aborts execution; Backtrace lists the frame stack from the
// outermost call inward.
type RuntimeError struct {
	Message   string
	Backtrace string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// CallFrame is one active call: the running closure, the instruction
// pointer into its chunk, and slots — the stack index where the frame's
// locals start. Slot 0 of a frame is the callee/receiver itself, which
// lives just below slots at slots-1.
type CallFrame struct {
	closure *ObjClosure
	ip      int
	slots   int
}

// VM owns all mutable interpreter state. Locale is a construction-time
// parameter controlling number/bool/nil rendering and the names the
// locale-specific natives are registered under.
type VM struct {
	frames []CallFrame
	stack  []Value

	globals map[string]Value
	output  []string

	// openUpvalues is the list of all Open cells, sorted by stack
	// location descending, so closing a slot walks a prefix.
	openUpvalues *Upvalue

	heap      *Heap
	grayStack []Handle

	// tempRoots pins values that live only in host memory while a native
	// function is in flight, so a collection triggered by a re-entrant
	// Step cannot reclaim them.
	tempRoots []Value

	stdio  StdIO
	locale config.Dialect
}

// New builds a VM with the given output hook and locale and registers the
// native surface.
func New(stdio StdIO, locale config.Dialect) *VM {
	vm := &VM{
		frames:  make([]CallFrame, 0, 64),
		stack:   make([]Value, 0, 256),
		globals: make(map[string]Value),
		heap:    NewHeap(),
		stdio:   stdio,
		locale:  locale,
	}
	vm.registerBuiltins()
	return vm
}

// Default is a Latin-locale VM writing to stdout.
func Default() *VM {
	return New(DefaultStdIO{}, config.Latin)
}

// Output returns the lines printed so far. Consumers read it after
// Interpret returns.
func (vm *VM) Output() []string {
	out := make([]string, len(vm.output))
	copy(out, vm.output)
	return out
}

func (vm *VM) pushOutput(s string) {
	vm.output = append(vm.output, s)
}

// Prepare loads fn as the initial call frame without running it.
func (vm *VM) Prepare(fn *bytecode.Function) {
	closure := &ObjClosure{Function: fn}
	h := vm.heap.ManageClosure(closure)
	vm.push(FunctionVal(h))
	vm.frames = append(vm.frames, CallFrame{closure: closure, ip: 0, slots: 1})
}

// Interpret runs fn to completion. On success the frame stack is empty.
func (vm *VM) Interpret(fn *bytecode.Function) error {
	vm.Prepare(fn)
	for !vm.Done() {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Reset discards the stack and frame state left behind by an aborted run.
// Globals and the heap survive, so a REPL keeps its definitions.
func (vm *VM) Reset() {
	vm.frames = vm.frames[:0]
	vm.stack = vm.stack[:0]
	vm.openUpvalues = nil
	vm.tempRoots = vm.tempRoots[:0]
}

// Done reports whether execution has finished.
func (vm *VM) Done() bool {
	if len(vm.frames) == 0 {
		return true
	}
	f := vm.frame()
	return f.ip >= len(f.closure.Function.Chunk.Code)
}

// Step executes one instruction. Natives may re-enter the VM by driving
// Step themselves, so it must stay re-entrant on the same stack and
// frames. The collector runs between instructions when the heap asks.
func (vm *VM) Step() error {
	frame := vm.frame()
	line := frame.closure.Function.Chunk.Lines[frame.ip]
	op := bytecode.Op(vm.readByte())

	if err := vm.executeOp(op, line); err != nil {
		return err
	}

	if vm.heap.ShouldCollect() {
		vm.collectGarbage()
	}
	return nil
}

func (vm *VM) frame() *CallFrame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) chunk() *bytecode.Chunk {
	return vm.frame().closure.Function.Chunk
}

func (vm *VM) readByte() byte {
	f := vm.frame()
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readU16() int {
	f := vm.frame()
	v := f.closure.Function.Chunk.ReadU16(f.ip)
	f.ip += 2
	return v
}

// readStringConstant reads a u16 constant operand that must name a string.
func (vm *VM) readStringConstant() (string, error) {
	idx := vm.readU16()
	s, ok := vm.chunk().StringAt(idx)
	if !ok {
		return "", fmt.Errorf("internal: constant %d is not a string", idx)
	}
	return s, nil
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek() Value {
	return vm.stack[len(vm.stack)-1]
}

func (vm *VM) peekBy(n int) Value {
	return vm.stack[len(vm.stack)-1-n]
}

// captureUpvalue returns the Open cell for an absolute stack index,
// reusing an existing one so no two Open cells share a slot.
func (vm *VM) captureUpvalue(location int) *Upvalue {
	var prev *Upvalue
	uv := vm.openUpvalues
	for uv != nil && uv.Location > location {
		prev = uv
		uv = uv.next
	}
	if uv != nil && uv.Location == location {
		return uv
	}

	created := &Upvalue{Location: location, next: uv}
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues lifts every Open cell at stack locations >= lastSlot onto
// the heap side of the cell.
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= lastSlot {
		uv := vm.openUpvalues
		uv.Closed = vm.stack[uv.Location]
		uv.Location = -1
		vm.openUpvalues = uv.next
		uv.next = nil
	}
}

func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Message:   fmt.Sprintf(format, args...),
		Backtrace: vm.formatBacktrace(),
	}
}

// formatBacktrace walks the frame stack from outermost to innermost.
func (vm *VM) formatBacktrace() string {
	lines := make([]string, 0, len(vm.frames))
	for _, f := range vm.frames {
		fn := f.closure.Function
		ip := f.ip
		if ip >= len(fn.Chunk.Lines) {
			ip = len(fn.Chunk.Lines) - 1
		}
		line := 0
		if ip >= 0 {
			line = fn.Chunk.Lines[ip]
		}
		if fn.Name == "" {
			lines = append(lines, fmt.Sprintf("[line %d] in script", line))
		} else {
			lines = append(lines, fmt.Sprintf("[line %d] in %s()", line, fn.Name))
		}
	}
	return "Backtrace (most recent call last):\n\n" + strings.Join(lines, "\n")
}

// collectGarbage is a stop-the-world mark and sweep between instructions.
func (vm *VM) collectGarbage() {
	vm.heap.Unmark()
	vm.markRoots()
	vm.traceReferences()
	vm.heap.Sweep()
}

func (vm *VM) markRoots() {
	for _, v := range vm.stack {
		if v.isHeapResident() {
			vm.markValue(v.Handle())
		}
	}
	for _, v := range vm.globals {
		if v.isHeapResident() {
			vm.markValue(v.Handle())
		}
	}
	for _, v := range vm.tempRoots {
		if v.isHeapResident() {
			vm.markValue(v.Handle())
		}
	}
	// Running closures are pinned by pointer from their frames; their
	// closed upvalue cells still need marking through the handle graph.
	for i := range vm.frames {
		for _, child := range vm.heap.ClosureChildren(vm.frames[i].closure) {
			vm.markValue(child)
		}
	}
}

func (vm *VM) markValue(h Handle) {
	if !vm.heap.IsMarked(h) {
		vm.heap.Mark(h)
	}
	vm.grayStack = append(vm.grayStack, h)
}

func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		h := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blackenObject(h)
	}
}

func (vm *VM) blackenObject(h Handle) {
	for _, child := range vm.heap.Children(h) {
		if !vm.heap.IsMarked(child) {
			vm.heap.Mark(child)
			vm.blackenObject(child)
		}
	}
}

// Heap exposes the object store for the collector tests.
func (vm *VM) Heap() *Heap {
	return vm.heap
}
