package vm

import (
	"fmt"

	"github.com/qalam-lang/qalam/internal/bytecode"
)

func (vm *VM) executeOp(op bytecode.Op, line int) error {
	switch op {
	case bytecode.OpReturn:
		return vm.executeReturn()

	case bytecode.OpConstant:
		idx := vm.readU16()
		vm.push(vm.materializeConstant(vm.chunk().Constants[idx]))

	case bytecode.OpNil:
		vm.push(NilVal())
	case bytecode.OpTrue:
		vm.push(BoolVal(true))
	case bytecode.OpFalse:
		vm.push(BoolVal(false))

	case bytecode.OpNegate:
		v := vm.peek()
		if !v.IsNumber() {
			return vm.runtimeError(
				"invalid operand to unary op negate. Expected number, found %s at line %d",
				TypeName(v), line)
		}
		vm.pop()
		vm.push(NumberVal(-v.AsNumber()))

	case bytecode.OpNot:
		vm.push(BoolVal(vm.isFalsey(vm.pop())))

	case bytecode.OpAdd:
		return vm.executeAdd(line)

	case bytecode.OpSubtract:
		return vm.numericBinop("subtract", line, func(a, b float64) float64 { return a - b })
	case bytecode.OpMultiply:
		return vm.numericBinop("multiply", line, func(a, b float64) float64 { return a * b })
	case bytecode.OpDivide:
		return vm.numericBinop("divide", line, func(a, b float64) float64 { return a / b })

	case bytecode.OpEqual:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(vm.valuesEqual(a, b)))

	case bytecode.OpGreater:
		return vm.comparisonBinop("greater", line, func(a, b float64) bool { return a > b })
	case bytecode.OpLess:
		return vm.comparisonBinop("less", line, func(a, b float64) bool { return a < b })

	case bytecode.OpPrint:
		vm.printVal(vm.peek())

	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpDefineGlobal:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		vm.globals[name] = vm.pop()

	case bytecode.OpGetGlobal:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		val, ok := vm.globals[name]
		if !ok {
			return vm.runtimeError("Undefined variable '%s' at line %d.", name, line)
		}
		vm.push(val)

	case bytecode.OpSetGlobal:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		if _, ok := vm.globals[name]; !ok {
			return vm.runtimeError("Use of undefined variable %s in assignment at line %d.", name, line)
		}
		vm.globals[name] = vm.peek()

	case bytecode.OpGetLocal:
		slot := int(vm.readByte())
		vm.push(vm.stack[vm.frame().slots+slot-1])

	case bytecode.OpSetLocal:
		slot := int(vm.readByte())
		vm.stack[vm.frame().slots+slot-1] = vm.peek()

	case bytecode.OpGetUpvalue:
		slot := int(vm.readByte())
		uv := vm.frame().closure.Upvalues[slot]
		if uv.Location >= 0 {
			vm.push(vm.stack[uv.Location])
		} else {
			vm.push(uv.Closed)
		}

	case bytecode.OpSetUpvalue:
		slot := int(vm.readByte())
		uv := vm.frame().closure.Upvalues[slot]
		if uv.Location >= 0 {
			vm.stack[uv.Location] = vm.peek()
		} else {
			uv.Closed = vm.peek()
		}

	case bytecode.OpJumpIfFalse:
		offset := vm.readU16()
		if vm.isFalsey(vm.peek()) {
			vm.frame().ip += offset
		}

	case bytecode.OpJump:
		offset := vm.readU16()
		vm.frame().ip += offset

	case bytecode.OpLoop:
		offset := vm.readU16()
		vm.frame().ip -= offset

	case bytecode.OpCall:
		argc := int(vm.readByte())
		return vm.callValue(vm.peekBy(argc), argc)

	case bytecode.OpClosure:
		return vm.executeClosure()

	case bytecode.OpCloseUpvalue:
		vm.closeUpvalues(len(vm.stack) - 1)
		vm.pop()

	case bytecode.OpClass:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		h := vm.heap.ManageClass(&ObjClass{Name: name, Methods: make(map[string]Handle)})
		vm.push(ClassVal(h))

	case bytecode.OpMethod:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		method := vm.peekBy(0)
		class := vm.peekBy(1)
		if class.Type != ValClass {
			return fmt.Errorf("internal: method defined on %s", TypeName(class))
		}
		vm.heap.GetClass(class.Handle()).Methods[name] = method.Handle()
		vm.pop()

	case bytecode.OpInvoke:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		argc := int(vm.readByte())
		return vm.invoke(name, argc)

	case bytecode.OpInherit:
		parent := vm.peekBy(1)
		if parent.Type != ValClass {
			return vm.runtimeError("Superclass must be a class, found %s at line %d.", TypeName(parent), line)
		}
		child := vm.peek()
		childClass := vm.heap.GetClass(child.Handle())
		for name, m := range vm.heap.GetClass(parent.Handle()).Methods {
			childClass.Methods[name] = m
		}
		vm.pop()

	case bytecode.OpGetProperty:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		return vm.getProperty(name)

	case bytecode.OpSetProperty:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		val := vm.pop()
		target := vm.pop()
		if target.Type != ValInstance {
			return vm.runtimeError(
				"can't set attribute on value of type %s. Need class instance.", TypeName(target))
		}
		vm.heap.GetInstance(target.Handle()).Fields[name] = val
		vm.push(val)

	case bytecode.OpGetSuper:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		super := vm.pop()
		if super.Type != ValClass {
			return fmt.Errorf("internal: super lookup on %s", TypeName(super))
		}
		superclass := vm.heap.GetClass(super.Handle())
		instance := vm.peek()
		if !vm.bindMethod(instance.Handle(), superclass, name) {
			return vm.runtimeError("superclass %s has no attribute %s.", vm.FormatValue(super), name)
		}

	case bytecode.OpSuperInvoke:
		name, err := vm.readStringConstant()
		if err != nil {
			return err
		}
		argc := int(vm.readByte())
		super := vm.pop()
		if super.Type != ValClass {
			return fmt.Errorf("internal: super invoke on %s", TypeName(super))
		}
		return vm.invokeFromClass(super.Handle(), name, argc)

	case bytecode.OpBuildList:
		n := vm.readU16()
		elements := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			elements[i] = vm.pop()
		}
		vm.push(ListVal(vm.heap.ManageList(&ObjList{Elements: elements})))

	case bytecode.OpSubscript:
		index := vm.pop()
		target := vm.pop()
		elem, err := vm.subscript(target, index, line)
		if err != nil {
			return err
		}
		vm.push(elem)

	case bytecode.OpSetItem:
		val := vm.pop()
		index := vm.pop()
		target := vm.pop()
		if err := vm.setItem(target, index, val, line); err != nil {
			return err
		}
		vm.push(val)

	default:
		return fmt.Errorf("internal: unknown opcode %d", op)
	}
	return nil
}

// executeReturn pops the finished frame: the return value is saved, every
// upvalue over the frame's slots (including the receiver slot) is closed,
// the call window is erased down to the callee slot and the value pushed
// in its place. The stack therefore shrinks by argc+1 and grows by one
// across any completed call.
func (vm *VM) executeReturn() error {
	result := vm.pop()
	frame := vm.frame()
	base := frame.slots - 1

	vm.closeUpvalues(base)
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.stack = vm.stack[:base]

	if len(vm.frames) == 0 {
		return nil
	}
	vm.push(result)
	return nil
}

// materializeConstant turns a pool constant into a runtime value. Strings
// intern on first sight; a bare function constant is wrapped in a fresh
// closure with no upvalues.
func (vm *VM) materializeConstant(k bytecode.Constant) Value {
	switch c := k.(type) {
	case bytecode.Number:
		return NumberVal(float64(c))
	case bytecode.String:
		return StringVal(vm.heap.ManageString(string(c)))
	case *bytecode.Function:
		return FunctionVal(vm.heap.ManageClosure(&ObjClosure{Function: c}))
	}
	return NilVal()
}

// executeClosure builds a closure from a function constant and the upvalue
// descriptors that follow the operand: Local captures resolve against this
// frame's slots (reusing any existing open cell), Upvalue captures share
// the enclosing closure's cell.
func (vm *VM) executeClosure() error {
	idx := vm.readU16()
	fn, ok := vm.chunk().Constants[idx].(*bytecode.Function)
	if !ok {
		return fmt.Errorf("internal: closure constant %d is not a function", idx)
	}

	closure := &ObjClosure{
		Function: fn,
		Upvalues: make([]*Upvalue, fn.UpvalueCount),
	}
	frame := vm.frame()
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.readByte()
		index := int(vm.readByte())
		if isLocal == 1 {
			closure.Upvalues[i] = vm.captureUpvalue(frame.slots + index - 1)
		} else {
			closure.Upvalues[i] = frame.closure.Upvalues[index]
		}
	}
	vm.push(FunctionVal(vm.heap.ManageClosure(closure)))
	return nil
}

func (vm *VM) executeAdd(line int) error {
	b := vm.peekBy(0)
	a := vm.peekBy(1)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberVal(a.AsNumber() + b.AsNumber()))

	case a.Type == ValString && b.Type == ValString:
		vm.pop()
		vm.pop()
		concat := vm.heap.GetString(a.Handle()) + vm.heap.GetString(b.Handle())
		vm.push(StringVal(vm.heap.ManageString(concat)))

	case a.Type == ValList && b.Type == ValList:
		vm.pop()
		vm.pop()
		left := vm.heap.GetList(a.Handle()).Elements
		right := vm.heap.GetList(b.Handle()).Elements
		elements := make([]Value, 0, len(left)+len(right))
		elements = append(elements, left...)
		elements = append(elements, right...)
		vm.push(ListVal(vm.heap.ManageList(&ObjList{Elements: elements})))

	default:
		return vm.runtimeError(
			"invalid operands of type %s and %s in add expression: "+
				"both operands must be number, string or list (line=%d)",
			TypeName(a), TypeName(b), line)
	}
	return nil
}

func (vm *VM) numericBinop(name string, line int, apply func(a, b float64) float64) error {
	b := vm.peekBy(0)
	a := vm.peekBy(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError(
			"Expected numbers in %s expression. Found %s and %s (line=%d)",
			name, TypeName(a), TypeName(b), line)
	}
	vm.pop()
	vm.pop()
	vm.push(NumberVal(apply(a.AsNumber(), b.AsNumber())))
	return nil
}

func (vm *VM) comparisonBinop(name string, line int, apply func(a, b float64) bool) error {
	b := vm.peekBy(0)
	a := vm.peekBy(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError(
			"invalid operands in %s expression. Expected numbers, found %s and %s at line %d",
			name, TypeName(a), TypeName(b), line)
	}
	vm.pop()
	vm.pop()
	vm.push(BoolVal(apply(a.AsNumber(), b.AsNumber())))
	return nil
}

// getProperty implements instance.name: fields shadow methods; a method
// hit binds the receiver into a fresh bound method.
func (vm *VM) getProperty(name string) error {
	target := vm.peek()
	if target.Type != ValInstance {
		return vm.runtimeError(
			"can't get attribute %s on value of type %s. Need class instance.", name, TypeName(target))
	}
	instance := vm.heap.GetInstance(target.Handle())

	if field, ok := instance.Fields[name]; ok {
		vm.pop()
		vm.push(field)
		return nil
	}

	class := vm.heap.GetClass(instance.Class)
	if !vm.bindMethod(target.Handle(), class, name) {
		return vm.runtimeError("value %s has no attribute %s.", vm.FormatValue(target), name)
	}
	return nil
}

// bindMethod replaces the instance on top of the stack with a bound method
// when class has one under name.
func (vm *VM) bindMethod(instance Handle, class *ObjClass, name string) bool {
	method, ok := class.Methods[name]
	if !ok {
		return false
	}
	h := vm.heap.ManageBoundMethod(&ObjBoundMethod{Receiver: instance, Method: method})
	vm.pop()
	vm.push(BoundMethodVal(h))
	return true
}

func (vm *VM) subscript(target, index Value, line int) (Value, error) {
	if target.Type != ValList {
		return NilVal(), vm.runtimeError(
			"Invalid value of type %s in subscript expression", TypeName(target))
	}
	if !index.IsNumber() {
		return NilVal(), vm.runtimeError(
			"Invalid subscript of type %s in subscript expression", TypeName(index))
	}
	elements := vm.heap.GetList(target.Handle()).Elements
	i, err := vm.inboundIndex(len(elements), index.AsNumber(), line)
	if err != nil {
		return NilVal(), err
	}
	return elements[i], nil
}

func (vm *VM) setItem(target, index, val Value, line int) error {
	if target.Type != ValList {
		return vm.runtimeError(
			"Invalid value of type %s in subscript expression", TypeName(target))
	}
	if !index.IsNumber() {
		return vm.runtimeError(
			"Invalid subscript of type %s in subscript expression", TypeName(index))
	}
	list := vm.heap.GetList(target.Handle())
	i, err := vm.inboundIndex(len(list.Elements), index.AsNumber(), line)
	if err != nil {
		return err
	}
	list.Elements[i] = val
	return nil
}

// inboundIndex converts a numeric subscript to a valid element index;
// negative indices count back from the end.
func (vm *VM) inboundIndex(length int, index float64, line int) (int, error) {
	i := int(index)
	if i >= 0 && i < length {
		return i, nil
	}
	if i < 0 && -i <= length {
		return length + i, nil
	}
	return 0, vm.runtimeError("List subscript index out of range at %d", line)
}
