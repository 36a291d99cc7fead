package vm

// callValue dispatches a call on the callee sitting argc slots below the
// top of the stack. Closures and bound methods only set up a frame; native
// functions complete synchronously; classes construct an instance and run
// the constructor when one exists.
func (vm *VM) callValue(callee Value, argc int) error {
	switch callee.Type {
	case ValFunction:
		return vm.prepareCall(callee.Handle(), argc)

	case ValNative:
		return vm.callNative(callee.Native, argc)

	case ValClass:
		return vm.callClass(callee.Handle(), argc)

	case ValBoundMethod:
		bm := vm.heap.GetBoundMethod(callee.Handle())
		vm.stack[len(vm.stack)-argc-1] = InstanceVal(bm.Receiver)
		return vm.prepareCall(bm.Method, argc)

	default:
		return vm.runtimeError(
			"attempted to call non-callable value of type %s.", TypeName(callee))
	}
}

// prepareCall pushes a frame for a closure; the body starts executing on
// the next Step.
func (vm *VM) prepareCall(closureHandle Handle, argc int) error {
	closure := vm.heap.GetClosure(closureHandle)
	if argc != closure.Function.Arity {
		return vm.runtimeError(
			"Expected %d arguments but found %d.", closure.Function.Arity, argc)
	}
	if len(vm.frames) >= MaxFrames {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames = append(vm.frames, CallFrame{
		closure: closure,
		ip:      0,
		slots:   len(vm.stack) - argc,
	})
	return nil
}

func (vm *VM) callNative(fn *NativeFunction, argc int) error {
	if argc != fn.Arity {
		return vm.runtimeError(
			"Native function %s expected %d arguments but found %d.",
			fn.Name, fn.Arity, argc)
	}

	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	vm.pop() // the native function value itself

	// The arguments left the stack but the native still holds them.
	saved := len(vm.tempRoots)
	vm.tempRoots = append(vm.tempRoots, args...)
	result, err := fn.Fn(vm, args)
	vm.tempRoots = vm.tempRoots[:saved]
	if err != nil {
		if re, ok := err.(*RuntimeError); ok {
			return re
		}
		return vm.runtimeError("When calling %s: %s.", fn.Name, err.Error())
	}
	vm.push(result)
	return nil
}

// callClass replaces the class on the stack with a fresh instance and runs
// the constructor when the class has one; without a constructor the call
// must be nullary.
func (vm *VM) callClass(classHandle Handle, argc int) error {
	instance := vm.heap.ManageInstance(&ObjInstance{
		Class:  classHandle,
		Fields: make(map[string]Value),
	})
	vm.stack[len(vm.stack)-argc-1] = InstanceVal(instance)

	class := vm.heap.GetClass(classHandle)
	if init, ok := class.Methods[vm.initName()]; ok {
		return vm.prepareCall(init, argc)
	}

	if argc > 0 {
		return vm.runtimeError("Call to class ctor expected 0 arguments, got %d.", argc)
	}
	return nil
}

// invoke implements receiver.name(args): a field of the same name shadows
// the method table and is called as a plain value.
func (vm *VM) invoke(name string, argc int) error {
	receiver := vm.peekBy(argc)
	if receiver.Type != ValInstance {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := vm.heap.GetInstance(receiver.Handle())

	if field, ok := instance.Fields[name]; ok {
		vm.stack[len(vm.stack)-argc-1] = field
		return vm.callValue(field, argc)
	}
	return vm.invokeFromClass(instance.Class, name, argc)
}

func (vm *VM) invokeFromClass(classHandle Handle, name string, argc int) error {
	method, ok := vm.heap.GetClass(classHandle).Methods[name]
	if !ok {
		return vm.runtimeError("Undefined property %s.", name)
	}
	return vm.prepareCall(method, argc)
}
