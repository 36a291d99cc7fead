package vm

import "math"

// ValueType identifies the case held by a Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValString
	ValList
	ValFunction
	ValClass
	ValInstance
	ValBoundMethod
	ValNative
)

// Value is a small tagged union. Heap-resident cases carry a handle into
// the VM's heap in Data, never a direct reference; numbers store their
// bits, booleans 0/1. Native descriptors are the one pointer case since
// they are not heap-managed.
type Value struct {
	Type   ValueType
	Data   uint64
	Native *NativeFunction
}

func NilVal() Value { return Value{Type: ValNil} }

func BoolVal(b bool) Value {
	var d uint64
	if b {
		d = 1
	}
	return Value{Type: ValBool, Data: d}
}

func NumberVal(f float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(f)}
}

func StringVal(h Handle) Value      { return Value{Type: ValString, Data: uint64(h)} }
func ListVal(h Handle) Value        { return Value{Type: ValList, Data: uint64(h)} }
func FunctionVal(h Handle) Value    { return Value{Type: ValFunction, Data: uint64(h)} }
func ClassVal(h Handle) Value       { return Value{Type: ValClass, Data: uint64(h)} }
func InstanceVal(h Handle) Value    { return Value{Type: ValInstance, Data: uint64(h)} }
func BoundMethodVal(h Handle) Value { return Value{Type: ValBoundMethod, Data: uint64(h)} }

func NativeVal(fn *NativeFunction) Value { return Value{Type: ValNative, Native: fn} }

func (v Value) AsBool() bool      { return v.Data != 0 }
func (v Value) AsNumber() float64 { return math.Float64frombits(v.Data) }
func (v Value) Handle() Handle    { return Handle(v.Data) }

func (v Value) IsNumber() bool { return v.Type == ValNumber }

// isHeapResident reports whether the value's Data is a heap handle.
func (v Value) isHeapResident() bool {
	switch v.Type {
	case ValString, ValList, ValFunction, ValClass, ValInstance, ValBoundMethod:
		return true
	}
	return false
}

// TypeName is the tag used in runtime error messages.
func TypeName(v Value) string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValString:
		return "string"
	case ValList:
		return "list"
	case ValFunction:
		return "function"
	case ValClass:
		return "class"
	case ValInstance:
		return "instance"
	case ValBoundMethod:
		return "bound method"
	case ValNative:
		return "native function"
	}
	return "unknown"
}

const numberEpsilon = 2.220446049250313e-16

// valuesEqual implements ==: by value for numbers (within epsilon), bools,
// strings (content) and nil; every cross-type pairing is unequal.
func (vm *VM) valuesEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case ValNil:
		return true
	case ValBool:
		return a.AsBool() == b.AsBool()
	case ValNumber:
		return math.Abs(a.AsNumber()-b.AsNumber()) < numberEpsilon
	case ValString:
		return vm.heap.GetString(a.Handle()) == vm.heap.GetString(b.Handle())
	}
	return false
}

// isFalsey implements the truthiness rule: nil and false are falsey, zero
// is falsey, empty strings and lists are falsey, everything else is truthy.
func (vm *VM) isFalsey(v Value) bool {
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return !v.AsBool()
	case ValNumber:
		return v.AsNumber() == 0.0
	case ValString:
		return vm.heap.GetString(v.Handle()) == ""
	case ValList:
		return len(vm.heap.GetList(v.Handle()).Elements) == 0
	}
	return false
}
