package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/qalam-lang/qalam/internal/arabic"
	"github.com/qalam-lang/qalam/internal/config"
)

// FormatValue renders a value for printing. Numbers, booleans and nil are
// locale-sensitive; everything else formats identically in both locales.
func (vm *VM) FormatValue(v Value) string {
	switch v.Type {
	case ValNil:
		if vm.locale == config.Arabic {
			return "عدم"
		}
		return "nil"

	case ValBool:
		if vm.locale == config.Arabic {
			if v.AsBool() {
				return "صحيح"
			}
			return "خطا"
		}
		return strconv.FormatBool(v.AsBool())

	case ValNumber:
		return vm.formatNumber(v.AsNumber())

	case ValString:
		return vm.heap.GetString(v.Handle())

	case ValFunction:
		return "<fn '" + vm.heap.GetClosure(v.Handle()).Function.Name + "'>"

	case ValClass:
		return "<class '" + vm.heap.GetClass(v.Handle()).Name + "'>"

	case ValInstance:
		instance := vm.heap.GetInstance(v.Handle())
		return "<" + vm.heap.GetClass(instance.Class).Name + " instance>"

	case ValBoundMethod:
		bm := vm.heap.GetBoundMethod(v.Handle())
		instance := vm.heap.GetInstance(bm.Receiver)
		return "<bound method of " + vm.heap.GetClass(instance.Class).Name + " instance>"

	case ValNative:
		return "<native fn " + v.Native.Name + ">"

	case ValList:
		elements := vm.heap.GetList(v.Handle()).Elements
		parts := make([]string, len(elements))
		for i, el := range elements {
			parts[i] = vm.FormatValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<unknown>"
}

func (vm *VM) formatNumber(f float64) string {
	if vm.locale == config.Arabic {
		return arabic.FormatNumber(f)
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// printVal writes v through the stdio hook and mirrors the line into the
// output buffer. Used by the legacy print statement opcode.
func (vm *VM) printVal(v Value) {
	s := vm.FormatValue(v)
	vm.stdio.Println(s)
	vm.pushOutput(s)
}

// initName is the constructor method name in the VM's locale.
func (vm *VM) initName() string {
	if vm.locale == config.Arabic {
		return "تهيئة"
	}
	return "init"
}
