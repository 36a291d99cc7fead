package vm

import (
	"fmt"

	"github.com/qalam-lang/qalam/internal/bytecode"
)

// Handle is an opaque stable identifier for a heap-resident object. IDs
// come from one monotone counter and are never reused, so a stale handle
// fails loudly instead of aliasing a newer object.
type Handle int

// ObjString is an interned immutable string.
type ObjString struct {
	Chars string
}

// Upvalue is a captured-variable cell. While open, Location is the
// absolute stack index of the captured local; once closed, Location is -1
// and Closed holds the lifted value. Cells are shared by pointer between
// every closure that captured the same local, plus the VM's open list, so
// closing mutates in place for all holders at once.
type Upvalue struct {
	Location int
	Closed   Value

	// next links the VM's open-upvalue list, sorted by Location
	// descending.
	next *Upvalue
}

// ObjClosure pairs a function prototype with its resolved upvalue cells.
type ObjClosure struct {
	Function *bytecode.Function
	Upvalues []*Upvalue
}

// ObjClass carries the name and the method table. Inheritance copies the
// parent's table at class-definition time; no superclass pointer is kept.
type ObjClass struct {
	Name    string
	Methods map[string]Handle
}

// ObjInstance is a class handle plus named fields. Fields shadow methods
// on property reads.
type ObjInstance struct {
	Class  Handle
	Fields map[string]Value
}

// ObjBoundMethod is a receiver/closure pair ready to be called.
type ObjBoundMethod struct {
	Receiver Handle
	Method   Handle
}

// ObjList is an ordered mutable sequence of values.
type ObjList struct {
	Elements []Value
}

const (
	initialGCThreshold = 1024
	gcGrowthFactor     = 2
)

// Heap is the typed object store. Every allocation returns a Handle; the
// collector reclaims objects unreachable from the VM's roots.
type Heap struct {
	objects map[Handle]any
	marked  map[Handle]bool
	interns map[string]Handle

	nextID      Handle
	allocations int
	threshold   int
}

func NewHeap() *Heap {
	return &Heap{
		objects:   make(map[Handle]any),
		marked:    make(map[Handle]bool),
		interns:   make(map[string]Handle),
		threshold: initialGCThreshold,
	}
}

func (h *Heap) allocate(obj any) Handle {
	id := h.nextID
	h.nextID++
	h.objects[id] = obj
	h.allocations++
	return id
}

// ManageString interns s: the same content always yields the same handle
// until the string is collected.
func (h *Heap) ManageString(s string) Handle {
	if id, ok := h.interns[s]; ok {
		return id
	}
	id := h.allocate(&ObjString{Chars: s})
	h.interns[s] = id
	return id
}

func (h *Heap) ManageClosure(c *ObjClosure) Handle { return h.allocate(c) }

func (h *Heap) ManageClass(c *ObjClass) Handle { return h.allocate(c) }

func (h *Heap) ManageInstance(i *ObjInstance) Handle { return h.allocate(i) }

func (h *Heap) ManageBoundMethod(b *ObjBoundMethod) Handle { return h.allocate(b) }

func (h *Heap) ManageList(l *ObjList) Handle { return h.allocate(l) }

func (h *Heap) GetString(id Handle) string {
	return h.objects[id].(*ObjString).Chars
}

func (h *Heap) GetClosure(id Handle) *ObjClosure {
	return h.objects[id].(*ObjClosure)
}

func (h *Heap) GetClass(id Handle) *ObjClass {
	return h.objects[id].(*ObjClass)
}

func (h *Heap) GetInstance(id Handle) *ObjInstance {
	return h.objects[id].(*ObjInstance)
}

func (h *Heap) GetBoundMethod(id Handle) *ObjBoundMethod {
	return h.objects[id].(*ObjBoundMethod)
}

func (h *Heap) GetList(id Handle) *ObjList {
	return h.objects[id].(*ObjList)
}

// Live reports whether id still refers to an object.
func (h *Heap) Live(id Handle) bool {
	_, ok := h.objects[id]
	return ok
}

// Size is the number of live objects.
func (h *Heap) Size() int {
	return len(h.objects)
}

// ShouldCollect reports whether enough allocations have happened since the
// last collection to warrant one.
func (h *Heap) ShouldCollect() bool {
	return h.allocations > h.threshold
}

// Unmark clears all marks before a new trace.
func (h *Heap) Unmark() {
	h.marked = make(map[Handle]bool, len(h.objects))
}

func (h *Heap) Mark(id Handle) {
	h.marked[id] = true
}

func (h *Heap) IsMarked(id Handle) bool {
	return h.marked[id]
}

// Children returns the handles an object directly references.
func (h *Heap) Children(id Handle) []Handle {
	switch obj := h.objects[id].(type) {
	case *ObjString:
		return nil
	case *ObjClosure:
		return h.ClosureChildren(obj)
	case *ObjClass:
		children := make([]Handle, 0, len(obj.Methods))
		for _, m := range obj.Methods {
			children = append(children, m)
		}
		return children
	case *ObjInstance:
		children := []Handle{obj.Class}
		for _, v := range obj.Fields {
			if v.isHeapResident() {
				children = append(children, v.Handle())
			}
		}
		return children
	case *ObjBoundMethod:
		return []Handle{obj.Receiver, obj.Method}
	case *ObjList:
		children := make([]Handle, 0, len(obj.Elements))
		for _, v := range obj.Elements {
			if v.isHeapResident() {
				children = append(children, v.Handle())
			}
		}
		return children
	}
	panic(fmt.Sprintf("heap: children of unknown object %d", id))
}

// ClosureChildren is the closure part of Children, shared with the root
// marking of active call frames: the values held by closed upvalue cells.
func (h *Heap) ClosureChildren(c *ObjClosure) []Handle {
	var children []Handle
	for _, uv := range c.Upvalues {
		if uv.Location == -1 && uv.Closed.isHeapResident() {
			children = append(children, uv.Closed.Handle())
		}
	}
	return children
}

// Sweep frees every unmarked object and grows the next collection
// threshold.
func (h *Heap) Sweep() {
	for id := range h.objects {
		if !h.marked[id] {
			if s, ok := h.objects[id].(*ObjString); ok {
				delete(h.interns, s.Chars)
			}
			delete(h.objects, id)
		}
	}
	h.allocations = 0
	h.threshold *= gcGrowthFactor
}
