package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalam-lang/qalam/internal/vm"
)

func TestStringInterning(t *testing.T) {
	h := vm.NewHeap()
	a := h.ManageString("cat")
	b := h.ManageString("cat")
	c := h.ManageString("dog")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "cat", h.GetString(a))
}

func TestSweepFreesUnmarked(t *testing.T) {
	h := vm.NewHeap()
	keep := h.ManageString("keep")
	drop := h.ManageString("drop")

	h.Unmark()
	h.Mark(keep)
	h.Sweep()

	assert.True(t, h.Live(keep))
	assert.False(t, h.Live(drop))

	// The interned entry for the freed string must not resurrect the
	// stale handle.
	again := h.ManageString("drop")
	assert.NotEqual(t, drop, again)
	assert.True(t, h.Live(again))
}

func TestChildrenOfComposites(t *testing.T) {
	h := vm.NewHeap()
	name := h.ManageString("field")

	class := h.ManageClass(&vm.ObjClass{Name: "C", Methods: map[string]vm.Handle{}})
	inst := h.ManageInstance(&vm.ObjInstance{
		Class:  class,
		Fields: map[string]vm.Value{"f": vm.StringVal(name)},
	})

	children := h.Children(inst)
	assert.Contains(t, children, class)
	assert.Contains(t, children, name)

	bound := h.ManageBoundMethod(&vm.ObjBoundMethod{Receiver: inst, Method: class})
	children = h.Children(bound)
	assert.ElementsMatch(t, []vm.Handle{inst, class}, children)

	list := h.ManageList(&vm.ObjList{Elements: []vm.Value{
		vm.StringVal(name), vm.NumberVal(3), vm.NilVal(),
	}})
	assert.Equal(t, []vm.Handle{name}, h.Children(list))
}

func TestMarkSweepKeepsReachableGraph(t *testing.T) {
	h := vm.NewHeap()
	name := h.ManageString("x")
	class := h.ManageClass(&vm.ObjClass{Name: "C", Methods: map[string]vm.Handle{}})
	inst := h.ManageInstance(&vm.ObjInstance{
		Class:  class,
		Fields: map[string]vm.Value{"f": vm.StringVal(name)},
	})
	garbage := h.ManageString("garbage")

	h.Unmark()
	// Trace from the single root the way the collector does.
	var mark func(id vm.Handle)
	mark = func(id vm.Handle) {
		if h.IsMarked(id) {
			return
		}
		h.Mark(id)
		for _, child := range h.Children(id) {
			mark(child)
		}
	}
	mark(inst)
	h.Sweep()

	require.True(t, h.Live(inst))
	assert.True(t, h.Live(class))
	assert.True(t, h.Live(name))
	assert.False(t, h.Live(garbage))
}

func TestCollectionThresholdGrows(t *testing.T) {
	h := vm.NewHeap()
	assert.False(t, h.ShouldCollect())

	for i := 0; i < 1100; i++ {
		h.ManageList(&vm.ObjList{})
	}
	assert.True(t, h.ShouldCollect())

	h.Unmark()
	h.Sweep()
	assert.Equal(t, 0, h.Size())
	assert.False(t, h.ShouldCollect())

	// After a collection the trigger point has grown.
	for i := 0; i < 1100; i++ {
		h.ManageList(&vm.ObjList{})
	}
	assert.False(t, h.ShouldCollect())
}
