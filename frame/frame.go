// Package frame implements the code generator's register allocator: a
// stack of "frame parts" — one per lexical block, opened and closed
// LIFO — each tracking its own named-variable map and constant-dedup
// cache. Slots are never recycled within a function; the allocator's
// high-water mark becomes the compiled function's frame size.
package frame

import (
	"github.com/dolthub/swiss"
	"github.com/usein-abilev/embervm/value"
)

// namedSlot is where a declared variable lives and what it holds.
type namedSlot struct {
	Addr int
	Ty   value.Ty
}

// part is one lexical block's slice of the frame: the slots it opened
// with (part_size), the names it declares, and the constants folded
// while it was the innermost open block.
type part struct {
	partSize int
	vars     *swiss.Map[string, namedSlot]
	consts   *swiss.Map[value.Value, int]
}

func newPart(initSize int) *part {
	return &part{
		partSize: initSize,
		vars:     swiss.NewMap[string, namedSlot](8),
		consts:   swiss.NewMap[value.Value, int](8),
	}
}

// Frame is the register allocator for a single function being compiled.
// Lookups walk parts innermost-to-outermost, so an inner block's
// declaration shadows an outer one with the same name.
type Frame struct {
	parts   []*part
	size    int
	maxSize int
}

// New returns an empty Frame, ready for the outermost PushPart call.
func New() *Frame {
	return &Frame{}
}

// PushPart opens a new lexical block, pre-reserving initPartSize slots
// up front (used for a function's own top-level part, reserving nothing,
// or for any block that needs a known run of slots before binding names
// to them).
func (f *Frame) PushPart(initPartSize int) {
	f.parts = append(f.parts, newPart(initPartSize))
	f.size += initPartSize
	if f.size > f.maxSize {
		f.maxSize = f.size
	}
}

// PopPart closes the innermost lexical block. Per the allocator's
// monotonic-allocation invariant, slots handed out while the part was
// open are never recycled — closing the part only ends the part's
// name/constant visibility, it does not shrink Size. MaxSize is already
// the function's final frame size the moment the last part closes.
func (f *Frame) PopPart() {
	f.parts = f.parts[:len(f.parts)-1]
}

// Clear resets the frame entirely, for starting a new function.
func (f *Frame) Clear() {
	f.parts = nil
	f.size = 0
	f.maxSize = 0
}

// Allocate reserves one fresh slot in the innermost part and returns its
// address. Slots are monotonically increasing within a function — once
// handed out, an address is never reused by a later allocation, even
// after the part that allocated it closes.
func (f *Frame) Allocate() int {
	addr := f.size
	f.size++
	if f.size > f.maxSize {
		f.maxSize = f.size
	}
	return addr
}

// PushVar allocates a slot and binds name to it in the innermost part.
func (f *Frame) PushVar(name string, ty value.Ty) int {
	addr := f.Allocate()
	f.parts[len(f.parts)-1].vars.Put(name, namedSlot{Addr: addr, Ty: ty})
	return addr
}

// PushConst allocates a slot for v and records it in the innermost
// part's constant-dedup cache, so a later identical literal within the
// same (or a nested) scope can reuse the slot instead of re-emitting a
// Const instruction.
func (f *Frame) PushConst(v value.Value) int {
	addr := f.Allocate()
	f.parts[len(f.parts)-1].consts.Put(v, addr)
	return addr
}

// GetVar looks up name, searching innermost part outward.
func (f *Frame) GetVar(name string) (addr int, ty value.Ty, ok bool) {
	for i := len(f.parts) - 1; i >= 0; i-- {
		if slot, found := f.parts[i].vars.Get(name); found {
			return slot.Addr, slot.Ty, true
		}
	}
	return 0, 0, false
}

// GetConst looks up a previously folded constant's slot, searching
// innermost part outward.
func (f *Frame) GetConst(v value.Value) (addr int, ok bool) {
	for i := len(f.parts) - 1; i >= 0; i-- {
		if a, found := f.parts[i].consts.Get(v); found {
			return a, true
		}
	}
	return 0, false
}

// Size is the number of slots allocated so far. Per the monotonic-
// allocation invariant this never shrinks, even as parts pop — it is
// equal to MaxSize at every point in time.
func (f *Frame) Size() int { return f.size }

// MaxSize is the high-water mark across the function's whole lifetime —
// this becomes the compiled Function's FrameSize.
func (f *Frame) MaxSize() int { return f.maxSize }

// Depth is the number of currently open parts, mainly useful for tests
// and assertions that every pushed part was popped.
func (f *Frame) Depth() int { return len(f.parts) }
