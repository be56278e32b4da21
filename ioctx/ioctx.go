// Package ioctx describes the host-owned I/O context: the flat record of
// named scalar fields a compiled program reads and writes through the
// IOGetValue/IOSetValue opcodes. The compiler computes a byte-offset
// layout once from the host-supplied metadata; the VM only ever performs
// raw offset-based 4-byte reads and writes against whatever Context the
// host hands it.
package ioctx

import (
	"fmt"

	"github.com/usein-abilev/embervm/value"
)

// Field is one entry of the host-supplied metadata list: the name the
// script uses to refer to the field, the name the host uses internally
// (purely informational — embervm never looks it up), and the field's
// static type.
type Field struct {
	ScriptName string
	HostName   string
	Ty         value.Ty
}

// Metadata is the ordered list of fields a host declares once and turns
// into a Layout with NewLayout. Offsets are a strict prefix sum over
// this order: every field is fixed at 4 bytes, so Layout never needs to
// know anything about the host's actual struct layout beyond this list.
type Metadata []Field

// Layout is the compiled offset table derived from Metadata. It is
// produced once by NewLayout, handed to codegen.New, and is immutable
// afterward; both
// IOGetValue and IOSetValue instructions are emitted carrying a raw
// offset resolved from this table at compile time, so the VM itself never
// consults Layout or Metadata at run time.
type Layout struct {
	fields  Metadata
	offsets []int
	byName  map[string]int // script name -> index into fields/offsets
	size    int
}

// NewLayout computes the prefix-sum byte layout for md. It returns an
// error if two fields share a script name.
func NewLayout(md Metadata) (*Layout, error) {
	l := &Layout{
		fields:  md,
		offsets: make([]int, len(md)),
		byName:  make(map[string]int, len(md)),
	}
	offset := 0
	for i, f := range md {
		if _, dup := l.byName[f.ScriptName]; dup {
			return nil, fmt.Errorf("ioctx: duplicate field %q", f.ScriptName)
		}
		l.byName[f.ScriptName] = i
		l.offsets[i] = offset
		offset += f.Ty.Size()
	}
	l.size = offset
	return l, nil
}

// Size is the total byte size of the host's I/O context record.
func (l *Layout) Size() int { return l.size }

// Resolve looks up a script-visible field name, returning its byte offset
// and static type. The second return is false if no such field exists.
func (l *Layout) Resolve(scriptName string) (offset int, ty value.Ty, ok bool) {
	idx, found := l.byName[scriptName]
	if !found {
		return 0, 0, false
	}
	return l.offsets[idx], l.fields[idx].Ty, true
}

// Context is the host's I/O-context binding: a flat record of scalar
// fields the VM reads and writes by raw byte offset. Implementations are
// expected to be a thin, allocation-free view over host-owned memory (a
// struct's fields, or a backing buffer) — the VM calls Get/Set once per
// IOGetValue/IOSetValue instruction, on the hot path.
type Context interface {
	Get(offset int) value.Value
	Set(offset int, v value.Value)
}

// Buffer is a Context backed by a plain byte slice, sized to a Layout.
// It is not how a host typically wires its own native struct fields, but
// it is the straightforward way to exercise a compiled program in tests
// or from a host with no existing struct to reflect into.
type Buffer struct {
	bytes []byte
}

// NewBuffer allocates a zeroed Buffer sized for layout.
func NewBuffer(layout *Layout) *Buffer {
	return &Buffer{bytes: make([]byte, layout.Size())}
}

func (b *Buffer) Get(offset int) value.Value {
	return value.Value{Repr: leUint32(b.bytes[offset : offset+4])}
}

func (b *Buffer) Set(offset int, v value.Value) {
	putLeUint32(b.bytes[offset:offset+4], v.Repr)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
