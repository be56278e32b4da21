package vm

import "github.com/usein-abilev/embervm/value"

// StackFrame is a window onto Stack.values: [Start, End) belongs to one
// function activation. RetLocs records, for a frame entered via Call,
// which slot in the *caller's* frame each of this frame's Return values
// must land in; RetAddr is the index of the Call instruction that opened
// this frame, and execution resumes at the instruction after it once
// this frame exits.
type StackFrame struct {
	RetAddr int
	Start   int
	End     int
	RetLocs []int
}

// Get reads slot idx (relative to the frame's own base) out of s.
func (f StackFrame) Get(s *Stack, idx int) value.Value {
	return s.values[f.Start+idx]
}

// Set writes slot idx (relative to the frame's own base) into s.
func (f StackFrame) Set(s *Stack, idx int, v value.Value) {
	s.values[f.Start+idx] = v
}

// Stack is the register file shared by every frame in one call chain,
// plus the frame-descriptor stack tracking where each activation's
// window begins and ends.
type Stack struct {
	values []value.Value
	frames []StackFrame
}

// NewStack preallocates a small register file, grown on demand as
// deeper calls need more slots.
func NewStack() *Stack {
	return &Stack{values: make([]value.Value, 0, 32)}
}

func (s *Stack) reserve(n int) {
	if n <= len(s.values) {
		return
	}
	if n <= cap(s.values) {
		s.values = s.values[:n]
		return
	}
	grown := make([]value.Value, n)
	copy(grown, s.values)
	s.values = grown
}

// EnterFrame starts the very first (entry-function) frame. The frame
// stack must be empty.
func (s *Stack) EnterFrame(frameSize int) StackFrame {
	s.reserve(frameSize)
	frame := StackFrame{Start: 0, End: frameSize}
	s.frames = append(s.frames, frame)
	return frame
}

// LastFrame returns the innermost active frame.
func (s *Stack) LastFrame() StackFrame {
	return s.frames[len(s.frames)-1]
}

// CallEnterFrame opens a new frame for a Call instruction: args are slot
// indices (relative to the caller's frame) to copy into the callee's
// first len(args) slots, retLocs are the caller-relative slots the
// callee's eventual Return values must be written back to.
func (s *Stack) CallEnterFrame(retAddr, frameSize int, args, retLocs []int) StackFrame {
	caller := s.frames[len(s.frames)-1]
	start := caller.End
	end := start + frameSize
	s.reserve(end)

	frame := StackFrame{RetAddr: retAddr, Start: start, End: end, RetLocs: retLocs}
	for i, argSlot := range args {
		frame.Set(s, i, caller.Get(s, argSlot))
	}
	s.frames = append(s.frames, frame)
	return frame
}

// ExitFrame pops the innermost frame, copying its Return values (rets,
// frame-relative slots) back into the caller's frame at the matching
// RetLocs. Returns (parentFrame, resumeAddr, true) if a caller remains,
// or (StackFrame{}, 0, false) if the popped frame was the entry frame —
// the whole program has finished.
func (s *Stack) ExitFrame(rets []int) (StackFrame, int, bool) {
	popped := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	if len(s.frames) == 0 {
		return StackFrame{}, 0, false
	}
	caller := s.frames[len(s.frames)-1]
	for i, retSlot := range rets {
		caller.Set(s, popped.RetLocs[i], popped.Get(s, retSlot))
	}
	return caller, popped.RetAddr, true
}

// Depth reports how many frames are currently active. Zero means no
// program is running.
func (s *Stack) Depth() int { return len(s.frames) }
