package asm

import (
	"fmt"
	"strings"
)

// TextAssembler is the reference Assembler implementation: it renders
// every emitted macro as one line of pseudo-assembly rather than
// machine code. It exists so `candor disasm` and the test suite have
// something readable to check stub bodies against without a real
// per-architecture backend.
type TextAssembler struct {
	lines  []string
	labels map[*Label]int // label -> line index once bound
}

// NewTextAssembler returns an empty TextAssembler.
func NewTextAssembler() *TextAssembler {
	return &TextAssembler{labels: map[*Label]int{}}
}

func (a *TextAssembler) emit(format string, args ...any) {
	a.lines = append(a.lines, fmt.Sprintf(format, args...))
}

func (a *TextAssembler) Bind(l *Label) {
	a.labels[l] = len(a.lines)
	a.emit("%s:", l)
}

func (a *TextAssembler) Mov(dst, src Operand) { a.emit("  mov %s, %s", dst, src) }
func (a *TextAssembler) Add(dst, src Operand) { a.emit("  add %s, %s", dst, src) }
func (a *TextAssembler) Sub(dst, src Operand) { a.emit("  sub %s, %s", dst, src) }
func (a *TextAssembler) And(dst, src Operand) { a.emit("  and %s, %s", dst, src) }
func (a *TextAssembler) Or(dst, src Operand)  { a.emit("  or %s, %s", dst, src) }
func (a *TextAssembler) Shl(dst, src Operand) { a.emit("  shl %s, %s", dst, src) }
func (a *TextAssembler) Shr(dst, src Operand) { a.emit("  shr %s, %s", dst, src) }
func (a *TextAssembler) Cmp(x, y Operand)     { a.emit("  cmp %s, %s", x, y) }

func (a *TextAssembler) Push(src Operand) { a.emit("  push %s", src) }
func (a *TextAssembler) Pop(dst Operand)  { a.emit("  pop %s", dst) }

func (a *TextAssembler) Jmp(l *Label)            { a.emit("  jmp %s", l) }
func (a *TextAssembler) Jcc(cond Cond, l *Label) { a.emit("  j%s %s", cond, l) }
func (a *TextAssembler) Call(target Operand)     { a.emit("  call %s", target) }
func (a *TextAssembler) CallLabel(l *Label)      { a.emit("  call %s", l) }
func (a *TextAssembler) Ret(popWords int)        { a.emit("  ret %d*W", popWords) }

func (a *TextAssembler) Prologue() {
	a.emit("  push fp")
	a.emit("  mov fp, sp")
}

func (a *TextAssembler) Epilogue(popWords int) {
	a.emit("  mov sp, fp")
	a.emit("  pop fp")
	a.Ret(popWords)
}

func (a *TextAssembler) CheckGC() {
	a.emit("  ; CheckGC safepoint")
	a.emit("  cmp [needs_gc], #0")
	a.emit("  callif collect_garbage_stub")
}

func (a *TextAssembler) Comment(text string) {
	a.emit("  ; %s", text)
}

// String renders the full emitted program.
func (a *TextAssembler) String() string {
	return strings.Join(a.lines, "\n") + "\n"
}
