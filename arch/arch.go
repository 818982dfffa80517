// Package arch is the machine boundary of the execution core: frozen
// register snapshots for the unwinder, the fxsave area, and the narrow CPU
// capability the thread context switches through. Everything above this
// package is machine independent.
package arch

import "github.com/TephrocactusMYC/NeoOS/defs"

const MAXCPUS = 64

// Frame_t records the backtrace-relevant register values at one point of
// execution. It is a frozen copy, not a live view, so it is safe to share
// and read from any thread.
type Frame_t struct {
	Rip uintptr
	Rsp uintptr
	Rbp uintptr
}

// Regs_i is the register snapshot capability. The amd64 implementation is
// three single-instruction assembly reads; other architectures and tests
// provide their own.
type Regs_i interface {
	Rip() uintptr
	Rsp() uintptr
	Rbp() uintptr
}

// Mkframe_regs builds a frame from an injected snapshot capability.
func Mkframe_regs(r Regs_i) Frame_t {
	return Frame_t{Rip: r.Rip(), Rsp: r.Rsp(), Rbp: r.Rbp()}
}

// Range_t is an address range [Lo, Hi], inclusive on both ends, used to
// validate untrusted pointers before they are dereferenced.
type Range_t struct {
	Lo uintptr
	Hi uintptr
}

func (r Range_t) Contains(a uintptr) bool {
	return a >= r.Lo && a <= r.Hi
}

// Fxstate_t is the 512-byte fxsave/fxrstor area holding a thread's
// floating-point and SSE register state.
type Fxstate_t [512]byte

// Cpu_i is the capability a thread context switches through. Userrun
// transfers control to the saved user register state and does not return
// until that execution traps back into the kernel; the trap vector is left
// in tf[defs.TF_TRAP]. All three operations touch live CPU state and must
// only be invoked on the CPU that owns the context.
type Cpu_i interface {
	Id() int
	Userrun(tf *defs.Tf_t)
	Fxsave(fx *Fxstate_t)
	Fxrstor(fx *Fxstate_t)
}
