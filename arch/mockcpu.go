package arch

import "github.com/TephrocactusMYC/NeoOS/defs"

// Mockcpu_t scripts the Cpu_i capability for tests and the hosted monitor:
// each Userrun "executes" until the next scripted trap, which it stores in
// TF_TRAP. Onrun, when set, may mutate the trap frame the way real user
// execution would before trapping.
type Mockcpu_t struct {
	Cpuid    int
	Traps    []uintptr
	Onrun    func(n int, tf *defs.Tf_t)
	Nrun     int
	Nfxsave  int
	Nfxrstor int
}

func (m *Mockcpu_t) Id() int {
	return m.Cpuid
}

func (m *Mockcpu_t) Userrun(tf *defs.Tf_t) {
	trap := uintptr(defs.SYSCALL)
	if m.Nrun < len(m.Traps) {
		trap = m.Traps[m.Nrun]
	}
	tf[defs.TF_TRAP] = trap
	if m.Onrun != nil {
		m.Onrun(m.Nrun, tf)
	}
	m.Nrun++
}

func (m *Mockcpu_t) Fxsave(fx *Fxstate_t) {
	m.Nfxsave++
}

func (m *Mockcpu_t) Fxrstor(fx *Fxstate_t) {
	m.Nfxrstor++
}
