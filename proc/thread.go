package proc

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/TephrocactusMYC/NeoOS/arch"
	"github.com/TephrocactusMYC/NeoOS/defs"
	"github.com/TephrocactusMYC/NeoOS/limits"
	"github.com/TephrocactusMYC/NeoOS/mem"
	"github.com/TephrocactusMYC/NeoOS/sched"
	"github.com/TephrocactusMYC/NeoOS/sig"
)

type Tstate_t int

const (
	// registered, waiting for the scheduler
	RUNNABLE Tstate_t = iota
	// currently being executed by a processor
	RUNNING
	// waiting for a resource or event
	WAITING
	// sleeping for a specified amount of time
	SLEEPING
	// stopped by a signal or other external event
	STOPPED
	// terminated but not yet reaped by its parent
	ZOMBIE
)

func (s Tstate_t) String() string {
	switch s {
	case RUNNABLE:
		return "RUNNABLE"
	case RUNNING:
		return "RUNNING"
	case WAITING:
		return "WAITING"
	case SLEEPING:
		return "SLEEPING"
	case STOPPED:
		return "STOPPED"
	case ZOMBIE:
		return "ZOMBIE"
	}
	return "?"
}

// Tcontext_t is a thread's saved user register state plus its floating-point
// state. Exactly one execution owns it at a time: it is taken out of the
// thread for the duration of a context switch and restored afterward.
type Tcontext_t struct {
	Tf defs.Tf_t
	Fx arch.Fxstate_t
}

// Switch hands control to the saved user state and returns only when that
// execution traps back into the kernel. Must run on the CPU that owns this
// context; it mutates live floating-point registers.
func (tc *Tcontext_t) Switch(cpu arch.Cpu_i) {
	cpu.Fxrstor(&tc.Fx)
	cpu.Userrun(&tc.Tf)
	cpu.Fxsave(&tc.Fx)
}

// Trapno reports why the most recent switch returned: the syscall number or
// fault vector left in the trap frame.
func (tc *Tcontext_t) Trapno() int {
	return int(tc.Tf[defs.TF_TRAP])
}

type Thread_t struct {
	Tid  defs.Tid_t
	Proc *Proc_t
	// shared with every thread of the process
	Vm mem.Aspace_i

	kern *Kern_t

	// guards tctx, state and the signal fields
	sync.Mutex
	// nil while the context is taken: the thread is running and not
	// inspectable
	tctx    *Tcontext_t
	state   Tstate_t
	Sigmask sig.Sigset_t
	Sigstk  sig.Sigstack_t
}

func (t *Thread_t) State() Tstate_t {
	t.Lock()
	ret := t.state
	t.Unlock()
	return ret
}

func (t *Thread_t) setstate(s Tstate_t) {
	t.Lock()
	t.state = s
	t.Unlock()
}

// Take removes and returns the stored context. A take without an intervening
// restore fails with -EINVAL; a stale context is never returned.
func (t *Thread_t) Take() (*Tcontext_t, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	if t.tctx == nil {
		return nil, -defs.EINVAL
	}
	ret := t.tctx
	t.tctx = nil
	return ret, 0
}

// Restore stores the context back, overwriting unconditionally.
func (t *Thread_t) Restore(tc *Tcontext_t) {
	t.Lock()
	t.tctx = tc
	t.Unlock()
}

// sleep granularity; durations round down to whole ticks
const Timeslice = 10 * time.Millisecond

// Sleep blocks the calling thread for floor(d / 10ms) ticks through the
// kernel's countdown primitive. The sleep is scheduler-visible only as the
// SLEEPING state: when the countdown is a real spin this core, not just the
// thread, is blocked for the duration. The current thread cannot make the
// system suspend.
func (t *Thread_t) Sleep(d time.Duration) {
	cnt := d / Timeslice
	t.setstate(SLEEPING)
	for ; cnt > 0; cnt-- {
		t.kern.Tick(Timeslice)
	}
	t.setstate(RUNNING)
}

// Register assigns an id if unset and inserts the thread into the global
// table. The table lock covers the whole id-search-and-insert sequence, so
// concurrent registrations never race for an id.
func (t *Thread_t) Register() (*Thread_t, defs.Err_t) {
	tid, err := t.kern.Threads.Insert(t.Tid, t, t.kern.Limit.Systhreads)
	if err != 0 {
		return nil, err
	}
	t.Tid = tid
	return t, 0
}

// Fork creates a new process that is a structural copy of the parent — a
// copy-on-write clone of the address space, cloned file/cwd/signal-action
// state, fresh empty queues — and a new thread in it whose saved register
// state is ctx with the return-value register zeroed. Id exhaustion is
// reported as -EBUSY, not a panic: fork returns the failure to its caller.
func (t *Thread_t) Fork(tf *defs.Tf_t) (*Thread_t, defs.Err_t) {
	k := t.kern
	p := t.Proc
	p.Lock()
	defer p.Unlock()

	// cow the vm
	nvm := t.Vm.Fork()

	ctx := *tf
	// the fork-child contract: child observes 0 from fork
	ctx[defs.TF_RAX] = 0

	np := &Proc_t{
		Pgid:     p.Pgid,
		Vm:       nvm,
		Cwd:      p.Cwd,
		Execpath: p.Execpath,
		Fds:      p.fdclone(),
		fdstart:  p.fdstart,
		nfds:     p.nfds,
		Ppid:     p.Pid,
		Parent:   p,
		Actions:  p.Actions,
	}

	t.Lock()
	sm := t.Sigmask
	ss := t.Sigstk
	t.Unlock()

	nt := &Thread_t{
		Proc:    np,
		Vm:      nvm,
		kern:    k,
		tctx:    &Tcontext_t{Tf: ctx},
		state:   RUNNABLE,
		Sigmask: sm,
		Sigstk:  ss,
	}
	if _, err := nt.Register(); err != 0 {
		return nil, err
	}

	// the process takes its first thread's id
	np.Pid = defs.Pid_t(nt.Tid)
	np.Threads = []defs.Tid_t{nt.Tid}
	np.Mywait.Wait_init(np.Pid)
	np.Mywait.Start_thread(nt.Tid, k.Limit.Noproc)
	np.Pwait = &p.Mywait

	k.Procs.Set(np.Pid, np)
	if !p.Mywait.Start_proc(np.Pid, k.Limit.Noproc) {
		// too many unreaped children; undo the registration
		k.Procs.Del(np.Pid)
		k.Threads.Del(nt.Tid)
		return nil, -defs.EAGAIN
	}
	p.Children = append(p.Children, Childlink_t{Pid: np.Pid, Proc: np})

	return nt, 0
}

// Trapdis_i is the trap dispatcher collaborator: it decides whether the trap
// that ended a context switch was handled and whether the thread should
// yield before its next iteration.
type Trapdis_i interface {
	Dispatch(t *Thread_t, tc *Tcontext_t) (handled bool, yield bool)
}

// Sig_i is the signal collaborator: it may mutate the saved user context and
// reports whether the thread has exited.
type Sig_i interface {
	Handle(t *Thread_t, tf *defs.Tf_t) (exited bool)
}

// Kern_t owns the process-wide registries: the thread table, the process
// table, the per-CPU current-thread slots and the scheduler. It is
// initialized once at kernel start and injected into whatever needs it; it
// has no teardown before shutdown.
type Kern_t struct {
	Threads *Ttable_t
	Procs   *Ptable_t
	Sched   *sched.Fifo_t
	Trap    Trapdis_i
	Sig     Sig_i
	Limit   *limits.Syslimit_t
	// the countdown primitive Sleep ticks on
	Tick func(time.Duration)

	// current thread per physical CPU; written only by code running on that
	// CPU, read by anyone
	cpus [arch.MAXCPUS]unsafe.Pointer
}

func Mkkern(trap Trapdis_i, sg Sig_i) *Kern_t {
	k := &Kern_t{
		Threads: MkTtable(),
		Sched:   sched.MkFifo(),
		Trap:    trap,
		Sig:     sg,
		Limit:   limits.Syslimit,
		Tick:    time.Sleep,
	}
	k.Procs = MkPtable(k.Limit.Systhreads)
	return k
}

// Setcurrent publishes t as the thread running on cpu. Only the code
// executing on that CPU may call this for its own slot.
func (k *Kern_t) Setcurrent(cpu int, t *Thread_t) {
	atomic.StorePointer(&k.cpus[cpu], unsafe.Pointer(t))
}

func (k *Kern_t) Clearcurrent(cpu int) {
	atomic.StorePointer(&k.cpus[cpu], nil)
}

// Current returns the thread running on cpu, or -ESRCH if the slot is empty.
func (k *Kern_t) Current(cpu int) (*Thread_t, defs.Err_t) {
	p := atomic.LoadPointer(&k.cpus[cpu])
	if p == nil {
		return nil, -defs.ESRCH
	}
	return (*Thread_t)(p), 0
}

// Mkthread builds an unregistered thread around a saved trap frame.
func (k *Kern_t) Mkthread(p *Proc_t, vm mem.Aspace_i, tf *defs.Tf_t) *Thread_t {
	tc := &Tcontext_t{}
	if tf != nil {
		tc.Tf = *tf
	}
	return &Thread_t{
		Proc:  p,
		Vm:    vm,
		kern:  k,
		tctx:  tc,
		state: RUNNABLE,
	}
}

// Mkdebugthread is the debug bootstrap path: it builds a process and thread
// around the sentinel ids with a caller-provided entry point and stack top.
// Failures propagate; nothing here aborts the kernel.
func (k *Kern_t) Mkdebugthread(vm mem.Aspace_i, entry, stacktop uintptr) (*Thread_t, defs.Err_t) {
	var tf defs.Tf_t
	tf[defs.TF_RIP] = entry
	tf[defs.TF_RSP] = stacktop
	// IOPL | IF | RSVD
	tf[defs.TF_RFLAGS] = 0x3202

	p := &Proc_t{
		Pid:  defs.DEBUG_PID,
		Pgid: defs.DEBUG_PID,
		Vm:   vm,
		Cwd:  ".",
		Ppid: defs.NOPARENT,
	}
	p.Mywait.Wait_init(p.Pid)

	t := k.Mkthread(p, vm, &tf)
	t.Tid = defs.DEBUG_TID
	if _, err := t.Register(); err != 0 {
		return nil, err
	}
	p.Threads = []defs.Tid_t{t.Tid}
	p.Mywait.Start_thread(t.Tid, k.Limit.Noproc)
	k.Procs.Set(p.Pid, p)
	return t, 0
}
