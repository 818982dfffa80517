package proc

import (
	"gvisor.dev/gvisor/pkg/log"

	"github.com/TephrocactusMYC/NeoOS/arch"
	"github.com/TephrocactusMYC/NeoOS/defs"
	"github.com/TephrocactusMYC/NeoOS/mem"
	"github.com/TephrocactusMYC/NeoOS/sched"
)

// ttask_t wraps one thread's trap-handling loop as a cooperatively scheduled
// unit of work bound to its address space. Yield and exit decisions travel
// through the Step return value only; there is no shared should-yield flag.
type ttask_t struct {
	kern *Kern_t
	t    *Thread_t
	cpu  arch.Cpu_i
	pmap mem.Pmap_t
}

func (tt *ttask_t) Pmap() mem.Pmap_t {
	return tt.pmap
}

// Step runs one trap cycle: take the context, switch into user mode, hand
// the trap to the dispatcher, let the signal collaborator run, restore the
// context, then report what the thread wants next.
func (tt *ttask_t) Step() sched.Hint {
	k, t := tt.kern, tt.t

	ctx, err := t.Take()
	if err != 0 {
		// only reachable through a kernel bug: the loop is the sole taker
		log.Warningf("spawn: thread %#x context missing: %v", t.Tid, err)
		return sched.Exit
	}

	k.Setcurrent(tt.cpu.Id(), t)
	t.setstate(RUNNING)

	ctx.Switch(tt.cpu)

	handled, yield := k.Trap.Dispatch(t, ctx)
	if !handled {
		log.Warningf("spawn: cannot handle context switch. dumped context is %#x", ctx.Tf)
		t.setstate(ZOMBIE)
		k.Clearcurrent(tt.cpu.Id())
		status := defs.SIGNALED | defs.Mkexitsig(4)
		t.Proc.Thread_dead(k, t.Tid, status, true)
		return sched.Exit
	}

	exited := false
	if t.State() != ZOMBIE {
		exited = k.Sig.Handle(t, &ctx.Tf)
	}

	t.Restore(ctx)

	if exited {
		log.Infof("spawn: thread %#x ended", t.Tid)
		t.setstate(ZOMBIE)
		k.Clearcurrent(tt.cpu.Id())
		t.Proc.Thread_dead(k, t.Tid, defs.EXITED|t.Proc.Exitstatus(), true)
		return sched.Exit
	}
	if yield {
		log.Debugf("spawn: thread %#x yields the cpu", t.Tid)
		t.setstate(RUNNABLE)
		k.Clearcurrent(tt.cpu.Id())
		return sched.Yield
	}
	return sched.Again
}

// Spawn submits a registered thread's task loop to the FIFO scheduler,
// bound to the thread's address space so a switch to this task also
// switches the active page table.
func (k *Kern_t) Spawn(t *Thread_t, cpu arch.Cpu_i) defs.Err_t {
	if t.Tid == 0 {
		return -defs.EINVAL
	}
	t.Vm.Lock()
	pm := t.Vm.P_pmap()
	t.Vm.Unlock()
	k.Sched.Spawn(&ttask_t{kern: k, t: t, cpu: cpu, pmap: pm})
	return 0
}
