package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TephrocactusMYC/NeoOS/arch"
	"github.com/TephrocactusMYC/NeoOS/defs"
	"github.com/TephrocactusMYC/NeoOS/mem"
	"github.com/TephrocactusMYC/NeoOS/proc"
)

// demo trap dispatcher: syscalls are handled and yield the cpu, anything
// else is an unhandled fault that kills the thread.
type demodis_t struct{}

func (d *demodis_t) Dispatch(t *proc.Thread_t, tc *proc.Tcontext_t) (bool, bool) {
	switch tc.Trapno() {
	case defs.SYSCALL, defs.TIMER:
		return true, true
	default:
		return false, false
	}
}

// demo signal collaborator: each thread gets a syscall budget and exits
// when it runs out.
type demosig_t struct {
	budget map[defs.Tid_t]int
}

func (s *demosig_t) Handle(t *proc.Thread_t, tf *defs.Tf_t) bool {
	s.budget[t.Tid]--
	return s.budget[t.Tid] <= 0
}

type demo_t struct {
	kern *proc.Kern_t
	sig  *demosig_t
	// collects the demo processes' exit statuses, standing in for init
	initw proc.Wait_t
}

const (
	demoEntry    = uintptr(0x401000)
	demoStackTop = uintptr(0x7fff_f000)
)

// boot builds a kernel around the mock cpu, spawns nthreads debug threads,
// and leaves them runnable on the FIFO scheduler.
func boot(nthreads, budget int) (*demo_t, error) {
	sg := &demosig_t{budget: make(map[defs.Tid_t]int)}
	k := proc.Mkkern(&demodis_t{}, sg)
	d := &demo_t{kern: k, sig: sg}
	d.initw.Wait_init(0)

	for i := 0; i < nthreads; i++ {
		vm := mem.MkSvm()
		vm.Map(demoEntry, 1)
		vm.Map(demoStackTop-uintptr(mem.PGSIZE), 1)
		var t *proc.Thread_t
		var err defs.Err_t
		if i == 0 {
			// the first thread takes the bootstrap path with its sentinel ids
			t, err = k.Mkdebugthread(vm, demoEntry, demoStackTop)
		} else {
			t, err = mkuserthread(k, vm)
		}
		if err != 0 {
			return nil, fmt.Errorf("debug thread %d: %v", i, err)
		}
		sg.budget[t.Tid] = budget
		d.initw.Start_proc(t.Proc.Pid, k.Limit.Noproc)
		t.Proc.Pwait = &d.initw
		cpu := &arch.Mockcpu_t{Cpuid: 0}
		if err := k.Spawn(t, cpu); err != 0 {
			return nil, fmt.Errorf("spawn %#x: %v", t.Tid, err)
		}
	}
	return d, nil
}

// reap collects one exited demo process without blocking.
func (d *demo_t) reap(pid defs.Pid_t) {
	st, err := d.initw.Reappid(pid, true)
	if err != 0 {
		fmt.Printf("reap %#x: %v\n", pid, err)
		return
	}
	fmt.Printf("pid %#x exited with status %#x\n", st.Id, st.Status)
}

// mkuserthread builds a single-thread process with an automatic id,
// mirroring what the ELF exec path would do.
func mkuserthread(k *proc.Kern_t, vm *mem.Svm_t) (*proc.Thread_t, defs.Err_t) {
	var tf defs.Tf_t
	tf[defs.TF_RIP] = demoEntry
	tf[defs.TF_RSP] = demoStackTop
	tf[defs.TF_RFLAGS] = 0x3202

	p := &proc.Proc_t{Vm: vm, Cwd: ".", Ppid: defs.NOPARENT}
	t := k.Mkthread(p, vm, &tf)
	t, err := t.Register()
	if err != 0 {
		return nil, err
	}
	p.Pid = defs.Pid_t(t.Tid)
	p.Pgid = p.Pid
	p.Threads = []defs.Tid_t{t.Tid}
	p.Mywait.Wait_init(p.Pid)
	p.Mywait.Start_thread(t.Tid, k.Limit.Noproc)
	k.Procs.Set(p.Pid, p)
	return t, 0
}

func (d *demo_t) dumpthreads() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "tid\tpid\tstate\tpmap\n")
	d.kern.Threads.Iter(func(tid defs.Tid_t, t *proc.Thread_t) bool {
		fmt.Fprintf(tw, "%#x\t%#x\t%v\t%v\n", tid, t.Proc.Pid, t.State(), t.Vm.P_pmap())
		return true
	})
	tw.Flush()
}

func (d *demo_t) dumpprocs() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "pid\tpgid\tthreads\tcwd\n")
	d.kern.Procs.Iter(func(pid defs.Pid_t, p *proc.Proc_t) bool {
		fmt.Fprintf(tw, "%#x\t%#x\t%v\t%s\n", pid, p.Pgid, len(p.Threads), p.Cwd)
		return true
	})
	tw.Flush()
}

func runBoot(cmd *cobra.Command, args []string) {
	nthreads, _ := cmd.Flags().GetInt("threads")
	budget, _ := cmd.Flags().GetInt("budget")

	d, err := boot(nthreads, budget)
	if err != nil {
		exitf("boot: %v\n", err)
	}
	fmt.Printf("booted: %d threads, %d procs\n", d.kern.Threads.Len(), d.kern.Procs.Len())
	d.dumpthreads()

	d.kern.Sched.Runall()

	fmt.Printf("drained: %d threads, %d procs left\n", d.kern.Threads.Len(), d.kern.Procs.Len())
	d.dumpprocs()
}
