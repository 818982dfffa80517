// Package proc is the execution core: processes, threads, their saved
// contexts, the global lookup tables, and the cooperative task glue that
// drives trap handling.
package proc

import (
	"sync"

	"github.com/TephrocactusMYC/NeoOS/defs"
	"github.com/TephrocactusMYC/NeoOS/mem"
	"github.com/TephrocactusMYC/NeoOS/sig"
)

// an open file table entry. the real file object lives in the filesystem
// collaborator; the core only tracks the per-process slots so fork can clone
// them.
type Fd_t struct {
	Path  string
	Perms int
}

type Childlink_t struct {
	Pid  defs.Pid_t
	Proc *Proc_t
}

// Proc_t is the unit of resource ownership grouping threads. Everything
// below the mutex is guarded by it; the address space has its own lock and
// is shared by every thread of the process.
type Proc_t struct {
	Pid  defs.Pid_t
	Pgid defs.Pid_t

	sync.Mutex

	// tids of this process's threads
	Threads []defs.Tid_t

	Vm mem.Aspace_i

	Cwd      string
	Execpath string

	Fds     []*Fd_t
	fdstart int
	nfds    int

	// a process is marked doomed when it has been killed but may still have
	// a thread in a task-loop iteration
	doomed     bool
	exitstatus int

	// parent link; Parent is nilled at termination so deep fork trees don't
	// pin each other in memory
	Ppid     defs.Pid_t
	Parent   *Proc_t
	Children []Childlink_t

	Sigpend sig.Sigset_t
	Sigq    []sig.Signal_t
	Actions [sig.NSIG]sig.Sigact_t

	// statuses of my dead threads and child processes
	Mywait Wait_t
	// my parent's wait info
	Pwait *Wait_t
}

func (p *Proc_t) Doomed() bool {
	p.Lock()
	ret := p.doomed
	p.Unlock()
	return ret
}

func (p *Proc_t) Doom() {
	p.Lock()
	p.doomed = true
	p.Unlock()
}

func (p *Proc_t) Exitstatus() int {
	p.Lock()
	ret := p.exitstatus
	p.Unlock()
	return ret
}

// an fd table invariant: every live slot has a non-nil entry. the caller
// cannot publish a slot without holding the proc lock or a forking thread
// will copy a torn table.
func (p *Proc_t) Fd_insert(f *Fd_t, nofile int) (int, bool) {
	p.Lock()
	defer p.Unlock()
	return p.fd_insert_inner(f, nofile)
}

func (p *Proc_t) fd_insert_inner(f *Fd_t, nofile int) (int, bool) {
	if p.nfds >= nofile {
		return -1, false
	}
	newfd := p.fdstart
	found := false
	for newfd < len(p.Fds) {
		if p.Fds[newfd] == nil {
			p.fdstart = newfd + 1
			found = true
			break
		}
		newfd++
	}
	if !found {
		nl := 2 * len(p.Fds)
		if nl == 0 {
			nl = 8
		}
		nfdt := make([]*Fd_t, nl)
		copy(nfdt, p.Fds)
		p.Fds = nfdt
	}
	p.Fds[newfd] = f
	p.nfds++
	return newfd, true
}

func (p *Proc_t) Fd_get(fdn int) (*Fd_t, bool) {
	p.Lock()
	defer p.Unlock()
	if fdn < 0 || fdn >= len(p.Fds) {
		return nil, false
	}
	ret := p.Fds[fdn]
	return ret, ret != nil
}

func (p *Proc_t) Fd_del(fdn int) (*Fd_t, bool) {
	p.Lock()
	defer p.Unlock()
	if fdn < 0 || fdn >= len(p.Fds) {
		return nil, false
	}
	ret := p.Fds[fdn]
	p.Fds[fdn] = nil
	if ret != nil {
		p.nfds--
		if p.nfds < 0 {
			panic("neg nfds")
		}
		if fdn < p.fdstart {
			p.fdstart = fdn
		}
	}
	return ret, ret != nil
}

// fdclone copies the fd table for a fork child. caller holds the proc lock.
func (p *Proc_t) fdclone() []*Fd_t {
	nfds := make([]*Fd_t, len(p.Fds))
	for i, f := range p.Fds {
		if f == nil {
			continue
		}
		cp := *f
		nfds[i] = &cp
	}
	return nfds
}

// Thread_dead retires one thread: it leaves the thread table and the proc's
// thread list, and its status lands in this proc's wait info. the last
// thread out terminates the process.
func (p *Proc_t) Thread_dead(k *Kern_t, tid defs.Tid_t, status int, usestatus bool) {
	k.Threads.Del(tid)

	p.Lock()
	for i, t := range p.Threads {
		if t == tid {
			p.Threads = append(p.Threads[:i], p.Threads[i+1:]...)
			break
		}
	}
	destroy := len(p.Threads) == 0
	if usestatus {
		p.exitstatus = status
	}
	p.Unlock()

	p.Mywait.Puttid(tid, status)

	if destroy {
		p.terminate(k)
	}
}

// terminate a process. must only be called when the process has no more
// running threads.
func (p *Proc_t) terminate(k *Kern_t) {
	p.Lock()
	if len(p.Threads) != 0 {
		panic("terminate, but threads alive")
	}
	// drop the fd table; the filesystem collaborator owns the real objects
	for i := range p.Fds {
		p.Fds[i] = nil
	}
	p.nfds = 0
	status := p.exitstatus
	pwait := p.Pwait
	// unlink upward so dead fork trees don't pin each other
	p.Pwait = nil
	p.Parent = nil
	p.Unlock()

	if pwait != nil {
		pwait.Putpid(p.Pid, status)
	}
	k.Procs.Del(p.Pid)
}
