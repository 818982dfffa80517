package proc

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/TephrocactusMYC/NeoOS/defs"
)

// the process table is a fixed-bucket hash table whose readers never take a
// lock: bucket chains are only ever prepended or spliced with atomic pointer
// stores, so a concurrent Get sees either the old or the new chain.

type pelem_t struct {
	pid  defs.Pid_t
	proc *Proc_t
	next *pelem_t
}

type pbucket_t struct {
	sync.Mutex
	first *pelem_t
}

type Ptable_t struct {
	table []*pbucket_t
}

func loadpe(p **pelem_t) *pelem_t {
	v := atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(p)))
	return (*pelem_t)(v)
}

func storepe(p **pelem_t, n *pelem_t) {
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(p)), unsafe.Pointer(n))
}

func MkPtable(size int) *Ptable_t {
	pt := &Ptable_t{table: make([]*pbucket_t, size)}
	for i := range pt.table {
		pt.table[i] = &pbucket_t{}
	}
	return pt
}

func (pt *Ptable_t) bucket(pid defs.Pid_t) *pbucket_t {
	// ids are dense and sequential; masking into the table spreads them fine
	return pt.table[int(pid)%len(pt.table)]
}

func (pt *Ptable_t) Get(pid defs.Pid_t) (*Proc_t, bool) {
	b := pt.bucket(pid)
	for e := loadpe(&b.first); e != nil; e = loadpe(&e.next) {
		if e.pid == pid {
			return e.proc, true
		}
	}
	return nil, false
}

func (pt *Ptable_t) Set(pid defs.Pid_t, p *Proc_t) {
	b := pt.bucket(pid)
	b.Lock()
	defer b.Unlock()
	for e := b.first; e != nil; e = e.next {
		if e.pid == pid {
			e.proc = p
			return
		}
	}
	storepe(&b.first, &pelem_t{pid: pid, proc: p, next: b.first})
}

func (pt *Ptable_t) Del(pid defs.Pid_t) {
	b := pt.bucket(pid)
	b.Lock()
	defer b.Unlock()
	var prev *pelem_t
	for e := b.first; e != nil; e = e.next {
		if e.pid == pid {
			if prev == nil {
				storepe(&b.first, e.next)
			} else {
				storepe(&prev.next, e.next)
			}
			return
		}
		prev = e
	}
}

// Iter may execute concurrently with lookups, inserts, and deletes.
func (pt *Ptable_t) Iter(f func(defs.Pid_t, *Proc_t) bool) {
	for _, b := range pt.table {
		for e := loadpe(&b.first); e != nil; e = loadpe(&e.next) {
			if !f(e.pid, e.proc) {
				return
			}
		}
	}
}

func (pt *Ptable_t) Len() int {
	n := 0
	pt.Iter(func(defs.Pid_t, *Proc_t) bool {
		n++
		return true
	})
	return n
}
