// Package mem is the narrow surface of the virtual memory manager that the
// execution core consumes: create an address space, clone it with
// copy-on-write semantics, and report the page-table root to load when
// switching to it. The real MMU lives elsewhere.
package mem

import (
	"sync"
	"sync/atomic"

	"github.com/TephrocactusMYC/NeoOS/defs"
)

const PGSIZE = 4096

// page-table root identifier; what actually gets loaded on an address-space
// switch
type Pmap_t uintptr

type Aspace_i interface {
	Lock()
	Unlock()
	// Fork returns a copy-on-write clone with its own pmap id
	Fork() Aspace_i
	P_pmap() Pmap_t
}

// shared physical page. refs counts the address spaces mapping it; a write
// through a space that does not own it exclusively copies first.
type spg_t struct {
	data []byte
	refs *int32
}

// Svm_t is a software-only address space used by tests and the hosted
// monitor. Pages are 4k, sparsely mapped, and physically duplicated only
// when one side writes.
type Svm_t struct {
	sync.Mutex
	pages map[uintptr]*spg_t
	pmap  Pmap_t
}

var nextpmap int64

func MkSvm() *Svm_t {
	return &Svm_t{
		pages: make(map[uintptr]*spg_t),
		pmap:  Pmap_t(atomic.AddInt64(&nextpmap, 1)),
	}
}

func (v *Svm_t) P_pmap() Pmap_t {
	return v.pmap
}

func (v *Svm_t) Fork() Aspace_i {
	v.Lock()
	defer v.Unlock()
	nv := MkSvm()
	for pgn, pg := range v.pages {
		atomic.AddInt32(pg.refs, 1)
		nv.pages[pgn] = pg
	}
	return nv
}

// Map allocates npages zero pages starting at the page containing va.
func (v *Svm_t) Map(va uintptr, npages int) {
	v.Lock()
	defer v.Unlock()
	pgn := va / PGSIZE
	for i := 0; i < npages; i++ {
		if _, ok := v.pages[pgn+uintptr(i)]; ok {
			continue
		}
		refs := int32(1)
		v.pages[pgn+uintptr(i)] = &spg_t{data: make([]byte, PGSIZE), refs: &refs}
	}
}

func (v *Svm_t) Userread(va uintptr, dst []byte) defs.Err_t {
	v.Lock()
	defer v.Unlock()
	for len(dst) > 0 {
		pg, ok := v.pages[va/PGSIZE]
		if !ok {
			return -defs.EFAULT
		}
		off := va % PGSIZE
		n := copy(dst, pg.data[off:])
		dst = dst[n:]
		va += uintptr(n)
	}
	return 0
}

func (v *Svm_t) Userwrite(va uintptr, src []byte) defs.Err_t {
	v.Lock()
	defer v.Unlock()
	for len(src) > 0 {
		pgn := va / PGSIZE
		pg, ok := v.pages[pgn]
		if !ok {
			return -defs.EFAULT
		}
		if atomic.LoadInt32(pg.refs) > 1 {
			// break the share before the write lands
			ndata := make([]byte, PGSIZE)
			copy(ndata, pg.data)
			refs := int32(1)
			npg := &spg_t{data: ndata, refs: &refs}
			atomic.AddInt32(pg.refs, -1)
			v.pages[pgn] = npg
			pg = npg
		}
		off := va % PGSIZE
		n := copy(pg.data[off:], src)
		src = src[n:]
		va += uintptr(n)
	}
	return 0
}
