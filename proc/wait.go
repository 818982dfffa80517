package proc

import (
	"sync"

	"github.com/TephrocactusMYC/NeoOS/defs"
)

// requirements for the reap operations (used for processes and threads):
// - reaping an id that is not my child must fail
// - only one reap of a specific id may succeed; others must fail
// - reaping when there are no children must fail
// - a process reap should not return thread info and vice versa
type Waitst_t struct {
	Id     uint64
	Status int
	// true iff the exit status is valid
	Valid bool
}

type Wait_t struct {
	sync.Mutex
	pwait whead_t
	twait whead_t
	cond  *sync.Cond
	Pid   defs.Pid_t
}

func (w *Wait_t) Wait_init(mypid defs.Pid_t) {
	w.cond = sync.NewCond(w)
	w.Pid = mypid
}

type wlist_t struct {
	next *wlist_t
	wst  Waitst_t
}

type whead_t struct {
	head  *wlist_t
	count int
}

func (wh *whead_t) wpush(id uint64) {
	n := &wlist_t{}
	n.wst.Id = id
	n.next = wh.head
	wh.head = n
	wh.count++
}

func (wh *whead_t) wpopvalid() (Waitst_t, bool) {
	var prev *wlist_t
	n := wh.head
	for n != nil {
		if n.wst.Valid {
			wh.wremove(prev, n)
			return n.wst, true
		}
		prev = n
		n = n.next
	}
	var zw Waitst_t
	return zw, false
}

func (wh *whead_t) wfind(id uint64) (*wlist_t, *wlist_t, bool) {
	var prev *wlist_t
	ret := wh.head
	for ret != nil {
		if ret.wst.Id == id {
			return prev, ret, true
		}
		prev = ret
		ret = ret.next
	}
	return nil, nil, false
}

func (wh *whead_t) wremove(prev, h *wlist_t) {
	if prev != nil {
		prev.next = h.next
	} else {
		wh.head = h.next
	}
	h.next = nil
	wh.count--
}

// if there are more unreaped statuses than noproc, _start returns false and
// the id is not tracked.
func (w *Wait_t) _start(id uint64, isproc bool, noproc int) bool {
	w.Lock()
	defer w.Unlock()
	if w.pwait.count+w.twait.count > noproc {
		return false
	}
	if isproc {
		w.pwait.wpush(id)
	} else {
		w.twait.wpush(id)
	}
	return true
}

func (w *Wait_t) Start_proc(pid defs.Pid_t, noproc int) bool {
	return w._start(uint64(pid), true, noproc)
}

func (w *Wait_t) Start_thread(tid defs.Tid_t, noproc int) bool {
	return w._start(uint64(tid), false, noproc)
}

func (w *Wait_t) Putpid(pid defs.Pid_t, status int) {
	w._put(uint64(pid), status, true)
}

func (w *Wait_t) Puttid(tid defs.Tid_t, status int) {
	w._put(uint64(tid), status, false)
}

func (w *Wait_t) _put(id uint64, status int, isproc bool) {
	w.Lock()
	defer w.Unlock()
	var wh *whead_t
	if isproc {
		wh = &w.pwait
	} else {
		wh = &w.twait
	}
	_, wn, ok := wh.wfind(id)
	if !ok {
		panic("id must exist")
	}
	wn.wst.Valid = true
	wn.wst.Status = status
	w.cond.Broadcast()
}

func (w *Wait_t) Reappid(pid defs.Pid_t, noblk bool) (Waitst_t, defs.Err_t) {
	return w._reap(uint64(pid), true, noblk)
}

func (w *Wait_t) Reaptid(tid defs.Tid_t, noblk bool) (Waitst_t, defs.Err_t) {
	return w._reap(uint64(tid), false, noblk)
}

func (w *Wait_t) _reap(id uint64, isproc bool, noblk bool) (Waitst_t, defs.Err_t) {
	var wh *whead_t
	if isproc {
		wh = &w.pwait
	} else {
		wh = &w.twait
	}

	w.Lock()
	defer w.Unlock()
	var zw Waitst_t
	for {
		if id == defs.WAIT_ANY {
			if wh.count < 0 {
				panic("neg childs")
			}
			if wh.count == 0 {
				return zw, -defs.ECHILD
			}
			if ret, ok := wh.wpopvalid(); ok {
				return ret, 0
			}
		} else {
			wp, wn, ok := wh.wfind(id)
			if !ok {
				return zw, -defs.ECHILD
			}
			if wn.wst.Valid {
				wh.wremove(wp, wn)
				return wn.wst, 0
			}
		}
		if noblk {
			return zw, 0
		}
		// wait for someone to exit
		w.cond.Wait()
	}
}
