package proc

import (
	"sync"

	"github.com/TephrocactusMYC/NeoOS/defs"
)

// the thread table is a red-black tree so lookups stay O(log n) against the
// totally ordered tid key and the first-free-id scan can walk ids in order.

const (
	black = 0
	red   = 1
)

type rb_t struct {
	l     *rb_t
	r     *rb_t
	p     *rb_t
	color int
	// a dead node is a tombstone; its id is free for reuse
	live bool
	k    defs.Tid_t
	v    *Thread_t
}

type rb_root struct {
	n *rb_t
}

func gp(n *rb_t) *rb_t {
	if n != nil && n.p != nil {
		return n.p.p
	}
	return nil
}

func uncle(n *rb_t) *rb_t {
	g := gp(n)
	if g != nil {
		if g.r == n.p {
			return g.l
		} else {
			return g.r
		}
	}
	return nil
}

func rotatel(n *rb_t, root *rb_root) {
	p := n.p
	temp := n.r
	n.r = temp.l
	if n.r != nil {
		n.r.p = n
	}
	temp.l = n
	n.p = temp
	temp.p = p
	if p != nil {
		if p.r == n {
			p.r = temp
		} else {
			p.l = temp
		}
	}
	if temp.p == nil {
		root.n = temp
	}
}

func rotater(n *rb_t, root *rb_root) {
	p := n.p
	temp := n.l
	n.l = temp.r
	if n.l != nil {
		n.l.p = n
	}
	temp.r = n
	n.p = temp
	temp.p = p
	if p != nil {
		if p.r == n {
			p.r = temp
		} else {
			p.l = temp
		}
	}
	if temp.p == nil {
		root.n = temp
	}
}

func insert5(n *rb_t, root *rb_root) {
	g := gp(n)
	n.p.color = black
	g.color = red
	if n == n.p.l {
		rotater(g, root)
	} else {
		rotatel(g, root)
	}
}

func insert4(n *rb_t, root *rb_root) {
	g := gp(n)
	if n == n.p.r && n.p == g.l {
		rotatel(n.p, root)
		n = n.l
	} else if n == n.p.l && n.p == g.r {
		rotater(n.p, root)
		n = n.r
	}
	insert5(n, root)
}

func insert3(n *rb_t, root *rb_root) {
	u := uncle(n)
	if u != nil && u.color == red {
		n.p.color = black
		u.color = black
		g := gp(n)
		g.color = red
		insert1(g, root)
		return
	}
	insert4(n, root)
}

func insert2(n *rb_t, root *rb_root) {
	if n.p.color == black {
		return
	}
	insert3(n, root)
}

func insert1(n *rb_t, root *rb_root) {
	if n.p == nil {
		n.color = black
		return
	}
	insert2(n, root)
}

// binsert places k in the tree and returns its node; an existing node for k
// (live or tombstone) is returned as is for the caller to overwrite.
func binsert(root *rb_root, k defs.Tid_t) (*rb_t, bool) {
	if root.n == nil {
		n := &rb_t{color: red, k: k}
		root.n = n
		return n, true
	}
	h := root.n
	prev := h
	for h != nil {
		prev = h
		if k < h.k {
			h = h.l
		} else if k > h.k {
			h = h.r
		} else {
			return h, false
		}
	}
	h = &rb_t{color: red, k: k, p: prev}
	if k < prev.k {
		prev.l = h
	} else {
		prev.r = h
	}
	return h, true
}

func (root *rb_root) rbinsert(k defs.Tid_t, v *Thread_t) {
	n, fresh := binsert(root, k)
	n.v = v
	n.live = true
	if fresh {
		insert1(n, root)
	}
}

func (root *rb_root) rblookup(k defs.Tid_t) *rb_t {
	ret := root.n
	for ret != nil {
		if ret.k > k {
			ret = ret.l
		} else if ret.k < k {
			ret = ret.r
		} else {
			return ret
		}
	}
	return nil
}

// in-order walk over live nodes; f returning false stops the walk
func inorder(n *rb_t, f func(*rb_t) bool) bool {
	if n == nil {
		return true
	}
	if !inorder(n.l, f) {
		return false
	}
	if n.live && !f(n) {
		return false
	}
	return inorder(n.r, f)
}

// Ttable_t is the global thread table. Readers may run concurrently with
// each other, never with a writer; registration holds the write lock for the
// whole find-id-and-insert sequence so no two live threads ever share an id.
type Ttable_t struct {
	sync.RWMutex
	root  rb_root
	nlive int
}

func MkTtable() *Ttable_t {
	return &Ttable_t{}
}

func (tt *Ttable_t) Get(tid defs.Tid_t) (*Thread_t, bool) {
	tt.RLock()
	defer tt.RUnlock()
	n := tt.root.rblookup(tid)
	if n == nil || !n.live {
		return nil, false
	}
	return n.v, true
}

func (tt *Ttable_t) Len() int {
	tt.RLock()
	ret := tt.nlive
	tt.RUnlock()
	return ret
}

// Iter visits live entries in ascending tid order until f returns false.
func (tt *Ttable_t) Iter(f func(defs.Tid_t, *Thread_t) bool) {
	tt.RLock()
	defer tt.RUnlock()
	inorder(tt.root.n, func(n *rb_t) bool {
		return f(n.k, n.v)
	})
}

// firstfree returns the smallest unused id starting at 1. the in-order walk
// increments the candidate past each live id it matches; the first gap wins.
func (tt *Ttable_t) firstfree() defs.Tid_t {
	want := defs.Tid_t(1)
	inorder(tt.root.n, func(n *rb_t) bool {
		if n.k < want {
			return true
		}
		if n.k == want {
			want++
			return true
		}
		return false
	})
	return want
}

// Insert registers v. want 0 assigns the first unused ascending id; a
// nonzero want takes that exact slot, overwriting any existing entry (the
// documented debug/bootstrap override). Fails with -EBUSY when the
// system-wide limit of live threads is reached.
func (tt *Ttable_t) Insert(want defs.Tid_t, v *Thread_t, limit int) (defs.Tid_t, defs.Err_t) {
	tt.Lock()
	defer tt.Unlock()
	if want == 0 {
		if tt.nlive >= limit {
			return 0, -defs.EBUSY
		}
		want = tt.firstfree()
	} else if n := tt.root.rblookup(want); n != nil && n.live {
		// explicit-id overwrite replaces, not adds
		tt.nlive--
	} else if tt.nlive >= limit {
		return 0, -defs.EBUSY
	}
	tt.root.rbinsert(want, v)
	tt.nlive++
	return want, 0
}

func (tt *Ttable_t) Del(tid defs.Tid_t) {
	tt.Lock()
	defer tt.Unlock()
	n := tt.root.rblookup(tid)
	if n != nil && n.live {
		n.live = false
		n.v = nil
		tt.nlive--
	}
}
