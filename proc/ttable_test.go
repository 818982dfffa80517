package proc

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/TephrocactusMYC/NeoOS/defs"
)

func TestTtableOrder(t *testing.T) {
	tt := MkTtable()
	ids := rand.Perm(100)
	for _, id := range ids {
		tid := defs.Tid_t(id + 1)
		if got, err := tt.Insert(tid, &Thread_t{Tid: tid}, 1000); err != 0 || got != tid {
			t.Fatalf("insert %v: %v", tid, err)
		}
	}
	if tt.Len() != 100 {
		t.Fatalf("len %v", tt.Len())
	}
	// iteration is ascending regardless of insertion order
	prev := defs.Tid_t(0)
	tt.Iter(func(tid defs.Tid_t, th *Thread_t) bool {
		if tid <= prev {
			t.Fatalf("tid %v after %v", tid, prev)
		}
		if th.Tid != tid {
			t.Fatalf("wrong value under %v", tid)
		}
		prev = tid
		return true
	})
	for i := 1; i <= 100; i++ {
		if _, ok := tt.Get(defs.Tid_t(i)); !ok {
			t.Fatalf("%v key", i)
		}
	}
	fmt.Printf("Pass TestTtableOrder\n")
}

func TestTtableFirstFree(t *testing.T) {
	tt := MkTtable()
	for i := 0; i < 5; i++ {
		tid, err := tt.Insert(0, &Thread_t{}, 1000)
		if err != 0 {
			t.Fatalf("insert: %v", err)
		}
		if tid != defs.Tid_t(i+1) {
			t.Fatalf("tid %v, want %v", tid, i+1)
		}
	}
	// a deleted id is the next one handed out
	tt.Del(3)
	if _, ok := tt.Get(3); ok {
		t.Fatalf("deleted key")
	}
	tid, err := tt.Insert(0, &Thread_t{}, 1000)
	if err != 0 || tid != 3 {
		t.Fatalf("tid %v err %v", tid, err)
	}
	tid, err = tt.Insert(0, &Thread_t{}, 1000)
	if err != 0 || tid != 6 {
		t.Fatalf("tid %v err %v", tid, err)
	}
	fmt.Printf("Pass TestTtableFirstFree\n")
}

func TestTtableLimit(t *testing.T) {
	tt := MkTtable()
	for i := 0; i < 4; i++ {
		if _, err := tt.Insert(0, &Thread_t{}, 4); err != 0 {
			t.Fatalf("insert: %v", err)
		}
	}
	if _, err := tt.Insert(0, &Thread_t{}, 4); err != -defs.EBUSY {
		t.Fatalf("expected -EBUSY, got %v", err)
	}
	// an overwrite of a live id doesn't count against the limit
	if _, err := tt.Insert(2, &Thread_t{}, 4); err != 0 {
		t.Fatalf("overwrite: %v", err)
	}
	if tt.Len() != 4 {
		t.Fatalf("len %v", tt.Len())
	}
	fmt.Printf("Pass TestTtableLimit\n")
}
