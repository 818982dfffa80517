package proc

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TephrocactusMYC/NeoOS/defs"
)

const psz = 10

func pfill(t *testing.T, pt *Ptable_t, n int) {
	for i := 1; i <= n; i++ {
		pid := defs.Pid_t(i)
		p := &Proc_t{Pid: pid}
		pt.Set(pid, p)
		got, ok := pt.Get(pid)
		if !ok {
			t.Fatalf("%v key", pid)
		}
		if got != p {
			t.Fatalf("%v val", pid)
		}
	}
}

func TestPtableSimple(t *testing.T) {
	pt := MkPtable(psz)
	pfill(t, pt, 3*psz)
	if pt.Len() != 3*psz {
		t.Fatalf("len %v", pt.Len())
	}
	for i := 2; i <= 3*psz; i++ {
		pt.Del(defs.Pid_t(i))
		if _, ok := pt.Get(defs.Pid_t(i)); ok {
			t.Fatalf("%v key", i)
		}
		if _, ok := pt.Get(1); !ok {
			t.Fatalf("1 key")
		}
	}
	fmt.Printf("Pass TestPtableSimple\n")
}

func TestPtableConcurrent(t *testing.T) {
	pt := MkPtable(psz)
	pfill(t, pt, psz)

	var wg sync.WaitGroup
	done := int32(0)
	for i := 0; i < NPROC; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for atomic.LoadInt32(&done) == 0 {
				// writers churn their own id range above the readers'
				pid := defs.Pid_t(100 + id)
				p := &Proc_t{Pid: pid}
				pt.Set(pid, p)
				if got, ok := pt.Get(pid); !ok || got != p {
					t.Errorf("%v key", pid)
					return
				}
				pt.Del(pid)
			}
		}(i)
	}
	for i := 0; i < NPROC; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for atomic.LoadInt32(&done) == 0 {
				pid := defs.Pid_t(rand.Intn(psz) + 1)
				got, ok := pt.Get(pid)
				if !ok || got.Pid != pid {
					t.Errorf("%v key", pid)
					return
				}
			}
		}()
	}
	time.Sleep(100 * time.Millisecond)
	atomic.StoreInt32(&done, 1)
	wg.Wait()
	fmt.Printf("Pass TestPtableConcurrent\n")
}
