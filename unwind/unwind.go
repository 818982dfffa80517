// Package unwind walks frame-pointer-linked call chains for diagnostic
// backtraces, typically on fatal error paths. The walked stack words are
// foreign data (arbitrary past stack contents), so every pointer is
// validated against a known-good range before it is dereferenced.
package unwind

import (
	"os"
	"strconv"
	"unsafe"

	"gvisor.dev/gvisor/pkg/log"

	"github.com/TephrocactusMYC/NeoOS/arch"
)

const ptrsize = unsafe.Sizeof(uintptr(0))

// give up after this many consecutive frames with a repeated return address;
// a corrupted chain can bounce between base pointers without ever printing.
const maxstall = 16

// Depth returns the configured unwind bound: NEOOS_BACKTRACE if set to a
// non-negative integer, otherwise 5.
func Depth() int {
	if v, err := strconv.Atoi(os.Getenv("NEOOS_BACKTRACE")); err == nil && v >= 0 {
		return v
	}
	return 0x5
}

type Unwinder_t struct {
	// valid stack addresses; a base pointer outside this range is never
	// dereferenced
	Stack arch.Range_t
	// valid code addresses; a return address outside this range stops the
	// walk
	Text arch.Range_t
	// the only memory access the unwinder performs
	Peek func(addr uintptr) (uintptr, bool)
	// error-level sink; nil means the kernel log
	Logf func(format string, args ...interface{})
}

func (u *Unwinder_t) logf(format string, args ...interface{}) {
	if u.Logf != nil {
		u.Logf(format, args...)
		return
	}
	log.Warningf(format, args...)
}

// Kpeek reads one machine word of raw memory. The caller must have validated
// addr against a known-good range first.
func Kpeek(addr uintptr) (uintptr, bool) {
	if addr == 0 {
		return 0, false
	}
	return *(*uintptr)(unsafe.Pointer(addr)), true
}

// Unwind prints up to depth distinct stack entries starting at the captured
// frame's return address. It never fails outward; every anomaly degrades to
// "stop walking and return". The printed instruction pointer is adjusted
// back by one word to report the call site rather than the return address.
func (u *Unwinder_t) Unwind(f arch.Frame_t, depth int) {
	bp := f.Rbp
	// the first frame of execution has no caller; its bp points at whatever
	// the boot path left behind
	if !u.Stack.Contains(bp) {
		u.logf("\tNo stack trace available. Maybe this is the initial procedure. RBP was %#x", f.Rbp)
		return
	}

	u.logf("=========== STACK BACKTRACE ===========")
	ip, ok := u.peekstack(bp + ptrsize)
	previp := uintptr(0)
	cur := 0
	stalls := 0
	for ok && cur != depth && u.Text.Contains(ip) {
		if previp != ip {
			u.logf("\tStack #%02x - RIP: %#018x RBP: %#018x", cur, ip-ptrsize, bp)
			previp = ip
			cur++
			stalls = 0
		} else {
			// same return address twice in a row: don't double count, but
			// keep advancing bp in case the chain recovers
			stalls++
			if stalls > maxstall {
				break
			}
		}

		if !u.Stack.Contains(bp) {
			break
		}
		nip, ok1 := u.peekstack(bp + ptrsize)
		nbp, ok2 := u.peekstack(bp)
		if !ok1 || !ok2 {
			break
		}
		if nip == ip && nbp == bp {
			// self-referential frame; no progress is possible
			break
		}
		ip = nip
		bp = nbp
	}
	u.logf("=========== STACK BACKTRACE ===========")
}

func (u *Unwinder_t) peekstack(addr uintptr) (uintptr, bool) {
	if !u.Stack.Contains(addr) {
		return 0, false
	}
	return u.Peek(addr)
}
