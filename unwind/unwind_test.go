package unwind

import (
	"fmt"
	"strings"
	"testing"

	"github.com/TephrocactusMYC/NeoOS/arch"
)

const (
	stklo  = uintptr(0x7000)
	stkhi  = uintptr(0x7ff8)
	textlo = uintptr(0x400000)
	texthi = uintptr(0x4fffff)
)

type walk_t struct {
	words map[uintptr]uintptr
	peeks int
	lines []string
}

func mkwalk() *walk_t {
	return &walk_t{words: make(map[uintptr]uintptr)}
}

func (w *walk_t) unwinder() *Unwinder_t {
	return &Unwinder_t{
		Stack: arch.Range_t{Lo: stklo, Hi: stkhi},
		Text:  arch.Range_t{Lo: textlo, Hi: texthi},
		Peek: func(addr uintptr) (uintptr, bool) {
			w.peeks++
			v, ok := w.words[addr]
			return v, ok
		},
		Logf: func(format string, args ...interface{}) {
			w.lines = append(w.lines, fmt.Sprintf(format, args...))
		},
	}
}

// builds a well-formed chain of n frames starting at bp
func (w *walk_t) chain(bp uintptr, n int) {
	for i := 0; i < n; i++ {
		next := bp + 0x40
		w.words[bp] = next
		w.words[bp+8] = textlo + uintptr(0x100*(i+1))
		bp = next
	}
	// the final saved bp leaves the stack range, ending the walk
	w.words[bp] = 0x1
	w.words[bp+8] = 0x1
}

func (w *walk_t) nframes() int {
	n := 0
	for _, l := range w.lines {
		if strings.Contains(l, "Stack #") {
			n++
		}
	}
	return n
}

func TestUnwindChain(t *testing.T) {
	w := mkwalk()
	w.chain(0x7100, 3)
	u := w.unwinder()

	u.Unwind(arch.Frame_t{Rbp: 0x7100}, 10)
	if got := w.nframes(); got != 3 {
		t.Fatalf("%v frames: %v", got, w.lines)
	}
	// the printed rip is the call site: return address minus one word
	callsite := fmt.Sprintf("%#018x", textlo+0x100-8)
	if !strings.Contains(w.lines[1], callsite) {
		t.Fatalf("no call-site adjustment: %v", w.lines[1])
	}
	fmt.Printf("Pass TestUnwindChain\n")
}

func TestUnwindDepthBound(t *testing.T) {
	w := mkwalk()
	w.chain(0x7100, 8)
	u := w.unwinder()

	u.Unwind(arch.Frame_t{Rbp: 0x7100}, 5)
	if got := w.nframes(); got != 5 {
		t.Fatalf("%v frames", got)
	}
	fmt.Printf("Pass TestUnwindDepthBound\n")
}

func TestUnwindZeroDepth(t *testing.T) {
	w := mkwalk()
	w.chain(0x7100, 3)
	u := w.unwinder()

	u.Unwind(arch.Frame_t{Rbp: 0x7100}, 0)
	if got := w.nframes(); got != 0 {
		t.Fatalf("%v frames", got)
	}
	// banners only
	if len(w.lines) != 2 {
		t.Fatalf("lines: %v", w.lines)
	}
	fmt.Printf("Pass TestUnwindZeroDepth\n")
}

func TestUnwindBpOutOfRange(t *testing.T) {
	for _, bp := range []uintptr{stklo - 1, stkhi + 1, 0, ^uintptr(0)} {
		w := mkwalk()
		u := w.unwinder()
		u.Unwind(arch.Frame_t{Rbp: bp}, 5)
		if w.peeks != 0 {
			t.Fatalf("bp %#x was dereferenced", bp)
		}
		if len(w.lines) != 1 || !strings.Contains(w.lines[0], "No stack trace available") {
			t.Fatalf("bp %#x: %v", bp, w.lines)
		}
	}
	// bps exactly at the bounds are inside the guard range and may be walked
	for _, bp := range []uintptr{stklo, stkhi} {
		w := mkwalk()
		u := w.unwinder()
		u.Unwind(arch.Frame_t{Rbp: bp}, 5)
		if len(w.lines) > 0 && strings.Contains(w.lines[0], "No stack trace available") {
			t.Fatalf("bp %#x rejected", bp)
		}
	}
	fmt.Printf("Pass TestUnwindBpOutOfRange\n")
}

func TestUnwindSelfReferential(t *testing.T) {
	w := mkwalk()
	// a frame whose saved bp points back at itself
	w.words[0x7100] = 0x7100
	w.words[0x7108] = textlo + 0x100
	u := w.unwinder()

	u.Unwind(arch.Frame_t{Rbp: 0x7100}, 5)
	if got := w.nframes(); got != 1 {
		t.Fatalf("%v frames: %v", got, w.lines)
	}
	fmt.Printf("Pass TestUnwindSelfReferential\n")
}

func TestUnwindStallRecovery(t *testing.T) {
	w := mkwalk()
	// two frames with the same return address: printed once, but the walk
	// keeps advancing bp and picks up the third
	w.words[0x7100] = 0x7140
	w.words[0x7108] = textlo + 0x100
	w.words[0x7140] = 0x7180
	w.words[0x7148] = textlo + 0x100
	w.words[0x7180] = 0x1
	w.words[0x7188] = textlo + 0x200
	u := w.unwinder()

	u.Unwind(arch.Frame_t{Rbp: 0x7100}, 5)
	if got := w.nframes(); got != 2 {
		t.Fatalf("%v frames: %v", got, w.lines)
	}
	fmt.Printf("Pass TestUnwindStallRecovery\n")
}

func TestDepthDefault(t *testing.T) {
	t.Setenv("NEOOS_BACKTRACE", "")
	if d := Depth(); d != 5 {
		t.Fatalf("default depth %v", d)
	}
	t.Setenv("NEOOS_BACKTRACE", "12")
	if d := Depth(); d != 12 {
		t.Fatalf("depth %v", d)
	}
	t.Setenv("NEOOS_BACKTRACE", "bogus")
	if d := Depth(); d != 5 {
		t.Fatalf("depth %v", d)
	}
	fmt.Printf("Pass TestDepthDefault\n")
}
