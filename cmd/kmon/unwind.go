package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TephrocactusMYC/NeoOS/arch"
	"github.com/TephrocactusMYC/NeoOS/unwind"
)

// synthetic stack layout: nframes frames, each frameslot bytes apart, with
// the saved base pointer at bp and the return address at bp+8.
const (
	synthStackLo = uintptr(0x8000_0000)
	synthTextLo  = uintptr(0x40_0000)
	synthTextHi  = uintptr(0x4f_ffff)
	frameslot    = uintptr(0x20)
	wordsize     = uintptr(8)
)

// mksynth lays out a frame-pointer chain in fake memory and returns the
// innermost frame plus a peek function over that memory.
func mksynth(nframes int) (arch.Frame_t, arch.Range_t, func(uintptr) (uintptr, bool)) {
	mem := make(map[uintptr]uintptr)
	var bp uintptr
	// outermost frame first; its saved bp points above the stack range so
	// the walk terminates there
	prev := synthStackLo + uintptr(nframes+2)*frameslot
	for i := nframes - 1; i >= 0; i-- {
		bp = synthStackLo + uintptr(i+1)*frameslot
		mem[bp] = prev
		mem[bp+wordsize] = synthTextLo + 0x1000 + uintptr(i)*0x30
		prev = bp
	}
	f := arch.Frame_t{
		Rip: synthTextLo + 0x1000,
		Rsp: bp - frameslot,
		Rbp: bp,
	}
	stack := arch.Range_t{Lo: synthStackLo, Hi: synthStackLo + uintptr(nframes+1)*frameslot + wordsize}
	peek := func(addr uintptr) (uintptr, bool) {
		v, ok := mem[addr]
		return v, ok
	}
	return f, stack, peek
}

func runUnwind(cmd *cobra.Command, args []string) {
	depth, _ := cmd.Flags().GetInt("depth")
	nframes, _ := cmd.Flags().GetInt("frames")
	if depth == 0 {
		depth = unwind.Depth()
	}
	if nframes < 1 {
		nframes = 1
	}

	f, stack, peek := mksynth(nframes)
	fmt.Printf("synthetic chain: %d frames, depth bound %d\n", nframes, depth)
	u := &unwind.Unwinder_t{
		Stack: stack,
		Text:  arch.Range_t{Lo: synthTextLo, Hi: synthTextHi},
		Peek:  peek,
		Logf: func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		},
	}
	u.Unwind(f, depth)

	hosttrace(depth)
}

// hosttrace captures the calling goroutine's frame and walks the host stack
// with raw memory reads.
func hosttrace(depth int) {
	hf := arch.Mkframe()
	hstack, ok := arch.Hoststack(hf)
	if !ok || hf.Rip == 0 {
		fmt.Printf("host trace: no frame capture on this platform\n")
		return
	}
	fmt.Printf("host chain: rip %#x rsp %#x rbp %#x\n", hf.Rip, hf.Rsp, hf.Rbp)
	hu := &unwind.Unwinder_t{
		Stack: hstack,
		// the text segment is not mapped at a fixed address hosted; anchor
		// a window around the captured rip instead
		Text: arch.Range_t{Lo: hf.Rip - (16 << 20), Hi: hf.Rip + (16 << 20)},
		Peek: unwind.Kpeek,
		Logf: func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		},
	}
	hu.Unwind(hf, depth)
}
