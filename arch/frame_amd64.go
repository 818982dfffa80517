//go:build amd64

package arch

// the three reads are single NOSPLIT assembly instructions so the compiler
// cannot reorder them or elide the frame pointer; see asm_amd64.s. the
// toolchain keeps RBP chains on amd64, which is what makes the unwinder's
// walk possible at all.

func rdsp() uintptr
func rdbp() uintptr
func rdip() uintptr

// Mkframe snapshots the calling context. Not inlined so the captured RBP is
// the caller's frame, matching the saved-base-pointer chain the unwinder
// expects.
//
//go:noinline
func Mkframe() Frame_t {
	return Frame_t{
		Rip: rdip(),
		Rsp: rdsp(),
		Rbp: rdbp(),
	}
}
