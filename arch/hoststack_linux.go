//go:build linux

package arch

import "golang.org/x/sys/unix"

// default host stack reservation when RLIMIT_STACK is unlimited
const hoststackmax = 8 << 20

// Hoststack derives a valid stack range for the calling context when the
// core runs hosted rather than bare-metal: everything from the captured
// stack pointer up to the stack reservation is fair game for the unwinder.
func Hoststack(f Frame_t) (Range_t, bool) {
	if f.Rsp == 0 {
		return Range_t{}, false
	}
	var lim unix.Rlimit
	max := uintptr(hoststackmax)
	if err := unix.Getrlimit(unix.RLIMIT_STACK, &lim); err == nil &&
		lim.Cur != unix.RLIM_INFINITY && lim.Cur != 0 {
		max = uintptr(lim.Cur)
	}
	return Range_t{Lo: f.Rsp, Hi: f.Rsp + max}, true
}
