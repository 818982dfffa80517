//go:build !linux

package arch

// no host stack probe on this platform
func Hoststack(f Frame_t) (Range_t, bool) {
	return Range_t{}, false
}
