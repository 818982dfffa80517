//go:build !amd64

package arch

// no frame-pointer capture on this architecture; a zero frame makes the
// unwinder report "no stack trace available" instead of walking garbage.
func Mkframe() Frame_t {
	return Frame_t{}
}
