// Package sig holds the per-process signal bookkeeping owned by the
// execution core. Delivery itself is an external collaborator; the core only
// snapshots and clones this state across forks.
package sig

type Signal_t int

// size of the per-process action table
const NSIG = 0x41

type Sigset_t uint64

func (s *Sigset_t) Set(sig Signal_t) {
	*s |= 1 << uint(sig)
}

func (s *Sigset_t) Clear(sig Signal_t) {
	*s &^= 1 << uint(sig)
}

func (s Sigset_t) Is(sig Signal_t) bool {
	return s&(1<<uint(sig)) != 0
}

// a sigaction entry. Handler is a user virtual address; 0 means default
// disposition.
type Sigact_t struct {
	Handler uintptr
	Mask    Sigset_t
	Flags   uint32
}

// alternate signal stack
type Sigstack_t struct {
	Sp    uintptr
	Size  int
	Flags int32
}
