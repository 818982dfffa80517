package defs

// Thread identifier. Unique within the thread table; 0 means "assign
// automatically" at registration time.
type Tid_t uint64

// Process identifier. Processes share the thread id space so that a forked
// process and its first thread carry the same number.
type Pid_t uint64

const (
	// sentinel ids used by the debug bootstrap path only
	DEBUG_TID Tid_t = 0xdeadbeef
	DEBUG_PID Pid_t = 0xbeefdead

	// parent id of a process with no live parent
	NOPARENT Pid_t = 0xffff_ffff
)

// trap vectors reported in TF_TRAP after a context switch returns
const (
	DIVZERO = 0
	UD      = 6
	GPFAULT = 13
	PGFAULT = 14
	TIMER   = 32
	SYSCALL = 64
)

// user trap frame layout. the register save area comes first, then the trap
// metadata pushed by the entry stubs. TF_RAX doubles as the syscall/fork
// return-value slot.
const (
	TFREGS    = 17
	TF_FSBASE = 1
	TF_R13    = 4
	TF_R12    = 5
	TF_R8     = 9
	TF_RBP    = 10
	TF_RSI    = 11
	TF_RDI    = 12
	TF_RDX    = 13
	TF_RCX    = 14
	TF_RBX    = 15
	TF_RAX    = 16
	TF_TRAP   = TFREGS
	TF_ERROR  = TFREGS + 1
	TF_RIP    = TFREGS + 2
	TF_CS     = TFREGS + 3
	TF_RFLAGS = TFREGS + 4
	TF_RSP    = TFREGS + 5
	TF_SS     = TFREGS + 6
	TFSIZE    = TFREGS + 7

	TF_FL_IF = 1 << 9
)

// saved user register/trap state for one thread
type Tf_t [TFSIZE]uintptr

// exit status encoding shared with the wait syscalls
const (
	CONTINUED = 1 << 9
	EXITED    = 1 << 10
	SIGNALED  = 1 << 11
	SIGSHIFT  = 27
)

// reap any child/thread instead of a specific id; 0 is never a valid id
const WAIT_ANY = 0

func Mkexitsig(sig int) int {
	if sig < 0 || sig > 32 {
		panic("bad sig")
	}
	return sig << SIGSHIFT
}
