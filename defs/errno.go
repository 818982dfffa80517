package defs

type Err_t int

// errnos are returned negated: a failing operation yields -EBUSY etc. and
// 0 means success.
const (
	EPERM        Err_t = 1
	ENOENT       Err_t = 2
	ESRCH        Err_t = 3
	EINTR        Err_t = 4
	EIO          Err_t = 5
	EBADF        Err_t = 9
	ECHILD       Err_t = 10
	EAGAIN       Err_t = 11
	ENOMEM       Err_t = 12
	EFAULT       Err_t = 14
	EBUSY        Err_t = 16
	EEXIST       Err_t = 17
	EINVAL       Err_t = 22
	ENAMETOOLONG Err_t = 36
	ENOSYS       Err_t = 38
)

// failure kinds surfaced by the execution core, mapped onto errnos:
// no id available during registration/fork -> -EBUSY; no such thread or no
// current thread for this cpu -> -ESRCH; context absent on take -> -EINVAL.

var errstr = map[Err_t]string{
	EPERM:        "operation not permitted",
	ENOENT:       "no such file or directory",
	ESRCH:        "no such thread",
	EINTR:        "interrupted",
	EIO:          "i/o error",
	EBADF:        "bad file descriptor",
	ECHILD:       "no child to wait for",
	EAGAIN:       "try again",
	ENOMEM:       "out of memory",
	EFAULT:       "bad address",
	EBUSY:        "no ids available",
	EEXIST:       "already exists",
	EINVAL:       "invalid state",
	ENAMETOOLONG: "name too long",
	ENOSYS:       "not implemented",
}

func (e Err_t) String() string {
	n := e
	if n < 0 {
		n = -n
	}
	if s, ok := errstr[n]; ok {
		return s
	}
	return "unknown error"
}
