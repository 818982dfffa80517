package limits

type Syslimit_t struct {
	// system-wide cap on live thread/process ids. id allocation fails with
	// "no ids available" once the table holds this many entries.
	Systhreads int
	// per-process cap on open files
	Nofile int
	// per-process cap on unreaped child statuses
	Noproc int
}

var Syslimit *Syslimit_t = MkSysLimit()

func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Systhreads: 1e4,
		Nofile:     512,
		Noproc:     1 << 10,
	}
}
