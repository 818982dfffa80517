package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/TephrocactusMYC/NeoOS/defs"
	"github.com/TephrocactusMYC/NeoOS/unwind"
)

func runMonitor(cmd *cobra.Command, args []string) {
	nthreads, _ := cmd.Flags().GetInt("threads")
	budget, _ := cmd.Flags().GetInt("budget")

	d, err := boot(nthreads, budget)
	if err != nil {
		exitf("boot: %v\n", err)
	}
	fmt.Printf("booted: %d threads; \"help\" lists commands\n", d.kern.Threads.Len())

	rl, err := readline.NewEx(&readline.Config{
		Prompt: "kmon> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("threads"),
			readline.PcItem("procs"),
			readline.PcItem("step"),
			readline.PcItem("run"),
			readline.PcItem("reap"),
			readline.PcItem("trace"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		exitf("readline: %v\n", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return
		} else if err != nil {
			exitf("readline: %v\n", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "threads":
			d.dumpthreads()
		case "procs":
			d.dumpprocs()
		case "step":
			// one pass over the run queue
			n := d.kern.Sched.Len()
			for i := 0; i < n; i++ {
				d.kern.Sched.Run1()
			}
			fmt.Printf("%d tasks still queued\n", d.kern.Sched.Len())
		case "run":
			d.kern.Sched.Runall()
			fmt.Printf("run queue drained\n")
		case "reap":
			if len(fields) != 2 {
				fmt.Printf("usage: reap <pid>\n")
				continue
			}
			pid, perr := strconv.ParseUint(fields[1], 0, 64)
			if perr != nil {
				fmt.Printf("bad pid %q\n", fields[1])
				continue
			}
			d.reap(defs.Pid_t(pid))
		case "trace":
			hosttrace(unwind.Depth())
		case "help":
			fmt.Printf("threads  dump the thread table\n" +
				"procs    dump the process table\n" +
				"step     run each queued task once\n" +
				"run      run tasks until the queue drains\n" +
				"reap <pid>  collect a child's exit status\n" +
				"trace    backtrace the monitor's own host stack\n" +
				"exit     leave the monitor\n")
		case "exit", "quit":
			return
		default:
			fmt.Printf("unknown command %q; try \"help\"\n", fields[0])
		}
	}
}
