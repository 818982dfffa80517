// The kmon tool drives the execution core on a host machine: it boots a
// simulated kernel with the mock CPU capability, runs threads through the
// cooperative scheduler, and exposes the thread/process tables and the
// stack unwinder for inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gvisor.dev/gvisor/pkg/log"
)

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func main() {
	root := &cobra.Command{
		Use:   "kmon",
		Short: "NeoOS execution-core monitor",
	}

	bootCmd := &cobra.Command{
		Use:   "boot",
		Short: "boot a simulated kernel, run its threads, dump the tables",
		Run:   runBoot,
	}
	bootCmd.Flags().Int("threads", 3, "number of debug threads to spawn")
	bootCmd.Flags().Int("budget", 4, "syscalls each thread issues before exiting")
	root.AddCommand(bootCmd)

	unwindCmd := &cobra.Command{
		Use:   "unwind",
		Short: "walk a synthetic frame-pointer chain through the unwinder",
		Run:   runUnwind,
	}
	unwindCmd.Flags().Int("depth", 0, "max frames to print (0 means the NEOOS_BACKTRACE default)")
	unwindCmd.Flags().Int("frames", 8, "frames in the synthetic chain")
	root.AddCommand(unwindCmd)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "boot a simulated kernel and inspect it interactively",
		Run:   runMonitor,
	}
	monitorCmd.Flags().Int("threads", 3, "number of debug threads to spawn")
	monitorCmd.Flags().Int("budget", 4, "syscalls each thread issues before exiting")
	root.AddCommand(monitorCmd)

	verbose := root.PersistentFlags().Bool("verbose", false, "debug-level kernel log")
	cobra.OnInitialize(func() {
		if *verbose {
			log.SetLevel(log.Debug)
		}
	})

	if err := root.Execute(); err != nil {
		exitf("%v\n", err)
	}
}
