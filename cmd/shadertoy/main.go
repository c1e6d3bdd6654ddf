package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/muesli/termenv"
)

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		out := termenv.NewOutput(os.Stderr)
		fmt.Fprintln(os.Stderr, out.String("error: "+err.Error()).Foreground(out.Color("1")).Bold())
		os.Exit(1)
	}
}
