// Package main is the entry point for the terminator CLI.
package main

import (
	"runtime"

	"github.com/tribhuwan-kumar/terminator/internal/cli"
)

func main() {
	// Some accessibility and tray APIs require the process main thread.
	runtime.LockOSThread()

	cli.Execute()
}
