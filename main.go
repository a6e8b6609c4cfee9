package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"fftune/cmd"
	"fftune/internal/log"
	"fftune/pkg/build"
)

// main wires the process-wide concerns and hands over to the command line.
//
// 1. Startup: build information, logging defaults and runtime settings.
// 2. Commands: transcription runs to completion; live detection runs until
// the context is cancelled by SIGINT or SIGTERM.
// 3. Shutdown: commands own their resources and release them before
// returning.
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("development build: %v", err)
	}

	// One thread for the audio callback, one for transports and I/O.
	runtime.GOMAXPROCS(2)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatal(err)
	}
}
