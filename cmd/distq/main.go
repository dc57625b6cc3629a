package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"distq/internal/queue"
)

const (
	exitFailure     = 1
	exitInvalidArgs = 2
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	code := exitCode(err)
	if code != exitInterrupted {
		fmt.Fprintln(os.Stderr, "distq:", err)
	}
	os.Exit(code)
}

// exitCode separates rejected input and interrupts from store failures so
// scripts can tell them apart.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, queue.ErrInvalidEntryID),
		errors.Is(err, queue.ErrInvalidQueueName),
		errors.Is(err, queue.ErrInvalidItem),
		errors.Is(err, queue.ErrUnknownRequestType):
		return exitInvalidArgs
	default:
		return exitFailure
	}
}
