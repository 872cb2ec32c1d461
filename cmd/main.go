package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	root := newRootCmd()
	err := root.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(-1)
	}
}
