package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tralbum/bandcamp-dl/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := execute(ctx, os.Args[1:])

	stop()

	_ = logger.Sync()

	os.Exit(code)
}
