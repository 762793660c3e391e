package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopdesk/shopdesk/internal/console"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := console.Execute(ctx)
	stop()
	os.Exit(code)
}
