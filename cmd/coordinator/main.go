package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// 通过 -ldflags "-X main.version=..." 设置
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
