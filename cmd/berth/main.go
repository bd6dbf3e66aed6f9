package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/larsvik/berth/internal/berth"
	"github.com/larsvik/berth/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := berth.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
