package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/telhawk-systems/debugconsole/internal/cli"
	"github.com/telhawk-systems/debugconsole/internal/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		output.Error(os.Stderr, "%v", err)
		stop()
		os.Exit(1)
	}
}
