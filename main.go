// mvrodados – sales assistant and back office for a motorcycle dealership.
//
// Entry point: initializes the Cobra root command, which starts the
// HTTP server when no subcommand is given.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvrodados/mvrodados/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
