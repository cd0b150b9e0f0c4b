// Command mlprep downloads a tabular dataset and prepares it for training: stratified split, fitted
// preprocessing and CSV outputs for both splits.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(nil).ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
