// Command csbot-worker runs the background ingestion worker: it consumes
// document ids from the Redis job queue and drives them through the
// ingestion orchestrator with bounded concurrency and a signal-driven
// graceful shutdown.
package main

import (
	"fmt"
	"os"

	"github.com/sophia-systems/csbot/cmd/worker/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
