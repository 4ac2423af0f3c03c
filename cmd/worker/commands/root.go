// Package commands defines the Cobra CLI surface for csbot-worker.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd constructs the root command, which has no action of its own:
// "run" starts the long-lived worker loop, and "enqueue" lets an operator
// register one new document by source URI and queue its id by hand
// without a full producer.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "csbot-worker",
		Short:         "Background ingestion worker for the csbot RAG engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewRunCmd(), NewEnqueueCmd())
	return root
}
