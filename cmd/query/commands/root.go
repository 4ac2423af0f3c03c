// Package commands defines the Cobra CLI surface for csbot-query.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd constructs the root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "csbot-query",
		Short:         "One-shot query client for the csbot RAG engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewAskCmd())
	return root
}
