// Command csbot-query is a one-shot CLI client for the query pipeline
//, useful for operators exercising the RAG engine without the
// chat frontend. Grounded in 54b3r-tfai-go's `tfai ask` command shape.
package main

import (
	"fmt"
	"os"

	"github.com/sophia-systems/csbot/cmd/query/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
