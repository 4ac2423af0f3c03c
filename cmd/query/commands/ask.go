package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sophia-systems/csbot/internal/app"
	"github.com/sophia-systems/csbot/internal/model"
	"github.com/sophia-systems/csbot/internal/pipeline"
	"github.com/sophia-systems/csbot/internal/session"
)

// NewAskCmd constructs `csbot-query ask`, which runs one turn of the query
// pipeline and prints its events to stdout as they arrive.
func NewAskCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the RAG engine a question and stream the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question := args[0]

			a, err := app.Build(ctx)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Pool.Close()

			if sessionID == "" {
				now := time.Now().UTC()
				s := &model.ChatSession{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
				if err := a.Sessions.Create(ctx, s); err != nil {
					return fmt.Errorf("ask: create session: %w", err)
				}
				sessionID = s.ID
				fmt.Printf("session: %s\n\n", sessionID)
			}

			sessions := session.NewManager(a.Sessions)
			if _, err := sessions.SaveUserMessage(ctx, sessionID, question); err != nil {
				return fmt.Errorf("ask: save user message: %w", err)
			}

			for ev := range a.Pipeline.Run(ctx, question, sessionID) {
				printEvent(ev)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Existing session id to continue (default: start a new session)")

	return cmd
}

func printEvent(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventMetadata:
		fmt.Printf("[%s] ", ev.Metadata.ConfidenceTier)
	case pipeline.EventDelta:
		fmt.Print(ev.Delta.Content)
	case pipeline.EventSources:
		if len(ev.Sources) > 0 {
			fmt.Print("\n\nSources:\n")
			for _, s := range ev.Sources {
				fmt.Printf("  - %s\n", s.Title)
			}
		}
	case pipeline.EventDone:
		// Response content already printed via delta events.
	case pipeline.EventError:
		fmt.Printf("\n[error] %s\n", ev.Error.Detail)
	}
}
