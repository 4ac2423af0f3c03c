package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sophia-systems/csbot/internal/app"
	"github.com/sophia-systems/csbot/internal/model"
)

// NewEnqueueCmd constructs `csbot-worker enqueue`: registers a Document row
// (status=pending) and pushes its id onto the ingestion job queue, for
// operators without a separate document-submission surface.
func NewEnqueueCmd() *cobra.Command {
	var title, sourceType, sourceURI string

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Register a document and queue it for ingestion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sourceURI == "" {
				return fmt.Errorf("enqueue: --source-uri is required")
			}
			st := model.SourceType(sourceType)
			switch st {
			case model.SourceMarkdown, model.SourcePDF, model.SourceWeb:
			default:
				return fmt.Errorf("enqueue: unsupported --source-type %q", sourceType)
			}

			ctx := cmd.Context()
			a, err := app.Build(ctx)
			if err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			defer a.Pool.Close()

			now := time.Now().UTC()
			doc := &model.Document{
				ID:         uuid.NewString(),
				Title:      title,
				SourceType: st,
				SourceURI:  sourceURI,
				Status:     model.StatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := a.Documents.Create(ctx, doc); err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			if err := a.Queue.Enqueue(ctx, doc.ID); err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}

			slog.Info("document queued for ingestion", "document_id", doc.ID, "source_type", st, "source_uri", sourceURI)
			fmt.Println(doc.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&sourceType, "source-type", "markdown", "Source type (markdown, pdf, web)")
	cmd.Flags().StringVar(&sourceURI, "source-uri", "", "Source URI the loader resolves (required)")

	return cmd
}
