// Package model defines the persisted record types shared across the
// ingestion and query pipelines.
package model

import (
	"encoding/json"
	"time"
)

// IndexStatus is the lifecycle state of a Document.
type IndexStatus string

const (
	StatusPending    IndexStatus = "pending"
	StatusProcessing IndexStatus = "processing"
	StatusReady      IndexStatus = "ready"
	StatusError      IndexStatus = "error"
)

// SourceType identifies which loader produced a Document.
type SourceType string

const (
	SourceMarkdown SourceType = "markdown"
	SourcePDF      SourceType = "pdf"
	SourceWeb      SourceType = "web"
)

// Document is the logical unit of knowledge fed into ingestion.
type Document struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	SourceType   SourceType      `json:"sourceType"`
	SourceURI    string          `json:"sourceUri"`
	Status       IndexStatus     `json:"status"`
	ChunkCount   int             `json:"chunkCount"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// DocumentChunk is a contiguous passage of a Document, the atomic retrieval unit.
type DocumentChunk struct {
	ID          string          `json:"id"`
	DocumentID  string          `json:"documentId"`
	ChunkIndex  int             `json:"chunkIndex"`
	Text        string          `json:"text"`
	Embedding   []float32       `json:"-"`
	HasKeywords bool            `json:"-"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ChatRole identifies the author of a ChatMessage.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ConfidenceTier is the outcome of the confidence scorer, set only on
// assistant messages.
type ConfidenceTier string

const (
	TierAnswer    ConfidenceTier = "ANSWER"
	TierCaveat    ConfidenceTier = "CAVEAT"
	TierAmbiguous ConfidenceTier = "AMBIGUOUS"
	TierDecline   ConfidenceTier = "DECLINE"
	TierEscalate  ConfidenceTier = "ESCALATE"
	TierOffTopic  ConfidenceTier = "OFF_TOPIC"
)

// ChatSession is an ordered conversation between a user and the assistant.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Source describes one retrieved passage cited by an assistant message.
type Source struct {
	Title string  `json:"title"`
	Text  string  `json:"text"`
	URL   *string `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// Usage is token accounting for a single LLM call.
type Usage struct {
	PromptTokens     int `json:"promptTokens,omitempty"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens,omitempty"`
}

// ChatMessage is one turn within a ChatSession.
type ChatMessage struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"sessionId"`
	Role           ChatRole        `json:"role"`
	Content        string          `json:"content"`
	ConfidenceTier *ConfidenceTier `json:"confidenceTier,omitempty"`
	Sources        []Source        `json:"sources,omitempty"`
	Usage          *Usage          `json:"usage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// EscalationEvent records a handoff to human support. Append-only.
type EscalationEvent struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	MessageID      *string   `json:"messageId,omitempty"`
	Reason         string    `json:"reason"`
	Query          string    `json:"query"`
	WebhookStatus  int       `json:"webhookStatus"`
	WebhookResponse string   `json:"webhookResponse,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
