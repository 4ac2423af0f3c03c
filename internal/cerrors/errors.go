// Package cerrors defines the closed set of error kinds propagated out of
// the ingestion and query pipelines.
package cerrors

import "fmt"

// DocumentNotFoundError indicates a document id has no corresponding row.
type DocumentNotFoundError struct {
	DocumentID string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.DocumentID)
}

// SessionNotFoundError indicates a session id has no corresponding row.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// IngestionFailureError wraps a failure encountered while running the
// ingestion orchestrator for a document.
type IngestionFailureError struct {
	DocumentID string
	Cause      error
}

func (e *IngestionFailureError) Error() string {
	return fmt.Sprintf("ingestion failed for document %s: %v", e.DocumentID, e.Cause)
}

func (e *IngestionFailureError) Unwrap() error { return e.Cause }

// ProviderFailureError wraps a failure from an external capability provider
// (LLM, embeddings, vector store, keyword search, reranker).
type ProviderFailureError struct {
	Provider string
	Cause    error
}

func (e *ProviderFailureError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Cause)
}

func (e *ProviderFailureError) Unwrap() error { return e.Cause }

// EscalationFailureError wraps a failure dispatching an escalation webhook.
// This never blocks the user-visible response; it is recorded, not
// propagated upward as a pipeline error.
type EscalationFailureError struct {
	Cause error
}

func (e *EscalationFailureError) Error() string {
	return fmt.Sprintf("escalation dispatch failed: %v", e.Cause)
}

func (e *EscalationFailureError) Unwrap() error { return e.Cause }

// ConfigurationError indicates a fatal, startup-time misconfiguration
// (e.g. an embedding dimension mismatch between the configured value and
// the bound provider's declared dimension).
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Detail)
}

// PathTraversalError indicates a loader's source_uri resolved outside the
// operator-configured base directory.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal rejected: %s", e.Path)
}

// SSRFViolationError indicates a web loader's URL (or one of its redirect
// targets) resolved to a private, reserved, loopback, or link-local address.
type SSRFViolationError struct {
	URL string
}

func (e *SSRFViolationError) Error() string {
	return fmt.Sprintf("ssrf guard rejected url: %s", e.URL)
}
