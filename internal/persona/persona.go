// Package persona assembles system prompts and canned messages from a
// YAML template bundle.
package persona

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/sophia-systems/csbot/internal/model"
)

// Defaults are the hard-coded fallback strings used when a key is missing
// from the loaded bundle.
const (
	defaultSystemPrompt     = "You are a helpful customer support assistant."
	defaultFallbackMessage  = "I couldn't find specific information about that."
	defaultEscalationMessage = "Let me connect you with a human agent."
	defaultOffTopicMessage  = "I can only help with questions about our product."
)

// Bundle is the YAML-loaded template set.
type Bundle struct {
	SystemPrompt      string `yaml:"system_prompt"`
	FallbackMessage   string `yaml:"fallback_message"`
	EscalationMessage string `yaml:"escalation_message"`
	OffTopicMessage   string `yaml:"off_topic_message"`
}

// Variables are the template variables injected into the bundle (spec
// §4.8: company_name, product_name, tone, sources, confidence_tier).
type Variables struct {
	CompanyName string
	ProductName string
	Tone        string
}

// Service renders persona templates. Grounded in original_source's
// app/services/persona.py for the YAML-bundle-plus-template design, and in
// the teacher's internal/service/promptloader.go for the
// sync.RWMutex-guarded hot-reload pattern. Reload is independent of
// internal/config.TuningStore and its versioning.
type Service struct {
	path string
	vars Variables

	mu     sync.RWMutex
	bundle Bundle
}

// NewService loads path if it exists, degrading to an empty Bundle (and
// therefore the hard-coded defaults) when the file is absent, matching the
// teacher's own "missing optional config file degrades to defaults"
// pattern.
func NewService(path string, vars Variables) (*Service, error) {
	s := &Service{path: path, vars: vars}
	if err := s.Reload(); err != nil {
		return nil, fmt.Errorf("persona.NewService: %w", err)
	}
	return s, nil
}

// Reload re-reads the template bundle from disk.
func (s *Service) Reload() error {
	var b Bundle
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("persona.Service.Reload: read %s: %w", s.path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &b); err != nil {
				return fmt.Errorf("persona.Service.Reload: parse %s: %w", s.path, err)
			}
		}
	}
	s.mu.Lock()
	s.bundle = b
	s.mu.Unlock()
	return nil
}

func (s *Service) current() Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

func render(templateStr string, data map[string]any) string {
	tmpl, err := template.New("persona").Parse(templateStr)
	if err != nil {
		return templateStr
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return templateStr
	}
	return buf.String()
}

// BuildSystemPrompt assembles the system prompt with sources and the
// resolved confidence tier injected.
func (s *Service) BuildSystemPrompt(sources []model.Source, tier model.ConfidenceTier) string {
	b := s.current()
	templateStr := b.SystemPrompt
	if templateStr == "" {
		templateStr = defaultSystemPrompt
	}
	return render(templateStr, map[string]any{
		"CompanyName":    s.vars.CompanyName,
		"ProductName":    s.vars.ProductName,
		"Tone":           s.vars.Tone,
		"Sources":        sources,
		"ConfidenceTier": string(tier),
	})
}

// FallbackMessage renders the canned DECLINE message.
func (s *Service) FallbackMessage() string {
	return s.renderCanned(s.current().FallbackMessage, defaultFallbackMessage)
}

// EscalationMessage renders the canned ESCALATE message.
func (s *Service) EscalationMessage() string {
	return s.renderCanned(s.current().EscalationMessage, defaultEscalationMessage)
}

// OffTopicMessage renders the canned OFF_TOPIC message.
func (s *Service) OffTopicMessage() string {
	return s.renderCanned(s.current().OffTopicMessage, defaultOffTopicMessage)
}

func (s *Service) renderCanned(templateStr, fallback string) string {
	if templateStr == "" {
		templateStr = fallback
	}
	return render(templateStr, map[string]any{
		"CompanyName": s.vars.CompanyName,
		"ProductName": s.vars.ProductName,
		"Tone":        s.vars.Tone,
	})
}

// BuildAmbiguityPrompt joins up to 3 topic strings, each single-quoted,
// with " and ".
func (s *Service) BuildAmbiguityPrompt(topics []string) string {
	if len(topics) > 3 {
		topics = topics[:3]
	}
	quoted := make([]string, len(topics))
	for i, t := range topics {
		quoted[i] = "'" + t + "'"
	}
	return fmt.Sprintf("I found information about %s — could you clarify which one you're asking about?", strings.Join(quoted, " and "))
}
