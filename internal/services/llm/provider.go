// Package llm provides the text-classification backends. A Provider is a
// thin content-generation client (Claude or Gemini); the Classifier on top
// of it implements the failure-swallowing contract the labeling pass
// depends on.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	SystemInstruction string
	UserContent       string
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider defines the interface for content generation backends.
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	GetProviderType() ProviderType
	Close() error
}

// isAuthError reports whether the backend rejected the credentials.
// Both SDKs surface typed API errors with an HTTP status code.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode == 401
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code == 401
	}

	return strings.Contains(err.Error(), "401")
}
