package llm

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/colligo/internal/interfaces"
)

// systemInstruction pins the backend to short classification replies. The
// actual decision criteria come from the operator-editable prompt.
const systemInstruction = "You are a classifier. Answer briefly and strictly according to the user prompt."

// Classifier implements interfaces.Classifier over a content provider.
//
// Classify never returns an error: the labeling pass treats an empty
// reply as "no label produced" and moves on, so a flaky backend degrades
// to unlabeled rows instead of a failed run. Authentication rejections
// and a missing backend are the distinguishable cases; both produce the
// access-denied sentinel so operators can tell "no credentials" apart
// from "still pending".
type Classifier struct {
	provider Provider
	limiter  *rate.Limiter
	logger   arbor.ILogger
}

// NewClassifier creates a classifier with request pacing. requestsPerMinute
// of 0 or less disables pacing. A nil provider is allowed: every Classify
// call then returns the access-denied sentinel, letting ingestion-only
// deployments run without LLM credentials.
func NewClassifier(provider Provider, requestsPerMinute int, logger arbor.ILogger) *Classifier {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}
	return &Classifier{
		provider: provider,
		limiter:  limiter,
		logger:   logger,
	}
}

// Classify implements interfaces.Classifier. It builds a single user
// message from the prompt template and the input text, issues one request,
// and returns the trimmed reply verbatim.
func (c *Classifier) Classify(ctx context.Context, prompt, text string) string {
	if c.provider == nil {
		return interfaces.NoAPIAccess
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return ""
		}
	}

	request := &ContentRequest{
		SystemInstruction: systemInstruction,
		UserContent:       strings.TrimSpace(prompt) + "\n\nText:\n" + text,
	}

	resp, err := c.provider.GenerateContent(ctx, request)
	if err != nil {
		if isAuthError(err) {
			c.logger.Warn().Err(err).Msg("Classifier credentials rejected")
			return interfaces.NoAPIAccess
		}
		c.logger.Debug().Err(err).Msg("Classification request failed")
		return ""
	}

	return strings.TrimSpace(resp.Text)
}
