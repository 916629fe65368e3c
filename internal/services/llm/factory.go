package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

// NewProvider creates the content provider selected by llm.provider.
func NewProvider(config *common.Config, logger arbor.ILogger) (Provider, error) {
	switch ProviderType(config.LLM.Provider) {
	case ProviderClaude:
		return NewClaudeProvider(&config.Claude, logger)
	case ProviderGemini:
		return NewGeminiProvider(&config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (expected claude or gemini)", config.LLM.Provider)
	}
}
