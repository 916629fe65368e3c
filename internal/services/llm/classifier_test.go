package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
)

type fakeProvider struct {
	reply    string
	err      error
	requests []*ContentRequest
}

func (f *fakeProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	return &ContentResponse{Text: f.reply, Provider: ProviderClaude}, nil
}

func (f *fakeProvider) GetProviderType() ProviderType { return ProviderClaude }
func (f *fakeProvider) Close() error                  { return nil }

func TestClassifyTrimsReply(t *testing.T) {
	provider := &fakeProvider{reply: "  Y \n"}
	classifier := NewClassifier(provider, 0, common.GetLogger())

	got := classifier.Classify(context.Background(), "Answer Y or N.", "some video description")

	assert.Equal(t, "Y", got)
	assert.Len(t, provider.requests, 1)
	assert.Contains(t, provider.requests[0].UserContent, "Answer Y or N.")
	assert.Contains(t, provider.requests[0].UserContent, "some video description")
}

func TestClassifyEmptyOnFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection reset")}
	classifier := NewClassifier(provider, 0, common.GetLogger())

	got := classifier.Classify(context.Background(), "prompt", "text")

	assert.Equal(t, "", got)
}

func TestClassifyAuthRejection(t *testing.T) {
	provider := &fakeProvider{err: errors.New("request failed with status 401 Unauthorized")}
	classifier := NewClassifier(provider, 0, common.GetLogger())

	got := classifier.Classify(context.Background(), "prompt", "text")

	assert.Equal(t, interfaces.NoAPIAccess, got)
}

func TestClassifyCanceledContext(t *testing.T) {
	provider := &fakeProvider{reply: "Y"}
	classifier := NewClassifier(provider, 60, common.GetLogger())

	ctx, cancel := context.WithCancel(context.Background())
	// first call consumes the limiter burst
	assert.Equal(t, "Y", classifier.Classify(ctx, "prompt", "text"))

	cancel()
	got := classifier.Classify(ctx, "prompt", "text")
	assert.Equal(t, "", got)
	assert.Len(t, provider.requests, 1, "no request once the context is canceled")
}

func TestClassifyWithoutBackend(t *testing.T) {
	classifier := NewClassifier(nil, 60, common.GetLogger())

	got := classifier.Classify(context.Background(), "prompt", "text")

	assert.Equal(t, interfaces.NoAPIAccess, got, "missing backend marks rows instead of failing")
}

func TestIsAuthError(t *testing.T) {
	assert.False(t, isAuthError(nil))
	assert.False(t, isAuthError(errors.New("timeout")))
	assert.True(t, isAuthError(errors.New("status 401")))
}
