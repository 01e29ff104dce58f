package compaction

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/contextgc/convert"
	"github.com/youssefsiam38/contextgc/tokens"
	"github.com/youssefsiam38/contextgc/types"
)

// Counter counts the tokens of a conversation.
type Counter interface {
	CountTokens(ctx context.Context, messages []*types.Message) (*TokenCountResult, error)
}

// TokenCounter provides token counting for messages using the Claude API
// with a character-based approximation fallback.
type TokenCounter struct {
	client   *anthropic.Client
	useAPI   bool
	model    string
	fallback atomic.Bool // set once the API failed; later calls approximate
}

// TokenCountResult contains the result of a token count operation.
type TokenCountResult struct {
	// TotalTokens is the total token count for all messages.
	TotalTokens int

	// UsedAPI indicates whether the Claude API was used (true) or the
	// character-based approximation fallback was used (false).
	UsedAPI bool

	// PerMessage contains the estimated token count per message.
	// Only populated when using the fallback approximation.
	PerMessage []int
}

// NewTokenCounter creates a new TokenCounter with the given Anthropic client.
// If useAPI is false or client is nil, only the approximation is used.
func NewTokenCounter(client *anthropic.Client, model string, useAPI bool) *TokenCounter {
	if model == "" {
		model = DefaultTokenCountingModel
	}
	return &TokenCounter{
		client: client,
		model:  model,
		useAPI: useAPI,
	}
}

// CountTokens counts the tokens in the given messages.
// It first attempts to use the Claude API for accurate counting,
// falling back to character-based approximation if the API is unavailable.
// After the first API failure the counter stays on the approximation.
func (tc *TokenCounter) CountTokens(ctx context.Context, messages []*types.Message) (*TokenCountResult, error) {
	if tc.apiEnabled() {
		result, err := tc.countWithAPI(ctx, messages)
		if err == nil {
			return result, nil
		}
		tc.fallback.Store(true)
	}

	return countWithApproximation(messages), nil
}

// UsingFallback reports whether the counter gave up on the API.
func (tc *TokenCounter) UsingFallback() bool {
	return tc.fallback.Load()
}

func (tc *TokenCounter) apiEnabled() bool {
	return tc.useAPI && tc.client != nil && !tc.fallback.Load()
}

// countWithAPI uses the Claude token counting API.
func (tc *TokenCounter) countWithAPI(ctx context.Context, messages []*types.Message) (*TokenCountResult, error) {
	params := convert.ToAnthropic(messages)
	if len(params) == 0 {
		return &TokenCountResult{TotalTokens: 0, UsedAPI: true}, nil
	}

	result, err := tc.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(tc.model),
		Messages: params,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenCountingFailed, err)
	}

	return &TokenCountResult{
		TotalTokens: int(result.InputTokens),
		UsedAPI:     true,
	}, nil
}

func countWithApproximation(messages []*types.Message) *TokenCountResult {
	perMessage := make([]int, len(messages))
	total := 0

	for i, msg := range messages {
		n := tokens.EstimateMessage(msg.Parts)
		perMessage[i] = n
		total += n
	}

	return &TokenCountResult{
		TotalTokens: total,
		UsedAPI:     false,
		PerMessage:  perMessage,
	}
}

// EstimateCounter approximates only. It never fails.
type EstimateCounter struct{}

// CountTokens implements Counter.
func (EstimateCounter) CountTokens(_ context.Context, messages []*types.Message) (*TokenCountResult, error) {
	return countWithApproximation(messages), nil
}
