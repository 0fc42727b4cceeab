package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/quorumlabs/roundtable/backend/internal/config"
)

// Provider invokes the chat model for meeting turns, summaries, and 1:1
// conversations. One non-streaming call per turn; streaming only for the
// 1:1 chat endpoint.
type Provider struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewProvider creates a provider backed by the configured Ark chat model.
func NewProvider(ctx context.Context, cfg config.AIConfig) (*Provider, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Provider{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled indicates whether SSE streaming replies are allowed.
func (p *Provider) StreamingEnabled() bool {
	return p.cfg.StreamResponse
}

// Complete runs one non-streaming completion and returns the raw text.
func (p *Provider) Complete(ctx context.Context, system string, history []*schema.Message) (string, error) {
	response, err := p.chain.Invoke(ctx, map[string]any{
		"system":  system,
		"history": history,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	log.Debug().Int("length", len(response.Content)).Msg("generated completion")
	return response.Content, nil
}

// Stream runs a streaming completion.
func (p *Provider) Stream(ctx context.Context, system string, history []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	if !p.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}
	stream, err := p.chain.Stream(ctx, map[string]any{
		"system":  system,
		"history": history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

// FailureKind classifies an upstream provider failure for the caller.
type FailureKind string

const (
	// FailureRateLimited means the provider rejected the call for rate
	// reasons; retryable after backoff.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureQuotaExhausted means credits are gone; requires operator action.
	FailureQuotaExhausted FailureKind = "quota_exhausted"
	// FailureUpstream is any other non-success from the provider.
	FailureUpstream FailureKind = "upstream"
)

// Classify inspects a provider error. The gateway surfaces HTTP status codes
// in error text, so this sniffs for the two user-actionable cases and treats
// everything else as opaque.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureUpstream
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return FailureRateLimited
	case strings.Contains(msg, "402") || strings.Contains(msg, "quota") || strings.Contains(msg, "credit") || strings.Contains(msg, "insufficient balance"):
		return FailureQuotaExhausted
	default:
		return FailureUpstream
	}
}

// ErrNotConfigured is returned when no completion provider is wired.
var ErrNotConfigured = errors.New("ai provider not configured")
