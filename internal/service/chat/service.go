package chat

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	chatModel "github.com/quorumlabs/roundtable/backend/internal/model/chat"
	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/service/ai"
	"github.com/quorumlabs/roundtable/backend/internal/store"
)

var (
	ErrPersonaRequired      = errors.New("persona id is required")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrProviderUnavailable  = errors.New("ai provider unavailable")
)

const historyLimit = 50

// CompletionProvider is the LLM capability used for 1:1 replies.
type CompletionProvider interface {
	Complete(ctx context.Context, system string, history []*schema.Message) (string, error)
	Stream(ctx context.Context, system string, history []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

// Service manages 1:1 persona conversations.
type Service struct {
	store    store.Store
	provider CompletionProvider
	now      func() time.Time
}

// NewService wires the conversation service. provider may be nil; reply
// generation then fails with ErrProviderUnavailable while CRUD still works.
func NewService(st store.Store, provider CompletionProvider) *Service {
	return &Service{
		store:    st,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StreamingSupported reports whether the wired provider allows streaming
// replies.
func (s *Service) StreamingSupported() bool {
	sp, ok := s.provider.(interface{ StreamingEnabled() bool })
	return ok && sp.StreamingEnabled()
}

// CreateConversation provisions a conversation bound to a persona.
func (s *Service) CreateConversation(ctx context.Context, personaID string) (chatModel.Conversation, error) {
	if personaID == "" {
		return chatModel.Conversation{}, ErrPersonaRequired
	}
	if _, err := s.store.Personas().Get(ctx, personaID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return chatModel.Conversation{}, ErrPersonaRequired
		}
		return chatModel.Conversation{}, err
	}

	conv := chatModel.Conversation{
		PersonaID: personaID,
		Status:    chatModel.ConversationActive,
		StartedAt: s.now(),
	}
	if err := s.store.Conversations().Create(ctx, &conv); err != nil {
		return chatModel.Conversation{}, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation by identifier.
func (s *Service) GetConversation(ctx context.Context, id string) (chatModel.Conversation, error) {
	conv, err := s.store.Conversations().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return chatModel.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListMessages returns the stored history for a conversation.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]chatModel.Message, error) {
	return s.store.Conversations().ListMessages(ctx, conversationID, 0)
}

// Reply saves the user message, generates the persona's answer, splits off
// the inner thought, and persists the result. Nothing is persisted for the
// persona side when the provider fails.
func (s *Service) Reply(ctx context.Context, conversationID, userMessage string) (chatModel.Message, persona.Persona, error) {
	conv, p, history, err := s.prepare(ctx, conversationID)
	if err != nil {
		return chatModel.Message{}, persona.Persona{}, err
	}
	if s.provider == nil {
		return chatModel.Message{}, p, ErrProviderUnavailable
	}

	if err := s.saveUserMessage(ctx, conv.ID, userMessage); err != nil {
		return chatModel.Message{}, p, err
	}

	system := ai.BuildChatSystemPrompt(p)
	raw, err := s.provider.Complete(ctx, system, ai.BuildChatHistory(history, userMessage))
	if err != nil {
		return chatModel.Message{}, p, err
	}

	return s.finishReply(ctx, conv.ID, p, raw)
}

// StreamReply saves the user message and opens a streaming completion. The
// caller consumes the stream and hands the accumulated text to FinishReply.
func (s *Service) StreamReply(ctx context.Context, conversationID, userMessage string) (*schema.StreamReader[*schema.Message], persona.Persona, error) {
	conv, p, history, err := s.prepare(ctx, conversationID)
	if err != nil {
		return nil, persona.Persona{}, err
	}
	if s.provider == nil {
		return nil, p, ErrProviderUnavailable
	}

	if err := s.saveUserMessage(ctx, conv.ID, userMessage); err != nil {
		return nil, p, err
	}

	system := ai.BuildChatSystemPrompt(p)
	stream, err := s.provider.Stream(ctx, system, ai.BuildChatHistory(history, userMessage))
	if err != nil {
		return nil, p, err
	}
	return stream, p, nil
}

// FinishReply persists a fully accumulated streamed response.
func (s *Service) FinishReply(ctx context.Context, conversationID string, p persona.Persona, raw string) (chatModel.Message, error) {
	msg, _, err := s.finishReply(ctx, conversationID, p, raw)
	return msg, err
}

func (s *Service) prepare(ctx context.Context, conversationID string) (chatModel.Conversation, persona.Persona, []chatModel.Message, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return chatModel.Conversation{}, persona.Persona{}, nil, err
	}
	p, err := s.store.Personas().Get(ctx, conv.PersonaID)
	if err != nil {
		return chatModel.Conversation{}, persona.Persona{}, nil, err
	}
	history, err := s.store.Conversations().ListMessages(ctx, conv.ID, historyLimit)
	if err != nil {
		return chatModel.Conversation{}, persona.Persona{}, nil, err
	}
	return conv, p, history, nil
}

func (s *Service) saveUserMessage(ctx context.Context, conversationID, content string) error {
	return s.store.Conversations().AppendMessage(ctx, &chatModel.Message{
		ConversationID: conversationID,
		Role:           chatModel.RoleUser,
		Content:        content,
		CreatedAt:      s.now(),
	})
}

func (s *Service) finishReply(ctx context.Context, conversationID string, p persona.Persona, raw string) (chatModel.Message, persona.Persona, error) {
	content, innerThought := ai.SplitInnerThought(raw)
	msg := chatModel.Message{
		ConversationID: conversationID,
		Role:           chatModel.RolePersona,
		Content:        content,
		InnerThought:   innerThought,
		CreatedAt:      s.now(),
	}
	if err := s.store.Conversations().AppendMessage(ctx, &msg); err != nil {
		return chatModel.Message{}, p, err
	}

	// Interaction counters are best-effort bookkeeping.
	p.TotalInteractions++
	now := s.now()
	p.LastInteractionAt = &now
	if err := s.store.Personas().Update(ctx, &p); err != nil {
		log.Warn().Err(err).Str("persona", p.ID).Msg("failed to bump interaction counters")
	}

	return msg, p, nil
}
