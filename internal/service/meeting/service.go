package meeting

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/quorumlabs/roundtable/backend/internal/config"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
	"github.com/quorumlabs/roundtable/backend/internal/service/ai"
	"github.com/quorumlabs/roundtable/backend/internal/store"
)

// Action names the operations accepted by HandleAction.
type Action string

const (
	ActionStart              Action = "start"
	ActionPause              Action = "pause"
	ActionResume             Action = "resume"
	ActionEnd                Action = "end"
	ActionRemovePersona      Action = "remove_persona"
	ActionDirective          Action = "directive"
	ActionFacilitatorMessage Action = "facilitator_message"
	ActionNextTurn           Action = "next_turn"
)

// Kind classifies a failed result for the transport layer.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindPrecondition   Kind = "precondition"
	KindRateLimited    Kind = "rate_limited"
	KindQuotaExhausted Kind = "quota_exhausted"
	KindUpstream       Kind = "upstream"
)

// ActionRequest is the payload of one dispatch call.
type ActionRequest struct {
	Action    Action `json:"action"`
	Message   string `json:"message,omitempty"`
	PersonaID string `json:"personaId,omitempty"`
}

// Result describes what a dispatch call did. Domain failures are reported
// here rather than as errors so the driving loop can stop cleanly.
type Result struct {
	OK          bool          `json:"ok"`
	Ended       bool          `json:"ended,omitempty"`
	Message     *room.Message `json:"message,omitempty"`
	PersonaName string        `json:"personaName,omitempty"`
	Error       string        `json:"error,omitempty"`
	Kind        Kind          `json:"kind,omitempty"`
}

// CompletionProvider is the external LLM capability: one prompt plus history
// in, raw text out.
type CompletionProvider interface {
	Complete(ctx context.Context, system string, history []*schema.Message) (string, error)
}

// Service drives meeting rooms. It holds no per-room state between calls;
// everything lives in the store, so any driver topology (client poll, job,
// queue consumer) works. The design assumes a single active driver per room.
type Service struct {
	store    store.Store
	provider CompletionProvider
	cfg      config.MeetingConfig
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the meeting orchestrator. provider may be nil, in which
// case turn generation reports an upstream failure instead of speaking.
func NewService(st store.Store, provider CompletionProvider, cfg config.MeetingConfig, opts ...Option) *Service {
	if cfg.TimeMultiplier <= 0 {
		cfg.TimeMultiplier = config.DefaultTimeMultiplier
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = config.DefaultHistoryLimit
	}
	if cfg.SummaryHistoryLimit <= 0 {
		cfg.SummaryHistoryLimit = config.DefaultSummaryHistoryLimit
	}
	s := &Service{
		store:    st,
		provider: provider,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleAction resolves the room, applies the action, and returns a result.
// A non-nil error means infrastructure trouble (store IO); everything
// domain-level is folded into the Result.
func (s *Service) HandleAction(ctx context.Context, roomID string, req ActionRequest) (Result, error) {
	rm, err := s.store.Rooms().Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return failure(KindNotFound, "room not found"), nil
	}
	if err != nil {
		return Result{}, err
	}

	log.Debug().Str("room", roomID).Str("action", string(req.Action)).Str("status", string(rm.Status)).Msg("dispatching room action")

	switch req.Action {
	case ActionStart:
		return s.start(ctx, rm)
	case ActionPause:
		return s.pause(ctx, rm)
	case ActionResume:
		return s.resume(ctx, rm)
	case ActionEnd:
		return s.end(ctx, rm)
	case ActionRemovePersona:
		return s.removePersona(ctx, rm, req.PersonaID)
	case ActionDirective:
		return s.directive(ctx, rm, req.Message)
	case ActionFacilitatorMessage:
		return s.facilitatorMessage(ctx, rm, req.Message)
	case ActionNextTurn:
		return s.nextTurn(ctx, rm)
	default:
		return failure(KindPrecondition, "unknown action"), nil
	}
}

func failure(kind Kind, msg string) Result {
	return Result{OK: false, Error: msg, Kind: kind}
}

func providerFailure(err error) Result {
	switch ai.Classify(err) {
	case ai.FailureRateLimited:
		return failure(KindRateLimited, "Rate limited. Please wait a moment.")
	case ai.FailureQuotaExhausted:
		return failure(KindQuotaExhausted, "AI credits exhausted. Please add funds.")
	default:
		return failure(KindUpstream, "AI gateway error")
	}
}

// appendSystem records a system notice in the room transcript.
func (s *Service) appendSystem(ctx context.Context, roomID, content string) error {
	return s.store.Messages().Append(ctx, &room.Message{
		RoomID:    roomID,
		Role:      room.RoleSystem,
		Content:   content,
		CreatedAt: s.now(),
	})
}
