package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quorumlabs/roundtable/backend/internal/service/ai"
	chatService "github.com/quorumlabs/roundtable/backend/internal/service/chat"
	"github.com/quorumlabs/roundtable/backend/pkg/utils"
)

// Handler serves 1:1 persona conversations, including the SSE reply stream.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts chat routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/conversations", h.handleCreateConversation)
	r.Get("/chat/conversations/{conversationID}/messages", h.handleListMessages)
	r.Post("/chat/conversations/{conversationID}/messages", h.handleReply)
	r.Get("/chat/stream/{conversationID}", h.handleStream)
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.chatSvc.CreateConversation(r.Context(), payload.PersonaID)
	if errors.Is(err, chatService.ErrPersonaRequired) {
		utils.RespondError(w, http.StatusBadRequest, "valid personaId is required")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if _, err := h.chatSvc.GetConversation(r.Context(), id); err != nil {
		if errors.Is(err, chatService.ErrConversationNotFound) {
			utils.RespondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	messages, err := h.chatSvc.ListMessages(r.Context(), id)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Content == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	msg, _, err := h.chatSvc.Reply(r.Context(), id, payload.Content)
	if err != nil {
		respondReplyError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, msg)
}

func respondReplyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrConversationNotFound):
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, chatService.ErrProviderUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "ai provider unavailable")
	default:
		switch ai.Classify(err) {
		case ai.FailureRateLimited:
			utils.RespondError(w, http.StatusTooManyRequests, "Rate limited. Please wait a moment.")
		case ai.FailureQuotaExhausted:
			utils.RespondError(w, http.StatusPaymentRequired, "AI credits exhausted. Please add funds.")
		default:
			utils.RespondError(w, http.StatusBadGateway, "AI gateway error")
		}
	}
}

// streamFrame is one SSE payload on the reply stream.
type streamFrame struct {
	Event          string `json:"event"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Finished       bool   `json:"finished,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	userMessage := r.URL.Query().Get("message")
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()

	if !h.chatSvc.StreamingSupported() {
		// Single-shot fallback: the full reply arrives as one message frame.
		msg, p, err := h.chatSvc.Reply(ctx, id, userMessage)
		if err != nil {
			respondReplyError(w, err)
			return
		}
		utils.SetupSSEHeaders(w)
		utils.SendSSEChunk(w, flusher, streamFrame{Event: "start", ConversationID: id, Content: p.DisplayName()})
		utils.SendSSEChunk(w, flusher, streamFrame{Event: "message", ConversationID: id, Content: msg.Content})
		utils.SendSSEChunk(w, flusher, streamFrame{Event: "end", ConversationID: id, Finished: true})
		return
	}

	stream, p, err := h.chatSvc.StreamReply(ctx, id, userMessage)
	if err != nil {
		respondReplyError(w, err)
		return
	}
	defer stream.Close()

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, streamFrame{Event: "start", ConversationID: id, Content: p.DisplayName()})

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.sendStreamError(w, flusher, id, fmt.Sprintf("stream interrupted: %v", recvErr))
			return
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			utils.SendSSEChunk(w, flusher, streamFrame{Event: "delta", ConversationID: id, Content: chunk.Content})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		h.sendStreamError(w, flusher, id, "failed to assemble response")
		return
	}

	msg, err := h.chatSvc.FinishReply(ctx, id, p, response.Content)
	if err != nil {
		h.sendStreamError(w, flusher, id, "failed to save response")
		return
	}

	utils.SendSSEChunk(w, flusher, streamFrame{Event: "message", ConversationID: id, Content: msg.Content})
	utils.SendSSEChunk(w, flusher, streamFrame{Event: "end", ConversationID: id, Finished: true})
	log.Info().Str("conversation", id).Str("persona", p.ID).Msg("streamed reply completed")
}

func (h *Handler) sendStreamError(w http.ResponseWriter, flusher http.Flusher, conversationID, msg string) {
	utils.SendSSEChunk(w, flusher, streamFrame{Event: "error", ConversationID: conversationID, Error: msg})
}
