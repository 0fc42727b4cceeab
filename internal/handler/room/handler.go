package room

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	roomModel "github.com/quorumlabs/roundtable/backend/internal/model/room"
	"github.com/quorumlabs/roundtable/backend/internal/service/meeting"
	"github.com/quorumlabs/roundtable/backend/internal/store"
	"github.com/quorumlabs/roundtable/backend/pkg/utils"
)

// Handler serves meeting rooms and their action endpoint.
type Handler struct {
	store    store.Store
	meetings *meeting.Service
	validate *validator.Validate
}

// New creates the room handler.
func New(st store.Store, meetings *meeting.Service) *Handler {
	return &Handler{
		store:    st,
		meetings: meetings,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts room routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/rooms", h.handleCreate)
	r.Get("/rooms", h.handleList)
	r.Get("/rooms/{roomID}", h.handleGet)
	r.Get("/rooms/{roomID}/messages", h.handleMessages)
	r.Post("/rooms/{roomID}/actions", h.handleAction)
}

type createRoomRequest struct {
	Name            string   `json:"name" validate:"required"`
	Scenario        string   `json:"scenario" validate:"required"`
	Purpose         string   `json:"purpose" validate:"required"`
	UserRole        string   `json:"userRole" validate:"omitempty,oneof=observer moderator facilitator"`
	DurationMinutes int      `json:"durationMinutes" validate:"required,gt=0"`
	PersonaIDs      []string `json:"personaIds" validate:"required,min=1,dive,required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	// All seats must resolve before anything is created.
	personas, err := h.store.Personas().GetMany(ctx, payload.PersonaIDs)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to resolve personas")
		return
	}
	if len(personas) != len(payload.PersonaIDs) {
		utils.RespondError(w, http.StatusBadRequest, "one or more personas not found")
		return
	}

	userRole := roomModel.UserRole(payload.UserRole)
	if userRole == "" {
		userRole = roomModel.UserRoleModerator
	}

	rm := roomModel.Room{
		Name:            payload.Name,
		Scenario:        payload.Scenario,
		Purpose:         payload.Purpose,
		Status:          roomModel.StatusPending,
		UserRole:        userRole,
		DurationMinutes: payload.DurationMinutes,
	}
	if err := h.store.Rooms().Create(ctx, &rm); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	for _, personaID := range payload.PersonaIDs {
		p := roomModel.Participant{RoomID: rm.ID, PersonaID: personaID}
		if err := h.store.Participants().Add(ctx, &p); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "failed to seat participants")
			return
		}
	}

	utils.RespondJSON(w, http.StatusCreated, rm)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.Rooms().List(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	utils.RespondJSON(w, http.StatusOK, rooms)
}

type roomDetail struct {
	roomModel.Room
	Participants []roomModel.Participant `json:"participants"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")
	rm, err := h.store.Rooms().Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load room")
		return
	}

	participants, err := h.store.Participants().ListByRoom(r.Context(), id)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load participants")
		return
	}

	utils.RespondJSON(w, http.StatusOK, roomDetail{Room: rm, Participants: participants})
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")
	if _, err := h.store.Rooms().Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "room not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load room")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	messages, err := h.store.Messages().ListByRoom(r.Context(), id, limit)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")

	var req meeting.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		utils.RespondError(w, http.StatusBadRequest, "action is required")
		return
	}

	result, err := h.meetings.HandleAction(r.Context(), id, req)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "action failed")
		return
	}

	utils.RespondJSON(w, statusForResult(result), result)
}

// statusForResult maps a dispatch result onto an HTTP status. Domain
// preconditions (and time expiry) stay 200 with ok:false so the driving
// client loop can read the body and stop instead of treating it as a
// transport failure.
func statusForResult(res meeting.Result) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Kind {
	case meeting.KindNotFound:
		return http.StatusNotFound
	case meeting.KindRateLimited:
		return http.StatusTooManyRequests
	case meeting.KindQuotaExhausted:
		return http.StatusPaymentRequired
	case meeting.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
