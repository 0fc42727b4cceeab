package persona

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	personaModel "github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/store"
	"github.com/quorumlabs/roundtable/backend/pkg/utils"
)

// Handler serves persona profiles.
type Handler struct {
	personas store.PersonaStore
	validate *validator.Validate
}

// New creates the persona handler.
func New(personas store.PersonaStore) *Handler {
	return &Handler{
		personas: personas,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts persona routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleList)
	r.Get("/personas/{personaID}", h.handleGet)
	r.Post("/personas", h.handleCreate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	personas, err := h.personas.List(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list personas")
		return
	}
	utils.RespondJSON(w, http.StatusOK, personas)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personaID")
	p, err := h.personas.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load persona")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

type createPersonaRequest struct {
	Identity    personaModel.Identity   `json:"identity" validate:"required"`
	Psychology  personaModel.Psychology `json:"psychology"`
	Backstory   personaModel.Backstory  `json:"backstory"`
	PortraitURL *string                 `json:"portraitUrl"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Identity.FirstName == "" {
		utils.RespondError(w, http.StatusBadRequest, "identity.firstName is required")
		return
	}

	p := personaModel.Persona{
		Identity:    payload.Identity,
		Psychology:  payload.Psychology,
		Backstory:   payload.Backstory,
		PortraitURL: payload.PortraitURL,
	}
	if err := h.personas.Create(r.Context(), &p); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create persona")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, p)
}
