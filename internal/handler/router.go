package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/quorumlabs/roundtable/backend/internal/handler/chat"
	personaHandler "github.com/quorumlabs/roundtable/backend/internal/handler/persona"
	roomHandler "github.com/quorumlabs/roundtable/backend/internal/handler/room"
	middlewarePkg "github.com/quorumlabs/roundtable/backend/internal/middleware"
	chatService "github.com/quorumlabs/roundtable/backend/internal/service/chat"
	"github.com/quorumlabs/roundtable/backend/internal/service/meeting"
	"github.com/quorumlabs/roundtable/backend/internal/store"
	"github.com/quorumlabs/roundtable/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(st store.Store, meetingSvc *meeting.Service, chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	personas := personaHandler.New(st.Personas())
	rooms := roomHandler.New(st, meetingSvc)
	chat := chatHandler.New(chatSvc)

	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		personas.RegisterRoutes(api)
		rooms.RegisterRoutes(api)
		chat.RegisterRoutes(api)
	})

	return r
}
