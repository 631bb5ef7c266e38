package kanban_api

import (
	"net/http"

	"github.com/gorilla/mux"

	"siteboard/internal/api/middlewares"
	"siteboard/internal/services/auth_services"
	"siteboard/internal/services/kanban_services"
)

type BoardHandler struct {
	Service     *kanban_services.BoardService
	Items       *kanban_services.ItemService
	AuthService *auth_services.AuthService
}

func NewBoardHandler(s *kanban_services.BoardService, items *kanban_services.ItemService, a *auth_services.AuthService) *BoardHandler {
	return &BoardHandler{Service: s, Items: items, AuthService: a}
}

func (h *BoardHandler) BoardRoutes(r *mux.Router) {
	r.Handle("/api/v1/projects/{projectID}/board",
		middlewares.AuthMiddleware(h.AuthService, http.HandlerFunc(h.board)),
	).Methods("GET")

	r.Handle("/api/v1/projects/{projectID}/analytics",
		middlewares.AuthMiddleware(h.AuthService, http.HandlerFunc(h.analytics)),
	).Methods("GET")
}

func (h *BoardHandler) board(w http.ResponseWriter, r *http.Request) {
	actor, ok := middlewares.GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authentication context missing")
		return
	}
	projectID := mux.Vars(r)["projectID"]

	view, err := h.Service.Board(r.Context(), actor, projectID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (h *BoardHandler) analytics(w http.ResponseWriter, r *http.Request) {
	actor, ok := middlewares.GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authentication context missing")
		return
	}
	projectID := mux.Vars(r)["projectID"]

	analytics, err := h.Items.Analytics(r.Context(), actor, projectID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusOK, analytics)
}
