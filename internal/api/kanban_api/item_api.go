package kanban_api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"siteboard/internal/api/middlewares"
	"siteboard/internal/model/auth_model"
	"siteboard/internal/model/kanban_model"
	"siteboard/internal/repository/kanban_repository"
	"siteboard/internal/services/auth_services"
	"siteboard/internal/services/kanban_services"
)

type ItemHandler struct {
	Service     *kanban_services.ItemService
	AuthService *auth_services.AuthService
}

func NewItemHandler(s *kanban_services.ItemService, a *auth_services.AuthService) *ItemHandler {
	return &ItemHandler{Service: s, AuthService: a}
}

func (h *ItemHandler) ItemRoutes(r *mux.Router) {
	auth := func(fn http.HandlerFunc) http.Handler {
		return middlewares.AuthMiddleware(h.AuthService, fn)
	}

	r.Handle("/api/v1/projects/{projectID}/items", auth(h.createItem)).Methods("POST")
	r.Handle("/api/v1/projects/{projectID}/expenses", auth(h.quickAddExpense)).Methods("POST")
	r.Handle("/api/v1/items/move", auth(h.moveItem)).Methods("POST")
	r.Handle("/api/v1/categories", auth(h.listCategories)).Methods("GET")

	itemRouter := r.PathPrefix("/api/v1/items/{itemID}").Subrouter()
	itemRouter.Handle("", auth(h.itemDetail)).Methods("GET")
	itemRouter.Handle("", auth(h.editItem)).Methods("PUT")
	itemRouter.Handle("/comments", auth(h.addComment)).Methods("POST")
	itemRouter.Handle("/reject", auth(h.rejectItem)).Methods("POST")
}

func actorOrFail(w http.ResponseWriter, r *http.Request) (auth_model.Actor, bool) {
	actor, ok := middlewares.GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authentication context missing")
	}
	return actor, ok
}

func (h *ItemHandler) createItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["projectID"]

	var req kanban_services.CreateItemInput
	if err := decodeJSON(w, r, maxJSONSize, &req); err != nil {
		handleError(w, err)
		return
	}

	item, err := h.Service.CreateItem(r.Context(), actor, projectID, req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (h *ItemHandler) quickAddExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	projectID := mux.Vars(r)["projectID"]

	var req kanban_services.QuickExpenseInput
	if err := decodeJSON(w, r, maxJSONSize, &req); err != nil {
		handleError(w, err)
		return
	}

	item, err := h.Service.QuickAddExpense(r.Context(), actor, projectID, req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (h *ItemHandler) moveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req struct {
		ItemID         string `json:"item_id"`
		TargetColumnID string `json:"target_column_id"`
		Position       int    `json:"position"`
	}
	if err := decodeJSON(w, r, maxMoveJSONSize, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.ItemID == "" || req.TargetColumnID == "" {
		writeError(w, http.StatusBadRequest, "item_id and target_column_id are required")
		return
	}

	if err := h.Service.MoveItem(r.Context(), actor, req.ItemID, req.TargetColumnID, req.Position); err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *ItemHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorOrFail(w, r); !ok {
		return
	}
	categories, err := h.Service.ListCategories(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusOK, categories)
}

func (h *ItemHandler) itemDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemID"]

	detail, err := h.Service.Detail(r.Context(), actor, itemID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

func (h *ItemHandler) editItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemID"]

	var req struct {
		Title           *string    `json:"title"`
		Description     *string    `json:"description"`
		TaskType        *string    `json:"task_type"`
		EstimatedHours  *float64   `json:"estimated_hours"`
		Amount          *float64   `json:"amount"`
		Priority        *string    `json:"priority"`
		IsUrgent        *bool      `json:"is_urgent"`
		Tags            *string    `json:"tags"`
		DueDate         *time.Time `json:"due_date"`
		ProgressPercent *int       `json:"progress_percent"`
		CategoryID      *int       `json:"category_id"`
		AssignedTo      *int       `json:"assigned_to"`
	}
	if err := decodeJSON(w, r, maxJSONSize, &req); err != nil {
		handleError(w, err)
		return
	}

	changes := kanban_repository.ItemChanges{
		Title:           req.Title,
		Description:     req.Description,
		EstimatedHours:  req.EstimatedHours,
		Amount:          req.Amount,
		IsUrgent:        req.IsUrgent,
		Tags:            req.Tags,
		DueDate:         req.DueDate,
		ProgressPercent: req.ProgressPercent,
		CategoryID:      req.CategoryID,
		AssignedTo:      req.AssignedTo,
	}
	if req.TaskType != nil {
		t := kanban_model.TaskType(*req.TaskType)
		changes.TaskType = &t
	}
	if req.Priority != nil {
		p := kanban_model.Priority(*req.Priority)
		changes.Priority = &p
	}

	item, err := h.Service.EditItem(r.Context(), actor, itemID, changes)
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (h *ItemHandler) addComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemID"]

	var req struct {
		Text       string `json:"text"`
		IsInternal bool   `json:"is_internal"`
	}
	if err := decodeJSON(w, r, maxJSONSize, &req); err != nil {
		handleError(w, err)
		return
	}

	comment, err := h.Service.AddComment(r.Context(), actor, itemID, req.Text, req.IsInternal)
	if err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusCreated, comment)
}

func (h *ItemHandler) rejectItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemID"]

	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(w, r, maxJSONSize, &req); err != nil {
		handleError(w, err)
		return
	}

	if err := h.Service.RejectItem(r.Context(), actor, itemID, req.Reason); err != nil {
		handleError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}
