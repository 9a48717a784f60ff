package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"marathon-service/internal/app"
	"marathon-service/internal/domain"
)

// CatalogAdmin writes through to the durable catalog store.
type CatalogAdmin interface {
	SaveReading(ctx context.Context, reading domain.Reading) error
	DeleteReading(ctx context.Context, readingID string) error
}

// CatalogInvalidator drops any cache layered over the catalog store.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// API exposes the read and admin surface as JSON over a plain ServeMux.
// There is no auth boundary here, matching the original product; deployments
// that need one put it in front.
type API struct {
	service    *app.MarathonService
	catalog    app.CatalogRepository
	admin      CatalogAdmin       // nil when the catalog is read-only
	invalidate CatalogInvalidator // nil when no cache sits over the store
}

func NewAPI(service *app.MarathonService, catalog app.CatalogRepository, admin CatalogAdmin, invalidate CatalogInvalidator) *API {
	return &API{service: service, catalog: catalog, admin: admin, invalidate: invalidate}
}

// Register mounts all API routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/leaderboard", a.handleLeaderboard)
	mux.HandleFunc("/api/groups", a.handleGroups)
	mux.HandleFunc("/api/groups/members", a.handleGroupMembers)
	mux.HandleFunc("/api/events", a.handleEvents)
	mux.HandleFunc("/api/events/progress", a.handleEventProgress)
	mux.HandleFunc("/api/users", a.handleUsers)
	mux.HandleFunc("/api/users/recompute", a.handleRecompute)
	mux.HandleFunc("/api/readings", a.handleReadings)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	marathonID, ok := marathonParam(w, r)
	if !ok {
		return
	}
	lb, err := a.service.Individuals(r.Context(), marathonID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

type groupRequest struct {
	Name    string `json:"name"`
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (a *API) handleGroups(w http.ResponseWriter, r *http.Request) {
	marathonID, ok := marathonParam(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		standings, err := a.service.GroupStandings(r.Context(), marathonID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, standings)
	case http.MethodPost:
		var req groupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		if req.OldName != "" && req.NewName != "" {
			if err := a.service.RenameGroup(r.Context(), marathonID, req.OldName, req.NewName); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"renamed": req.NewName})
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
			return
		}
		if err := a.service.AddGroup(r.Context(), marathonID, req.Name); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
			return
		}
		if err := a.service.RemoveGroup(r.Context(), marathonID, name); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, "GET, POST, DELETE")
	}
}

func (a *API) handleGroupMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	marathonID, ok := marathonParam(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	members, err := a.service.GroupMembers(r.Context(), marathonID, name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	marathonID, ok := marathonParam(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		events, err := a.service.Events(r.Context(), marathonID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	case http.MethodPost:
		var event domain.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		created, err := a.service.CreateEvent(r.Context(), marathonID, event)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id is required"})
			return
		}
		if err := a.service.RemoveEvent(r.Context(), marathonID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, "GET, POST, DELETE")
	}
}

func (a *API) handleEventProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	marathonID, ok := marathonParam(w, r)
	if !ok {
		return
	}
	eventID := r.URL.Query().Get("eventId")
	userID := r.URL.Query().Get("userId")
	if eventID == "" || userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "eventId and userId are required"})
		return
	}
	progress, err := a.service.EventProgress(r.Context(), marathonID, eventID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	marathonID, ok := marathonParam(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		roster, err := a.service.Roster(r.Context(), marathonID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roster)
	case http.MethodPost:
		var user domain.User
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		if strings.TrimSpace(user.Name) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
			return
		}
		saved, _, err := a.service.UpsertUser(r.Context(), marathonID, user)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id is required"})
			return
		}
		if _, err := a.service.RemoveUser(r.Context(), marathonID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, "GET, POST, DELETE")
	}
}

func (a *API) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	marathonID, ok := marathonParam(w, r)
	if !ok {
		return
	}
	lb, err := a.service.RecomputeTotals(r.Context(), marathonID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (a *API) handleReadings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		readings, err := a.catalog.Catalog(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, readings)
	case http.MethodPost:
		if a.admin == nil {
			writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "catalog is read-only"})
			return
		}
		var reading domain.Reading
		if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		if reading.ID == "" || reading.Date == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id and date are required"})
			return
		}
		if reading.BonusPoints < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bonusPoints must be non-negative"})
			return
		}
		if err := a.admin.SaveReading(r.Context(), reading); err != nil {
			writeServiceError(w, err)
			return
		}
		a.dropCatalogCache(r.Context())
		writeJSON(w, http.StatusCreated, reading)
	case http.MethodDelete:
		if a.admin == nil {
			writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "catalog is read-only"})
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id is required"})
			return
		}
		if err := a.admin.DeleteReading(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		a.dropCatalogCache(r.Context())
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, "GET, POST, DELETE")
	}
}

func (a *API) dropCatalogCache(ctx context.Context) {
	if a.invalidate != nil {
		_ = a.invalidate.Invalidate(ctx)
	}
}

func marathonParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("marathonId")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "marathonId is required"})
		return "", false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBoardNotFound),
		errors.Is(err, domain.ErrUnknownUser),
		errors.Is(err, domain.ErrUnknownReading),
		errors.Is(err, domain.ErrUnknownEvent):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidEvent):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
