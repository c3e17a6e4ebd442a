package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/agenda-distribuida/events-service/internal/models"
	"github.com/agenda-distribuida/events-service/internal/repository"
	"github.com/agenda-distribuida/events-service/internal/validation"
)

// APIHandler serves the JSON endpoints over the event repository.
type APIHandler struct {
	repo repository.EventRepository
	log  *zerolog.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(repo repository.EventRepository, log *zerolog.Logger) *APIHandler {
	return &APIHandler{
		repo: repo,
		log:  log,
	}
}

// searchItem is the abbreviated event shape returned by search results;
// description is only included in single-record responses.
type searchItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Location  string `json:"location"`
	Organizer string `json:"organizer"`
}

// SearchEvents returns events matching ?q= as a case-insensitive
// substring of title, location or organizer.
func (h *APIHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	events, err := h.repo.Search(r.Context(), query)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Failed to search events")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to search events",
		})
		return
	}

	items := make([]searchItem, 0, len(events))
	for _, e := range events {
		items = append(items, searchItem{
			ID:        e.ID,
			Title:     e.Title,
			Date:      e.Date,
			Location:  e.Location,
			Organizer: e.Organizer,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

// GetEvent returns a single event by id, including its description.
func (h *APIHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"error":   "Event not found",
			})
			return
		}
		h.log.Error().Err(err).Int64("event_id", id).Msg("Failed to get event")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to get event",
		})
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent replaces all fields of an event. The record is re-validated
// the same way as on ingestion before the row is touched.
func (h *APIHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.invalidRequest(w)
		return
	}

	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.invalidRequest(w)
		return
	}

	rec := models.Record{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Date:        r.FormValue("date"),
		Location:    r.FormValue("location"),
		Organizer:   r.FormValue("organizer"),
	}

	if errs := validation.Validate(rec); len(errs) > 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"errors":  errs,
		})
		return
	}

	err := h.repo.Update(r.Context(), id, rec)
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Event not found",
		})
	case errors.Is(err, repository.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"errors":  []string{"An identical event already exists in the database."},
		})
	case err != nil:
		h.log.Error().Err(err).Int64("event_id", id).Msg("Failed to update event")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to update event",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// DeleteEvent removes an event by id.
func (h *APIHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.invalidRequest(w)
		return
	}

	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"error":   "Event not found",
			})
			return
		}
		h.log.Error().Err(err).Int64("event_id", id).Msg("Failed to delete event")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to delete event",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *APIHandler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Invalid event ID format",
		})
		return 0, false
	}
	return id, true
}

func (h *APIHandler) invalidRequest(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": false,
		"error":   "Invalid request",
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
