package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/components/dashboard/commands"
)

// ViewerHeader is read by DefaultViewer.
const ViewerHeader = "X-User-ID"

// Handlers exposes HTTP endpoints backed by shared commands.
type Handlers struct {
	Preferences gocommand.Commander[commands.UpdatePreferencesInput]
	Reorder     gocommand.Commander[commands.ReorderSectionsInput]
	Toggle      gocommand.Commander[commands.ToggleSectionInput]
	Refresh     gocommand.Commander[commands.RefreshDashboardInput]
	// Viewer resolves the acting viewer. Defaults to DefaultViewer.
	Viewer func(*http.Request) dashboard.ViewerContext
}

// DefaultViewer reads the viewer id from the X-User-ID header.
func DefaultViewer(r *http.Request) dashboard.ViewerContext {
	return dashboard.ViewerContext{
		UserID: r.Header.Get(ViewerHeader),
		Locale: r.Header.Get("Accept-Language"),
	}
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	if h.Viewer != nil {
		return h.Viewer(r)
	}
	return DefaultViewer(r)
}

func (h *Handlers) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var payload commands.UpdatePreferencesInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.Viewer = h.viewer(r)
	if err := h.Preferences.Execute(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleReorderSections(w http.ResponseWriter, r *http.Request) {
	var payload commands.ReorderSectionsInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.Viewer = h.viewer(r)
	if err := h.Reorder.Execute(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleToggleSection(w http.ResponseWriter, r *http.Request, sectionID string) {
	var payload struct {
		Hidden bool `json:"hidden"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.ToggleSectionInput{
		Viewer:    h.viewer(r),
		SectionID: sectionID,
		Hidden:    payload.Hidden,
	}
	if err := h.Toggle.Execute(r.Context(), input); err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh notifies the viewer's refresh hooks.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	viewer := h.viewer(r)
	if viewer.UserID == "" {
		http.Error(w, "viewer is required", http.StatusUnauthorized)
		return
	}
	var payload commands.RefreshDashboardInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// A body-supplied user_id is ignored; viewers refresh only their own dashboard.
	payload.Event.UserID = viewer.UserID
	if err := h.Refresh.Execute(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// StatusFor maps dashboard errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidPreferences):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownSection):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrPreferencesUpdate), errors.Is(err, dashboard.ErrSnapshotUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
