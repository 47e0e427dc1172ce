package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-gem-curator/internal/curation"
)

// Handlers contains the HTTP handlers for the curation API.
type Handlers struct {
	workflow *curation.Workflow
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(workflow *curation.Workflow) *Handlers {
	return &Handlers{workflow: workflow}
}

// StartRequest is the body for POST /api/curation/start.
type StartRequest struct {
	PlaylistID int64 `json:"playlist_id"`
}

// ResumeRequest is the body for POST /api/curation/resume.
type ResumeRequest struct {
	SessionID string                `json:"session_id"`
	Action    string                `json:"action"`
	Payload   curation.ResumePayload `json:"payload"`
}

// SessionResponse is the API view of a session: enough to render the
// conversation and decide what to send next, nothing more.
type SessionResponse struct {
	SessionID string              `json:"session_id"`
	Phase     curation.Phase      `json:"phase"`
	Terminal  bool                `json:"terminal"`
	UI        *curation.UIPayload `json:"ui,omitempty"`
}

func sessionResponse(st *curation.SessionState) SessionResponse {
	return SessionResponse{
		SessionID: st.ID,
		Phase:     st.Phase,
		Terminal:  st.Terminal,
		UI:        st.LastUI,
	}
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start handles POST /api/curation/start.
func (h *Handlers) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlaylistID <= 0 {
		writeError(w, http.StatusBadRequest, "playlist_id is required")
		return
	}

	st, err := h.workflow.Start(r.Context(), req.PlaylistID)
	if err != nil {
		log.Printf("starting session for playlist %d: %v", req.PlaylistID, err)
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(st))
}

// Resume handles POST /api/curation/resume.
func (h *Handlers) Resume(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, "session_id and action are required")
		return
	}

	st, err := h.workflow.Resume(r.Context(), req.SessionID, req.Action, req.Payload)
	switch {
	case errors.Is(err, curation.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, curation.ErrBadResume):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, curation.ErrMalformedState):
		log.Printf("resuming session %s: %v", req.SessionID, err)
		writeError(w, http.StatusInternalServerError, "session state is corrupt")
	case err != nil:
		log.Printf("resuming session %s: %v", req.SessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to resume session")
	default:
		writeJSON(w, http.StatusOK, sessionResponse(st))
	}
}

// GetSession handles GET /api/curation/sessions/{id}.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	// Reads go through the workflow's store semantics by replaying the
	// checkpointed UI, never by re-running anything.
	id := chi.URLParam(r, "id")
	st, err := h.workflow.Session(r.Context(), id)
	if errors.Is(err, curation.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Printf("loading session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(st))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
