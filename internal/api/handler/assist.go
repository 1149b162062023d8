package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/api/respond"
	"github.com/ciclismopt/assist/internal/trigger"
)

// userID resolves the authenticated user from the X-User-ID header. The
// gateway in front of this service validates the token and injects the id.
func userID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing X-User-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid X-User-ID header")
	}
	return id, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// suggestionPayload is the wire shape for an optional suggestion.
func suggestionPayload(s *trigger.Suggestion) map[string]interface{} {
	if s == nil {
		return map[string]interface{}{"suggestion": nil}
	}
	return map[string]interface{}{"suggestion": s}
}

// ScreenChange records a navigation event and returns any suggestion it
// produced.
// @Summary Report a screen change
// @Description Records the user's navigation, refreshes cached team state, and evaluates proactive triggers.
// @Tags assist
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Param body body object{screen=string} true "Screen route"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /assist/screen [post]
func (h *Handler) ScreenChange(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	var body struct {
		Screen string `json:"screen"`
	}
	if err := decodeBody(r, &body); err != nil || body.Screen == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "screen is required")
		return
	}

	sug := h.coord.OnScreenChange(r.Context(), uid, action.NormalizeRoute(body.Screen))
	respond.WriteJSONObject(w, http.StatusOK, suggestionPayload(sug))
}

// Interaction resets the idle clock and optionally records an error.
// @Summary Report a user interaction
// @Description Resets the idle timer; error interactions feed the repeated-error trigger.
// @Tags assist
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Param body body object{error_occurred=bool} false "Interaction detail"
// @Success 200 {object} map[string]interface{}
// @Router /assist/interaction [post]
func (h *Handler) Interaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	var body struct {
		ErrorOccurred bool `json:"error_occurred"`
	}
	_ = decodeBody(r, &body) // empty body means a plain interaction

	sug := h.coord.OnInteraction(r.Context(), uid, body.ErrorOccurred)
	respond.WriteJSONObject(w, http.StatusOK, suggestionPayload(sug))
}

// TransfersChanged re-reads team state after a transfer mutation.
// @Summary Report a transfer change
// @Description Refreshes the cached team snapshot and re-evaluates triggers.
// @Tags assist
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Success 200 {object} map[string]interface{}
// @Router /assist/transfers [post]
func (h *Handler) TransfersChanged(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	sug := h.coord.OnTransfersChanged(r.Context(), uid)
	respond.WriteJSONObject(w, http.StatusOK, suggestionPayload(sug))
}

// CurrentSuggestion returns whatever sits in the suggestion slot.
// @Summary Get the current suggestion
// @Tags assist
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Success 200 {object} map[string]interface{}
// @Router /assist/suggestion [get]
func (h *Handler) CurrentSuggestion(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, suggestionPayload(h.coord.CurrentSuggestion(uid)))
}

// Dismiss silences a trigger kind for the dismissal window.
// @Summary Dismiss a suggestion
// @Description Persists the dismissal so the kind stays quiet for 24h, across restarts.
// @Tags assist
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Param body body object{kind=string} true "Trigger kind"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /assist/dismiss [post]
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	var body struct {
		Kind string `json:"kind"`
	}
	if err := decodeBody(r, &body); err != nil || body.Kind == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "kind is required")
		return
	}

	if err := h.coord.Dismiss(r.Context(), uid, trigger.Kind(body.Kind)); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DISMISS_FAILED", "Could not persist dismissal")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"dismissed": body.Kind})
}

// ExpandToChat converts the current suggestion into a chat starter.
// @Summary Expand the current suggestion into chat
// @Tags assist
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Success 200 {object} map[string]interface{}
// @Router /assist/expand [post]
func (h *Handler) ExpandToChat(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, suggestionPayload(h.coord.ExpandToChat(uid)))
}

// Chat answers a free-form question about the game.
// @Summary Chat with the assistant
// @Description Generates a reply grounded in the user's team state. Always returns at least one action.
// @Tags assist
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Param body body object{message=string} true "User question"
// @Success 200 {object} parser.Parsed
// @Failure 400 {object} respond.ErrorResponse
// @Router /assist/chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &body); err != nil || body.Message == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "message is required")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, h.coord.Chat(r.Context(), uid, body.Message))
}

// ExecuteAction dispatches a tapped action.
// @Summary Execute an assistant action
// @Description Runs one of the typed actions a suggestion or chat reply carried.
// @Tags assist
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User UUID"
// @Param body body action.Action true "Action to execute"
// @Success 200 {object} action.Result
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} action.Result
// @Failure 422 {object} action.Result
// @Router /assist/execute [post]
func (h *Handler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	var a action.Action
	if err := decodeBody(r, &a); err != nil || a.Kind == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "action type is required")
		return
	}

	respond.WriteResult(w, h.coord.ExecuteAction(r.Context(), uid, a))
}

// Events streams session events over Server-Sent Events.
// @Summary Subscribe to assistant events
// @Description Streams suggestion, dismissal, and action-result events as SSE.
// @Tags assist
// @Produce text/event-stream
// @Param X-User-ID header string true "User UUID"
// @Success 200 {string} string "event stream"
// @Router /assist/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_USER", err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteError(w, http.StatusInternalServerError, "NO_STREAMING", "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.coord.Subscribe(uid)
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
