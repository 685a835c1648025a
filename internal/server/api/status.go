package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// StatusProvider returns the current application status.
type StatusProvider interface {
	Status() any
}

// UtteranceSubmitter resolves a spoken utterance as voice input.
type UtteranceSubmitter interface {
	SubmitUtterance(ctx context.Context, text string) error
}

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(p StatusProvider) *StatusHandler {
	return &StatusHandler{provider: p}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.Status())
}

// VoiceHandler serves POST /api/voice.
type VoiceHandler struct {
	submitter UtteranceSubmitter
}

// NewVoiceHandler creates a new VoiceHandler.
func NewVoiceHandler(s UtteranceSubmitter) *VoiceHandler {
	return &VoiceHandler{submitter: s}
}

type voiceRequest struct {
	Text string `json:"text"`
}

// ServeHTTP implements the http.Handler interface.
func (h *VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	if err := h.submitter.SubmitUtterance(r.Context(), req.Text); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "Voice recognizer timed out")
			return
		}
		writeError(w, http.StatusBadGateway, "Voice recognizer failed: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// StatusFunc adapts a function to the StatusProvider interface.
type StatusFunc func() any

// Status calls f().
func (f StatusFunc) Status() any {
	return f()
}
