package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/shared"
)

// PlayerHandler serves the transport commands under /player/.
type PlayerHandler struct {
	player Player
}

// NewPlayerHandler creates a [PlayerHandler] driving p.
func NewPlayerHandler(p Player) *PlayerHandler {
	return &PlayerHandler{player: p}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlayerHandler) Routes() []string {
	return []string{"/player/"}
}

type floatValue struct {
	Value *float64 `json:"value"`
}

type boolValue struct {
	Value *bool `json:"value"`
}

type stateResponse struct {
	State    string  `json:"state"`
	URL      string  `json:"url,omitempty"`
	Progress float64 `json:"progress"`
	Duration float64 `json:"duration"`
}

func (h *PlayerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	command := strings.TrimPrefix(r.URL.Path, "/player/")

	if command == "state" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
			return
		}
		h.state(w)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	switch command {
	case "play":
		var req models.PlaybackRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.player.Play(req); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, shared.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
	case "pause":
		h.player.Pause()
	case "resume":
		h.player.Resume()
	case "stop":
		h.player.Stop()
	case "seek", "rate", "volume":
		var body floatValue
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if body.Value == nil {
			writeError(w, http.StatusBadRequest, errors.New("value is required"))
			return
		}
		switch command {
		case "seek":
			h.player.Seek(*body.Value)
		case "rate":
			h.player.SetRate(*body.Value)
		default:
			h.player.SetVolume(*body.Value)
		}
	case "mute":
		var body boolValue
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if body.Value == nil {
			writeError(w, http.StatusBadRequest, errors.New("value is required"))
			return
		}
		h.player.SetMute(*body.Value)
	default:
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}

	h.state(w)
}

func (h *PlayerHandler) state(w http.ResponseWriter) {
	st := h.player.Status()
	writeJSON(w, http.StatusOK, stateResponse{
		State:    st.State.String(),
		URL:      st.URL,
		Progress: st.Progress,
		Duration: st.Duration,
	})
}
