package bridge

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

// HistoryReader returns the most recent history entries, oldest first.
type HistoryReader interface {
	Recent(n int) []domain.CommandResult
}

// NewUpgrader creates a WebSocket upgrader. An empty origin list allows
// same-host requests only.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// Register adds the bridge routes to mux.
func (h *Hub) Register(mux *http.ServeMux, upgrader *websocket.Upgrader, hist HistoryReader) {
	mux.HandleFunc("/ws", h.ServeWS(upgrader))
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/toggle", h.handleToggle)
	mux.HandleFunc("/api/history", handleHistory(hist))
}

func (h *Hub) controller() Controller {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctrl
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctrl := h.controller()
	if ctrl == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		domain.Status
		Clients int `json:"clients"`
	}{ctrl.Status(), h.Connected()})
}

func (h *Hub) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctrl := h.controller()
	if ctrl == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	ctrl.Toggle()
	w.WriteHeader(http.StatusAccepted)
}

func handleHistory(hist HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if hist == nil {
			writeJSON(w, http.StatusOK, []domain.CommandResult{})
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		entries := hist.Recent(limit)
		if entries == nil {
			entries = []domain.CommandResult{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
