package server

import (
	"encoding/json"
	"net/http"
)

// handleAssets returns the cached listing of the current and rotated log
// files, refreshed on fsnotify events over the log directory.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.assetsMu.Lock()
	assets := make([]assetInfo, len(s.assets))
	copy(assets, s.assets)
	s.assetsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assets)
}
