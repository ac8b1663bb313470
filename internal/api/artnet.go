package api

import (
	"log"
	"net/http"

	"github.com/bbernstein/lacylights-strip/internal/services/network"
)

type artnetResponse struct {
	Enabled     bool             `json:"enabled"`
	Broadcast   string           `json:"broadcast"`
	PacketsSent uint64           `json:"packetsSent"`
	Targets     []network.Target `json:"targets"`
}

// handleArtNet reports the Art-Net output and the broadcast targets of this host.
// POST /artnet?broadcast=<ipv4> switches the target and saves it.
func (s *Server) handleArtNet(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		addr := r.URL.Query().Get("broadcast")
		if err := network.ValidBroadcast(addr); err != nil {
			writeText(w, http.StatusBadRequest, "error: use broadcast=<ipv4>")
			return
		}
		if err := s.artnet.ReloadBroadcastAddress(addr); err != nil {
			http.Error(w, "error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if s.store != nil {
			if err := s.store.SaveBroadcast(r.Context(), addr); err != nil {
				// the switch already happened; it just won't survive a restart
				log.Printf("⚠️  %v", err)
			}
		}
	}

	targets, err := network.Targets()
	if err != nil {
		log.Printf("⚠️  %v", err)
	}
	writeJSON(w, http.StatusOK, artnetResponse{
		Enabled:     s.artnet.IsEnabled(),
		Broadcast:   s.artnet.GetBroadcastAddress(),
		PacketsSent: s.artnet.PacketsSent(),
		Targets:     targets,
	})
}
