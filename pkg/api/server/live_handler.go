package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

// handleLiveAnalysis streams analysis updates of a live session as
// server-sent events. The first event carries the current state, after
// that an event is sent whenever the processor publishes an update.
func (s *apiServer) handleLiveAnalysis(w http.ResponseWriter, r *http.Request) {
	spd, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ch := spd.AnalysisBroadcast.Subscribe()
	defer spd.AnalysisBroadcast.CancelSubscription(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sendEvent := func(update *utils.AnalysisUpdate) bool {
		data, err := json.Marshal(update)
		if err != nil {
			s.log.Error("error marshalling analysis update", log.ErrorField(err))
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !sendEvent(spd.CurrentAnalysis()) {
		return
	}
	s.log.Debug("analysis stream opened",
		log.String("sessionId", spd.Session.ID))
	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("analysis stream closed",
				log.String("sessionId", spd.Session.ID))
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			if !sendEvent(update) {
				return
			}
		}
	}
}
