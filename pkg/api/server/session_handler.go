package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/permission"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
)

const defaultSessionLimit = 50

//nolint:tagliatelle // client compatibility
type sessionListResponse struct {
	Count    int              `json:"count"`
	Sessions []*model.Session `json:"sessions"`
}

func (s *apiServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year", 0)
	limit := queryInt(r, "limit", defaultSessionLimit)
	var sessionType model.SessionType
	if arg := r.URL.Query().Get("type"); arg != "" {
		var err error
		if sessionType, err = model.ParseSessionType(arg); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	sessions, err := s.sessionService.ListSessions(r.Context(), year, sessionType, limit)
	if err != nil {
		s.log.Error("error listing sessions", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessionListResponse{
		Count:    len(sessions),
		Sessions: sessions,
	})
}

func (s *apiServer) handleListYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.sessionService.GetYears(r.Context())
	if err != nil {
		s.log.Error("error listing years", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not list years")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"years": years})
}

func (s *apiServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	events, err := s.sessionService.GetEventsForYear(r.Context(), year)
	if err != nil {
		s.log.Error("error listing events", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not list events")
		return
	}
	//nolint:tagliatelle // client compatibility
	writeJSON(w, http.StatusOK, struct {
		Year   int            `json:"year"`
		Events []*model.Event `json:"events"`
	}{Year: year, Events: events})
}

func (s *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionService.GetSession(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		s.log.Error("error loading session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *apiServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r, permission.PermissionDeleteSession) {
		return
	}
	sessionID := r.PathValue("sessionId")
	s.log.Debug("DeleteSession called", log.String("sessionId", sessionID))

	session, err := s.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		s.log.Error("error loading session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err := s.sessionService.DeleteSession(r.Context(), sessionID); err != nil {
		s.log.Error("error deleting session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not delete session")
		return
	}
	s.lookup.RemoveSession(sessionID)
	if err := s.sessionProxy.PublishSessionUnregistered(sessionID); err != nil {
		s.log.Error("error publishing unregistered session", log.ErrorField(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleGetDrivers(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	drivers, err := s.sessionService.GetDrivers(r.Context(), sessionID)
	if err != nil {
		s.log.Error("error loading drivers", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load drivers")
		return
	}
	//nolint:tagliatelle // client compatibility
	writeJSON(w, http.StatusOK, struct {
		SessionID string          `json:"sessionId"`
		Drivers   []*model.Driver `json:"drivers"`
	}{SessionID: sessionID, Drivers: drivers})
}

//nolint:whitespace // editor/linter issue
func (s *apiServer) handleGetEventSessions(
	w http.ResponseWriter, r *http.Request,
) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	roundNumber, err := strconv.Atoi(r.PathValue("roundNumber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid round number")
		return
	}
	sessions, err := s.sessionService.GetEventSessions(r.Context(), year, roundNumber)
	if err != nil {
		s.log.Error("error loading event sessions", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load sessions")
		return
	}
	if len(sessions) == 0 {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("No sessions found for %d round %d", year, roundNumber))
		return
	}
	writeJSON(w, http.StatusOK, sessionListResponse{
		Count:    len(sessions),
		Sessions: sessions,
	})
}
