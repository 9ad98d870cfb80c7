package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	analysissvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/analysis"
)

const (
	defaultTopN = 10
	maxTopN     = 100
)

//nolint:tagliatelle // client compatibility
type (
	lapListResponse struct {
		SessionID string       `json:"sessionId"`
		Count     int          `json:"count"`
		Laps      []*model.Lap `json:"laps"`
	}
	lapDistributionResponse struct {
		SessionID string               `json:"sessionId"`
		Drivers   map[string][]float64 `json:"drivers"`
	}
	compoundPerformanceResponse struct {
		SessionID string                                `json:"sessionId"`
		Compounds map[string]*analysissvc.CompoundStats `json:"compounds"`
	}
	driverComparisonResponse struct {
		SessionID  string                              `json:"sessionId"`
		Comparison map[string]*analysissvc.DriverStats `json:"comparison"`
	}
)

// sessionExists resolves the session and writes the 404 response when the
// id is unknown.
func (s *apiServer) sessionExists(w http.ResponseWriter, r *http.Request) (
	*model.Session, bool,
) {
	session, err := s.sessionService.GetSession(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		s.log.Error("error loading session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return session, true
}

func (s *apiServer) handleGetLaps(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessionExists(w, r)
	if !ok {
		return
	}
	var compound model.TireCompound
	if arg := r.URL.Query().Get("compound"); arg != "" {
		compound = model.ParseTireCompound(strings.ToUpper(arg))
		if compound == model.CompoundUnknown &&
			!strings.EqualFold(arg, string(model.CompoundUnknown)) {
			writeError(w, http.StatusBadRequest, "Invalid compound: "+arg)
			return
		}
	}

	laps, err := s.sessionService.GetLaps(r.Context(), session.ID,
		r.URL.Query().Get("driver"))
	if err != nil {
		s.log.Error("error loading laps", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load laps")
		return
	}
	if validOnly, _ := strconv.ParseBool(
		r.URL.Query().Get("validOnly")); validOnly {
		laps = lo.Filter(laps, func(lap *model.Lap, idx int) bool {
			return lap.IsValidForAnalysis()
		})
	}
	if compound != "" {
		laps = lo.Filter(laps, func(lap *model.Lap, idx int) bool {
			return lap.Compound == compound
		})
	}
	writeJSON(w, http.StatusOK, lapListResponse{
		SessionID: session.ID,
		Count:     len(laps),
		Laps:      laps,
	})
}

func (s *apiServer) handleGetFastestLaps(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	topN := queryInt(r, "topN", defaultTopN)
	if topN < 1 {
		topN = 1
	}
	if topN > maxTopN {
		topN = maxTopN
	}
	laps, err := s.sessionService.GetFastestLaps(r.Context(), sessionID, topN)
	if err != nil {
		s.log.Error("error loading fastest laps", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load laps")
		return
	}
	writeJSON(w, http.StatusOK, lapListResponse{
		SessionID: sessionID,
		Count:     len(laps),
		Laps:      laps,
	})
}

//nolint:whitespace // editor/linter issue
func (s *apiServer) handleGetPersonalBests(
	w http.ResponseWriter, r *http.Request,
) {
	sessionID := r.PathValue("sessionId")
	laps, err := s.sessionService.GetPersonalBests(r.Context(), sessionID)
	if err != nil {
		s.log.Error("error loading personal bests", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load laps")
		return
	}
	writeJSON(w, http.StatusOK, lapListResponse{
		SessionID: sessionID,
		Count:     len(laps),
		Laps:      laps,
	})
}

//nolint:whitespace // editor/linter issue
func (s *apiServer) handleGetLapDistribution(
	w http.ResponseWriter, r *http.Request,
) {
	sessionID := r.PathValue("sessionId")
	distribution, err := s.analysisService.GetLapDistribution(r.Context(), sessionID)
	if err != nil {
		s.log.Error("error computing distribution", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not compute distribution")
		return
	}
	writeJSON(w, http.StatusOK, lapDistributionResponse{
		SessionID: sessionID,
		Drivers:   distribution,
	})
}

//nolint:whitespace // editor/linter issue
func (s *apiServer) handleGetCompoundPerformance(
	w http.ResponseWriter, r *http.Request,
) {
	sessionID := r.PathValue("sessionId")
	performance, err := s.analysisService.GetCompoundPerformance(r.Context(), sessionID)
	if err != nil {
		s.log.Error("error computing compound performance", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not compute performance")
		return
	}
	writeJSON(w, http.StatusOK, compoundPerformanceResponse{
		SessionID: sessionID,
		Compounds: performance,
	})
}

func (s *apiServer) handleCompareDrivers(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	drivers := lo.Filter(
		strings.Split(r.URL.Query().Get("drivers"), ","),
		func(item string, idx int) bool { return item != "" })
	if len(drivers) < 2 {
		writeError(w, http.StatusBadRequest, "at least two drivers required")
		return
	}
	comparison, err := s.analysisService.CompareDrivers(r.Context(), sessionID, drivers)
	if err != nil {
		s.log.Error("error comparing drivers", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not compare drivers")
		return
	}
	writeJSON(w, http.StatusOK, driverComparisonResponse{
		SessionID:  sessionID,
		Comparison: comparison,
	})
}

func (s *apiServer) handleGetStintLaps(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	stint, err := strconv.Atoi(r.PathValue("stint"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stint number")
		return
	}
	laps, err := s.sessionService.GetStintLaps(r.Context(), sessionID,
		r.PathValue("driverId"), stint)
	if err != nil {
		s.log.Error("error loading stint laps", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load laps")
		return
	}
	writeJSON(w, http.StatusOK, lapListResponse{
		SessionID: sessionID,
		Count:     len(laps),
		Laps:      laps,
	})
}
