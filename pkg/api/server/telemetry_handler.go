package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/f1plots/f1dash-service-manager-go/log"
	analysissvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/analysis"
	telemetrysvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/telemetry"
)

//nolint:tagliatelle // client compatibility
type (
	availableLapsResponse struct {
		SessionID     string `json:"sessionId"`
		DriverID      string `json:"driverId"`
		AvailableLaps []int  `json:"availableLaps"`
	}
	speedTraceResponse struct {
		SessionID string                        `json:"sessionId"`
		DriverID  string                        `json:"driverId"`
		LapNumber int                           `json:"lapNumber"`
		Points    []analysissvc.SpeedTracePoint `json:"points"`
	}
	gearChangesResponse struct {
		SessionID   string                   `json:"sessionId"`
		DriverID    string                   `json:"driverId"`
		LapNumber   int                      `json:"lapNumber"`
		GearChanges []analysissvc.GearChange `json:"gearChanges"`
	}
	lapComparisonResponse struct {
		SessionID string                        `json:"sessionId"`
		Laps      []*telemetrysvc.LapComparison `json:"laps"`
	}
)

// lapPath extracts the lap address from the request path. The error
// response is written when the lap number is malformed.
func lapPath(w http.ResponseWriter, r *http.Request) (
	sessionID, driverID string, lapNumber int, ok bool,
) {
	lapNumber, err := strconv.Atoi(r.PathValue("lap"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lap number")
		return "", "", 0, false
	}
	return r.PathValue("sessionId"), r.PathValue("driverId"), lapNumber, true
}

func (s *apiServer) handleGetLapTelemetry(w http.ResponseWriter, r *http.Request) {
	sessionID, driverID, lapNumber, ok := lapPath(w, r)
	if !ok {
		return
	}
	frame, err := s.telemetryService.GetFrame(r.Context(), sessionID, driverID, lapNumber)
	if err != nil {
		s.log.Error("error loading telemetry", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load telemetry")
		return
	}
	if frame == nil {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Telemetry not found for %s lap %d", driverID, lapNumber))
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

//nolint:whitespace // editor/linter issue
func (s *apiServer) handleGetAvailableLaps(
	w http.ResponseWriter, r *http.Request,
) {
	sessionID := r.PathValue("sessionId")
	driverID := r.PathValue("driverId")
	laps, err := s.telemetryService.GetAvailableLaps(r.Context(), sessionID, driverID)
	if err != nil {
		s.log.Error("error loading available laps", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load available laps")
		return
	}
	writeJSON(w, http.StatusOK, availableLapsResponse{
		SessionID:     sessionID,
		DriverID:      driverID,
		AvailableLaps: laps,
	})
}

func (s *apiServer) handleGetSpeedTrace(w http.ResponseWriter, r *http.Request) {
	sessionID, driverID, lapNumber, ok := lapPath(w, r)
	if !ok {
		return
	}
	trace, err := s.telemetryService.GetSpeedTrace(r.Context(),
		sessionID, driverID, lapNumber)
	if err != nil {
		s.log.Error("error loading speed trace", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load speed trace")
		return
	}
	if trace == nil {
		writeError(w, http.StatusNotFound, "Speed trace not available")
		return
	}
	writeJSON(w, http.StatusOK, speedTraceResponse{
		SessionID: sessionID,
		DriverID:  driverID,
		LapNumber: lapNumber,
		Points:    trace,
	})
}

func (s *apiServer) handleGetGearChanges(w http.ResponseWriter, r *http.Request) {
	sessionID, driverID, lapNumber, ok := lapPath(w, r)
	if !ok {
		return
	}
	changes, err := s.telemetryService.GetGearChanges(r.Context(),
		sessionID, driverID, lapNumber)
	if err != nil {
		s.log.Error("error loading gear changes", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load gear changes")
		return
	}
	if changes == nil {
		writeError(w, http.StatusNotFound, "Gear data not available")
		return
	}
	writeJSON(w, http.StatusOK, gearChangesResponse{
		SessionID:   sessionID,
		DriverID:    driverID,
		LapNumber:   lapNumber,
		GearChanges: changes,
	})
}

func (s *apiServer) handleCompareLaps(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	var selectors []telemetrysvc.LapSelector
	if err := decodeJSON(r, &selectors); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := s.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		s.log.Error("error loading session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Session %s not found", sessionID))
		return
	}
	laps, err := s.telemetryService.CompareLaps(r.Context(), sessionID, selectors)
	if err != nil {
		s.log.Error("error comparing laps", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not compare laps")
		return
	}
	writeJSON(w, http.StatusOK, lapComparisonResponse{
		SessionID: sessionID,
		Laps:      laps,
	})
}
