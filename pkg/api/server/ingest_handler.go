package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/permission"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/util"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
)

const (
	minYear      = 2018
	maxYear      = 2030
	maxRound     = 30
	maxLapNumber = 199
)

var driverIDPattern = regexp.MustCompile(`^[A-Z]{3}$`)

//nolint:tagliatelle // client compatibility
type (
	ingestSessionRequest struct {
		ClientVersion string          `json:"clientVersion"`
		Session       *model.Session  `json:"session"`
		Drivers       []*model.Driver `json:"drivers"`
		Laps          []*model.Lap    `json:"laps"`
	}
	ingestTelemetryRequest struct {
		ClientVersion string                  `json:"clientVersion"`
		SessionID     string                  `json:"sessionId"`
		DriverID      string                  `json:"driverId"`
		LapNumber     int                     `json:"lapNumber"`
		Samples       []model.TelemetrySample `json:"samples"`
	}
	ingestTrackStatusRequest struct {
		ClientVersion string `json:"clientVersion"`
		SessionID     string `json:"sessionId"`
		Status        string `json:"status"`
	}
	ingestionResponse struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		SessionID string `json:"sessionId,omitempty"`
	}
)

// checkClientVersion writes the 400 response when the reported client
// version is below the supported one.
func (s *apiServer) checkClientVersion(w http.ResponseWriter, arg string) bool {
	if !util.CheckClientVersion(arg) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported client version %q (required >= %s)",
				arg, util.RequiredClientVersion))
		return false
	}
	return true
}

func validateSession(session *model.Session) error {
	if session == nil {
		return fmt.Errorf("session required")
	}
	if session.Year < minYear || session.Year > maxYear {
		return fmt.Errorf("year must be between %d and %d", minYear, maxYear)
	}
	if session.RoundNumber < 1 || session.RoundNumber > maxRound {
		return fmt.Errorf("round number must be between 1 and %d", maxRound)
	}
	if _, err := model.ParseSessionType(string(session.SessionType)); err != nil {
		return err
	}
	return nil
}

func validateDriverID(arg string) error {
	if !driverIDPattern.MatchString(arg) {
		return fmt.Errorf("driver id must be exactly 3 uppercase letters")
	}
	return nil
}

// handleIngestSession stores a session pushed by a data provider together
// with its drivers and laps. Ingesting an existing session id again is not
// an error, the stored data is kept.
//
//nolint:funlen,cyclop // sequential validation steps
func (s *apiServer) handleIngestSession(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r, permission.PermissionIngestSession) {
		return
	}
	var req ingestSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.checkClientVersion(w, req.ClientVersion) {
		return
	}
	if err := validateSession(req.Session); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, driver := range req.Drivers {
		if err := validateDriverID(driver.ID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, lap := range req.Laps {
		if lap.LapNumber < 1 || lap.LapNumber > maxLapNumber {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("lap numbers must be between 1 and %d", maxLapNumber))
			return
		}
	}

	session := req.Session
	if session.ID == "" {
		session.ID = model.SessionID(session.Year, session.RoundNumber,
			session.SessionType)
	}
	existing, err := s.sessionService.GetSession(r.Context(), session.ID)
	if err != nil {
		s.log.Error("error loading session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, ingestionResponse{
			Success:   true,
			Message:   fmt.Sprintf("Session already exists: %s", session.ID),
			SessionID: session.ID,
		})
		return
	}

	if err := s.sessionService.CreateSession(r.Context(), session); err != nil {
		s.log.Error("error creating session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	for _, driver := range req.Drivers {
		if err := s.sessionService.RegisterDriver(r.Context(), session.ID, driver); err != nil {
			s.log.Error("error registering driver", log.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "could not register driver")
			return
		}
	}
	if err := s.sessionService.IngestLaps(r.Context(), session.ID, req.Laps); err != nil {
		s.log.Error("error ingesting laps", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not ingest laps")
		return
	}

	s.lookup.AddSession(session)
	if spd, err := s.lookup.GetSession(session.ID); err == nil {
		if err := s.sessionProxy.PublishSessionRegistered(spd); err != nil {
			s.log.Error("error publishing registered session", log.ErrorField(err))
		}
	}
	s.log.Debug("session ingested",
		log.String("sessionId", session.ID),
		log.Int("drivers", len(req.Drivers)),
		log.Int("laps", len(req.Laps)))
	writeJSON(w, http.StatusOK, ingestionResponse{
		Success:   true,
		Message:   fmt.Sprintf("Successfully ingested session: %s", session.ID),
		SessionID: session.ID,
	})
}

// handleIngestTelemetry stores the telemetry of one lap. When the session
// is live the lap is loaded into the analysis processor as well.
func (s *apiServer) handleIngestTelemetry(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r, permission.PermissionIngestTelemetry) {
		return
	}
	var req ingestTelemetryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.checkClientVersion(w, req.ClientVersion) {
		return
	}
	if err := validateDriverID(req.DriverID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.LapNumber < 1 || req.LapNumber > maxLapNumber {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("lap numbers must be between 1 and %d", maxLapNumber))
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "samples required")
		return
	}
	session, err := s.sessionService.GetSession(r.Context(), req.SessionID)
	if err != nil {
		s.log.Error("error loading session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	arg := &model.LapTelemetry{
		DriverID:  req.DriverID,
		LapNumber: req.LapNumber,
		Samples:   req.Samples,
	}
	if err := s.telemetryService.SaveLapTelemetry(r.Context(), session.ID, arg); err != nil {
		s.log.Error("error storing telemetry", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not store telemetry")
		return
	}
	if spd, err := s.lookup.GetSession(session.ID); err == nil {
		spd.Processor.LoadLap(req.DriverID, req.LapNumber, req.Samples)
		spd.PublishAnalysis()
	}
	writeJSON(w, http.StatusOK, ingestionResponse{
		Success: true,
		Message: fmt.Sprintf("Ingested %d samples for %s lap %d",
			len(req.Samples), req.DriverID, req.LapNumber),
		SessionID: session.ID,
	})
}

// handleIngestTrackStatus updates the track status of a live session. The
// raw status string is reduced to the highest priority status and pushed
// to analysis subscribers.
func (s *apiServer) handleIngestTrackStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r, permission.PermissionIngestTelemetry) {
		return
	}
	var req ingestTrackStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.checkClientVersion(w, req.ClientVersion) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status required")
		return
	}
	spd, err := s.lookup.GetSession(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not live")
		return
	}
	status := spd.Processor.SetTrackStatus(req.Status)
	spd.PublishAnalysis()
	writeJSON(w, http.StatusOK, ingestionResponse{
		Success:   true,
		Message:   fmt.Sprintf("Track status: %s", status.DisplayName()),
		SessionID: req.SessionID,
	})
}

func (s *apiServer) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
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
	sessionType, err := model.ParseSessionType(
		strings.ToUpper(r.PathValue("sessionType")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionID := model.SessionID(year, roundNumber, sessionType)
	session, err := s.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		s.log.Error("error loading session", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	//nolint:tagliatelle // client compatibility
	writeJSON(w, http.StatusOK, struct {
		Year        int               `json:"year"`
		RoundNumber int               `json:"roundNumber"`
		SessionType model.SessionType `json:"sessionType"`
		IsIngested  bool              `json:"isIngested"`
	}{
		Year:        year,
		RoundNumber: roundNumber,
		SessionType: sessionType,
		IsIngested:  session != nil,
	})
}
