package server

import (
	"fmt"
	"net/http"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/permission"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/corners"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/delta"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/layout"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/trackmap"
	telemetrysvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/telemetry"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

//nolint:tagliatelle // client compatibility
type (
	loadLapRequest struct {
		DriverID  string `json:"driverId"`
		LapNumber int    `json:"lapNumber"`
	}
	loadLapResponse struct {
		SessionID string `json:"sessionId"`
		DriverID  string `json:"driverId"`
		LapNumber int    `json:"lapNumber"`
		LapCount  int    `json:"lapCount"`
	}
	referenceRequest struct {
		DriverID  string `json:"driverId"`
		LapNumber int    `json:"lapNumber"`
		Clear     bool   `json:"clear"`
	}
	referenceResponse struct {
		SessionID string                    `json:"sessionId"`
		Reference *telemetrysvc.LapSelector `json:"reference"`
	}
	// band mirrors layout.Band with the channel flattened to its key.
	band struct {
		Channel     layout.ChannelKey `json:"channel"`
		YOffset     float64           `json:"yOffset"`
		Height      float64           `json:"height"`
		ValueDomain [2]float64        `json:"valueDomain"`
	}
	layoutResponse struct {
		SessionID   string  `json:"sessionId"`
		TotalHeight float64 `json:"totalHeight"`
		Bands       []band  `json:"bands"`
	}
	cornersResponse struct {
		SessionID string           `json:"sessionId"`
		Corners   []corners.Marker `json:"corners"`
	}
	deltaResponse struct {
		SessionID string         `json:"sessionId"`
		DriverID  string         `json:"driverId"`
		LapNumber int            `json:"lapNumber"`
		Delta     *delta.Sample  `json:"delta,omitempty"`
		Curve     []delta.Sample `json:"curve,omitempty"`
	}
	nearestResponse struct {
		SessionID string                 `json:"sessionId"`
		DriverID  string                 `json:"driverId"`
		LapNumber int                    `json:"lapNumber"`
		Sample    *model.TelemetrySample `json:"sample"`
	}
	trackMapResponse struct {
		SessionID string           `json:"sessionId"`
		Width     float64          `json:"width"`
		Height    float64          `json:"height"`
		Scale     float64          `json:"scale"`
		Identity  bool             `json:"identity"`
		Outline   []trackmap.Point `json:"outline"`
		Corners   []corners.Marker `json:"corners"`
	}
)

// liveSession resolves the in-memory processing data of a session and
// writes the 404 response when the session is not live.
func (s *apiServer) liveSession(w http.ResponseWriter, r *http.Request) (
	*utils.SessionProcessingData, bool,
) {
	spd, err := s.lookup.GetSession(r.PathValue("sessionId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not live")
		return nil, false
	}
	return spd, true
}

// lapQuery extracts the lap address from the driver/lap query parameters.
func lapQuery(w http.ResponseWriter, r *http.Request) (
	driverID string, lapNumber int, ok bool,
) {
	driverID = r.URL.Query().Get("driver")
	if driverID == "" {
		writeError(w, http.StatusBadRequest, "driver required")
		return "", 0, false
	}
	lapNumber = queryInt(r, "lap", 0)
	if lapNumber <= 0 {
		writeError(w, http.StatusBadRequest, "lap required")
		return "", 0, false
	}
	return driverID, lapNumber, true
}

//nolint:whitespace // editor/linter issue
func (s *apiServer) handleListLiveSessions(
	w http.ResponseWriter, r *http.Request,
) {
	sessions := s.lookup.GetSessions()
	writeJSON(w, http.StatusOK, sessionListResponse{
		Count:    len(sessions),
		Sessions: sessions,
	})
}

// handleLoadLap pulls the stored telemetry of a lap into the analysis
// processor of the session. The session is registered as live on first
// load.
func (s *apiServer) handleLoadLap(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r, permission.PermissionManageAnalysis) {
		return
	}
	var req loadLapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DriverID == "" || req.LapNumber <= 0 {
		writeError(w, http.StatusBadRequest, "driverId and lapNumber required")
		return
	}
	session, ok := s.sessionExists(w, r)
	if !ok {
		return
	}
	telemetry, err := s.telemetryService.GetLapTelemetry(r.Context(),
		session.ID, req.DriverID, req.LapNumber)
	if err != nil {
		s.log.Error("error loading telemetry", log.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not load telemetry")
		return
	}
	if telemetry == nil {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Telemetry not found for %s lap %d",
				req.DriverID, req.LapNumber))
		return
	}
	s.lookup.AddSession(session)
	spd, err := s.lookup.GetSession(session.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not register session")
		return
	}
	spd.Processor.LoadLap(req.DriverID, req.LapNumber, telemetry.Samples)
	spd.PublishAnalysis()
	s.log.Debug("lap loaded",
		log.String("sessionId", session.ID),
		log.String("driver", req.DriverID),
		log.Int("lap", req.LapNumber))
	writeJSON(w, http.StatusOK, loadLapResponse{
		SessionID: session.ID,
		DriverID:  req.DriverID,
		LapNumber: req.LapNumber,
		LapCount:  spd.Processor.LapCount(),
	})
}

// handleReferenceLap sets or clears the reference lap all deltas are
// computed against.
func (s *apiServer) handleReferenceLap(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r, permission.PermissionManageAnalysis) {
		return
	}
	var req referenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	spd, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	if req.Clear {
		spd.Processor.ClearReferenceLap()
		spd.PublishAnalysis()
		writeJSON(w, http.StatusOK, referenceResponse{SessionID: spd.Session.ID})
		return
	}
	if req.DriverID == "" || req.LapNumber <= 0 {
		writeError(w, http.StatusBadRequest, "driverId and lapNumber required")
		return
	}
	key := model.NewLapKey(req.DriverID, req.LapNumber)
	if err := spd.Processor.SetReferenceLap(key); err != nil {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Lap %d of %s not loaded", req.LapNumber, req.DriverID))
		return
	}
	spd.PublishAnalysis()
	writeJSON(w, http.StatusOK, referenceResponse{
		SessionID: spd.Session.ID,
		Reference: &telemetrysvc.LapSelector{
			DriverID:  req.DriverID,
			LapNumber: req.LapNumber,
		},
	})
}

func (s *apiServer) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	spd, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	height, valid := queryFloat(r, "height")
	if !valid || height <= 0 {
		writeError(w, http.StatusBadRequest, "height required")
		return
	}
	computed := spd.Processor.Layout(height)
	bands := make([]band, 0, len(computed))
	for i := range computed {
		bands = append(bands, band{
			Channel:     computed[i].Channel.Key,
			YOffset:     computed[i].YOffset,
			Height:      computed[i].Height,
			ValueDomain: computed[i].ValueDomain,
		})
	}
	writeJSON(w, http.StatusOK, layoutResponse{
		SessionID:   spd.Session.ID,
		TotalHeight: height,
		Bands:       bands,
	})
}

func (s *apiServer) handleGetCorners(w http.ResponseWriter, r *http.Request) {
	spd, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cornersResponse{
		SessionID: spd.Session.ID,
		Corners:   spd.Processor.Corners(),
	})
}

// handleGetDelta answers the delta of a lap against the reference lap. A
// distance parameter yields the single nearest sample, without it the
// whole curve is returned.
func (s *apiServer) handleGetDelta(w http.ResponseWriter, r *http.Request) {
	spd, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	driverID, lapNumber, ok := lapQuery(w, r)
	if !ok {
		return
	}
	key := model.NewLapKey(driverID, lapNumber)
	ret := deltaResponse{
		SessionID: spd.Session.ID,
		DriverID:  driverID,
		LapNumber: lapNumber,
	}
	if distance, valid := queryFloat(r, "distance"); valid {
		sample, err := spd.Processor.DeltaAt(key, distance)
		if err != nil {
			writeError(w, http.StatusNotFound,
				fmt.Sprintf("Lap %d of %s not loaded", lapNumber, driverID))
			return
		}
		if sample == nil {
			writeError(w, http.StatusNotFound, "No samples available")
			return
		}
		ret.Delta = sample
	} else {
		curve, err := spd.Processor.DeltaCurve(key)
		if err != nil {
			writeError(w, http.StatusNotFound,
				fmt.Sprintf("Lap %d of %s not loaded", lapNumber, driverID))
			return
		}
		ret.Curve = curve
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *apiServer) handleGetNearest(w http.ResponseWriter, r *http.Request) {
	spd, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	driverID, lapNumber, ok := lapQuery(w, r)
	if !ok {
		return
	}
	distance, valid := queryFloat(r, "distance")
	if !valid {
		writeError(w, http.StatusBadRequest, "distance required")
		return
	}
	sample, err := spd.Processor.NearestAt(model.NewLapKey(driverID, lapNumber), distance)
	if err != nil {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Lap %d of %s not loaded", lapNumber, driverID))
		return
	}
	if sample == nil {
		writeError(w, http.StatusNotFound, "No samples available")
		return
	}
	writeJSON(w, http.StatusOK, nearestResponse{
		SessionID: spd.Session.ID,
		DriverID:  driverID,
		LapNumber: lapNumber,
		Sample:    sample,
	})
}

// handleGetTrackMap projects the outline lap and the corner markers into
// the requested viewport.
func (s *apiServer) handleGetTrackMap(w http.ResponseWriter, r *http.Request) {
	spd, ok := s.liveSession(w, r)
	if !ok {
		return
	}
	width, wOk := queryFloat(r, "width")
	height, hOk := queryFloat(r, "height")
	if !wOk || !hOk || width <= 0 || height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height required")
		return
	}
	projection := spd.Processor.Projection(width, height)

	outline := trackmap.PointsFromLaps(spd.Processor.OutlineLap())
	for i := range outline {
		outline[i].X, outline[i].Y = projection.Project(outline[i].X, outline[i].Y)
	}
	markers := spd.Processor.Corners()
	projected := make([]corners.Marker, len(markers))
	copy(projected, markers)
	for i := range projected {
		projected[i].X, projected[i].Y = projection.Project(projected[i].X, projected[i].Y)
	}
	writeJSON(w, http.StatusOK, trackMapResponse{
		SessionID: spd.Session.ID,
		Width:     width,
		Height:    height,
		Scale:     projection.Scale(),
		Identity:  projection.IsIdentity(),
		Outline:   outline,
		Corners:   projected,
	})
}
