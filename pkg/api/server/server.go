// Package server provides the JSON HTTP API. Handlers stay thin: they
// parse the request, delegate to the services or the analysis
// orchestrator and write the response envelope.
package server

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/auth"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/permission"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/proxy"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/util"
	analysissvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/analysis"
	sessionsvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/session"
	telemetrysvc "github.com/f1plots/f1dash-service-manager-go/pkg/service/telemetry"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
	"github.com/f1plots/f1dash-service-manager-go/version"
)

func NewServer(opts ...Option) *apiServer {
	ret := &apiServer{
		sessionProxy: &proxy.EmptyProxy{},
		log:          log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.pool != nil {
		ret.sessionService = sessionsvc.NewSessionService(ret.pool)
		ret.telemetryService = telemetrysvc.NewTelemetryService(ret.pool)
		ret.analysisService = analysissvc.NewAnalysisService(ret.pool)
	}
	return ret
}

type Option func(*apiServer)

func WithPersistence(p *pgxpool.Pool) Option {
	return func(srv *apiServer) {
		srv.pool = p
	}
}

func WithSessionLookup(lookup *utils.SessionLookup) Option {
	return func(srv *apiServer) {
		srv.lookup = lookup
	}
}

func WithPermissionEvaluator(pe permission.PermissionEvaluator) Option {
	return func(srv *apiServer) {
		srv.pe = pe
	}
}

func WithSessionProxy(arg proxy.SessionProxy) Option {
	return func(srv *apiServer) {
		srv.sessionProxy = arg
	}
}

type apiServer struct {
	pool         *pgxpool.Pool
	pe           permission.PermissionEvaluator
	lookup       *utils.SessionLookup
	sessionProxy proxy.SessionProxy
	log          *log.Logger

	sessionService   *sessionsvc.SessionService
	telemetryService *telemetrysvc.TelemetryService
	analysisService  *analysissvc.AnalysisService
}

// RegisterRoutes mounts all API routes on the given mux.
//
//nolint:funlen // route table
func (s *apiServer) RegisterRoutes(mux *http.ServeMux) {
	// sessions
	mux.HandleFunc("GET /api/v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/v1/sessions/years", s.handleListYears)
	mux.HandleFunc("GET /api/v1/sessions/events/{year}", s.handleListEvents)
	mux.HandleFunc("GET /api/v1/sessions/id/{sessionId}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/id/{sessionId}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/v1/sessions/id/{sessionId}/drivers", s.handleGetDrivers)
	mux.HandleFunc("GET /api/v1/sessions/{year}/{roundNumber}", s.handleGetEventSessions)

	// laps
	mux.HandleFunc("GET /api/v1/laps/{sessionId}", s.handleGetLaps)
	mux.HandleFunc("GET /api/v1/laps/{sessionId}/fastest", s.handleGetFastestLaps)
	mux.HandleFunc("GET /api/v1/laps/{sessionId}/personal-bests", s.handleGetPersonalBests)
	mux.HandleFunc("GET /api/v1/laps/{sessionId}/distribution", s.handleGetLapDistribution)
	mux.HandleFunc("GET /api/v1/laps/{sessionId}/compound-performance",
		s.handleGetCompoundPerformance)
	mux.HandleFunc("GET /api/v1/laps/{sessionId}/compare", s.handleCompareDrivers)
	mux.HandleFunc("GET /api/v1/laps/{sessionId}/driver/{driverId}/stint/{stint}",
		s.handleGetStintLaps)

	// telemetry
	mux.HandleFunc("GET /api/v1/telemetry/{sessionId}/{driverId}/available",
		s.handleGetAvailableLaps)
	mux.HandleFunc("GET /api/v1/telemetry/{sessionId}/{driverId}/{lap}",
		s.handleGetLapTelemetry)
	mux.HandleFunc("GET /api/v1/telemetry/{sessionId}/{driverId}/{lap}/speed-trace",
		s.handleGetSpeedTrace)
	mux.HandleFunc("GET /api/v1/telemetry/{sessionId}/{driverId}/{lap}/gear-changes",
		s.handleGetGearChanges)
	mux.HandleFunc("POST /api/v1/telemetry/{sessionId}/compare", s.handleCompareLaps)

	// analysis
	mux.HandleFunc("GET /api/v1/analysis/live", s.handleListLiveSessions)
	mux.HandleFunc("POST /api/v1/analysis/{sessionId}/load", s.handleLoadLap)
	mux.HandleFunc("POST /api/v1/analysis/{sessionId}/reference", s.handleReferenceLap)
	mux.HandleFunc("GET /api/v1/analysis/{sessionId}/layout", s.handleGetLayout)
	mux.HandleFunc("GET /api/v1/analysis/{sessionId}/corners", s.handleGetCorners)
	mux.HandleFunc("GET /api/v1/analysis/{sessionId}/delta", s.handleGetDelta)
	mux.HandleFunc("GET /api/v1/analysis/{sessionId}/nearest", s.handleGetNearest)
	mux.HandleFunc("GET /api/v1/analysis/{sessionId}/trackmap", s.handleGetTrackMap)
	mux.HandleFunc("GET /api/v1/analysis/{sessionId}/live", s.handleLiveAnalysis)

	// ingest
	mux.HandleFunc("POST /api/v1/ingest/session", s.handleIngestSession)
	mux.HandleFunc("POST /api/v1/ingest/telemetry", s.handleIngestTelemetry)
	mux.HandleFunc("POST /api/v1/ingest/trackstatus", s.handleIngestTrackStatus)
	mux.HandleFunc("GET /api/v1/ingest/status/{year}/{roundNumber}/{sessionType}",
		s.handleIngestStatus)

	mux.HandleFunc("GET /api/v1/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// allowed checks the caller's permission and writes the auth error when
// the request may not proceed. Anonymous callers get 401, authenticated
// callers without the permission get 403.
//
//nolint:whitespace // editor/linter issue
func (s *apiServer) allowed(
	w http.ResponseWriter, r *http.Request, perm permission.Permission,
) bool {
	ctx := r.Context()
	a := auth.FromContext(&ctx)
	if a == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !s.pe.HasPermission(a, perm) {
		if len(a.Roles()) == 0 {
			writeError(w, http.StatusUnauthorized, "authentication required")
		} else {
			writeError(w, http.StatusForbidden, auth.ErrPermissionDenied.Error())
		}
		return false
	}
	return true
}

func (s *apiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	//nolint:tagliatelle // client compatibility
	writeJSON(w, http.StatusOK, struct {
		Version               string `json:"version"`
		RequiredClientVersion string `json:"requiredClientVersion"`
	}{
		Version:               version.Version,
		RequiredClientVersion: util.RequiredClientVersion,
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "up"})
}
