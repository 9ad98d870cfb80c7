//nolint:thelper,funlen,lll,dupl // ok for tests
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1plots/f1dash-service-manager-go/pkg/api/auth"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/permission"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

const (
	testAdminToken    = "admin-secret"
	testProviderToken = "provider-secret"
)

type testEnv struct {
	lookup  *utils.SessionLookup
	mux     *http.ServeMux
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	lookup := utils.NewSessionLookup()
	t.Cleanup(lookup.Clear)
	srv := NewServer(
		WithSessionLookup(lookup),
		WithPermissionEvaluator(permission.NewPermissionEvaluator()),
	)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	authMiddleware := auth.NewMiddleware(
		auth.WithAdminToken(testAdminToken),
		auth.WithProviderToken(testProviderToken),
	)
	return &testEnv{lookup: lookup, mux: mux, handler: authMiddleware.Wrap(mux)}
}

func (env *testEnv) request(
	t *testing.T, method, target, token, body string,
) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func testSession() *model.Session {
	return &model.Session{
		ID:          "2024_05_R",
		Year:        2024,
		RoundNumber: 5,
		EventName:   "Miami Grand Prix",
		SessionType: model.SessionRace,
		TrackName:   "Miami International Autodrome",
		Country:     "United States",
		Location:    "Miami",
		TotalLaps:   57,
	}
}

// flatSamples builds evenly spaced samples with time offsets shifted by
// shiftMs and positions along a diagonal.
func flatSamples(n int, spacing, shiftMs float64) []model.TelemetrySample {
	ret := make([]model.TelemetrySample, 0, n)
	for i := 0; i < n; i++ {
		ret = append(ret, model.TelemetrySample{
			Distance:     float64(i) * spacing,
			Speed:        200,
			Gear:         7,
			Throttle:     100,
			TimeOffsetMs: lo.ToPtr(float64(i)*100 + shiftMs),
			X:            lo.ToPtr(float64(i) * 10),
			Y:            lo.ToPtr(float64(i) * 5),
		})
	}
	return ret
}

// liveSession registers the session in the lookup and loads one lap into
// its processor.
func (env *testEnv) liveSession(t *testing.T) *utils.SessionProcessingData {
	t.Helper()
	session := testSession()
	env.lookup.AddSession(session)
	spd, err := env.lookup.GetSession(session.ID)
	require.NoError(t, err)
	spd.Processor.LoadLap("VER", 5, flatSamples(20, 50, 0))
	return spd
}

func TestServer_Version(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/api/v1/version", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
	assert.Equal(t, "v0.3.0", body["requiredClientVersion"])
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "up"}`, rec.Body.String())
}

// Literal path segments must win over wildcards in the same position.
func TestServer_RoutePrecedence(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{
			name:   "available laps beats lap wildcard",
			target: "/api/v1/telemetry/2024_05_R/VER/available",
			want:   "GET /api/v1/telemetry/{sessionId}/{driverId}/available",
		},
		{
			name:   "numeric lap routes to telemetry",
			target: "/api/v1/telemetry/2024_05_R/VER/5",
			want:   "GET /api/v1/telemetry/{sessionId}/{driverId}/{lap}",
		},
		{
			name:   "events beats year wildcard",
			target: "/api/v1/sessions/events/2024",
			want:   "GET /api/v1/sessions/events/{year}",
		},
		{
			name:   "year round routes to event sessions",
			target: "/api/v1/sessions/2024/5",
			want:   "GET /api/v1/sessions/{year}/{roundNumber}",
		},
		{
			name:   "live sessions beats session wildcard",
			target: "/api/v1/analysis/live",
			want:   "GET /api/v1/analysis/live",
		},
		{
			name:   "session live stream",
			target: "/api/v1/analysis/2024_05_R/live",
			want:   "GET /api/v1/analysis/{sessionId}/live",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			_, pattern := env.mux.Handler(req)
			assert.Equal(t, tt.want, pattern)
		})
	}
}

func TestServer_AuthGuard(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		method string
		target string
		token  string
		body   string
		want   int
	}{
		{
			name:   "anonymous delete session",
			method: http.MethodDelete,
			target: "/api/v1/sessions/id/2024_05_R",
			want:   http.StatusUnauthorized,
		},
		{
			name:   "provider delete session",
			method: http.MethodDelete,
			target: "/api/v1/sessions/id/2024_05_R",
			token:  testProviderToken,
			want:   http.StatusForbidden,
		},
		{
			name:   "anonymous load lap",
			method: http.MethodPost,
			target: "/api/v1/analysis/2024_05_R/load",
			body:   `{"driverId": "VER", "lapNumber": 5}`,
			want:   http.StatusUnauthorized,
		},
		{
			name:   "anonymous reference lap",
			method: http.MethodPost,
			target: "/api/v1/analysis/2024_05_R/reference",
			body:   `{"driverId": "VER", "lapNumber": 5}`,
			want:   http.StatusUnauthorized,
		},
		{
			name:   "anonymous ingest session",
			method: http.MethodPost,
			target: "/api/v1/ingest/session",
			body:   `{}`,
			want:   http.StatusUnauthorized,
		},
		{
			name:   "anonymous ingest telemetry",
			method: http.MethodPost,
			target: "/api/v1/ingest/telemetry",
			body:   `{}`,
			want:   http.StatusUnauthorized,
		},
		{
			name:   "unknown token falls back to anonymous",
			method: http.MethodPost,
			target: "/api/v1/ingest/session",
			token:  "some-random-token",
			body:   `{}`,
			want:   http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, tt.method, tt.target, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

// Requests not passed through the auth middleware carry no authentication
// and must be rejected on gated routes.
func TestServer_AuthGuard_NoMiddleware(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/id/2024_05_R", nil)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ListLiveSessions(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/api/v1/analysis/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body sessionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Count)

	env.liveSession(t)
	rec = env.request(t, http.MethodGet, "/api/v1/analysis/live", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "2024_05_R", body.Sessions[0].ID)
}

func TestServer_AnalysisRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.liveSession(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{
			name:   "unknown session",
			target: "/api/v1/analysis/2023_01_R/layout?height=600",
			want:   http.StatusNotFound,
		},
		{
			name:   "layout without height",
			target: "/api/v1/analysis/2024_05_R/layout",
			want:   http.StatusBadRequest,
		},
		{
			name:   "layout",
			target: "/api/v1/analysis/2024_05_R/layout?height=600",
			want:   http.StatusOK,
		},
		{
			name:   "corners",
			target: "/api/v1/analysis/2024_05_R/corners",
			want:   http.StatusOK,
		},
		{
			name:   "delta curve",
			target: "/api/v1/analysis/2024_05_R/delta?driver=VER&lap=5",
			want:   http.StatusOK,
		},
		{
			name:   "delta at distance",
			target: "/api/v1/analysis/2024_05_R/delta?driver=VER&lap=5&distance=500",
			want:   http.StatusOK,
		},
		{
			name:   "delta without driver",
			target: "/api/v1/analysis/2024_05_R/delta?lap=5",
			want:   http.StatusBadRequest,
		},
		{
			name:   "delta of unloaded lap",
			target: "/api/v1/analysis/2024_05_R/delta?driver=HAM&lap=7&distance=500",
			want:   http.StatusNotFound,
		},
		{
			name:   "nearest without distance",
			target: "/api/v1/analysis/2024_05_R/nearest?driver=VER&lap=5",
			want:   http.StatusBadRequest,
		},
		{
			name:   "nearest",
			target: "/api/v1/analysis/2024_05_R/nearest?driver=VER&lap=5&distance=120",
			want:   http.StatusOK,
		},
		{
			name:   "trackmap without dimensions",
			target: "/api/v1/analysis/2024_05_R/trackmap",
			want:   http.StatusBadRequest,
		},
		{
			name:   "trackmap",
			target: "/api/v1/analysis/2024_05_R/trackmap?width=300&height=200",
			want:   http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodGet, tt.target, "", "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_Layout_Bands(t *testing.T) {
	env := newTestEnv(t)
	env.liveSession(t)
	rec := env.request(t, http.MethodGet,
		"/api/v1/analysis/2024_05_R/layout?height=600", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024_05_R", body.SessionID)
	assert.InDelta(t, 600.0, body.TotalHeight, 1e-9)
	assert.Len(t, body.Bands, 6)
}

func TestServer_Nearest_Sample(t *testing.T) {
	env := newTestEnv(t)
	env.liveSession(t)
	rec := env.request(t, http.MethodGet,
		"/api/v1/analysis/2024_05_R/nearest?driver=VER&lap=5&distance=120", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body nearestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Sample)
	assert.InDelta(t, 100.0, body.Sample.Distance, 1e-9)
}

func TestServer_Delta_Shapes(t *testing.T) {
	env := newTestEnv(t)
	spd := env.liveSession(t)
	spd.Processor.LoadLap("HAM", 7, flatSamples(20, 50, 250))

	rec := env.request(t, http.MethodGet,
		"/api/v1/analysis/2024_05_R/delta?driver=HAM&lap=7&distance=500", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body deltaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Delta)
	assert.Empty(t, body.Curve)
	assert.InDelta(t, 0.25, body.Delta.DeltaSeconds, 1e-9)

	rec = env.request(t, http.MethodGet,
		"/api/v1/analysis/2024_05_R/delta?driver=HAM&lap=7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = deltaResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Delta)
	assert.Len(t, body.Curve, 20)
}

func TestServer_ReferenceLap(t *testing.T) {
	env := newTestEnv(t)
	spd := env.liveSession(t)
	spd.Processor.LoadLap("HAM", 7, flatSamples(20, 50, 250))

	rec := env.request(t, http.MethodPost,
		"/api/v1/analysis/2024_05_R/reference", testProviderToken,
		`{"driverId": "HAM", "lapNumber": 7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body referenceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Reference)
	assert.Equal(t, "HAM", body.Reference.DriverID)
	assert.Equal(t, 7, body.Reference.LapNumber)

	rec = env.request(t, http.MethodPost,
		"/api/v1/analysis/2024_05_R/reference", testProviderToken,
		`{"driverId": "RUS", "lapNumber": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodPost,
		"/api/v1/analysis/2024_05_R/reference", testProviderToken,
		`{"clear": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = referenceResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Reference)
}

func TestServer_LiveAnalysisStream(t *testing.T) {
	env := newTestEnv(t)
	env.liveSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/analysis/2024_05_R/live", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		env.handler.ServeHTTP(rec, req)
	}()
	cancel()
	<-done

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	// the initial event carries the current analysis state
	line, found := strings.CutPrefix(
		strings.Split(rec.Body.String(), "\n")[0], "data: ")
	require.True(t, found, rec.Body.String())
	var update utils.AnalysisUpdate
	require.NoError(t, json.Unmarshal([]byte(line), &update))
	assert.Equal(t, "2024_05_R", update.SessionID)
	assert.Equal(t, 1, update.LapCount)
}

func TestServer_IngestSession_Validation(t *testing.T) {
	env := newTestEnv(t)
	session := func(year, round int, sessionType string) string {
		return fmt.Sprintf(
			`{"year": %d, "roundNumber": %d, "sessionType": %q, "eventName": "Test GP"}`,
			year, round, sessionType)
	}
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "outdated client",
			body: `{"clientVersion": "v0.1.0", "session": ` + session(2024, 5, "R") + `}`,
			want: "unsupported client version",
		},
		{
			name: "missing session",
			body: `{"clientVersion": "v0.3.0"}`,
			want: "session required",
		},
		{
			name: "year out of range",
			body: `{"clientVersion": "v0.3.0", "session": ` + session(2031, 5, "R") + `}`,
			want: "year must be between 2018 and 2030",
		},
		{
			name: "round out of range",
			body: `{"clientVersion": "v0.3.0", "session": ` + session(2024, 31, "R") + `}`,
			want: "round number must be between 1 and 30",
		},
		{
			name: "unknown session type",
			body: `{"clientVersion": "v0.3.0", "session": ` + session(2024, 5, "XX") + `}`,
			want: "unknown session type",
		},
		{
			name: "invalid driver id",
			body: `{"clientVersion": "v0.3.0", "session": ` + session(2024, 5, "R") +
				`, "drivers": [{"id": "ver"}]}`,
			want: "driver id must be exactly 3 uppercase letters",
		},
		{
			name: "lap number out of range",
			body: `{"clientVersion": "v0.3.0", "session": ` + session(2024, 5, "R") +
				`, "laps": [{"driverId": "VER", "lapNumber": 200}]}`,
			want: "lap numbers must be between 1 and 199",
		},
		{
			name: "malformed body",
			body: `{"clientVersion": `,
			want: "invalid request body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPost,
				"/api/v1/ingest/session", testProviderToken, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestServer_IngestTelemetry_Validation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "outdated client",
			body: `{"clientVersion": "v0.2.9", "sessionId": "2024_05_R", "driverId": "VER", "lapNumber": 5}`,
			want: "unsupported client version",
		},
		{
			name: "invalid driver id",
			body: `{"clientVersion": "v0.3.0", "sessionId": "2024_05_R", "driverId": "verstappen", "lapNumber": 5}`,
			want: "driver id must be exactly 3 uppercase letters",
		},
		{
			name: "missing samples",
			body: `{"clientVersion": "v0.3.0", "sessionId": "2024_05_R", "driverId": "VER", "lapNumber": 5}`,
			want: "samples required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPost,
				"/api/v1/ingest/telemetry", testProviderToken, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestServer_IngestTrackStatus(t *testing.T) {
	env := newTestEnv(t)
	spd := env.liveSession(t)

	rec := env.request(t, http.MethodPost, "/api/v1/ingest/trackstatus",
		testProviderToken,
		`{"clientVersion": "v0.3.0", "sessionId": "2024_05_R", "status": "24"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Safety Car")
	assert.Equal(t, model.TrackSC, spd.Processor.TrackStatus())

	// unknown session
	rec = env.request(t, http.MethodPost, "/api/v1/ingest/trackstatus",
		testProviderToken,
		`{"clientVersion": "v0.3.0", "sessionId": "2024_09_R", "status": "1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/ingest/trackstatus",
		testProviderToken,
		`{"clientVersion": "v0.3.0", "sessionId": "2024_05_R", "status": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "status required")
}

func TestServer_IngestStatus_BadRequest(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet,
		"/api/v1/ingest/status/twentytwo/5/R", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodGet,
		"/api/v1/ingest/status/2024/5/XX", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RequestID(t *testing.T) {
	env := newTestEnv(t)
	handler := RequestID(env.handler)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	// a client supplied id is kept
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "my-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "my-id", rec.Header().Get("X-Request-Id"))
}
