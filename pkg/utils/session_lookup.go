package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing"
	"github.com/f1plots/f1dash-service-manager-go/pkg/processing/corners"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils/broadcast"
)

var ErrSessionNotFound = errors.New("session not found")

// AnalysisUpdate is pushed to subscribers whenever the processing state of
// a session changed (new lap loaded, reference changed, track status).
//
//nolint:tagliatelle // client compatibility
type AnalysisUpdate struct {
	SessionID   string            `json:"sessionId"`
	LapCount    int               `json:"lapCount"`
	TrackStatus model.TrackStatus `json:"trackStatus"`
	Corners     []corners.Marker  `json:"corners"`
}

type SessionProcessingData struct {
	Session           *model.Session
	Processor         *processing.Processor
	AnalysisBroadcast broadcast.BroadcastServer[*AnalysisUpdate]
	analysisSource    chan *AnalysisUpdate
	lastUsed          time.Time
}

// CurrentAnalysis captures the processing state of the session.
func (s *SessionProcessingData) CurrentAnalysis() *AnalysisUpdate {
	return &AnalysisUpdate{
		SessionID:   s.Session.ID,
		LapCount:    s.Processor.LapCount(),
		TrackStatus: s.Processor.TrackStatus(),
		Corners:     s.Processor.Corners(),
	}
}

// PublishAnalysis pushes the current processing state to the broadcast
// server. The message is dropped when the fan-out loop is not ready.
func (s *SessionProcessingData) PublishAnalysis() {
	select {
	case s.analysisSource <- s.CurrentAnalysis():
	default:
	}
}

type (
	SessionLookupOption func(*SessionLookup)
	SessionLookup       struct {
		mu            sync.RWMutex
		lookup        map[string]*SessionProcessingData
		staleDuration time.Duration
	}
)

// WithStaleDuration sets the duration after which an unused session
// is considered stale and may be evicted by RemoveStale.
func WithStaleDuration(d time.Duration) SessionLookupOption {
	return func(l *SessionLookup) {
		l.staleDuration = d
	}
}

func NewSessionLookup(opts ...SessionLookupOption) *SessionLookup {
	ret := &SessionLookup{
		lookup:        make(map[string]*SessionProcessingData),
		staleDuration: 1 * time.Hour,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (l *SessionLookup) AddSession(session *model.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.lookup[session.ID]; ok {
		return
	}
	source := make(chan *AnalysisUpdate)
	spd := &SessionProcessingData{
		Session:           session,
		Processor:         processing.NewProcessor(),
		AnalysisBroadcast: broadcast.NewBroadcastServer(session.ID, "analysis", source),
		analysisSource:    source,
		lastUsed:          time.Now(),
	}
	l.lookup[session.ID] = spd
}

func (l *SessionLookup) GetSession(id string) (*SessionProcessingData, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ret, ok := l.lookup[id]; ok {
		ret.lastUsed = time.Now()
		return ret, nil
	}
	return nil, ErrSessionNotFound
}

func (l *SessionLookup) RemoveSession(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if spd, ok := l.lookup[id]; ok {
		spd.AnalysisBroadcast.Close()
	}
	delete(l.lookup, id)
}

func (l *SessionLookup) GetSessions() []*model.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ret := make([]*model.Session, 0, len(l.lookup))
	for _, v := range l.lookup {
		ret = append(ret, v.Session)
	}
	return ret
}

// RemoveStale evicts sessions not used for longer than the configured
// stale duration and returns the ids of the evicted sessions.
func (l *SessionLookup) RemoveStale() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ret := []string{}
	deadline := time.Now().Add(-l.staleDuration)
	for k, v := range l.lookup {
		if v.lastUsed.Before(deadline) {
			ret = append(ret, k)
			v.AnalysisBroadcast.Close()
			delete(l.lookup, k)
		}
	}
	return ret
}

func (l *SessionLookup) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range l.lookup {
		v.AnalysisBroadcast.Close()
	}
	l.lookup = make(map[string]*SessionProcessingData)
}
