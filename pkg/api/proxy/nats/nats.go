package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/proxy"
	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

type (
	NatsProxy struct {
		proxy.EmptyProxy
		ctx  context.Context
		conn *nats.Conn
		// holds the sessions processed by this instance
		localSessions map[string]*localDataProvider
		l             *log.Logger
		mutex         sync.Mutex
		kv            jetstream.KeyValue
		printMessage  bool
	}
	Option func(*NatsProxy)

	localDataProvider struct {
		spd          *utils.SessionProcessingData
		analysisChan <-chan *utils.AnalysisUpdate
	}

	// sessionSnapshot is the KV representation of a live session.
	//
	//nolint:tagliatelle // client compatibility
	sessionSnapshot struct {
		Session     *model.Session    `json:"session"`
		LapCount    int               `json:"lapCount"`
		TrackStatus model.TrackStatus `json:"trackStatus"`
	}
)

var _ proxy.SessionProxy = (*NatsProxy)(nil)

func NewNatsProxy(conn *nats.Conn, opts ...Option) (*NatsProxy, error) {
	ret := &NatsProxy{
		conn:          conn,
		ctx:           context.Background(),
		localSessions: make(map[string]*localDataProvider),
		l:             log.Default().Named("nats"),
		mutex:         sync.Mutex{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	if err := ret.setupKV(); err != nil {
		return nil, err
	}
	return ret, nil
}

func WithContext(ctx context.Context) Option {
	return func(n *NatsProxy) {
		n.ctx = ctx
	}
}

func WithLogger(l *log.Logger) Option {
	return func(n *NatsProxy) {
		n.l = l
	}
}

// WithPrintMessage enables logging of the published payloads on debug level.
func WithPrintMessage(arg bool) Option {
	return func(n *NatsProxy) {
		n.printMessage = arg
	}
}

func (n *NatsProxy) Close() {
	n.conn.Close()
}

// this method is called when the janitor evicts a stale session
//
//nolint:errcheck // by design
func (n *NatsProxy) DeleteSessionCallback(sessionID string) {
	n.PublishSessionUnregistered(sessionID)
}

// PublishSessionRegistered announces the session and forwards its analysis
// updates to the broker. The current snapshot is kept in the KV store so
// instances joining later can serve live data as well.
func (n *NatsProxy) PublishSessionRegistered(spd *utils.SessionProcessingData) error {
	data, _ := json.Marshal(spd.Session)
	n.mutex.Lock()
	defer n.mutex.Unlock()
	ldp := &localDataProvider{
		spd:          spd,
		analysisChan: spd.AnalysisBroadcast.Subscribe(),
	}
	n.localSessions[spd.Session.ID] = ldp
	go func() {
		pushSnapshot := func(upd *utils.AnalysisUpdate) {
			snap := &sessionSnapshot{
				Session:     spd.Session,
				LapCount:    upd.LapCount,
				TrackStatus: upd.TrackStatus,
			}
			snapData, mErr := json.Marshal(snap)
			if mErr != nil {
				n.l.Error("error marshaling session snapshot", log.ErrorField(mErr))
				return
			}
			rev, err := n.kv.Put(
				context.Background(),
				fmt.Sprintf("session.%s", spd.Session.ID),
				snapData)
			n.l.Debug("session snapshot put",
				log.String("key", fmt.Sprintf("session.%s", spd.Session.ID)),
				log.ErrorField(err), log.Uint64("rev", rev))
		}
		pushSnapshot(spd.CurrentAnalysis())
		for a := range ldp.analysisChan {
			sendData, mErr := json.Marshal(a)
			if mErr != nil {
				n.l.Error("error marshaling analysis update", log.ErrorField(mErr))
				continue
			}
			if n.printMessage {
				n.l.Debug("publishing analysis update",
					log.String("sessionId", spd.Session.ID),
					log.String("payload", string(sendData)))
			}
			//nolint:errcheck // by design
			n.conn.Publish(fmt.Sprintf("analysis.%s", spd.Session.ID), sendData)
			pushSnapshot(a)
		}
		n.l.Debug("analysis channel closed", log.String("sessionId", spd.Session.ID))
	}()
	return n.conn.Publish("session.registered", data)
}

//nolint:errcheck // by design
func (n *NatsProxy) PublishSessionUnregistered(sessionID string) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if ldp, ok := n.localSessions[sessionID]; ok {
		ldp.spd.AnalysisBroadcast.CancelSubscription(ldp.analysisChan)
		delete(n.localSessions, sessionID)
	}
	n.kv.Delete(context.Background(), fmt.Sprintf("session.%s", sessionID))
	return n.conn.Publish("session.unregistered", []byte(sessionID))
}

func (n *NatsProxy) setupKV() error {
	var js jetstream.JetStream
	var err error
	if js, err = jetstream.New(n.conn); err != nil {
		return err
	}
	n.kv, err = js.CreateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket: "fdsm-session",
		TTL:    time.Hour * 24,
	})
	return err
}
