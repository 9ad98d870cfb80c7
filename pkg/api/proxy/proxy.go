package proxy

import (
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

type (
	// SessionProxy distributes session lifecycle and analysis updates to
	// interested parties outside this process.
	SessionProxy interface {
		// handles the registration of a new session
		PublishSessionRegistered(spd *utils.SessionProcessingData) error
		// handles the unregistration of a session
		PublishSessionUnregistered(sessionID string) error
		// called when a stale session is evicted
		DeleteSessionCallback(sessionID string)
		// performs cleanup
		Close()
	}

	// EmptyProxy is used when no message broker is configured. All updates
	// stay within this process.
	EmptyProxy struct{}
)

func (e EmptyProxy) PublishSessionRegistered(spd *utils.SessionProcessingData) error {
	return nil
}

func (e EmptyProxy) PublishSessionUnregistered(sessionID string) error {
	return nil
}

func (e EmptyProxy) DeleteSessionCallback(sessionID string) {
}

func (e EmptyProxy) Close() {
}
