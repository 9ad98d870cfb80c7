package model

import (
	"fmt"
	"time"
)

type SessionType string

const (
	SessionRace           SessionType = "R"
	SessionQualifying     SessionType = "Q"
	SessionSprint         SessionType = "S"
	SessionSprintShootout SessionType = "SS"
	SessionPractice1      SessionType = "FP1"
	SessionPractice2      SessionType = "FP2"
	SessionPractice3      SessionType = "FP3"
)

//nolint:gocritic // switch is fine here
func (s SessionType) DisplayName() string {
	switch s {
	case SessionRace:
		return "Race"
	case SessionQualifying:
		return "Qualifying"
	case SessionSprint:
		return "Sprint"
	case SessionSprintShootout:
		return "Sprint Shootout"
	case SessionPractice1:
		return "Practice 1"
	case SessionPractice2:
		return "Practice 2"
	case SessionPractice3:
		return "Practice 3"
	}
	return string(s)
}

func (s SessionType) IsSprint() bool {
	return s == SessionSprint || s == SessionSprintShootout
}

// ParseSessionType maps common session names to their short type.
func ParseSessionType(arg string) (SessionType, error) {
	switch arg {
	case "R", "Race":
		return SessionRace, nil
	case "Q", "Qualifying":
		return SessionQualifying, nil
	case "S", "Sprint":
		return SessionSprint, nil
	case "SS", "SQ", "Sprint Shootout", "Sprint Qualifying":
		return SessionSprintShootout, nil
	case "FP1", "Practice 1":
		return SessionPractice1, nil
	case "FP2", "Practice 2":
		return SessionPractice2, nil
	case "FP3", "Practice 3":
		return SessionPractice3, nil
	}
	return "", fmt.Errorf("unknown session type %s", arg)
}

// SessionID composes the canonical session identifier.
func SessionID(year, roundNumber int, sessionType SessionType) string {
	return fmt.Sprintf("%d_%02d_%s", year, roundNumber, sessionType)
}

// Session describes one session of a race weekend.
//
//nolint:tagliatelle // client compatibility
type Session struct {
	ID          string      `json:"id"` // <year>_<round>_<type>
	Year        int         `json:"year"`
	RoundNumber int         `json:"roundNumber"`
	EventName   string      `json:"eventName"`
	SessionType SessionType `json:"sessionType"`
	TrackName   string      `json:"trackName"`
	Country     string      `json:"country"`
	Location    string      `json:"location"`
	Date        time.Time   `json:"date"`
	TotalLaps   int         `json:"totalLaps"`
}

func (s *Session) DisplayName() string {
	return fmt.Sprintf("%d %s - %s", s.Year, s.EventName, s.SessionType.DisplayName())
}

// Event summarizes a race weekend with the session types stored for it.
//
//nolint:tagliatelle // client compatibility
type Event struct {
	RoundNumber  int           `json:"roundNumber"`
	EventName    string        `json:"eventName"`
	Country      string        `json:"country"`
	Location     string        `json:"location"`
	TrackName    string        `json:"trackName"`
	SessionTypes []SessionType `json:"sessionTypes"`
}

// Driver describes a participant of a session.
//
//nolint:tagliatelle // client compatibility
type Driver struct {
	ID        string `json:"id"` // abbreviation, e.g. "VER"
	Number    int    `json:"number"`
	FullName  string `json:"fullName"`
	TeamName  string `json:"teamName"`
	TeamColor string `json:"teamColor"`
}
