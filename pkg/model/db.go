package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Db* types mirror the database rows. They diverge from the domain types
// where the schema uses surrogate keys or joined columns.

//nolint:tagliatelle // client compatibility
type DbSession struct {
	ID          string    `json:"id"`
	Year        int       `json:"year"`
	RoundNumber int       `json:"roundNumber"`
	EventName   string    `json:"eventName"`
	SessionType string    `json:"sessionType"`
	TrackName   string    `json:"trackName"`
	Country     string    `json:"country"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	TotalLaps   int       `json:"totalLaps"`
}

//nolint:tagliatelle // client compatibility
type DbDriver struct {
	ID           uuid.UUID `json:"id"`
	Abbreviation string    `json:"abbreviation"`
	CarNumber    int       `json:"carNumber"`
	FullName     string    `json:"fullName"`
	TeamName     string    `json:"teamName"`
	TeamColor    string    `json:"teamColor"`
}

// DbLap carries the driver abbreviation resolved from the driver table.
//
//nolint:tagliatelle // client compatibility
type DbLap struct {
	SessionID   string   `json:"sessionId"`
	DriverID    string   `json:"driverId"`
	LapNumber   int      `json:"lapNumber"`
	LapTimeMs   *float64 `json:"lapTimeMs"`
	Sector1Ms   *float64 `json:"sector1Ms"`
	Sector2Ms   *float64 `json:"sector2Ms"`
	Sector3Ms   *float64 `json:"sector3Ms"`
	Compound    string   `json:"compound"`
	TyreLife    int      `json:"tyreLife"`
	Stint       int      `json:"stint"`
	IsPitOutLap bool     `json:"isPitOutLap"`
	IsPitInLap  bool     `json:"isPitInLap"`
	Deleted     bool     `json:"deleted"`
	SpeedTrapI1 *float64 `json:"speedTrapI1"`
	SpeedTrapI2 *float64 `json:"speedTrapI2"`
	SpeedTrapFL *float64 `json:"speedTrapFL"`
	SpeedTrapST *float64 `json:"speedTrapST"`
}

//nolint:tagliatelle // client compatibility
type DbTelemetry struct {
	ID        uuid.UUID            `json:"id"`
	SessionID string               `json:"sessionId"`
	DriverID  string               `json:"driverId"`
	LapNumber int                  `json:"lapNumber"`
	Samples   TelemetrySampleSlice `json:"samples"`
}

func (s *DbSession) ToSession() *Session {
	return &Session{
		ID:          s.ID,
		Year:        s.Year,
		RoundNumber: s.RoundNumber,
		EventName:   s.EventName,
		SessionType: SessionType(s.SessionType),
		TrackName:   s.TrackName,
		Country:     s.Country,
		Location:    s.Location,
		Date:        s.Date,
		TotalLaps:   s.TotalLaps,
	}
}

func (d *DbDriver) ToDriver() *Driver {
	return &Driver{
		ID:        d.Abbreviation,
		Number:    d.CarNumber,
		FullName:  d.FullName,
		TeamName:  d.TeamName,
		TeamColor: d.TeamColor,
	}
}

func (l *DbLap) ToLap() *Lap {
	return &Lap{
		SessionID:   l.SessionID,
		DriverID:    l.DriverID,
		LapNumber:   l.LapNumber,
		LapTimeMs:   l.LapTimeMs,
		Sector1Ms:   l.Sector1Ms,
		Sector2Ms:   l.Sector2Ms,
		Sector3Ms:   l.Sector3Ms,
		Compound:    TireCompound(l.Compound),
		TyreLife:    l.TyreLife,
		Stint:       l.Stint,
		IsPitOutLap: l.IsPitOutLap,
		IsPitInLap:  l.IsPitInLap,
		Deleted:     l.Deleted,
		SpeedTrapI1: l.SpeedTrapI1,
		SpeedTrapI2: l.SpeedTrapI2,
		SpeedTrapFL: l.SpeedTrapFL,
		SpeedTrapST: l.SpeedTrapST,
	}
}

// ToLapTelemetry converts the stored samples into the processing type.
func (t *DbTelemetry) ToLapTelemetry() *LapTelemetry {
	return &LapTelemetry{
		DriverID:  t.DriverID,
		LapNumber: t.LapNumber,
		Samples:   t.Samples,
	}
}
