package model

import (
	"fmt"
	"math"
)

// Lap holds the timing data of one lap. Times are kept in milliseconds, a
// nil value means the time was not recorded.
//
//nolint:tagliatelle // client compatibility
type Lap struct {
	SessionID   string       `json:"sessionId"`
	DriverID    string       `json:"driverId"`
	LapNumber   int          `json:"lapNumber"`
	LapTimeMs   *float64     `json:"lapTimeMs"`
	Sector1Ms   *float64     `json:"sector1Ms"`
	Sector2Ms   *float64     `json:"sector2Ms"`
	Sector3Ms   *float64     `json:"sector3Ms"`
	Compound    TireCompound `json:"compound"`
	TyreLife    int          `json:"tyreLife"` // laps on this tire set
	Stint       int          `json:"stint"`
	IsPitOutLap bool         `json:"isPitOutLap"`
	IsPitInLap  bool         `json:"isPitInLap"`
	Deleted     bool         `json:"deleted"` // lap time deleted (track limits)
	SpeedTrapI1 *float64     `json:"speedTrapI1"`
	SpeedTrapI2 *float64     `json:"speedTrapI2"`
	SpeedTrapFL *float64     `json:"speedTrapFL"`
	SpeedTrapST *float64     `json:"speedTrapST"`
}

// IsValidForAnalysis reports whether the lap is usable for pace analysis.
// Pit in/out laps and deleted laps distort the picture and are excluded.
func (l *Lap) IsValidForAnalysis() bool {
	return l.LapTimeMs != nil && !l.Deleted && !l.IsPitOutLap && !l.IsPitInLap
}

func (l *Lap) LapTimeSeconds() float64 {
	if l.LapTimeMs == nil {
		return 0
	}
	return *l.LapTimeMs / 1000.0
}

// FormatLapTime renders a lap time in milliseconds as M:SS.mmm.
func FormatLapTime(ms float64) string {
	if ms <= 0 {
		return ""
	}
	total := int(math.Round(ms))
	minutes := total / 60000
	seconds := (total % 60000) / 1000
	millis := total % 1000
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis)
}
