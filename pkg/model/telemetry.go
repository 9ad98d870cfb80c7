package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TelemetrySample is a single telemetry point of a lap. Samples are recorded
// at irregular intervals, the distance from the start line is the primary
// ordering key. TimeOffsetMs, X, Y and Z may be absent depending on the data
// source.
//
//nolint:tagliatelle // client compatibility
type TelemetrySample struct {
	Distance     float64  `json:"distance"`     // meters from start line
	TimeOffsetMs *float64 `json:"timeOffsetMs"` // ms since lap start
	Speed        float64  `json:"speed"`        // km/h
	Throttle     float64  `json:"throttle"`     // 0-100
	Brake        bool     `json:"brake"`
	Rpm          int      `json:"rpm"`
	Gear         int      `json:"gear"` // 0-8
	Drs          int      `json:"drs"`  // raw code, >0 means active
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Z            *float64 `json:"z,omitempty"`
}

// DrsOpen reports whether DRS is active for this sample.
func (s *TelemetrySample) DrsOpen() bool {
	return s.Drs > 0
}

// HasPosition reports whether the sample carries track coordinates.
func (s *TelemetrySample) HasPosition() bool {
	return s.X != nil && s.Y != nil
}

// TelemetrySampleSlice maps the jsonb samples column of the telemetry table.
type TelemetrySampleSlice []TelemetrySample

func (h *TelemetrySampleSlice) Scan(value any) error {
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("value is not []byte")
	}

	return json.Unmarshal(bytes, &h)
}

func (h TelemetrySampleSlice) Value() (driver.Value, error) {
	return json.Marshal(h)
}

// LapKey identifies a lap within a session.
type LapKey string

func NewLapKey(driverID string, lapNumber int) LapKey {
	return LapKey(fmt.Sprintf("%s-%d", driverID, lapNumber))
}

// LapTelemetry holds the normalized telemetry samples of one lap. After
// normalization Samples[i].Distance <= Samples[i+1].Distance holds for all i.
// Duplicate distances are permitted and not collapsed.
//
//nolint:tagliatelle // client compatibility
type LapTelemetry struct {
	DriverID  string            `json:"driverId"`
	LapNumber int               `json:"lapNumber"`
	Samples   []TelemetrySample `json:"samples"`
}

func (l *LapTelemetry) Key() LapKey {
	return NewLapKey(l.DriverID, l.LapNumber)
}

// MaxSpeed returns the highest speed of the lap (0 if there are no samples).
func (l *LapTelemetry) MaxSpeed() float64 {
	ret := 0.0
	for i := range l.Samples {
		if l.Samples[i].Speed > ret {
			ret = l.Samples[i].Speed
		}
	}
	return ret
}

// TrackLength returns the distance of the last sample (0 if there are no
// samples).
func (l *LapTelemetry) TrackLength() float64 {
	if len(l.Samples) == 0 {
		return 0
	}
	return l.Samples[len(l.Samples)-1].Distance
}
