package model

import "strings"

type TrackStatus string

const (
	TrackGreen     TrackStatus = "1"
	TrackYellow    TrackStatus = "2"
	TrackSC        TrackStatus = "4"
	TrackRed       TrackStatus = "5"
	TrackVSC       TrackStatus = "6"
	TrackVSCEnding TrackStatus = "7"
)

// ParseTrackStatus reduces a raw status string to a single status. The data
// source may deliver combined statuses like "14" (green + safety car), the
// highest priority status wins.
func ParseTrackStatus(raw string) TrackStatus {
	switch {
	case strings.Contains(raw, "5"):
		return TrackRed
	case strings.Contains(raw, "4"):
		return TrackSC
	case strings.Contains(raw, "6"):
		return TrackVSC
	case strings.Contains(raw, "7"):
		return TrackVSCEnding
	case strings.Contains(raw, "2"):
		return TrackYellow
	}
	return TrackGreen
}

func (t TrackStatus) DisplayName() string {
	switch t {
	case TrackGreen:
		return "Green Flag"
	case TrackYellow:
		return "Yellow Flag"
	case TrackSC:
		return "Safety Car"
	case TrackRed:
		return "Red Flag"
	case TrackVSC:
		return "Virtual Safety Car"
	case TrackVSCEnding:
		return "VSC Ending"
	}
	return "Unknown"
}

// AffectsLapTime reports whether laps under this status are compromised.
func (t TrackStatus) AffectsLapTime() bool {
	return t != TrackGreen
}
