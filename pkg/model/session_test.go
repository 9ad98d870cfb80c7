package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSessionType(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    SessionType
		wantErr bool
	}{
		{name: "race code", arg: "R", want: SessionRace},
		{name: "race display name", arg: "Race", want: SessionRace},
		{name: "qualifying", arg: "Qualifying", want: SessionQualifying},
		{name: "sprint", arg: "S", want: SessionSprint},
		{name: "sprint shootout", arg: "Sprint Shootout", want: SessionSprintShootout},
		{name: "sprint qualifying alias", arg: "SQ", want: SessionSprintShootout},
		{name: "practice", arg: "FP2", want: SessionPractice2},
		{name: "unknown", arg: "Warmup", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSessionType(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "2024_05_R", SessionID(2024, 5, SessionRace))
	assert.Equal(t, "2023_22_FP1", SessionID(2023, 22, SessionPractice1))
}

func TestParseTrackStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TrackStatus
	}{
		{name: "green", raw: "1", want: TrackGreen},
		{name: "yellow", raw: "2", want: TrackYellow},
		{name: "safety car", raw: "4", want: TrackSC},
		{name: "red", raw: "5", want: TrackRed},
		{name: "vsc", raw: "6", want: TrackVSC},
		{name: "sc wins over yellow", raw: "24", want: TrackSC},
		{name: "red wins over all", raw: "1245", want: TrackRed},
		{name: "vsc ending", raw: "17", want: TrackVSCEnding},
		{name: "empty", raw: "", want: TrackGreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTrackStatus(tt.raw))
		})
	}
}
