//nolint:whitespace,lll,funlen // readability
package normalize

import (
	"reflect"
	"testing"

	"github.com/f1plots/f1dash-service-manager-go/pkg/model"
)

func TestNormalize(t *testing.T) {
	type args struct {
		driverID  string
		lapNumber int
		samples   []model.TelemetrySample
	}
	tests := []struct {
		name string
		args args
		want []model.TelemetrySample
	}{
		{
			name: "already sorted",
			args: args{driverID: "VER", lapNumber: 1, samples: []model.TelemetrySample{
				{Distance: 0, Speed: 100},
				{Distance: 50, Speed: 150},
				{Distance: 100, Speed: 200},
			}},
			want: []model.TelemetrySample{
				{Distance: 0, Speed: 100},
				{Distance: 50, Speed: 150},
				{Distance: 100, Speed: 200},
			},
		},
		{
			name: "reverse order",
			args: args{driverID: "VER", lapNumber: 1, samples: []model.TelemetrySample{
				{Distance: 100, Speed: 200},
				{Distance: 50, Speed: 150},
				{Distance: 0, Speed: 100},
			}},
			want: []model.TelemetrySample{
				{Distance: 0, Speed: 100},
				{Distance: 50, Speed: 150},
				{Distance: 100, Speed: 200},
			},
		},
		{
			name: "equal distances keep input order",
			args: args{driverID: "HAM", lapNumber: 3, samples: []model.TelemetrySample{
				{Distance: 100, Speed: 200},
				{Distance: 50, Speed: 150},
				{Distance: 100, Speed: 210},
			}},
			want: []model.TelemetrySample{
				{Distance: 50, Speed: 150},
				{Distance: 100, Speed: 200},
				{Distance: 100, Speed: 210},
			},
		},
		{
			name: "empty input",
			args: args{driverID: "HAM", lapNumber: 1, samples: []model.TelemetrySample{}},
			want: []model.TelemetrySample{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.args.driverID, tt.args.lapNumber, tt.args.samples)
			if got.DriverID != tt.args.driverID || got.LapNumber != tt.args.lapNumber {
				t.Errorf("lap identity not correct: got %s-%d", got.DriverID, got.LapNumber)
			}
			if !reflect.DeepEqual(got.Samples, tt.want) {
				t.Errorf("Normalize() = %v, want %v", got.Samples, tt.want)
			}
		})
	}
}

func TestNormalize_InputUntouched(t *testing.T) {
	input := []model.TelemetrySample{
		{Distance: 100, Speed: 200},
		{Distance: 0, Speed: 100},
	}
	Normalize("VER", 1, input)
	want := []model.TelemetrySample{
		{Distance: 100, Speed: 200},
		{Distance: 0, Speed: 100},
	}
	if !reflect.DeepEqual(input, want) {
		t.Errorf("input slice was modified: %v", input)
	}
}
