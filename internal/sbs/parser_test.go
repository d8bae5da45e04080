package sbs

import (
	"testing"

	"github.com/curbz/skyscope/internal/model"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want model.TrackPoint
		ok   bool
	}{
		{
			name: "full MSG,3 record",
			line: "MSG,3,111,11111,AA0001,111111,2024/01/01,00:00:00.000,2024/01/01,00:00:00.000,,37000,,,51.5,-0.12,,,,,,0",
			want: model.TrackPoint{Ident: "AA0001", Lat: 51.5, Lon: -0.12},
			ok:   true,
		},
		{
			name: "minimal record with trailing coordinates",
			line: ",,,,X1,,,,,,,,,,1.0,2.0",
			want: model.TrackPoint{Ident: "X1", Lat: 1, Lon: 2},
			ok:   true,
		},
		{
			name: "empty ident is a valid value",
			line: ",,,,,,,,,,,,,,51.5,-0.12",
			want: model.TrackPoint{Ident: "", Lat: 51.5, Lon: -0.12},
			ok:   true,
		},
		{
			name: "extra fields ignored",
			line: ",,,,X1,,,,,,,,,,51.5,-0.12,extra,more,junk",
			want: model.TrackPoint{Ident: "X1", Lat: 51.5, Lon: -0.12},
			ok:   true,
		},
		{name: "non-numeric latitude", line: ",,,,X1,,,,,,,,,,abc,-0.5"},
		{name: "non-numeric longitude", line: ",,,,X1,,,,,,,,,,51.5,xyz"},
		{name: "empty latitude field", line: ",,,,X1,,,,,,,,,,,-0.5"},
		{name: "missing longitude field", line: ",,,,X1,,,,,,,,,,51.5"},
		{name: "short record", line: "MSG,1,111,11111,AA0001"},
		{name: "empty line", line: ""},
		{name: "NaN latitude rejected", line: ",,,,X1,,,,,,,,,,NaN,-0.5"},
		{name: "infinite longitude rejected", line: ",,,,X1,,,,,,,,,,51.5,+Inf"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseLine(tc.line)
			if ok != tc.ok {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			}
			if !tc.ok {
				if got != (model.TrackPoint{}) {
					t.Fatalf("rejected line produced non-zero point %+v", got)
				}
				return
			}
			if got != tc.want {
				t.Fatalf("ParseLine(%q)\nwant: %+v\ngot:  %+v", tc.line, tc.want, got)
			}
		})
	}
}
