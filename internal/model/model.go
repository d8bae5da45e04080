package model

import "encoding/json"

// TrackPoint is a single position report for one tracked aircraft.
// Ident is the transponder hex code from the feed and may be empty;
// Lat and Lon are always finite once the parser has produced a point.
type TrackPoint struct {
	Ident string
	Lat   float32
	Lon   float32
}

// MarshalJSON encodes the point as the 2-tuple wire shape shared by the
// snapshot endpoint and the live push: ["<ident>",[<lat>,<lon>]].
func (p TrackPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Ident, [2]float32{p.Lat, p.Lon}})
}
