// Package sbs parses BaseStation (SBS-1) socket output, the comma separated
// text emitted by dump1090 and friends on TCP port 30003. Records are
// flexible: short lines simply lack the trailing fields, and only MSG
// subtypes carrying a position fill in the latitude/longitude columns.
package sbs

import (
	"math"
	"strconv"
	"strings"

	"github.com/curbz/skyscope/internal/model"
)

// 0-indexed field offsets in an SBS-1 record.
const (
	fieldIdent = 4
	fieldLat   = 14
	fieldLon   = 15
)

// ParseLine extracts a TrackPoint from one feed line. The boolean is false
// when the line carries no usable position: the coordinate fields are absent
// or do not parse as finite numbers. Malformed input is an expected case,
// not an error, and the function never panics on it.
func ParseLine(line string) (model.TrackPoint, bool) {
	fields := strings.Split(line, ",")

	lat, ok := parseCoord(fields, fieldLat)
	if !ok {
		return model.TrackPoint{}, false
	}
	lon, ok := parseCoord(fields, fieldLon)
	if !ok {
		return model.TrackPoint{}, false
	}

	var ident string
	if len(fields) > fieldIdent {
		ident = fields[fieldIdent]
	}

	return model.TrackPoint{Ident: ident, Lat: lat, Lon: lon}, true
}

func parseCoord(fields []string, idx int) (float32, bool) {
	if len(fields) <= idx {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[idx], 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return float32(v), true
}
