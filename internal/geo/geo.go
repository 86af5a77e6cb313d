package geo

import (
	"errors"
	"math"

	"github.com/OCAP2/acmi/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Positions are stored as EPSG:3857 so SQLite, which has no spatial
// awareness, can still order and compare them. Geometry is written as WKB.

// ErrInvalidCoordinates is returned when a transform has no usable position
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

var to3857 = wgs84.EPSG().Transform(4326, 3857)

// Coords3857From4326 projects a longitude and latitude in degrees
func Coords3857From4326(longitude, latitude float64) (x, y float64, err error) {
	if math.IsNaN(longitude) || math.IsNaN(latitude) || math.Abs(latitude) > 90 || math.Abs(longitude) > 180 {
		return 0, 0, ErrInvalidCoordinates
	}
	x, y, _ = to3857(longitude, latitude, 0)
	return x, y, nil
}

// Point3857 converts decoded coordinates into an XYZ point in EPSG:3857.
// Longitude and latitude are required; a missing altitude becomes 0.
func Point3857(c *core.Coordinates) (geom.Point, error) {
	if c == nil || c.Longitude == nil || c.Latitude == nil {
		return geom.NewEmptyPoint(geom.DimXYZ), ErrInvalidCoordinates
	}
	x, y, err := Coords3857From4326(*c.Longitude, *c.Latitude)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), err
	}
	var z float64
	if c.Altitude != nil {
		z = *c.Altitude
	}
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Z:    z,
			Type: geom.DimXYZ,
		},
	), nil
}

// Absolute returns a copy of c with the recording's ReferenceLongitude and
// ReferenceLatitude added back to its longitude and latitude.
func Absolute(c *core.Coordinates, refLongitude, refLatitude float64) *core.Coordinates {
	if c == nil {
		return nil
	}
	out := *c
	if c.Longitude != nil {
		lon := *c.Longitude + refLongitude
		out.Longitude = &lon
	}
	if c.Latitude != nil {
		lat := *c.Latitude + refLatitude
		out.Latitude = &lat
	}
	return &out
}

// Track builds the 3857 path of one object from its snapshots in frame
// order. Components a snapshot leaves unset keep their previous value, and
// snapshots before the first full position are skipped. Fewer than two
// positions yield an empty line string.
func Track(snaps []core.ObjectSnapshot) geom.LineString {
	var (
		state *core.Coordinates
		flat  []float64
	)
	for _, s := range snaps {
		if s.Coordinates == nil {
			continue
		}
		state = state.Overlay(s.Coordinates)
		pt, err := Point3857(state)
		if err != nil {
			continue
		}
		xyz, ok := pt.Coordinates()
		if !ok {
			continue
		}
		flat = append(flat, xyz.X, xyz.Y, xyz.Z)
	}
	if len(flat) < 6 {
		return geom.LineString{}
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
}
