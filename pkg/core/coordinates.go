// pkg/core/coordinates.go
package core

import "strings"

// CoordinateSystem is a set of flags describing what a transform carries.
type CoordinateSystem uint8

const (
	CoordSimple CoordinateSystem = 1 << iota
	CoordComplex
	CoordSpherical
	CoordFlat
)

// DefaultCoordinateSystem applies when a transform has no valid arity.
const DefaultCoordinateSystem = CoordSimple | CoordSpherical

// Has reports whether every flag in f is set.
func (c CoordinateSystem) Has(f CoordinateSystem) bool {
	return c&f == f
}

// String renders the flags joined by '+', e.g. "simple+spherical".
func (c CoordinateSystem) String() string {
	var parts []string
	if c.Has(CoordSimple) {
		parts = append(parts, "simple")
	}
	if c.Has(CoordComplex) {
		parts = append(parts, "complex")
	}
	if c.Has(CoordSpherical) {
		parts = append(parts, "spherical")
	}
	if c.Has(CoordFlat) {
		parts = append(parts, "flat")
	}
	return strings.Join(parts, "+")
}

// ParseCoordinateSystem is the inverse of String. Unknown names are ignored.
func ParseCoordinateSystem(s string) CoordinateSystem {
	var c CoordinateSystem
	for _, part := range strings.Split(s, "+") {
		switch part {
		case "simple":
			c |= CoordSimple
		case "complex":
			c |= CoordComplex
		case "spherical":
			c |= CoordSpherical
		case "flat":
			c |= CoordFlat
		}
	}
	return c
}

// Coordinates is a decoded T= transform. Which fields are set depends on
// the number of components in the source transform (3, 5, 6 or 9).
type Coordinates struct {
	ObjectID  uint64
	System    CoordinateSystem
	Longitude *float64 // deg
	Latitude  *float64 // deg
	Altitude  *float64 // m
	Roll      *float64 // deg
	Pitch     *float64 // deg
	Yaw       *float64 // deg
	U         *float64 // m, flat world
	V         *float64 // m, flat world
	Heading   *float64 // deg
}

// IsEmpty reports whether no positional field is populated.
func (c *Coordinates) IsEmpty() bool {
	return c.Longitude == nil && c.Latitude == nil && c.Altitude == nil &&
		c.Roll == nil && c.Pitch == nil && c.Yaw == nil &&
		c.U == nil && c.V == nil && c.Heading == nil
}

// Overlay returns a copy of c with every populated field of next applied on
// top. Nil fields of next leave the value of c unchanged.
func (c *Coordinates) Overlay(next *Coordinates) *Coordinates {
	if c == nil {
		if next == nil {
			return nil
		}
		cp := *next
		return &cp
	}
	out := *c
	if next == nil {
		return &out
	}
	out.System = next.System
	pick := func(dst **float64, src *float64) {
		if src != nil {
			*dst = src
		}
	}
	pick(&out.Longitude, next.Longitude)
	pick(&out.Latitude, next.Latitude)
	pick(&out.Altitude, next.Altitude)
	pick(&out.Roll, next.Roll)
	pick(&out.Pitch, next.Pitch)
	pick(&out.Yaw, next.Yaw)
	pick(&out.U, next.U)
	pick(&out.V, next.V)
	pick(&out.Heading, next.Heading)
	return &out
}
