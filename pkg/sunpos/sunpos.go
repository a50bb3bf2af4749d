// Package sunpos computes the apparent position of the sun in horizontal
// coordinates from a civil date/time and a geographic location, using the
// Meeus astronomical algorithms.
package sunpos

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

// Location is a geographic observation point. Longitude is east-positive,
// Timezone is the civil UTC offset in hours.
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  float64
}

// DateTime is a civil date and time in the location's timezone. Hour,
// Minute, and Second may be fractional.
type DateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   float64
	Minute float64
	Second float64
}

// FromTime converts a time.Time (any zone) into a DateTime/Location timezone
// pair component, expressed in UTC.
func FromTime(t time.Time) DateTime {
	t = t.UTC()
	return DateTime{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   float64(t.Hour()),
		Minute: float64(t.Minute()),
		Second: float64(t.Second()) + float64(t.Nanosecond())/1e9,
	}
}

// UTC returns the instant the DateTime describes, shifted out of the
// location's timezone.
func (dt DateTime) UTC(loc Location) time.Time {
	t := time.Date(dt.Year, time.Month(dt.Month), dt.Day, 0, 0, 0, 0, time.UTC)
	seconds := (dt.Hour-loc.Timezone)*3600 + dt.Minute*60 + dt.Second
	return t.Add(time.Duration(seconds * float64(time.Second)))
}

// Coordinates returns the sun's elevation above the horizon and its compass
// azimuth (from north, toward east), both in radians. Elevation is negative
// when the sun is below the horizon.
func Coordinates(dt DateTime, loc Location) (elevation, azimuth float64) {
	jd := julian.TimeToJD(dt.UTC(loc))

	ra, dec := solar.ApparentEquatorial(jd)
	st := sidereal.Apparent(jd)

	// Meeus azimuth is measured westward from south; ψ is west-positive.
	A, h := coord.EqToHz(ra, dec,
		unit.AngleFromDeg(loc.Latitude),
		unit.AngleFromDeg(-loc.Longitude),
		st)

	azimuth = math.Mod(A.Rad()+math.Pi, 2*math.Pi)
	if azimuth < 0 {
		azimuth += 2 * math.Pi
	}
	return h.Rad(), azimuth
}
