package sunpos

import (
	"math"
	"testing"
	"time"
)

var tokyo = Location{Latitude: 35.6894, Longitude: 139.6917, Timezone: 9}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

func TestCoordinatesKnownPositions(t *testing.T) {
	tests := []struct {
		name           string
		dt             DateTime
		loc            Location
		elevationRange [2]float64 // degrees
		azimuthRange   [2]float64 // degrees, compass
	}{
		{
			// July afternoon in Tokyo: sun high, west-southwest.
			name:           "TokyoSummerAfternoon",
			dt:             DateTime{Year: 2010, Month: 7, Day: 10, Hour: 15},
			loc:            tokyo,
			elevationRange: [2]float64{35, 55},
			azimuthRange:   [2]float64{230, 290},
		},
		{
			// Equinox noon on the equator at the prime meridian: near zenith.
			name:           "EquatorEquinoxNoon",
			dt:             DateTime{Year: 2023, Month: 3, Day: 20, Hour: 12},
			loc:            Location{},
			elevationRange: [2]float64{80, 90},
			azimuthRange:   [2]float64{0, 360},
		},
		{
			// Winter noon at a northern latitude: low sun, due south.
			name:           "OsloWinterNoon",
			dt:             DateTime{Year: 2023, Month: 12, Day: 21, Hour: 12},
			loc:            Location{Latitude: 59.91, Longitude: 10.75, Timezone: 1},
			elevationRange: [2]float64{2, 12},
			azimuthRange:   [2]float64{150, 210},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elevation, azimuth := Coordinates(tt.dt, tt.loc)
			elDeg, azDeg := deg(elevation), deg(azimuth)

			if elDeg < tt.elevationRange[0] || elDeg > tt.elevationRange[1] {
				t.Errorf("elevation = %.2f deg, want in [%v, %v]",
					elDeg, tt.elevationRange[0], tt.elevationRange[1])
			}
			if azDeg < tt.azimuthRange[0] || azDeg > tt.azimuthRange[1] {
				t.Errorf("azimuth = %.2f deg, want in [%v, %v]",
					azDeg, tt.azimuthRange[0], tt.azimuthRange[1])
			}
		})
	}
}

func TestCoordinatesNightBelowHorizon(t *testing.T) {
	elevation, _ := Coordinates(DateTime{Year: 2010, Month: 7, Day: 10, Hour: 1}, tokyo)
	if elevation >= 0 {
		t.Errorf("elevation at 1am = %.2f deg, want below horizon", deg(elevation))
	}
}

func TestCoordinatesDailyArc(t *testing.T) {
	// Over a summer morning the sun climbs monotonically.
	prev := -math.Pi
	for hour := 6.0; hour <= 11; hour++ {
		elevation, _ := Coordinates(DateTime{Year: 2010, Month: 7, Day: 10, Hour: hour}, tokyo)
		if elevation <= prev {
			t.Fatalf("elevation not increasing at hour %v: %.2f after %.2f",
				hour, deg(elevation), deg(prev))
		}
		prev = elevation
	}
}

func TestCoordinatesAzimuthEastToWest(t *testing.T) {
	_, azMorning := Coordinates(DateTime{Year: 2010, Month: 7, Day: 10, Hour: 8}, tokyo)
	_, azEvening := Coordinates(DateTime{Year: 2010, Month: 7, Day: 10, Hour: 17}, tokyo)

	if !(deg(azMorning) > 45 && deg(azMorning) < 135) {
		t.Errorf("morning azimuth = %.2f deg, want eastward", deg(azMorning))
	}
	if !(deg(azEvening) > 225 && deg(azEvening) < 315) {
		t.Errorf("evening azimuth = %.2f deg, want westward", deg(azEvening))
	}
}

func TestUTCAppliesTimezone(t *testing.T) {
	dt := DateTime{Year: 2010, Month: 7, Day: 10, Hour: 15}
	utc := dt.UTC(tokyo)
	if got := utc.Hour(); got != 6 {
		t.Errorf("15:00 JST = %02d:00 UTC, want 06:00", got)
	}

	halfHour := DateTime{Year: 2023, Month: 1, Day: 1, Hour: 12, Minute: 30}
	india := Location{Timezone: 5.5}
	utc = halfHour.UTC(india)
	if utc.Hour() != 7 || utc.Minute() != 0 {
		t.Errorf("12:30 IST = %02d:%02d UTC, want 07:00", utc.Hour(), utc.Minute())
	}
}

func TestFromTime(t *testing.T) {
	dt := FromTime(time.Date(2024, 6, 1, 10, 15, 30, 0, time.UTC))
	if dt.Year != 2024 || dt.Month != 6 || dt.Day != 1 || dt.Hour != 10 {
		t.Errorf("FromTime = %+v, want 2024-06-01 10:15:30 UTC", dt)
	}
	if dt.Minute != 15 || dt.Second != 30 {
		t.Errorf("FromTime minutes/seconds = %v/%v, want 15/30", dt.Minute, dt.Second)
	}
}
