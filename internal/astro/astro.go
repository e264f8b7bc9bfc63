// Package astro computes solar event times (dawn, sunrise, noon, sunset,
// dusk) from fixed coordinates, using the NOAA sunrise equation. It backs the
// "@sunrise"-style time expressions; no network lookups are involved.
package astro

import (
	"math"
	"sync"
	"time"
)

// Times contains the solar events for one day.
type Times struct {
	Dawn    time.Time
	Sunrise time.Time
	Noon    time.Time
	Sunset  time.Time
	Dusk    time.Time
}

// Calculator computes and caches per-day solar times for one location.
type Calculator struct {
	lat float64
	lon float64
	tz  *time.Location

	mu    sync.Mutex
	cache map[string]*Times // by date "2006-01-02"
}

// NewCalculator creates a calculator for the given coordinates. The timezone
// name is resolved with time.LoadLocation; unknown names fall back to UTC.
func NewCalculator(lat, lon float64, timezone string) *Calculator {
	tz, err := time.LoadLocation(timezone)
	if err != nil {
		tz = time.UTC
	}
	return &Calculator{
		lat:   lat,
		lon:   lon,
		tz:    tz,
		cache: make(map[string]*Times),
	}
}

// Timezone returns the calculator's resolved timezone.
func (c *Calculator) Timezone() *time.Location {
	return c.tz
}

// Day returns the solar times for the given date. In polar conditions where
// the sun never crosses an angle the corresponding events collapse towards
// solar noon; callers treat equal sunrise/sunset as "no event".
func (c *Calculator) Day(date time.Time) *Times {
	key := date.In(c.tz).Format("2006-01-02")

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache[key]; ok {
		return cached
	}

	// The NOAA equation expects the Julian day at noon, not midnight.
	jd := toJulianDay(date) + 0.5

	t := &Times{
		Noon:    c.solarNoon(jd, date),
		Sunrise: c.sunTime(jd, date, -0.833, true),
		Sunset:  c.sunTime(jd, date, -0.833, false),
		Dawn:    c.sunTime(jd, date, -6.0, true),  // civil dawn
		Dusk:    c.sunTime(jd, date, -6.0, false), // civil dusk
	}

	c.cache[key] = t
	return t
}

func toJulianDay(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
}

func (c *Calculator) solarNoon(jd float64, date time.Time) time.Time {
	n := jd - 2451545.0 + 0.0008
	jStar := n - c.lon/360.0

	m := math.Mod(357.5291+0.98560028*jStar, 360.0)
	mRad := m * math.Pi / 180.0

	center := 1.9148*math.Sin(mRad) + 0.02*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)
	lambda := math.Mod(m+center+180+102.9372, 360.0)
	lambdaRad := lambda * math.Pi / 180.0

	jTransit := 2451545.0 + jStar + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lambdaRad)
	return c.julianToTime(jTransit, date)
}

func (c *Calculator) sunTime(jd float64, date time.Time, angle float64, rising bool) time.Time {
	n := jd - 2451545.0 + 0.0008
	jStar := n - c.lon/360.0

	m := math.Mod(357.5291+0.98560028*jStar, 360.0)
	mRad := m * math.Pi / 180.0

	center := 1.9148*math.Sin(mRad) + 0.02*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)
	lambda := math.Mod(m+center+180+102.9372, 360.0)
	lambdaRad := lambda * math.Pi / 180.0

	jTransit := 2451545.0 + jStar + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lambdaRad)

	dec := math.Asin(math.Sin(lambdaRad) * math.Sin(23.44*math.Pi/180.0))

	latRad := c.lat * math.Pi / 180.0
	angleRad := angle * math.Pi / 180.0

	cosOmega := (math.Sin(angleRad) - math.Sin(latRad)*math.Sin(dec)) / (math.Cos(latRad) * math.Cos(dec))
	if cosOmega > 1 {
		cosOmega = 1
	} else if cosOmega < -1 {
		cosOmega = -1
	}

	omega := math.Acos(cosOmega) * 180.0 / math.Pi

	jTime := jTransit + omega/360.0
	if rising {
		jTime = jTransit - omega/360.0
	}
	return c.julianToTime(jTime, date)
}

func (c *Calculator) julianToTime(jd float64, refDate time.Time) time.Time {
	unixTime := (jd - 2440587.5) * 86400.0
	// Read the clock fields in the calculator's zone, not the machine's,
	// before re-anchoring onto the requested date.
	t := time.Unix(int64(unixTime), int64((unixTime-math.Floor(unixTime))*1e9)).In(c.tz)

	return time.Date(
		refDate.Year(), refDate.Month(), refDate.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, c.tz,
	)
}
