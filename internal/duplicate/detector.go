package duplicate

import (
	"math"
	"time"

	"github.com/pontoflow/ponto-api/internal/models"
)

// Strategy selects how candidate punches are matched against history.
type Strategy string

const (
	StrategyTimeProximity  Strategy = "TIME_PROXIMITY"
	StrategyKindSequence   Strategy = "KIND_SEQUENCE"
	StrategyDeviceLocation Strategy = "DEVICE_LOCATION"
	StrategyHybrid         Strategy = "HYBRID"
)

// Valid returns true when the strategy is supported.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyTimeProximity, StrategyKindSequence, StrategyDeviceLocation, StrategyHybrid:
		return true
	default:
		return false
	}
}

// Type classifies a detected duplicate.
type Type string

const (
	TypeTimeProximity Type = "TIME_PROXIMITY"
	TypeKindSequence  Type = "KIND_SEQUENCE"
)

// Config holds the detection windows.
type Config struct {
	// MinInterval rejects any punch within this distance of an existing one,
	// regardless of kind.
	MinInterval time.Duration
	// KindWindow rejects a punch of the same kind within this distance.
	KindWindow time.Duration
	// DeviceWindow bounds how recent a different-employee event must be to
	// raise a device/location reuse warning.
	DeviceWindow time.Duration
	// LocationRadiusM is the geolocation distance treated as "same spot".
	LocationRadiusM float64
}

// DefaultConfig mirrors the shipped detection thresholds.
func DefaultConfig() Config {
	return Config{
		MinInterval:     60 * time.Second,
		KindWindow:      5 * time.Minute,
		DeviceWindow:    2 * time.Minute,
		LocationRadiusM: 30,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinInterval <= 0 {
		c.MinInterval = d.MinInterval
	}
	if c.KindWindow <= 0 {
		c.KindWindow = d.KindWindow
	}
	if c.DeviceWindow <= 0 {
		c.DeviceWindow = d.DeviceWindow
	}
	if c.LocationRadiusM <= 0 {
		c.LocationRadiusM = d.LocationRadiusM
	}
	return c
}

// Verdict is the outcome of duplicate detection.
type Verdict struct {
	IsDuplicate    bool     `json:"is_duplicate"`
	Type           Type     `json:"duplicate_type,omitempty"`
	MatchedEventID string   `json:"matched_event_id,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

// Detect decides whether the candidate punch is a forbidden duplicate. It is
// a pure function: the caller loads the day's history. Events of the
// candidate's employee feed the time and kind checks; events of other
// employees feed the device/location reuse check and are ignored otherwise.
// When several events match, the nearest in time determines the type.
func Detect(candidate models.TimeEvent, history []models.TimeEvent, cfg Config, strategy Strategy) Verdict {
	verdict := Verdict{}
	if !strategy.Valid() {
		verdict.Errors = append(verdict.Errors, "unsupported duplicate strategy: "+string(strategy))
		return verdict
	}
	if !candidate.Kind.Valid() {
		verdict.Errors = append(verdict.Errors, "invalid punch kind: "+string(candidate.Kind))
		return verdict
	}
	if candidate.OccurredAt.IsZero() {
		verdict.Errors = append(verdict.Errors, "occurrence timestamp required")
		return verdict
	}
	if len(history) == 0 {
		return verdict
	}

	var own, others []models.TimeEvent
	for _, event := range history {
		if event.EmployeeID == candidate.EmployeeID {
			own = append(own, event)
		} else {
			others = append(others, event)
		}
	}

	type hardMatch struct {
		event    models.TimeEvent
		kind     Type
		distance time.Duration
	}
	var best *hardMatch
	consider := func(event models.TimeEvent, kind Type) {
		distance := absDuration(candidate.OccurredAt.Sub(event.OccurredAt))
		if best == nil || distance < best.distance {
			best = &hardMatch{event: event, kind: kind, distance: distance}
		}
	}

	runTime := strategy == StrategyTimeProximity || strategy == StrategyHybrid
	runKind := strategy == StrategyKindSequence || strategy == StrategyHybrid
	runDevice := strategy == StrategyDeviceLocation || strategy == StrategyHybrid

	for _, event := range own {
		distance := absDuration(candidate.OccurredAt.Sub(event.OccurredAt))
		if runTime && distance < cfg.MinInterval {
			consider(event, TypeTimeProximity)
		}
		if runKind && event.Kind == candidate.Kind && distance < cfg.KindWindow {
			consider(event, TypeKindSequence)
		}
	}

	if runDevice {
		verdict.Warnings = append(verdict.Warnings, deviceLocationWarnings(candidate, others, cfg)...)
	}

	// Hard rejects always win over soft warnings.
	if best != nil {
		verdict.IsDuplicate = true
		verdict.Type = best.kind
		verdict.MatchedEventID = best.event.ID
	}
	return verdict
}

func deviceLocationWarnings(candidate models.TimeEvent, others []models.TimeEvent, cfg Config) []string {
	var warnings []string
	for _, event := range others {
		if absDuration(candidate.OccurredAt.Sub(event.OccurredAt)) >= cfg.DeviceWindow {
			continue
		}
		if candidate.DeviceID != nil && event.DeviceID != nil && *candidate.DeviceID == *event.DeviceID {
			warnings = append(warnings, "device "+*candidate.DeviceID+" recently used by another employee")
			continue
		}
		if nearby(candidate, event, cfg.LocationRadiusM) {
			warnings = append(warnings, "punch location matches a recent punch of another employee")
		}
	}
	return warnings
}

func nearby(a, b models.TimeEvent, radiusM float64) bool {
	if a.Latitude == nil || a.Longitude == nil || b.Latitude == nil || b.Longitude == nil {
		return false
	}
	return haversineMeters(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude) <= radiusM
}

const earthRadiusM = 6371000

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
