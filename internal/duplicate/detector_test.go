package duplicate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pontoflow/ponto-api/internal/models"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func punch(id, employeeID string, kind models.PunchKind, at time.Time) models.TimeEvent {
	return models.TimeEvent{
		ID:         id,
		CompanyID:  "company-1",
		EmployeeID: employeeID,
		Kind:       kind,
		OccurredAt: at,
	}
}

func TestDetectEmptyHistoryNeverDuplicate(t *testing.T) {
	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour))

	verdict := Detect(candidate, nil, DefaultConfig(), StrategyHybrid)
	require.False(t, verdict.IsDuplicate)
	require.Empty(t, verdict.Warnings)
	require.Empty(t, verdict.Errors)
}

func TestDetectTimeProximity(t *testing.T) {
	history := []models.TimeEvent{
		punch("e1", "employee-1", models.PunchEntry, day.Add(8*time.Hour)),
	}
	candidate := punch("c", "employee-1", models.PunchExit, day.Add(8*time.Hour+30*time.Second))

	verdict := Detect(candidate, history, DefaultConfig(), StrategyTimeProximity)
	require.True(t, verdict.IsDuplicate)
	require.Equal(t, TypeTimeProximity, verdict.Type)
	require.Equal(t, "e1", verdict.MatchedEventID)
}

func TestDetectTimeProximityIdempotent(t *testing.T) {
	history := []models.TimeEvent{
		punch("e1", "employee-1", models.PunchEntry, day.Add(8*time.Hour)),
	}
	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour+30*time.Second))

	first := Detect(candidate, history, DefaultConfig(), StrategyHybrid)
	second := Detect(candidate, history, DefaultConfig(), StrategyHybrid)
	require.Equal(t, first, second)
	require.True(t, second.IsDuplicate)
}

func TestDetectKindSequence(t *testing.T) {
	history := []models.TimeEvent{
		punch("e1", "employee-1", models.PunchEntry, day.Add(8*time.Hour)),
	}
	// Outside the 60s interval but inside the 5m same-kind window.
	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour+3*time.Minute))

	verdict := Detect(candidate, history, DefaultConfig(), StrategyKindSequence)
	require.True(t, verdict.IsDuplicate)
	require.Equal(t, TypeKindSequence, verdict.Type)

	// A different kind in the same window is fine for this strategy.
	candidate.Kind = models.PunchBreakStart
	verdict = Detect(candidate, history, DefaultConfig(), StrategyKindSequence)
	require.False(t, verdict.IsDuplicate)
}

func TestDetectNearestMatchDecidesType(t *testing.T) {
	history := []models.TimeEvent{
		punch("far-same-kind", "employee-1", models.PunchEntry, day.Add(8*time.Hour)),
		punch("near-other-kind", "employee-1", models.PunchExit, day.Add(8*time.Hour+2*time.Minute+30*time.Second)),
	}
	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour+3*time.Minute))

	verdict := Detect(candidate, history, DefaultConfig(), StrategyHybrid)
	require.True(t, verdict.IsDuplicate)
	require.Equal(t, TypeTimeProximity, verdict.Type)
	require.Equal(t, "near-other-kind", verdict.MatchedEventID)
}

func TestDetectDeviceReuseWarnsWithoutRejecting(t *testing.T) {
	device := "terminal-01"
	other := punch("o1", "employee-2", models.PunchEntry, day.Add(8*time.Hour))
	other.DeviceID = &device

	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour+time.Minute))
	candidate.DeviceID = &device

	verdict := Detect(candidate, []models.TimeEvent{other}, DefaultConfig(), StrategyHybrid)
	require.False(t, verdict.IsDuplicate)
	require.Len(t, verdict.Warnings, 1)
	require.Contains(t, verdict.Warnings[0], "terminal-01")
}

func TestDetectLocationReuseWarns(t *testing.T) {
	lat, lng := -23.55052, -46.633308
	other := punch("o1", "employee-2", models.PunchEntry, day.Add(8*time.Hour))
	other.Latitude, other.Longitude = &lat, &lng

	// ~11m away.
	candLat, candLng := -23.55062, -46.633308
	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour+time.Minute))
	candidate.Latitude, candidate.Longitude = &candLat, &candLng

	verdict := Detect(candidate, []models.TimeEvent{other}, DefaultConfig(), StrategyDeviceLocation)
	require.False(t, verdict.IsDuplicate)
	require.Len(t, verdict.Warnings, 1)
}

func TestDetectHybridHardRejectWinsOverWarning(t *testing.T) {
	device := "terminal-01"
	own := punch("e1", "employee-1", models.PunchEntry, day.Add(8*time.Hour))
	other := punch("o1", "employee-2", models.PunchEntry, day.Add(8*time.Hour))
	other.DeviceID = &device

	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour+30*time.Second))
	candidate.DeviceID = &device

	verdict := Detect(candidate, []models.TimeEvent{own, other}, DefaultConfig(), StrategyHybrid)
	require.True(t, verdict.IsDuplicate)
	require.Equal(t, TypeTimeProximity, verdict.Type)
	require.NotEmpty(t, verdict.Warnings)
}

func TestDetectOtherEmployeesDoNotTriggerHardDuplicate(t *testing.T) {
	history := []models.TimeEvent{
		punch("o1", "employee-2", models.PunchEntry, day.Add(8*time.Hour)),
	}
	candidate := punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour+10*time.Second))

	verdict := Detect(candidate, history, DefaultConfig(), StrategyHybrid)
	require.False(t, verdict.IsDuplicate)
}

func TestDetectInvalidInputs(t *testing.T) {
	candidate := punch("c", "employee-1", models.PunchKind("NAP"), day.Add(8*time.Hour))
	verdict := Detect(candidate, nil, DefaultConfig(), StrategyHybrid)
	require.False(t, verdict.IsDuplicate)
	require.NotEmpty(t, verdict.Errors)

	candidate = punch("c", "employee-1", models.PunchEntry, day.Add(8*time.Hour))
	verdict = Detect(candidate, nil, DefaultConfig(), Strategy("GUESS"))
	require.NotEmpty(t, verdict.Errors)

	candidate.OccurredAt = time.Time{}
	verdict = Detect(candidate, nil, DefaultConfig(), StrategyHybrid)
	require.NotEmpty(t, verdict.Errors)
}
