package integrity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pontoflow/ponto-api/internal/models"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

func fingerprintEvent() models.TimeEvent {
	lat := -23.55052
	lng := -46.633308
	device := "terminal-01"
	return models.TimeEvent{
		ID:          "evt-1",
		CompanyID:   "company-1",
		EmployeeID:  "employee-1",
		Kind:        models.PunchEntry,
		OccurredAt:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		CommittedAt: time.Date(2025, 3, 10, 8, 0, 2, 0, time.UTC),
		Latitude:    &lat,
		Longitude:   &lng,
		DeviceID:    &device,
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	event := fingerprintEvent()

	first, err := Fingerprint(event)
	require.NoError(t, err)
	second, err := Fingerprint(event)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestFingerprintSensitivity(t *testing.T) {
	base := fingerprintEvent()
	baseFP, err := Fingerprint(base)
	require.NoError(t, err)

	mutations := map[string]func(*models.TimeEvent){
		"kind":        func(e *models.TimeEvent) { e.Kind = models.PunchExit },
		"occurred_at": func(e *models.TimeEvent) { e.OccurredAt = e.OccurredAt.Add(time.Second) },
		"employee":    func(e *models.TimeEvent) { e.EmployeeID = "employee-2" },
		"company":     func(e *models.TimeEvent) { e.CompanyID = "company-2" },
		"latitude":    func(e *models.TimeEvent) { v := *e.Latitude + 0.0001; e.Latitude = &v },
		"device":      func(e *models.TimeEvent) { v := "terminal-02"; e.DeviceID = &v },
		"committed":   func(e *models.TimeEvent) { e.CommittedAt = e.CommittedAt.Add(time.Second) },
	}
	for name, mutate := range mutations {
		event := fingerprintEvent()
		mutate(&event)
		fp, err := Fingerprint(event)
		require.NoError(t, err, name)
		require.NotEqual(t, baseFP, fp, "field %s did not affect fingerprint", name)
	}
}

func TestFingerprintNilOptionalDiffersFromEmpty(t *testing.T) {
	withDevice := fingerprintEvent()
	withoutDevice := fingerprintEvent()
	withoutDevice.DeviceID = nil

	first, err := Fingerprint(withDevice)
	require.NoError(t, err)
	second, err := Fingerprint(withoutDevice)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// A present-but-empty device is distinct from an absent one.
	empty := ""
	withEmptyDevice := fingerprintEvent()
	withEmptyDevice.DeviceID = &empty
	third, err := Fingerprint(withEmptyDevice)
	require.NoError(t, err)
	require.NotEqual(t, second, third)
	require.NotEqual(t, first, third)

	// Same for the optional coordinates.
	zero := 0.0
	withZeroLat := fingerprintEvent()
	withZeroLat.Latitude = &zero
	noLat := fingerprintEvent()
	noLat.Latitude = nil
	fourth, err := Fingerprint(withZeroLat)
	require.NoError(t, err)
	fifth, err := Fingerprint(noLat)
	require.NoError(t, err)
	require.NotEqual(t, fourth, fifth)
}

func TestFingerprintIncompleteRecord(t *testing.T) {
	event := fingerprintEvent()
	event.EmployeeID = ""
	event.CommittedAt = time.Time{}

	_, err := Fingerprint(event)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrIncompleteRecord))
	require.Contains(t, err.Error(), "employee_id")
	require.Contains(t, err.Error(), "committed_at")
}

func TestVerifyDetectsTampering(t *testing.T) {
	event := fingerprintEvent()
	fp, err := Fingerprint(event)
	require.NoError(t, err)
	event.Fingerprint = fp
	require.NoError(t, Verify(event))

	event.OccurredAt = event.OccurredAt.Add(5 * time.Minute)
	err = Verify(event)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrIntegrity))
}

func TestEngineModes(t *testing.T) {
	event := fingerprintEvent()
	engine := NewEngine(NewCodeSigner("secret", time.Hour))

	simple, err := engine.Compute(ModeSimple, event)
	require.NoError(t, err)
	require.NotEmpty(t, simple.Fingerprint)
	require.Empty(t, simple.Code)

	advanced, err := engine.Compute(ModeAdvanced, event)
	require.NoError(t, err)
	require.Equal(t, simple.Fingerprint, advanced.Fingerprint)
	require.NotEmpty(t, advanced.Code)
	require.False(t, advanced.ExpiresAt.IsZero())

	_, err = engine.Compute(Mode("FANCY"), event)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrUnsupportedMode))
}

func TestEngineAdvancedWithoutSigner(t *testing.T) {
	engine := NewEngine(nil)
	_, err := engine.Compute(ModeAdvanced, fingerprintEvent())
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrUnsupportedMode))
}
