package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/pontoflow/ponto-api/internal/models"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

// Mode selects how much proof material the engine produces.
type Mode string

const (
	ModeSimple   Mode = "SIMPLE"
	ModeAdvanced Mode = "ADVANCED"
)

// Result carries the computed fingerprint and, in advanced mode, a
// verification code usable as an offline proof.
type Result struct {
	Fingerprint string
	Code        string
	ExpiresAt   time.Time
}

// Engine derives integrity fingerprints for time events.
type Engine struct {
	signer *CodeSigner
}

// NewEngine constructs an engine. The signer is only required for advanced
// mode; a nil signer restricts the engine to simple fingerprints.
func NewEngine(signer *CodeSigner) *Engine {
	return &Engine{signer: signer}
}

// Compute derives the fingerprint for the event in the requested mode.
func (e *Engine) Compute(mode Mode, event models.TimeEvent) (*Result, error) {
	switch mode {
	case ModeSimple:
		fp, err := Fingerprint(event)
		if err != nil {
			return nil, err
		}
		return &Result{Fingerprint: fp}, nil
	case ModeAdvanced:
		if e.signer == nil {
			return nil, appErrors.Clone(appErrors.ErrUnsupportedMode, "advanced mode requires a code signer")
		}
		fp, err := Fingerprint(event)
		if err != nil {
			return nil, err
		}
		code, expiresAt, err := e.signer.Issue(event.ID, fp)
		if err != nil {
			return nil, err
		}
		return &Result{Fingerprint: fp, Code: code, ExpiresAt: expiresAt}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMode, "unsupported fingerprint mode: "+string(mode))
	}
}

// Fingerprint returns the SHA-256 digest of the event's canonical form.
// It is a pure function of the semantic fields plus the commit timestamp:
// identical inputs always produce identical output, and changing any single
// field changes the output.
func Fingerprint(event models.TimeEvent) (string, error) {
	if err := checkRequired(event); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical(event)))
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the fingerprint and compares it with the one stored on
// the event.
func Verify(event models.TimeEvent) error {
	fp, err := Fingerprint(event)
	if err != nil {
		return err
	}
	if fp != event.Fingerprint {
		return appErrors.Clone(appErrors.ErrIntegrity, "stored fingerprint does not match recomputed value")
	}
	return nil
}

func checkRequired(event models.TimeEvent) error {
	var missing []string
	if !event.Kind.Valid() {
		missing = append(missing, "kind")
	}
	if event.OccurredAt.IsZero() {
		missing = append(missing, "occurred_at")
	}
	if event.CommittedAt.IsZero() {
		missing = append(missing, "committed_at")
	}
	if event.EmployeeID == "" {
		missing = append(missing, "employee_id")
	}
	if event.CompanyID == "" {
		missing = append(missing, "company_id")
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrIncompleteRecord, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// presentMarker prefixes optional fields that carry a value. An absent field
// serialises to the empty string, so a present-but-empty value ("#") can
// never collide with an absent one ("").
const presentMarker = "#"

// canonical serialises the fingerprinted fields in a fixed order.
func canonical(event models.TimeEvent) string {
	parts := []string{
		string(event.Kind),
		event.OccurredAt.UTC().Format(time.RFC3339Nano),
		event.EmployeeID,
		event.CompanyID,
		optionalFloat(event.Latitude),
		optionalFloat(event.Longitude),
		optionalString(event.DeviceID),
		event.CommittedAt.UTC().Format(time.RFC3339Nano),
	}
	return strings.Join(parts, "|")
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return presentMarker + strconv.FormatFloat(*v, 'f', -1, 64)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return presentMarker + *v
}
