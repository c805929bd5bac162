package integrity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

func TestCodeSignerIssueAndValidate(t *testing.T) {
	signer := NewCodeSigner("secret", time.Hour)

	code, expiresAt, err := signer.Issue("evt-1", "abc123")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	decoded, err := signer.Validate(code)
	require.NoError(t, err)
	require.Equal(t, "evt-1", decoded.EventID)
	require.Equal(t, "abc123", decoded.Fingerprint)
	require.WithinDuration(t, expiresAt, decoded.ExpiresAt, time.Second)
}

func TestCodeSignerRejectsMalformed(t *testing.T) {
	signer := NewCodeSigner("secret", time.Hour)

	for _, code := range []string{"", "just-one-part", "a.b.c", "a.b.c.d.e"} {
		_, err := signer.Validate(code)
		require.Error(t, err, code)
		require.True(t, appErrors.Is(err, appErrors.ErrValidation), code)
	}

	_, err := signer.Validate("evt-1.notanumber.fp.sig")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCodeSignerRejectsTamperedPayload(t *testing.T) {
	signer := NewCodeSigner("secret", time.Hour)
	code, _, err := signer.Issue("evt-1", "abc123")
	require.NoError(t, err)

	parts := strings.Split(code, ".")
	parts[2] = "abc124"
	_, err = signer.Validate(strings.Join(parts, "."))
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrIntegrity))
}

func TestCodeSignerRejectsWrongSecret(t *testing.T) {
	code, _, err := NewCodeSigner("secret-a", time.Hour).Issue("evt-1", "abc123")
	require.NoError(t, err)

	_, err = NewCodeSigner("secret-b", time.Hour).Validate(code)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrIntegrity))
}

func TestCodeSignerRejectsExpired(t *testing.T) {
	signer := NewCodeSigner("secret", time.Millisecond)
	code, _, err := signer.Issue("evt-1", "abc123")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = signer.Validate(code)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
	require.Contains(t, err.Error(), "expired")
}

func TestQRCodePNG(t *testing.T) {
	png, err := QRCodePNG("evt-1.1700000000.fp.sig", 128)
	require.NoError(t, err)
	require.NotEmpty(t, png)
	// PNG magic bytes.
	require.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, png[:4])

	_, err = QRCodePNG("", 128)
	require.Error(t, err)
}
