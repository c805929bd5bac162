package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pontoflow/ponto-api/internal/integrity"
	"github.com/pontoflow/ponto-api/internal/models"
)

func TestVerificationServiceValidCode(t *testing.T) {
	store := newEventStoreStub()
	event := storedEvent(store, "evt-1")
	signer := integrity.NewCodeSigner("test-secret", time.Hour)
	svc := NewVerificationService(store, signer, &auditStub{}, nil)

	code, _, err := signer.Issue(event.ID, event.Fingerprint)
	require.NoError(t, err)

	resp, err := svc.Verify(context.Background(), code)
	require.NoError(t, err)
	require.True(t, resp.Valid)
	require.Equal(t, event.ID, resp.EventID)
	require.Equal(t, event.Fingerprint, resp.Fingerprint)
	require.NotNil(t, resp.Event)
}

func TestVerificationServiceMalformedCode(t *testing.T) {
	svc := NewVerificationService(newEventStoreStub(), integrity.NewCodeSigner("test-secret", time.Hour), nil, nil)

	resp, err := svc.Verify(context.Background(), "not-a-code")
	require.NoError(t, err)
	require.False(t, resp.Valid)
	require.NotEmpty(t, resp.Reason)
}

func TestVerificationServiceUnknownEvent(t *testing.T) {
	store := newEventStoreStub()
	signer := integrity.NewCodeSigner("test-secret", time.Hour)
	svc := NewVerificationService(store, signer, nil, nil)

	code, _, err := signer.Issue("evt-missing", "fp")
	require.NoError(t, err)

	resp, err := svc.Verify(context.Background(), code)
	require.NoError(t, err)
	require.False(t, resp.Valid)
}

func TestVerificationServiceTamperedRecord(t *testing.T) {
	store := newEventStoreStub()
	event := storedEvent(store, "evt-1")
	signer := integrity.NewCodeSigner("test-secret", time.Hour)
	audit := &auditStub{}
	svc := NewVerificationService(store, signer, audit, nil)

	code, _, err := signer.Issue(event.ID, event.Fingerprint)
	require.NoError(t, err)

	// Simulate an out-of-band change to the stored row.
	store.events[event.ID].OccurredAt = event.OccurredAt.Add(time.Minute)

	resp, err := svc.Verify(context.Background(), code)
	require.NoError(t, err)
	require.False(t, resp.Valid)

	// The failed check against a known punch lands in the audit trail.
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionIntegrityCheck, audit.logs[0].Action)
	require.JSONEq(t, `{"valid":false}`, string(audit.logs[0].NewValues))
}

func TestVerificationServiceWrongSecret(t *testing.T) {
	store := newEventStoreStub()
	event := storedEvent(store, "evt-1")
	svc := NewVerificationService(store, integrity.NewCodeSigner("secret-a", time.Hour), nil, nil)

	code, _, err := integrity.NewCodeSigner("secret-b", time.Hour).Issue(event.ID, event.Fingerprint)
	require.NoError(t, err)

	resp, err := svc.Verify(context.Background(), code)
	require.NoError(t, err)
	require.False(t, resp.Valid)
}
