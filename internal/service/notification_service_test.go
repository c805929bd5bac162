package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pontoflow/ponto-api/pkg/config"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	done chan struct{}
}

func (r *recordingNotifier) Send(ctx context.Context, n Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	select {
	case r.done <- struct{}{}:
	default:
	}
	return nil
}

func TestNotificationDispatcherDelivers(t *testing.T) {
	notifier := &recordingNotifier{done: make(chan struct{}, 1)}
	dispatcher := NewNotificationDispatcher(config.NotificationsConfig{
		Workers:        1,
		BufferSize:     4,
		PublishTimeout: time.Second,
	}, notifier, nil)

	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	err := dispatcher.Publish(context.Background(), Notification{
		Type:       NotifyPunchCommitted,
		CompanyID:  "company-1",
		ResourceID: "evt-1",
	})
	require.NoError(t, err)

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.sent, 1)
	require.Equal(t, NotifyPunchCommitted, notifier.sent[0].Type)
	require.False(t, notifier.sent[0].At.IsZero())
}

func TestNotificationDispatcherPublishBeforeStart(t *testing.T) {
	dispatcher := NewNotificationDispatcher(config.NotificationsConfig{}, nil, nil)

	err := dispatcher.Publish(context.Background(), Notification{Type: NotifyPunchCommitted})
	require.Error(t, err)
}
