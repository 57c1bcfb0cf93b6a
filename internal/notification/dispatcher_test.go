package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imsulglobal/community-portal/internal/capacity"
)

// recordingMailer counts sends and fails the first n of them.
type recordingMailer struct {
	mu    sync.Mutex
	fails int
	sent  []Intent
	calls int
}

func (m *recordingMailer) Send(_ context.Context, intent Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.fails {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, intent)
	return nil
}

func (m *recordingMailer) snapshot() (calls int, sent []Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, append([]Intent(nil), m.sent...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatcherDelivers(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, 2, 8, nil)
	d.Start(context.Background())
	defer d.Stop()

	d.Enqueue(Intent{Recipient: "maria@example.com", Kind: capacity.MailReceived, Offering: "Digital Literacy"})

	waitFor(t, func() bool {
		_, sent := mailer.snapshot()
		return len(sent) == 1
	})
	_, sent := mailer.snapshot()
	assert.Equal(t, "maria@example.com", sent[0].Recipient)
}

// TestDispatcherRetriesOnce makes the first send fail and checks the intent
// still goes out on the retry.
func TestDispatcherRetriesOnce(t *testing.T) {
	mailer := &recordingMailer{fails: 1}
	d := NewDispatcher(mailer, 1, 8, nil)
	d.Start(context.Background())
	defer d.Stop()

	d.Enqueue(Intent{Recipient: "maria@example.com", Kind: capacity.MailAccepted})

	waitFor(t, func() bool {
		_, sent := mailer.snapshot()
		return len(sent) == 1
	})
	calls, _ := mailer.snapshot()
	assert.Equal(t, 2, calls)
}

// TestDispatcherGivesUpAfterRetry fails twice; the intent is dropped, not
// retried forever.
func TestDispatcherGivesUpAfterRetry(t *testing.T) {
	mailer := &recordingMailer{fails: 2}
	d := NewDispatcher(mailer, 1, 8, nil)
	d.Start(context.Background())

	d.Enqueue(Intent{Recipient: "maria@example.com", Kind: capacity.MailRejected})

	waitFor(t, func() bool {
		calls, _ := mailer.snapshot()
		return calls == 2
	})
	d.Stop()

	calls, sent := mailer.snapshot()
	assert.Equal(t, 2, calls)
	assert.Empty(t, sent)
}

// gateMailer blocks every send until the gate opens and signals each entry,
// so a test can park the worker mid-delivery.
type gateMailer struct {
	mu      sync.Mutex
	entered chan struct{}
	gate    chan struct{}
	sent    int
}

func (m *gateMailer) Send(_ context.Context, _ Intent) error {
	m.entered <- struct{}{}
	<-m.gate
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
	return nil
}

// TestStopDrainsBuffered parks the single worker on a delivery, stops the
// dispatcher while four intents sit in the buffer, and checks Stop does not
// return until all of them went out.
func TestStopDrainsBuffered(t *testing.T) {
	mailer := &gateMailer{entered: make(chan struct{}, 8), gate: make(chan struct{})}
	d := NewDispatcher(mailer, 1, 8, nil)
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		d.Enqueue(Intent{Recipient: "maria@example.com", Kind: capacity.MailReceived})
	}
	<-mailer.entered // worker holds the first intent, the rest are buffered

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	close(mailer.gate)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Equal(t, 5, mailer.sent)
}

func TestEnqueueBeforeStartDrops(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, 1, 8, nil)

	d.Enqueue(Intent{Recipient: "maria@example.com", Kind: capacity.MailReceived})

	calls, _ := mailer.snapshot()
	assert.Zero(t, calls)
}

func TestRenderTemplates(t *testing.T) {
	subject, body, err := render(Intent{
		Name:     "Maria",
		Kind:     capacity.MailReceived,
		Offering: "Digital Literacy",
		Details:  map[string]string{"Starts": "01/10/2026", "Hours": "20h"},
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "Application received")
	assert.Contains(t, body, "Hello Maria")
	assert.Contains(t, body, `"Digital Literacy"`)
	assert.Contains(t, body, "- Hours: 20h")
	assert.Contains(t, body, "- Starts: 01/10/2026")

	subject, body, err = render(Intent{Name: "Maria", Kind: capacity.MailAccepted, Offering: "Tutor"})
	require.NoError(t, err)
	assert.Contains(t, subject, "accepted")
	assert.Contains(t, body, "Welcome aboard")

	subject, _, err = render(Intent{Name: "Maria", Kind: capacity.MailRejected, Offering: "Tutor"})
	require.NoError(t, err)
	assert.Contains(t, subject, "Update on your application")

	_, _, err = render(Intent{Kind: capacity.MailNone})
	require.Error(t, err)
}
