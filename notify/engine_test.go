package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimblehid/hogp/gatt"
	"github.com/nimblehid/hogp/link"
)

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) SendNotification(l link.ID, ref gatt.CharRef, bytes []byte) error {
	f.sent = append(f.sent, append([]byte(nil), bytes...))
	return nil
}

func TestEnqueueDropsWhenCccdDisabled(t *testing.T) {
	s := &fakeSender{}
	e := NewEngine(32, s)
	l := link.Next()
	var dropped DropReason
	var dropCount int
	e.OnDrop = func(_ link.ID, _ gatt.CharRef, reason DropReason) {
		dropped = reason
		dropCount++
	}
	err := e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{0x01}})
	require.NoError(t, err)
	assert.Equal(t, 1, dropCount)
	assert.Equal(t, DropNotificationsNotEnabled, dropped)
	assert.Empty(t, s.sent)
}

func TestOrderingPreservedPerCharacteristic(t *testing.T) {
	s := &fakeSender{}
	e := NewEngine(32, s)
	l := link.Next()
	e.Enable(l, 1)

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{byte(i)}}))
		e.OnNotifyComplete(l, 1, []byte{byte(i)}, true)
	}
	require.Len(t, s.sent, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, []byte{byte(i)}, s.sent[i])
	}
}

func TestQueueOverflowRejectsFifthNormalEnqueue(t *testing.T) {
	// Queue capacity 4, all Normal priority; the sender never completes so
	// everything past the first stays queued (in_flight after the first).
	s := &fakeSender{}
	e := NewEngine(4, s)
	l := link.Next()
	e.Enable(l, 1)

	for i := 0; i < 4; i++ {
		require.NoError(t, e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{byte(i)}, Priority: Normal}))
	}
	err := e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{0xFF}, Priority: Normal})
	require.Error(t, err)
	var full *ErrQueueFull
	require.ErrorAs(t, err, &full)
}

func TestHighPriorityEvictsOldestNormalOnOverflow(t *testing.T) {
	s := &fakeSender{}
	e := NewEngine(4, s)
	l := link.Next()
	e.Enable(l, 1)

	for i := 0; i < 4; i++ {
		require.NoError(t, e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{byte(i)}, Priority: Normal}))
	}
	var evicted bool
	e.OnDrop = func(_ link.ID, _ gatt.CharRef, reason DropReason) {
		if reason == DropEvicted {
			evicted = true
		}
	}
	err := e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{0xAA}, Priority: High})
	require.NoError(t, err)
	assert.True(t, evicted)
}

func TestResetLinkFailsInFlightRequestAndEmptiesQueue(t *testing.T) {
	// With requests queued behind an in-flight send, a disconnect
	// reset reports the in-flight request as a failed send, empties the
	// queue, and leaves every CCCD disabled.
	s := &fakeSender{}
	e := NewEngine(32, s)
	l := link.Next()
	e.Enable(l, 1)

	var completions []bool
	e.OnSent = func(_ link.ID, _ gatt.CharRef, _ []byte, success bool) {
		completions = append(completions, success)
	}

	// First enqueue goes in flight (fakeSender never acks); three more queue.
	for i := 0; i < 4; i++ {
		require.NoError(t, e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{byte(i)}}))
	}
	require.Len(t, s.sent, 1)

	e.ResetLink(l)
	assert.Equal(t, []bool{false}, completions)
	assert.Equal(t, 0, e.Len(l))
	assert.False(t, e.Enabled(l, 1))
	assert.Len(t, s.sent, 1)
}

func TestResetLinkClearsQueueAndCccd(t *testing.T) {
	s := &fakeSender{}
	e := NewEngine(32, s)
	l := link.Next()
	e.Enable(l, 1)
	require.NoError(t, e.Enqueue(l, Request{CharRef: 1, Bytes: []byte{0x01}, EnqueueTime: time.Now()}))

	e.ResetLink(l)
	assert.False(t, e.Enabled(l, 1))
	assert.Equal(t, 0, e.Len(l))
}
