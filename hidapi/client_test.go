package hidapi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimblehid/hogp/conn"
	"github.com/nimblehid/hogp/diag"
	"github.com/nimblehid/hogp/facade"
	"github.com/nimblehid/hogp/gatt"
	"github.com/nimblehid/hogp/link"
	"github.com/nimblehid/hogp/notify"
	"github.com/nimblehid/hogp/report"
)

// sentRecorder stands in for the BLE transport: it records every frame the
// Notification Engine hands it and acks each send inline, the same shape as
// the facade's synchronous SendNotification.
type sentRecorder struct {
	engine *notify.Engine
	sent   [][]byte
}

func (r *sentRecorder) SendNotification(l link.ID, ref gatt.CharRef, bytes []byte) error {
	r.sent = append(r.sent, append([]byte(nil), bytes...))
	r.engine.OnNotifyComplete(l, ref, bytes, true)
	return nil
}

// newConnectedClient wires real core components (no BLE adapter), activates
// profile, brings a link up, and enables the Input Report CCCD: the
// state every happy-path intent call assumes.
func newConnectedClient(t *testing.T, profile report.Profile) (*Client, *facade.Facade, *sentRecorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := gatt.NewRegistry(gatt.DefaultHIDInfoFlags, gatt.ProtocolModeReport)
	machine := conn.NewMachine()
	tap := diag.New(logger, 16, 16)
	engine := notify.NewEngine(32, nil)
	f := facade.New(nil, registry, engine, machine, tap)
	rec := &sentRecorder{engine: engine}
	engine.Sender = rec
	activator := facade.NewActivator(f)

	c := New(nil, "test", activator, f, machine, engine, tap)
	require.True(t, c.Initialize())
	require.True(t, c.Activate(profile))

	f.OnConnectionStateChange("AA:BB:CC:DD:EE:FF", true)
	require.True(t, c.IsConnected())

	ref, ok := f.InputRef()
	require.True(t, ok)
	engine.Enable(f.CurrentLink(), ref)
	return c, f, rec
}

// controlPointRef resolves profile's HID Control Point characteristic; the
// service description is a pure function of the profile, so a scratch
// registry yields the same refs the client's facade uses.
func controlPointRef(t *testing.T, profile report.Profile) gatt.CharRef {
	t.Helper()
	desc := gatt.NewRegistry(gatt.DefaultHIDInfoFlags, gatt.ProtocolModeReport).BuildService(profile)
	for _, c := range desc.Characteristics {
		if c.Role == gatt.RoleControlPoint {
			return c.Ref
		}
	}
	t.Fatal("no control point characteristic")
	return 0
}

func TestTypeTextSendsPressReleasePairsInOrder(t *testing.T) {
	// Typing "Hi" with Keyboard active, connected, CCCD enabled.
	c, _, rec := newConnectedClient(t, report.Keyboard)

	require.True(t, c.TypeText("Hi"))
	require.Len(t, rec.sent, 4)
	assert.Equal(t, []byte{0x02, 0x00, 0x0B, 0x00, 0x00, 0x00, 0x00, 0x00}, rec.sent[0])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, rec.sent[1])
	assert.Equal(t, []byte{0x00, 0x00, 0x0C, 0x00, 0x00, 0x00, 0x00, 0x00}, rec.sent[2])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, rec.sent[3])
}

func TestClickSendsPressThenRelease(t *testing.T) {
	// A left click with Mouse active.
	c, _, rec := newConnectedClient(t, report.Mouse)

	require.True(t, c.Click(0x01))
	require.Len(t, rec.sent, 2)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, rec.sent[0])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, rec.sent[1])
}

func TestSuspendBlocksInputUntilExitSuspend(t *testing.T) {
	// While suspended, a mouse move fails with zero enqueues; after
	// ExitSuspend the next move succeeds.
	c, f, rec := newConnectedClient(t, report.Mouse)
	cp := controlPointRef(t, report.Mouse)

	_, err := f.OnCharacteristicWrite(report.Mouse, cp, []byte{gatt.ControlPointSuspend}, false, 0)
	require.NoError(t, err)

	assert.False(t, c.MoveMouse(5, 5))
	assert.Empty(t, rec.sent)

	_, err = f.OnCharacteristicWrite(report.Mouse, cp, []byte{gatt.ControlPointExitSuspend}, false, 0)
	require.NoError(t, err)

	assert.True(t, c.MoveMouse(5, 5))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, []byte{0x00, 0x05, 0x05, 0x00}, rec.sent[0])
}

func TestSendCombinedEnqueuesSingleCompositeReport(t *testing.T) {
	// One combined report with Composite active.
	c, _, rec := newConnectedClient(t, report.Composite)

	kb := make(report.Frame, 8)
	require.True(t, c.SendCombined(0x02, 0x01, -1, 2, 0, kb))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, []byte{
		0x02, 0x00, // media
		0x01,             // mouse buttons
		0xFF, 0x02, 0x00, // dx, dy, wheel
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // keyboard tail
	}, rec.sent[0])
}

func TestIntentCallsFailWhenDisconnected(t *testing.T) {
	c, f, rec := newConnectedClient(t, report.Keyboard)
	f.OnConnectionStateChange("AA:BB:CC:DD:EE:FF", false)

	assert.False(t, c.SendKey(report.KeyA, 0))
	assert.False(t, c.ReleaseKeys())
	assert.Empty(t, rec.sent)
}

func TestMediaTapSendsPressThenReleaseMask(t *testing.T) {
	c, _, rec := newConnectedClient(t, report.Consumer)

	require.True(t, c.PlayPause())
	require.Len(t, rec.sent, 2)
	assert.Equal(t, []byte{report.ConsumerPlayPause, 0x00}, rec.sent[0])
	assert.Equal(t, []byte{0x00, 0x00}, rec.sent[1])
}
