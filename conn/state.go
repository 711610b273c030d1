// Package conn is the Connection/Pairing State Machine: it tracks
// link state, bond state, and pairing variant, gates notifications, and
// broadcasts observable events. Built on github.com/qmuntal/stateless,
// trimmed of the tracing/persistence callbacks a generic FSM wrapper would
// carry; this core has nothing to persist or trace across restarts.
package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/qmuntal/stateless"
)

// ConnectionState is the link lifecycle state, a string enum plus
// side-channel fields (PeerID, FailReason) carried alongside it.
type ConnectionState string

const (
	Uninitialized ConnectionState = "Uninitialized"
	Initialized   ConnectionState = "Initialized"
	Connecting    ConnectionState = "Connecting"
	Connected     ConnectionState = "Connected"
	Disconnecting ConnectionState = "Disconnecting"
	Disconnected  ConnectionState = "Disconnected"
	Failed        ConnectionState = "Failed"
)

// Connection triggers.
const (
	triggerInitialize     = "initialize"
	triggerLinkUp         = "link_up"
	triggerConnectSuccess = "connect_success"
	triggerConnectFailure = "connect_failure"
	triggerLinkDown       = "link_down"
	triggerReset          = "reset"
)

// PairingVariant enumerates the pairing UI flows a stack can request.
type PairingVariant string

const (
	PIN                 PairingVariant = "PIN"
	Passkey             PairingVariant = "Passkey"
	PasskeyConfirmation PairingVariant = "PasskeyConfirmation"
	Consent             PairingVariant = "Consent"
	DisplayPasskey      PairingVariant = "DisplayPasskey"
	DisplayPin          PairingVariant = "DisplayPin"
	OobConsent          PairingVariant = "OobConsent"
)

// PairingState is the bonding lifecycle state.
type PairingState string

const (
	PairingNone     PairingState = "None"
	PairingBonding  PairingState = "Bonding"
	PairingBonded   PairingState = "Bonded"
	PairingRejected PairingState = "Rejected"
)

const (
	triggerPairRequest = "pair_request"
	triggerPairSuccess = "pair_success"
	triggerPairFailure = "pair_failure"
	triggerPairReset   = "pair_reset"
)

// ConnectingTimeout is the default hard timeout on the Connecting
// state, after which the machine transitions to Failed(Timeout).
const ConnectingTimeout = 30 * time.Second

// Snapshot is the tuple observers subscribe to.
type Snapshot struct {
	Connection     ConnectionState
	PeerID         string
	FailReason     string
	Pairing        PairingState
	PairingVariant PairingVariant
}

// ErrInvalidTransition wraps stateless's rejection of a trigger that is
// not valid for the current state.
type ErrInvalidTransition struct {
	State   string
	Trigger string
	Cause   error
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("conn: trigger %q invalid in state %q: %v", e.Trigger, e.State, e.Cause)
}

func (e *ErrInvalidTransition) Unwrap() error { return e.Cause }

// Machine drives both the ConnectionState and PairingState FSMs and
// broadcasts their combined Snapshot. All methods are meant to run on the
// single executor goroutine; Machine itself takes no lock.
type Machine struct {
	connFSM *stateless.StateMachine
	pairFSM *stateless.StateMachine

	peerID     string
	failReason string
	variant    PairingVariant

	bus *Broadcast
}

// NewMachine builds the connection and pairing FSMs, starting at
// Uninitialized/None, and wires their entry actions to publish a Snapshot
// on bus.
func NewMachine() *Machine {
	m := &Machine{bus: NewBroadcast()}

	m.connFSM = stateless.NewStateMachine(Uninitialized)
	m.connFSM.Configure(Uninitialized).Permit(triggerInitialize, Initialized)
	m.connFSM.Configure(Initialized).
		Permit(triggerLinkUp, Connecting)
	m.connFSM.Configure(Connecting).
		Permit(triggerConnectSuccess, Connected).
		Permit(triggerConnectFailure, Failed)
	m.connFSM.Configure(Connected).
		Permit(triggerLinkDown, Disconnected)
	m.connFSM.Configure(Disconnected).
		Permit(triggerLinkUp, Connecting)
	m.connFSM.Configure(Failed).
		Permit(triggerReset, Initialized)

	m.pairFSM = stateless.NewStateMachine(PairingNone)
	m.pairFSM.Configure(PairingNone).
		Permit(triggerPairRequest, PairingBonding)
	m.pairFSM.Configure(PairingBonding).
		Permit(triggerPairSuccess, PairingBonded).
		Permit(triggerPairFailure, PairingRejected)
	m.pairFSM.Configure(PairingBonded).
		Permit(triggerPairReset, PairingNone)
	m.pairFSM.Configure(PairingRejected).
		Permit(triggerPairReset, PairingNone)

	return m
}

func (m *Machine) publish() {
	state, _ := m.connFSM.State(context.Background())
	pairing, _ := m.pairFSM.State(context.Background())
	m.bus.Publish(Snapshot{
		Connection:     state.(ConnectionState),
		PeerID:         m.peerID,
		FailReason:     m.failReason,
		Pairing:        pairing.(PairingState),
		PairingVariant: m.variant,
	})
}

func (m *Machine) fire(fsm *stateless.StateMachine, trigger string) error {
	state, _ := fsm.State(context.Background())
	if err := fsm.FireCtx(context.Background(), trigger); err != nil {
		return &ErrInvalidTransition{State: fmt.Sprintf("%v", state), Trigger: trigger, Cause: err}
	}
	return nil
}

// Initialize fires Uninitialized→Initialized.
func (m *Machine) Initialize() error {
	if err := m.fire(m.connFSM, triggerInitialize); err != nil {
		return err
	}
	m.publish()
	return nil
}

// LinkUp fires the transition into Connecting, from Initialized or from
// Disconnected (a fresh inbound connection attempt after a prior link).
func (m *Machine) LinkUp() error {
	if err := m.fire(m.connFSM, triggerLinkUp); err != nil {
		return err
	}
	m.publish()
	return nil
}

// ConnectSuccess fires Connecting→Connected(peerID).
func (m *Machine) ConnectSuccess(peerID string) error {
	if err := m.fire(m.connFSM, triggerConnectSuccess); err != nil {
		return err
	}
	m.peerID = peerID
	m.failReason = ""
	m.publish()
	return nil
}

// ConnectFailure fires Connecting→Failed(reason).
func (m *Machine) ConnectFailure(reason string) error {
	if err := m.fire(m.connFSM, triggerConnectFailure); err != nil {
		return err
	}
	m.failReason = reason
	m.publish()
	return nil
}

// LinkDown fires Connected→Disconnected.
func (m *Machine) LinkDown() error {
	if err := m.fire(m.connFSM, triggerLinkDown); err != nil {
		return err
	}
	m.peerID = ""
	m.publish()
	return nil
}

// Reset fires Failed→Initialized, for retrying after a Connecting
// timeout or failure.
func (m *Machine) Reset() error {
	if err := m.fire(m.connFSM, triggerReset); err != nil {
		return err
	}
	m.failReason = ""
	m.publish()
	return nil
}

// ConnectionState returns the current connection state.
func (m *Machine) ConnectionState() ConnectionState {
	s, _ := m.connFSM.State(context.Background())
	return s.(ConnectionState)
}

// PeerID returns the currently connected peer id, or "" when not
// Connected.
func (m *Machine) PeerID() string { return m.peerID }

// PairRequest begins a pairing flow with the given variant; pairing may
// start while Connected.
func (m *Machine) PairRequest(variant PairingVariant) error {
	if err := m.fire(m.pairFSM, triggerPairRequest); err != nil {
		return err
	}
	m.variant = variant
	m.publish()
	return nil
}

// PairComplete resolves a Bonding pairing as success or failure. All
// variants default to auto-accept in the core; an external policy layer
// may override which outcome to report.
func (m *Machine) PairComplete(success bool) error {
	trigger := triggerPairSuccess
	if !success {
		trigger = triggerPairFailure
	}
	if err := m.fire(m.pairFSM, trigger); err != nil {
		return err
	}
	m.publish()
	return nil
}

// PairingState returns the current pairing state.
func (m *Machine) PairingState() PairingState {
	s, _ := m.pairFSM.State(context.Background())
	return s.(PairingState)
}

// Subscribe returns a channel that immediately receives the current
// Snapshot (replay-last) and every subsequent one.
func (m *Machine) Subscribe() (ch <-chan Snapshot, cancel func()) {
	return m.bus.Subscribe()
}
