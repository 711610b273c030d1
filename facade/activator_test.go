package facade

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimblehid/hogp/report"
)

type fakeServerOps struct {
	registered   []report.Profile
	unregistered []report.Profile
	failProfile  report.Profile
	failing      bool
}

func (f *fakeServerOps) RegisterProfile(p report.Profile) error {
	if f.failing && p == f.failProfile {
		return errors.New("attribute table full")
	}
	f.registered = append(f.registered, p)
	return nil
}

func (f *fakeServerOps) UnregisterProfile(p report.Profile) error {
	f.unregistered = append(f.unregistered, p)
	return nil
}

func TestActivateBeforeInitializeFails(t *testing.T) {
	a := NewActivator(&fakeServerOps{})
	err := a.Activate(report.Mouse)
	require.Error(t, err)
	var notInit *ErrNotInitialized
	require.ErrorAs(t, err, &notInit)
}

func TestActivateIsIdempotent(t *testing.T) {
	a := NewActivator(&fakeServerOps{})
	a.Initialize()
	require.NoError(t, a.Activate(report.Mouse))

	err := a.Activate(report.Mouse)
	require.Error(t, err)
	var already *ErrAlreadyActive
	require.ErrorAs(t, err, &already)
	assert.Equal(t, report.Mouse, already.Profile)
}

func TestActivateEnforcesSingleServicePolicy(t *testing.T) {
	// Activating Keyboard while Mouse is Active must remove Mouse
	// first, leaving at most one non-composite service mounted.
	s := &fakeServerOps{}
	a := NewActivator(s)
	a.Initialize()
	require.NoError(t, a.Activate(report.Mouse))
	require.NoError(t, a.Activate(report.Keyboard))

	assert.False(t, a.IsActive(report.Mouse))
	assert.True(t, a.IsActive(report.Keyboard))
	assert.Equal(t, []report.Profile{report.Mouse}, s.unregistered)
	assert.Equal(t, []report.Profile{report.Mouse, report.Keyboard}, s.registered)
}

func TestActivateCompositeDeactivatesPerDeviceProfiles(t *testing.T) {
	s := &fakeServerOps{}
	a := NewActivator(s)
	a.Initialize()
	require.NoError(t, a.Activate(report.Mouse))
	require.NoError(t, a.Activate(report.Composite))

	assert.False(t, a.IsActive(report.Mouse))
	assert.True(t, a.IsActive(report.Composite))
	assert.ElementsMatch(t, []report.Profile{report.Composite}, a.ActiveProfiles())
}

func TestActivatePerDeviceProfileDeactivatesComposite(t *testing.T) {
	// Composite and a per-device profile never coexist.
	s := &fakeServerOps{}
	a := NewActivator(s)
	a.Initialize()
	require.NoError(t, a.Activate(report.Composite))
	require.NoError(t, a.Activate(report.Keyboard))

	assert.False(t, a.IsActive(report.Composite))
	assert.True(t, a.IsActive(report.Keyboard))
}

func TestDeactivateInactiveProfileIsNoop(t *testing.T) {
	// Deactivating an already-Inactive profile succeeds.
	a := NewActivator(&fakeServerOps{})
	a.Initialize()
	require.NoError(t, a.Deactivate(report.Mouse))
	assert.False(t, a.IsActive(report.Mouse))
}

func TestActivateServerFullSurfacesRegisterProfileFailure(t *testing.T) {
	s := &fakeServerOps{failing: true, failProfile: report.Mouse}
	a := NewActivator(s)
	a.Initialize()

	err := a.Activate(report.Mouse)
	require.Error(t, err)
	var full *ErrServerFull
	require.ErrorAs(t, err, &full)
	assert.False(t, a.IsActive(report.Mouse))
}
