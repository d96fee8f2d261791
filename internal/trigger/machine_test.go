package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func open(url string) Observation {
	return Observation{Location: url, HasContent: true, HasSubject: true}
}

func TestMachineOpensOncePerLocation(t *testing.T) {
	var m Machine

	assert.Equal(t, ActionOpen, m.Step(open("u1")))
	assert.Equal(t, EmailOpen, m.State())
	assert.True(t, m.Latched())

	m.Release()
	assert.Equal(t, ActionNone, m.Step(open("u1")))
	assert.Equal(t, ActionOpen, m.Step(open("u2")))
	assert.Equal(t, "u2", m.URL())
}

func TestMachineLatchSuppressesOpen(t *testing.T) {
	var m Machine

	assert.Equal(t, ActionOpen, m.Step(open("u1")))
	assert.Equal(t, ActionNone, m.Step(open("u2")))

	m.Release()
	assert.Equal(t, ActionOpen, m.Step(open("u2")))
}

func TestMachineIgnoresPagesWithBadge(t *testing.T) {
	var m Machine

	o := open("u1")
	o.HasBadge = true
	assert.Equal(t, ActionNone, m.Step(o))
}

func TestMachineCloses(t *testing.T) {
	var m Machine
	m.Step(open("u1"))
	m.Release()

	assert.Equal(t, ActionNone, m.Step(Observation{Location: "list"}))
	assert.Equal(t, ActionClose, m.Step(Observation{Location: "list", HasBadge: true}))
	assert.Equal(t, NoEmail, m.State())
	assert.Empty(t, m.URL())

	// Reopening the same email after a close is a new transition.
	assert.Equal(t, ActionOpen, m.Step(open("u1")))
}

func TestMachineClosesOnPopup(t *testing.T) {
	var m Machine
	assert.Equal(t, ActionClose, m.Step(Observation{HasPopup: true}))
}

func TestMachineSeen(t *testing.T) {
	var m Machine

	assert.True(t, m.Seen("a"))
	assert.False(t, m.Seen("a"))
	assert.True(t, m.Seen("b"))
}
