package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_NewerLoadSupersedes(t *testing.T) {
	var g Guard
	first := g.Begin()
	assert.True(t, first.Current())

	second := g.Begin()
	assert.False(t, first.Current())
	assert.True(t, second.Current())
}

func TestGuard_CloseInvalidatesEverything(t *testing.T) {
	var g Guard
	tk := g.Begin()
	g.Close()
	assert.False(t, tk.Current())
	assert.False(t, g.Begin().Current())
	assert.True(t, g.Closed())
}

func TestTicket_ZeroValue(t *testing.T) {
	var tk Ticket
	assert.False(t, tk.Current())
}
