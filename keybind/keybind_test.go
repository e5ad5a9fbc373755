package keybind

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/PropzSaladaz/Laze/action"
)

func TestDefaultBindings(t *testing.T) {
	m := NewMap()

	tests := []struct {
		key  action.Key
		want Combo
	}{
		{action.KeyEnter, Combo{Named(NameReturn)}},
		{action.KeyFullscreen, Combo{Named(NameF11)}},
		{action.KeyCloseTab, Combo{Named(NameControl), Rune('w')}},
		{action.KeyNextTab, Combo{Named(NameControl), Named(NameTab)}},
		{action.KeyPreviousTab, Combo{Named(NameControl), Named(NameShift), Named(NameTab)}},
		{action.KeyVolumeUp, Combo{Named(NameVolumeUp)}},
	}
	for _, tt := range tests {
		got, ok := m.Key(tt.key)
		assert.Assert(t, ok, "key %v should be bound", tt.key)
		assert.DeepEqual(t, got, tt.want)
	}
}

func TestUnmappedKey(t *testing.T) {
	m := NewMap()

	_, ok := m.Key(action.KeyBrightnessDown)
	assert.Assert(t, !ok)

	_, ok = m.Key(action.KeyUnknown)
	assert.Assert(t, !ok)
}

func TestButtonBinding(t *testing.T) {
	m := NewMap()

	b, ok := m.Button(action.ButtonLeft)
	assert.Assert(t, ok)
	assert.Equal(t, b, MouseLeft)

	_, ok = m.Button(action.Button(7))
	assert.Assert(t, !ok)
}
