package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleKeys(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"a", "a"},
		{"A", "A"},
		{"7", "7"},
		{"enter", "Return"},
		{"return", "Return"},
		{"esc", "Escape"},
		{"tab", "Tab"},
		{"space", "space"},
		{"backspace", "BackSpace"},
		{"up", "Up"},
		{"down", "Down"},
		{"left", "Left"},
		{"right", "Right"},
		{"pageup", "Page_Up"},
		{"pagedown", "Page_Down"},
		{"printscreen", "Print"},
		{"capslock", "Caps_Lock"},
		{"f1", "F1"},
		{"f12", "F12"},
	}

	for _, tt := range tests {
		chord, err := Parse(tt.spec)
		require.NoError(t, err, "spec %q", tt.spec)
		assert.Empty(t, chord.Modifiers, "spec %q", tt.spec)
		assert.Equal(t, tt.want, chord.Key, "spec %q", tt.spec)
	}
}

func TestParse_NumpadKeys(t *testing.T) {
	for i := 0; i <= 9; i++ {
		spec := "kp_" + string(rune('0'+i))
		chord, err := Parse(spec)
		require.NoError(t, err)
		assert.Equal(t, string(rune('0'+i)), chord.Key)
	}
}

func TestParse_WithModifiers(t *testing.T) {
	chord, err := Parse("ctrl+a")
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl"}, chord.Modifiers)
	assert.Equal(t, "a", chord.Key)

	chord, err = Parse("ctrl+alt+shift+delete")
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl", "alt", "shift"}, chord.Modifiers)
	assert.Equal(t, "Delete", chord.Key)
}

func TestParse_ModifierOrderIsCanonical(t *testing.T) {
	a, err := Parse("ctrl+shift+s")
	require.NoError(t, err)

	b, err := Parse("shift+ctrl+s")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"ctrl", "shift"}, a.Modifiers)
	assert.Equal(t, "s", a.Key)
}

func TestParse_CaseInsensitive(t *testing.T) {
	chord, err := Parse("CTRL+ALT+SHIFT+A")
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl", "alt", "shift"}, chord.Modifiers)
	assert.Equal(t, "A", chord.Key)
}

func TestParse_AlternativeModifierNames(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"control+a", "ctrl"},
		{"win+a", "super"},
		{"windows+a", "super"},
		{"command+a", "super"},
		{"cmd+a", "super"},
		{"meta+a", "super"},
		{"super+a", "super"},
	}

	for _, tt := range tests {
		chord, err := Parse(tt.spec)
		require.NoError(t, err, "spec %q", tt.spec)
		require.Len(t, chord.Modifiers, 1, "spec %q", tt.spec)
		assert.Equal(t, tt.want, chord.Modifiers[0], "spec %q", tt.spec)
		assert.Equal(t, "a", chord.Key)
	}
}

func TestParse_BareModifierAsKey(t *testing.T) {
	chord, err := Parse("ctrl")
	require.NoError(t, err)
	assert.Empty(t, chord.Modifiers)
	assert.Equal(t, "ctrl", chord.Key)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		spec string
		desc string
	}{
		{"", "empty string"},
		{"+", "just a separator"},
		{"ctrl+", "missing key"},
		{"invalid+a", "invalid modifier"},
		{"ctrl+invalid", "invalid key"},
		{"ctrl++a", "double separator"},
	}

	for _, tt := range tests {
		_, err := Parse(tt.spec)
		assert.Error(t, err, "%s (%q) should not parse", tt.desc, tt.spec)
	}
}

func TestChord_String(t *testing.T) {
	chord, err := Parse("shift+ctrl+s")
	require.NoError(t, err)
	assert.Equal(t, "ctrl+shift+s", chord.String())

	chord, err = Parse("enter")
	require.NoError(t, err)
	assert.Equal(t, "Return", chord.String())
}
