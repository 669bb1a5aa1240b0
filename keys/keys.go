// Package keys parses human-readable key combinations ("ctrl+shift+s") into
// X11 keysym chords.
package keys

import (
	"fmt"
	"strings"
)

// Chord is a parsed key combination: zero or more modifiers in canonical
// order, plus one base key. Names are X11 keysyms as understood by xdotool.
type Chord struct {
	Modifiers []string
	Key       string
}

// String returns the chord in "mod+mod+key" form.
func (c Chord) String() string {
	if len(c.Modifiers) == 0 {
		return c.Key
	}
	return strings.Join(c.Modifiers, "+") + "+" + c.Key
}

// canonical modifier order, so "ctrl+shift+s" and "shift+ctrl+s" parse to the
// same chord
var modifierOrder = []string{"ctrl", "alt", "shift", "super"}

var modifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"super":   "super",
	"win":     "super",
	"windows": "super",
	"meta":    "super",
	"cmd":     "super",
	"command": "super",
}

var namedKeys = map[string]string{
	"esc":         "Escape",
	"escape":      "Escape",
	"return":      "Return",
	"enter":       "Return",
	"tab":         "Tab",
	"space":       "space",
	"backspace":   "BackSpace",
	"up":          "Up",
	"down":        "Down",
	"left":        "Left",
	"right":       "Right",
	"delete":      "Delete",
	"insert":      "Insert",
	"home":        "Home",
	"end":         "End",
	"pageup":      "Page_Up",
	"pagedown":    "Page_Down",
	"printscreen": "Print",
	"pause":       "Pause",
	"numlock":     "Num_Lock",
	"capslock":    "Caps_Lock",

	// modifiers are also valid as a base key ("ctrl" alone is a press of
	// the ctrl key)
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"super":   "super",
	"win":     "super",
	"windows": "super",
	"meta":    "super",
	"cmd":     "super",
	"command": "super",
}

func init() {
	for i := 1; i <= 12; i++ {
		namedKeys[fmt.Sprintf("f%d", i)] = fmt.Sprintf("F%d", i)
	}
	// numpad digits map to plain digit keysyms
	for i := 0; i <= 9; i++ {
		namedKeys[fmt.Sprintf("kp_%d", i)] = fmt.Sprintf("%d", i)
	}
}

// Parse parses a key specification of the form "mod+mod+key". Modifier names
// are case-insensitive and may appear in any order; the result always lists
// them in canonical order (ctrl, alt, shift, super). The final segment is the
// base key: a single character, digit, function key, or named special key.
func Parse(spec string) (Chord, error) {
	if spec == "" {
		return Chord{}, fmt.Errorf("empty key specification")
	}

	parts := strings.Split(spec, "+")
	seen := make(map[string]bool)

	for _, part := range parts[:len(parts)-1] {
		mod, ok := modifiers[strings.ToLower(part)]
		if !ok {
			return Chord{}, fmt.Errorf("unknown modifier %q in %q", part, spec)
		}
		seen[mod] = true
	}

	key, err := parseKey(parts[len(parts)-1])
	if err != nil {
		return Chord{}, fmt.Errorf("%v in %q", err, spec)
	}

	var mods []string
	for _, mod := range modifierOrder {
		if seen[mod] {
			mods = append(mods, mod)
		}
	}

	return Chord{Modifiers: mods, Key: key}, nil
}

func parseKey(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing base key")
	}

	if key, ok := namedKeys[strings.ToLower(s)]; ok {
		return key, nil
	}

	runes := []rune(s)
	if len(runes) == 1 {
		return string(runes[0]), nil
	}

	return "", fmt.Errorf("unknown key %q", s)
}
