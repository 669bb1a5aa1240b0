// Package display isolates the live connection to the desktop session behind
// a narrow capability interface, so every other package can run against a
// test double instead of a real display server.
package display

import (
	"errors"
	"image"

	"github.com/desk-next/deskcli/keys"
)

// Button identifies a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// ErrConnectionLost is reported when the display server connection is gone.
// The queue treats it as fatal and degrades until a reconnect succeeds.
var ErrConnectionLost = errors.New("display connection lost")

// Driver is the set of native operations the action executor needs from a
// display. All calls are synchronous and blocking; none of them are safe for
// concurrent use. The serialization queue owns the single live Driver and is
// the only component that calls into it.
type Driver interface {
	// MoveTo moves the pointer to absolute coordinates.
	MoveTo(x, y int) error

	// Click performs a press-release of the given button at the current
	// pointer position.
	Click(button Button) error

	// ButtonDown presses and holds a button.
	ButtonDown(button Button) error

	// ButtonUp releases a held button.
	ButtonUp(button Button) error

	// CursorPosition reports the current pointer coordinates.
	CursorPosition() (x, y int, err error)

	// TypeText injects text as a sequence of synthetic keystrokes.
	TypeText(text string) error

	// PressKey executes a parsed key chord: modifiers down, base key
	// press-release, modifiers up in reverse order.
	PressKey(chord keys.Chord) error

	// Size reports the display resolution in pixels.
	Size() (width, height int, err error)

	// CaptureFrame reads the full current framebuffer.
	CaptureFrame() (image.Image, error)

	// Ping verifies the display connection is healthy.
	Ping() error
}
