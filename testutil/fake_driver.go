// Package testutil provides a recording fake display driver for tests.
package testutil

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/desk-next/deskcli/display"
	"github.com/desk-next/deskcli/keys"
)

// Call records a single driver invocation.
type Call struct {
	Name string
	X    int
	Y    int
	Text string
	When time.Time
}

// FakeDriver implements display.Driver and records every call. Latency makes
// each input call block, FailWith makes them fail, so tests can exercise the
// queue's timeout and error paths.
type FakeDriver struct {
	mu sync.Mutex

	Width  int
	Height int

	// Latency is slept inside every input/capture call.
	Latency time.Duration

	// FailWith, when set, is returned by every input/capture call.
	FailWith error

	// PingErr, when set, is returned by Ping.
	PingErr error

	posX, posY int
	calls      []Call
	active     int
	overlapped bool
}

// Ensure FakeDriver implements the interface.
var _ display.Driver = (*FakeDriver)(nil)

// NewFakeDriver returns a healthy fake with the given resolution.
func NewFakeDriver(width, height int) *FakeDriver {
	return &FakeDriver{Width: width, Height: height}
}

// Calls returns a copy of all recorded calls in order.
func (f *FakeDriver) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallNames returns just the names of recorded calls, in order.
func (f *FakeDriver) CallNames() []string {
	calls := f.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

// Overlapped reports whether two driver calls were ever in flight at the
// same time, which the serialization queue must prevent.
func (f *FakeDriver) Overlapped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlapped
}

// SetFailure sets the error returned by subsequent calls, nil to heal.
func (f *FakeDriver) SetFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailWith = err
}

func (f *FakeDriver) enter(call Call) error {
	f.mu.Lock()
	call.When = time.Now()
	f.calls = append(f.calls, call)
	f.active++
	if f.active > 1 {
		f.overlapped = true
	}
	latency := f.Latency
	failWith := f.FailWith
	f.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return failWith
}

func (f *FakeDriver) MoveTo(x, y int) error {
	err := f.enter(Call{Name: "MoveTo", X: x, Y: y})
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.posX, f.posY = x, y
	f.mu.Unlock()
	return nil
}

func (f *FakeDriver) Click(button display.Button) error {
	return f.enter(Call{Name: "Click", Text: string(button)})
}

func (f *FakeDriver) ButtonDown(button display.Button) error {
	return f.enter(Call{Name: "ButtonDown", Text: string(button)})
}

func (f *FakeDriver) ButtonUp(button display.Button) error {
	return f.enter(Call{Name: "ButtonUp", Text: string(button)})
}

func (f *FakeDriver) CursorPosition() (int, int, error) {
	if err := f.enter(Call{Name: "CursorPosition"}); err != nil {
		return 0, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posX, f.posY, nil
}

func (f *FakeDriver) TypeText(text string) error {
	return f.enter(Call{Name: "TypeText", Text: text})
}

func (f *FakeDriver) PressKey(chord keys.Chord) error {
	return f.enter(Call{Name: "PressKey", Text: chord.String()})
}

func (f *FakeDriver) Size() (int, int, error) {
	return f.Width, f.Height, nil
}

func (f *FakeDriver) CaptureFrame() (image.Image, error) {
	if err := f.enter(Call{Name: "CaptureFrame"}); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for x := 0; x < f.Width; x += 8 {
		for y := 0; y < f.Height; y++ {
			img.Set(x, y, color.RGBA{R: 0x3c, G: 0x78, B: 0xb4, A: 0xff})
		}
	}
	return img, nil
}

func (f *FakeDriver) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PingErr
}

// String helps test failure output.
func (c Call) String() string {
	return fmt.Sprintf("%s(%d,%d,%q)", c.Name, c.X, c.Y, c.Text)
}
