package display

import (
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"

	"github.com/desk-next/deskcli/keys"
	"github.com/desk-next/deskcli/utils"
)

// xdotool button numbers
var buttonNumbers = map[Button]string{
	ButtonLeft:   "1",
	ButtonMiddle: "2",
	ButtonRight:  "3",
}

// per-keystroke delay for text injection, in milliseconds
const typeDelayMs = 12

// X11 drives the primary X display through xdotool subprocesses for input
// and the screenshot library for capture. It is not safe for concurrent use.
type X11 struct{}

// NewX11 connects to the display and verifies it is usable.
func NewX11() (*X11, error) {
	d := &X11{}
	if err := d.Ping(); err != nil {
		return nil, fmt.Errorf("display not available: %w", err)
	}
	return d, nil
}

func (d *X11) MoveTo(x, y int) error {
	return d.run("mousemove", "--sync", strconv.Itoa(x), strconv.Itoa(y))
}

func (d *X11) Click(button Button) error {
	num, ok := buttonNumbers[button]
	if !ok {
		return fmt.Errorf("unknown button %q", button)
	}
	return d.run("click", num)
}

func (d *X11) ButtonDown(button Button) error {
	num, ok := buttonNumbers[button]
	if !ok {
		return fmt.Errorf("unknown button %q", button)
	}
	return d.run("mousedown", num)
}

func (d *X11) ButtonUp(button Button) error {
	num, ok := buttonNumbers[button]
	if !ok {
		return fmt.Errorf("unknown button %q", button)
	}
	return d.run("mouseup", num)
}

func (d *X11) CursorPosition() (int, int, error) {
	out, err := d.output("getmouselocation")
	if err != nil {
		return 0, 0, err
	}

	// output: "x:512 y:384 screen:0 window:123"
	var x, y int
	found := 0
	for _, field := range strings.Fields(out) {
		k, v, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch k {
		case "x":
			x = n
			found++
		case "y":
			y = n
			found++
		}
	}
	if found != 2 {
		return 0, 0, fmt.Errorf("unexpected getmouselocation output: %q", out)
	}
	return x, y, nil
}

func (d *X11) TypeText(text string) error {
	return d.run("type", "--delay", strconv.Itoa(typeDelayMs), "--", text)
}

func (d *X11) PressKey(chord keys.Chord) error {
	for _, mod := range chord.Modifiers {
		if err := d.run("keydown", mod); err != nil {
			d.releaseModifiers(chord.Modifiers)
			return err
		}
	}

	if err := d.run("key", chord.Key); err != nil {
		d.releaseModifiers(chord.Modifiers)
		return err
	}

	for i := len(chord.Modifiers) - 1; i >= 0; i-- {
		if err := d.run("keyup", chord.Modifiers[i]); err != nil {
			return err
		}
	}
	return nil
}

// releaseModifiers keys up everything on the error path so a failed chord
// does not leave modifiers stuck down.
func (d *X11) releaseModifiers(mods []string) {
	for i := len(mods) - 1; i >= 0; i-- {
		if err := d.run("keyup", mods[i]); err != nil {
			utils.Verbose("failed to release modifier %s: %v", mods[i], err)
		}
	}
}

func (d *X11) Size() (int, int, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return 0, 0, ErrConnectionLost
	}
	bounds := screenshot.GetDisplayBounds(0)
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return 0, 0, fmt.Errorf("display reports empty bounds %v", bounds)
	}
	return bounds.Dx(), bounds.Dy(), nil
}

func (d *X11) CaptureFrame() (image.Image, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrConnectionLost
	}

	bounds := screenshot.GetDisplayBounds(0)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("framebuffer read failed: %w", err)
	}
	if img.Bounds().Dx() != bounds.Dx() || img.Bounds().Dy() != bounds.Dy() {
		return nil, fmt.Errorf("truncated capture: got %v, want %v", img.Bounds(), bounds)
	}
	return img, nil
}

func (d *X11) Ping() error {
	_, _, err := d.CursorPosition()
	return err
}

func (d *X11) run(args ...string) error {
	_, err := d.output(args...)
	return err
}

func (d *X11) output(args ...string) (string, error) {
	out, err := exec.Command("xdotool", args...).CombinedOutput()
	if err != nil {
		return "", classifyExecError(args[0], string(out), err)
	}
	return string(out), nil
}

// classifyExecError distinguishes a lost display connection from an ordinary
// command failure.
func classifyExecError(op, out string, err error) error {
	lower := strings.ToLower(out)
	if strings.Contains(lower, "can't open display") ||
		strings.Contains(lower, "cannot open display") ||
		strings.Contains(lower, "failed creating new xdo instance") {
		return fmt.Errorf("xdotool %s: %s: %w", op, strings.TrimSpace(out), ErrConnectionLost)
	}
	if out != "" {
		return fmt.Errorf("xdotool %s: %v: %s", op, err, strings.TrimSpace(out))
	}
	return fmt.Errorf("xdotool %s: %w", op, err)
}
