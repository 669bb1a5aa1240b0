package actions

import (
	"encoding/base64"
	"errors"
	"time"
	"unicode"

	"github.com/desk-next/deskcli/display"
	"github.com/desk-next/deskcli/keys"
	"github.com/desk-next/deskcli/utils"
)

const (
	// pause between the two clicks of a double click, and around the
	// press/release edges of a drag
	clickInterval = 100 * time.Millisecond

	// pixels of pointer travel per interpolation step during a drag
	dragStepPixels = 10

	dragStepInterval = 10 * time.Millisecond

	defaultJpegQuality = 85
)

// Executor maps each action to the display driver calls that realize it. It
// performs no locking of its own; the serialization queue guarantees that at
// most one Execute runs at a time.
type Executor struct {
	driver display.Driver
	width  int
	height int
}

// NewExecutor builds an executor for the given driver, reading the display
// resolution once for bounds validation.
func NewExecutor(driver display.Driver) (*Executor, error) {
	width, height, err := driver.Size()
	if err != nil {
		return nil, WrapError(KindExecution, err, "failed to read display size")
	}
	return &Executor{driver: driver, width: width, height: height}, nil
}

// Size returns the display resolution the executor validates against.
func (e *Executor) Size() (int, int) {
	return e.width, e.height
}

// Validate checks everything about an action that can be checked without
// touching the display: coordinate bounds, key specifications, and text
// injectability. It is called before queue admission, so invalid requests
// never consume a queue slot.
func (e *Executor) Validate(action Action) error {
	switch a := action.(type) {
	case MouseMove:
		return e.checkBounds(a.X, a.Y)
	case LeftClickDrag:
		return e.checkBounds(a.X, a.Y)
	case TypeText:
		return checkText(a.Text)
	case KeyPress:
		if _, err := keys.Parse(a.Key); err != nil {
			return WrapError(KindInvalidKey, err, "invalid key specification %q", a.Key)
		}
		return nil
	default:
		return nil
	}
}

func (e *Executor) checkBounds(x, y int) error {
	if x < 0 || x >= e.width || y < 0 || y >= e.height {
		return Errorf(KindOutOfBounds, "coordinates (%d,%d) outside display %dx%d", x, y, e.width, e.height)
	}
	return nil
}

// checkText rejects text the input method cannot inject. Newlines and tabs
// have key equivalents; other control characters do not.
func checkText(text string) error {
	if text == "" {
		return Errorf(KindValidation, "'text' must not be empty")
	}
	for _, r := range text {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) || !unicode.IsGraphic(r) {
			return Errorf(KindUnsupportedCharacter, "character %q has no injectable keystroke", r)
		}
	}
	return nil
}

// Execute runs a single action to completion against the display. It assumes
// Validate has already passed but re-checks bounds as a last line of defense.
func (e *Executor) Execute(action Action) (*Result, error) {
	switch a := action.(type) {
	case Screenshot:
		return e.screenshot(a)
	case CursorPosition:
		return e.cursorPosition()
	case MouseMove:
		return e.mouseMove(a)
	case LeftClick:
		return e.click(display.ButtonLeft)
	case RightClick:
		return e.click(display.ButtonRight)
	case MiddleClick:
		return e.click(display.ButtonMiddle)
	case DoubleClick:
		return e.doubleClick()
	case LeftClickDrag:
		return e.drag(a)
	case TypeText:
		return e.typeText(a)
	case KeyPress:
		return e.keyPress(a)
	default:
		return nil, Errorf(KindValidation, "unknown action type %q", action.Type())
	}
}

func (e *Executor) screenshot(a Screenshot) (*Result, error) {
	img, err := e.driver.CaptureFrame()
	if err != nil {
		return nil, WrapError(KindCapture, err, "screen capture failed")
	}

	data, err := utils.EncodePng(img)
	if err != nil {
		return nil, WrapError(KindCapture, err, "failed to encode screenshot")
	}

	if a.Format == "jpeg" {
		quality := a.Quality
		if quality == 0 {
			quality = defaultJpegQuality
		}
		data, err = utils.ConvertPngToJpeg(data, quality)
		if err != nil {
			return nil, WrapError(KindCapture, err, "failed to re-encode screenshot as jpeg")
		}
	}

	return &Result{Data: map[string]interface{}{
		"image": base64.StdEncoding.EncodeToString(data),
	}}, nil
}

func (e *Executor) cursorPosition() (*Result, error) {
	x, y, err := e.driver.CursorPosition()
	if err != nil {
		return nil, WrapError(KindExecution, err, "failed to read cursor position")
	}
	return &Result{Data: map[string]interface{}{"x": x, "y": y}}, nil
}

func (e *Executor) mouseMove(a MouseMove) (*Result, error) {
	if err := e.checkBounds(a.X, a.Y); err != nil {
		return nil, err
	}
	if err := e.driver.MoveTo(a.X, a.Y); err != nil {
		return nil, WrapError(KindExecution, err, "mouse move failed")
	}
	return &Result{}, nil
}

func (e *Executor) click(button display.Button) (*Result, error) {
	if err := e.driver.Click(button); err != nil {
		return nil, WrapError(KindExecution, err, "%s click failed", button)
	}
	return &Result{}, nil
}

func (e *Executor) doubleClick() (*Result, error) {
	if err := e.driver.Click(display.ButtonLeft); err != nil {
		return nil, WrapError(KindExecution, err, "first click failed")
	}
	time.Sleep(clickInterval)
	if err := e.driver.Click(display.ButtonLeft); err != nil {
		return nil, WrapError(KindExecution, err, "second click failed")
	}
	return &Result{}, nil
}

// drag presses at the current position, walks the pointer to the target in
// small interpolated steps, and releases. The button is released on every
// failure path so the pointer is never left stuck mid-drag.
func (e *Executor) drag(a LeftClickDrag) (*Result, error) {
	if err := e.checkBounds(a.X, a.Y); err != nil {
		return nil, err
	}

	startX, startY, err := e.driver.CursorPosition()
	if err != nil {
		return nil, WrapError(KindExecution, err, "failed to read drag start position")
	}

	if err := e.driver.ButtonDown(display.ButtonLeft); err != nil {
		return nil, WrapError(KindExecution, err, "drag press failed")
	}
	time.Sleep(clickInterval)

	dx := a.X - startX
	dy := a.Y - startY
	steps := max(intAbs(dx), intAbs(dy)) / dragStepPixels
	for i := 1; i < steps; i++ {
		x := startX + dx*i/steps
		y := startY + dy*i/steps
		if err := e.driver.MoveTo(x, y); err != nil {
			e.releaseButton()
			return nil, WrapError(KindExecution, err, "drag move failed")
		}
		time.Sleep(dragStepInterval)
	}

	if err := e.driver.MoveTo(a.X, a.Y); err != nil {
		e.releaseButton()
		return nil, WrapError(KindExecution, err, "drag move failed")
	}
	time.Sleep(clickInterval)

	if err := e.driver.ButtonUp(display.ButtonLeft); err != nil {
		return nil, WrapError(KindExecution, err, "drag release failed")
	}
	return &Result{}, nil
}

func (e *Executor) releaseButton() {
	if err := e.driver.ButtonUp(display.ButtonLeft); err != nil {
		utils.Verbose("failed to release button after drag error: %v", err)
	}
}

func (e *Executor) typeText(a TypeText) (*Result, error) {
	if err := checkText(a.Text); err != nil {
		return nil, err
	}
	if err := e.driver.TypeText(a.Text); err != nil {
		return nil, WrapError(KindExecution, err, "text injection failed")
	}
	return &Result{}, nil
}

func (e *Executor) keyPress(a KeyPress) (*Result, error) {
	chord, err := keys.Parse(a.Key)
	if err != nil {
		return nil, WrapError(KindInvalidKey, err, "invalid key specification %q", a.Key)
	}
	if err := e.driver.PressKey(chord); err != nil {
		return nil, WrapError(KindExecution, err, "key press %q failed", chord)
	}
	return &Result{}, nil
}

// IsConnectionLost reports whether an execution failure indicates the display
// connection itself is gone, as opposed to a single failed call.
func IsConnectionLost(err error) bool {
	return errors.Is(err, display.ErrConnectionLost)
}

func intAbs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
