// Package actions defines the closed set of desktop actions, their wire
// format, validation, and execution against a display driver.
package actions

import (
	"encoding/json"
)

// Action is one requested input or capture operation. The set of
// implementations is closed; adding a new action type means adding a struct
// here, a case in ParseRequest, and a case in the executor, all checked at
// compile time.
type Action interface {
	// Type returns the wire name of the action.
	Type() string

	isAction()
}

type Screenshot struct {
	// Format is "png" (default) or "jpeg".
	Format string `json:"format,omitempty"`
	// Quality is 1-100, used for jpeg only.
	Quality int `json:"quality,omitempty"`
}

type CursorPosition struct{}

type MouseMove struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type LeftClick struct{}

type RightClick struct{}

type MiddleClick struct{}

type DoubleClick struct{}

type LeftClickDrag struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type TypeText struct {
	Text string `json:"text"`
}

type KeyPress struct {
	Key string `json:"key"`
}

func (Screenshot) Type() string     { return "screenshot" }
func (CursorPosition) Type() string { return "cursor_position" }
func (MouseMove) Type() string      { return "mouse_move" }
func (LeftClick) Type() string      { return "left_click" }
func (RightClick) Type() string     { return "right_click" }
func (MiddleClick) Type() string    { return "middle_click" }
func (DoubleClick) Type() string    { return "double_click" }
func (LeftClickDrag) Type() string  { return "left_click_drag" }
func (TypeText) Type() string       { return "type_text" }
func (KeyPress) Type() string       { return "key_press" }

func (Screenshot) isAction()     {}
func (CursorPosition) isAction() {}
func (MouseMove) isAction()      {}
func (LeftClick) isAction()      {}
func (RightClick) isAction()     {}
func (MiddleClick) isAction()    {}
func (DoubleClick) isAction()    {}
func (LeftClickDrag) isAction()  {}
func (TypeText) isAction()       {}
func (KeyPress) isAction()       {}

// Result is the success payload of an executed action. Data is nil for
// actions that only have side effects.
type Result struct {
	Data map[string]interface{} `json:"data,omitempty"`
}

// Envelope is the wire form of an action request.
type Envelope struct {
	Type  string          `json:"type"`
	Input json.RawMessage `json:"input,omitempty"`
}

type coordInput struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type textInput struct {
	Text *string `json:"text"`
}

type keyInput struct {
	Key *string `json:"key"`
}

// ParseRequest decodes an action envelope into a concrete Action, checking
// that all required fields are present and well-typed. All failures are
// validation errors; nothing here touches the display.
func ParseRequest(env Envelope) (Action, error) {
	switch env.Type {
	case "screenshot":
		var in Screenshot
		if err := decodeInput(env.Input, &in); err != nil {
			return nil, err
		}
		switch in.Format {
		case "", "png", "jpeg":
		default:
			return nil, Errorf(KindValidation, "'format' must be \"png\" or \"jpeg\", got %q", in.Format)
		}
		if in.Quality < 0 || in.Quality > 100 {
			return nil, Errorf(KindValidation, "'quality' must be 1-100, got %d", in.Quality)
		}
		return in, nil

	case "cursor_position":
		return CursorPosition{}, nil

	case "mouse_move", "left_click_drag":
		var in coordInput
		if err := decodeInput(env.Input, &in); err != nil {
			return nil, err
		}
		if in.X == nil || in.Y == nil {
			return nil, Errorf(KindValidation, "'%s' requires integer fields 'x' and 'y'", env.Type)
		}
		if env.Type == "mouse_move" {
			return MouseMove{X: *in.X, Y: *in.Y}, nil
		}
		return LeftClickDrag{X: *in.X, Y: *in.Y}, nil

	case "left_click":
		return LeftClick{}, nil
	case "right_click":
		return RightClick{}, nil
	case "middle_click":
		return MiddleClick{}, nil
	case "double_click":
		return DoubleClick{}, nil

	case "type_text":
		var in textInput
		if err := decodeInput(env.Input, &in); err != nil {
			return nil, err
		}
		if in.Text == nil {
			return nil, Errorf(KindValidation, "'type_text' requires string field 'text'")
		}
		return TypeText{Text: *in.Text}, nil

	case "key_press":
		var in keyInput
		if err := decodeInput(env.Input, &in); err != nil {
			return nil, err
		}
		if in.Key == nil {
			return nil, Errorf(KindValidation, "'key_press' requires string field 'key'")
		}
		return KeyPress{Key: *in.Key}, nil

	case "":
		return nil, Errorf(KindValidation, "'type' is required")
	default:
		return nil, Errorf(KindValidation, "unknown action type %q", env.Type)
	}
}

func decodeInput(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return Errorf(KindValidation, "invalid 'input': %v", err)
	}
	return nil
}
