package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/desk-next/deskcli/actions"
	"github.com/desk-next/deskcli/display"
)

var inputCmd = &cobra.Command{
	Use:   "input",
	Short: "Inject a single input action into the display",
	Long:  `One-shot local input injection, without going through a running server.`,
}

var inputMoveCmd = &cobra.Command{
	Use:   "move <x> <y>",
	Short: "Move the pointer to absolute coordinates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid x coordinate %q", args[0])
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid y coordinate %q", args[1])
		}
		return runAction(actions.MouseMove{X: x, Y: y})
	},
}

var inputClickCmd = &cobra.Command{
	Use:   "click [left|right|middle|double]",
	Short: "Click at the current pointer position",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		button := "left"
		if len(args) == 1 {
			button = args[0]
		}

		var action actions.Action
		switch button {
		case "left":
			action = actions.LeftClick{}
		case "right":
			action = actions.RightClick{}
		case "middle":
			action = actions.MiddleClick{}
		case "double":
			action = actions.DoubleClick{}
		default:
			return fmt.Errorf("unknown button %q", button)
		}
		return runAction(action)
	},
}

var inputTypeCmd = &cobra.Command{
	Use:   "type <text>",
	Short: "Type text into the focused window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(actions.TypeText{Text: args[0]})
	},
}

var inputKeyCmd = &cobra.Command{
	Use:   "key <combination>",
	Short: "Press a key combination (e.g. 'ctrl+shift+s')",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(actions.KeyPress{Key: args[0]})
	},
}

// runAction executes one action directly against the display, bypassing the
// queue: a one-shot CLI invocation is the only user of the display here.
func runAction(action actions.Action) error {
	driver, err := display.NewX11()
	if err != nil {
		return err
	}

	executor, err := actions.NewExecutor(driver)
	if err != nil {
		return err
	}

	if err := executor.Validate(action); err != nil {
		return err
	}

	result, err := executor.Execute(action)
	if err != nil {
		return err
	}
	if result != nil && result.Data != nil {
		printJson(result.Data)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(inputCmd)

	inputCmd.AddCommand(inputMoveCmd)
	inputCmd.AddCommand(inputClickCmd)
	inputCmd.AddCommand(inputTypeCmd)
	inputCmd.AddCommand(inputKeyCmd)
}
