package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/desk-next/deskcli/display"
	"github.com/desk-next/deskcli/utils"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Take a screenshot of the display",
	Long:  `Captures the display directly, without going through a running server.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		quality, _ := cmd.Flags().GetInt("quality")

		driver, err := display.NewX11()
		if err != nil {
			return err
		}

		img, err := driver.CaptureFrame()
		if err != nil {
			return fmt.Errorf("screen capture failed: %w", err)
		}

		data, err := utils.EncodePng(img)
		if err != nil {
			return fmt.Errorf("failed to encode screenshot: %w", err)
		}

		switch format {
		case "png":
		case "jpeg":
			data, err = utils.ConvertPngToJpeg(data, quality)
			if err != nil {
				return fmt.Errorf("failed to re-encode as jpeg: %w", err)
			}
		default:
			return fmt.Errorf("format must be 'png' or 'jpeg', got %q", format)
		}

		if outputPath == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}

		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		fmt.Printf("Saved screenshot to %s (%d bytes)\n", outputPath, len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(screenshotCmd)

	screenshotCmd.Flags().StringP("output", "o", "screenshot.png", "Output file path, or '-' for stdout")
	screenshotCmd.Flags().String("format", "png", "Image format: png or jpeg")
	screenshotCmd.Flags().Int("quality", 85, "JPEG quality (1-100)")
}
