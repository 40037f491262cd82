package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	terminator "github.com/tribhuwan-kumar/terminator"
)

var screenshotOut string

var screenshotCmd = &cobra.Command{
	Use:   "screenshot [selector]",
	Short: "Capture the desktop, or one element, as PNG",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var data []byte

		if len(args) == 1 {
			err := withElement(args[0], func(ctx context.Context, elem *terminator.Element) error {
				captured, captureErr := elem.Screenshot(ctx)
				if captureErr != nil {
					return captureErr
				}

				data = captured

				return nil
			})
			if err != nil {
				return err
			}
		} else {
			desktop, err := newDesktop()
			if err != nil {
				return err
			}
			defer desktop.Close()

			ctx, cancel := context.WithTimeout(context.Background(), cliTimeout())
			defer cancel()

			data, err = desktop.Screenshot(ctx)
			if err != nil {
				return err
			}
		}

		return os.WriteFile(screenshotOut, data, 0o644) //nolint:gosec // screenshots are not secrets
	},
}

func init() {
	screenshotCmd.Flags().StringVarP(&screenshotOut, "out", "o", "screenshot.png", "output file")
	rootCmd.AddCommand(screenshotCmd)
}
