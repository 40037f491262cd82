package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List running applications with toplevel windows",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		desktop, err := newDesktop()
		if err != nil {
			return err
		}
		defer desktop.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cliTimeout())
		defer cancel()

		apps, err := desktop.ListApplications(ctx)
		if err != nil {
			return err
		}

		for _, app := range apps {
			fmt.Printf("%-8d %-30s %s\n", app.ProcessID, app.Name, app.WindowTitle)
		}

		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <application>",
	Short: "Launch an application by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		desktop, err := newDesktop()
		if err != nil {
			return err
		}
		defer desktop.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cliTimeout())
		defer cancel()

		return desktop.OpenApplication(ctx, args[0])
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <application>",
	Short: "Bring a running application's window to the foreground",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		desktop, err := newDesktop()
		if err != nil {
			return err
		}
		defer desktop.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cliTimeout())
		defer cancel()

		return desktop.ActivateApplication(ctx, args[0])
	},
}

func init() {
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(activateCmd)
}
