package cli

import (
	"fmt"

	"github.com/getlantern/systray"
	"github.com/spf13/cobra"
	terminator "github.com/tribhuwan-kumar/terminator"
	"github.com/tribhuwan-kumar/terminator/internal/core/monitor"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run the event monitor as a daemon with a status tray item",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		desktop, err := newDesktop()
		if err != nil {
			return err
		}

		systray.Run(trayReady(desktop), func() {
			desktop.Close()
		})

		return nil
	},
}

// trayReady wires the tray menu once the loop is up.
func trayReady(desktop *terminator.Desktop) func() {
	return func() {
		systray.SetTitle("terminator")
		systray.SetTooltip("Terminator automation daemon")

		status := systray.AddMenuItem("Watching desktop events", "")
		status.Disable()

		stopHighlights := systray.AddMenuItem("Stop highlights", "Close all highlight overlays")
		quit := systray.AddMenuItem("Quit", "Stop the daemon")

		desktop.OnEvent(func(signal monitor.Signal) {
			switch sig := signal.(type) {
			case monitor.ApplicationSwitch:
				status.SetTitle(fmt.Sprintf("Active: %s", sig.New))
			case monitor.WindowTitleChange:
				status.SetTitle(fmt.Sprintf("Active: %s — %s", sig.App, sig.New))
			}
		})

		go func() {
			for {
				select {
				case <-stopHighlights.ClickedCh:
					desktop.StopHighlighting()
				case <-quit.ClickedCh:
					systray.Quit()

					return
				}
			}
		}()
	}
}

func init() {
	rootCmd.AddCommand(trayCmd)
}
