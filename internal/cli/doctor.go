package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var doctorTree bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check adapter availability and accessibility permissions",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)

		desktop, err := newDesktop()
		if err != nil {
			fmt.Printf("adapter:  unavailable (%v)\n", err)

			return err
		}
		defer desktop.Close()

		fmt.Println("adapter:  ok")

		ctx, cancel := context.WithTimeout(context.Background(), cliTimeout())
		defer cancel()

		if permErr := desktop.CheckPermissions(ctx); permErr != nil {
			fmt.Printf("permissions: denied (%v)\n", permErr)

			return permErr
		}

		fmt.Println("permissions: granted")

		apps, appsErr := desktop.ListApplications(ctx)
		if appsErr != nil {
			fmt.Printf("applications: error (%v)\n", appsErr)

			return appsErr
		}

		fmt.Printf("applications: %d visible\n", len(apps))

		if doctorTree {
			tree, treeErr := desktop.FocusedWindowTree(ctx, 4)
			if treeErr != nil {
				return treeErr
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(tree)
		}

		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorTree, "tree", false, "also dump the focused window's subtree")
	rootCmd.AddCommand(doctorCmd)
}
