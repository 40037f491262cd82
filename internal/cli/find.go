package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var findTree bool

var findCmd = &cobra.Command{
	Use:   "find <selector>",
	Short: "Find elements matching a selector",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		desktop, err := newDesktop()
		if err != nil {
			return err
		}
		defer desktop.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cliTimeout()+cliTimeout())
		defer cancel()

		elements, err := desktop.Locator(args[0]).WithTimeout(cliTimeout()).All(ctx)
		if err != nil {
			return err
		}

		for index, elem := range elements {
			role, _ := elem.Role(ctx)
			name, _ := elem.Name(ctx)
			bounds, _ := elem.Bounds(ctx)

			fmt.Printf("%d: role=%s name=%q bounds=%v id=%s\n",
				index, role, name, bounds, elem.RuntimeID())

			if findTree {
				node, exploreErr := elem.Explore(ctx)
				if exploreErr != nil {
					continue
				}

				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				if encodeErr := encoder.Encode(node); encodeErr != nil {
					return encodeErr
				}
			}
		}

		return nil
	},
}

func init() {
	findCmd.Flags().BoolVar(&findTree, "tree", false, "dump each match's children as JSON")
	rootCmd.AddCommand(findCmd)
}
