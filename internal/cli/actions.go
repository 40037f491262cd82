package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	terminator "github.com/tribhuwan-kumar/terminator"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
)

var (
	actionVerify    bool
	actionHighlight bool
)

// withElement resolves the selector and runs fn against the first match.
func withElement(selector string, fn func(ctx context.Context, elem *terminator.Element) error) error {
	desktop, err := newDesktop()
	if err != nil {
		return err
	}
	defer desktop.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout()*3)
	defer cancel()

	elem, err := desktop.Locator(selector).WithTimeout(cliTimeout()).First(ctx)
	if err != nil {
		return err
	}

	return fn(ctx, elem)
}

func actionOpts() []terminator.ActionOption {
	opts := []terminator.ActionOption{terminator.ActionTimeout(cliTimeout())}

	if actionVerify {
		opts = append(opts, terminator.VerifyAction())
	}

	if actionHighlight {
		opts = append(opts, terminator.HighlightBeforeAction())
	}

	return opts
}

var clickCmd = &cobra.Command{
	Use:   "click <selector>",
	Short: "Click the first element matching a selector",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withElement(args[0], func(ctx context.Context, elem *terminator.Element) error {
			return elem.Click(ctx, actionOpts()...)
		})
	},
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <selector>",
	Short: "Fire the element's native default action",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withElement(args[0], func(ctx context.Context, elem *terminator.Element) error {
			return elem.Invoke(ctx, actionOpts()...)
		})
	},
}

var typeCmd = &cobra.Command{
	Use:   "type <selector> <text>",
	Short: "Type text into the first matching element",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return withElement(args[0], func(ctx context.Context, elem *terminator.Element) error {
			return elem.TypeText(ctx, args[1], actionOpts()...)
		})
	},
}

var pressCmd = &cobra.Command{
	Use:   "press <selector> <keyspec>",
	Short: "Press a key sequence ({Ctrl}c, {Alt}{F4}) with the element focused",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return withElement(args[0], func(ctx context.Context, elem *terminator.Element) error {
			return elem.PressKey(ctx, args[1], actionOpts()...)
		})
	},
}

var scrollCmd = &cobra.Command{
	Use:   "scroll <selector> <up|down|left|right> [ticks]",
	Short: "Scroll over the first matching element",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(_ *cobra.Command, args []string) error {
		amount := 3.0

		if len(args) == 3 {
			parsed, parseErr := strconv.ParseFloat(args[2], 64)
			if parseErr != nil {
				return fmt.Errorf("invalid tick count %q: %w", args[2], parseErr)
			}

			amount = parsed
		}

		return withElement(args[0], func(ctx context.Context, elem *terminator.Element) error {
			return elem.Scroll(ctx, action.ScrollDirection(args[1]), amount, actionOpts()...)
		})
	},
}

var highlightCmd = &cobra.Command{
	Use:   "highlight <selector>",
	Short: "Draw a border around the first matching element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, err := cmd.Flags().GetUint32("color")
		if err != nil {
			return err
		}

		durationMs, err := cmd.Flags().GetInt("duration")
		if err != nil {
			return err
		}

		return withElement(args[0], func(ctx context.Context, elem *terminator.Element) error {
			err := elem.Highlight(ctx, color, time.Duration(durationMs)*time.Millisecond)
			if err != nil {
				return err
			}

			// Keep the process alive while the overlay shows.
			time.Sleep(time.Duration(durationMs) * time.Millisecond)

			return nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{clickCmd, invokeCmd, typeCmd, pressCmd, scrollCmd} {
		cmd.Flags().BoolVar(&actionVerify, "verify", false, "verify the action's effect")
		cmd.Flags().BoolVar(&actionHighlight, "highlight", false, "flash the target before acting")
		rootCmd.AddCommand(cmd)
	}

	highlightCmd.Flags().Uint32("color", 0x00FF00, "border color as BGR integer")
	highlightCmd.Flags().Int("duration", 2000, "highlight duration in milliseconds")
	rootCmd.AddCommand(highlightCmd)
}
