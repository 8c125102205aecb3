package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
)

var layoutWorkspace string

// directionCommand builds a layout command taking one direction argument.
func directionCommand(use, short string, command ipc.CommandType) *cobra.Command {
	return &cobra.Command{
		Use:       use + " <left|right|up|down>",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"left", "right", "up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := platform.ParseDirection(args[0])
			if err != nil {
				return err
			}
			return sendLayout(command, ipc.LayoutPayload{Direction: dir.String()})
		},
	}
}

// plainCommand builds a layout command without arguments.
func plainCommand(use, short string, command ipc.CommandType) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendLayout(command, ipc.LayoutPayload{})
		},
	}
}

func sendLayout(command ipc.CommandType, p ipc.LayoutPayload) error {
	p.Workspace = layoutWorkspace
	if err := newClient().Layout(command, p); err != nil {
		return err
	}
	msg := strings.ToLower(strings.ReplaceAll(string(command), "_", " "))
	if p.Direction != "" {
		msg += " " + p.Direction
	}
	printOK("%s", msg)
	return nil
}

var resizeDelta float64

var resizeCmd = &cobra.Command{
	Use:   "resize <left|right|up|down>",
	Short: "Grow the selected window towards a direction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := platform.ParseDirection(args[0])
		if err != nil {
			return err
		}
		if resizeDelta < 0 || resizeDelta >= 1 {
			return fmt.Errorf("--delta must be in [0, 1), got %g", resizeDelta)
		}
		return sendLayout(ipc.CommandResize, ipc.LayoutPayload{Direction: dir.String(), Delta: resizeDelta})
	},
}

var ratioBackward bool

var ratioCmd = &cobra.Command{
	Use:   "ratio",
	Short: "Cycle the split ratio of the selected window's parent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendLayout(ipc.CommandCycleRatio, ipc.LayoutPayload{Forward: !ratioBackward})
	},
}

var rootStable bool

var moveToRootCmd = &cobra.Command{
	Use:   "root",
	Short: "Make the selected window a direct child of the tree root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendLayout(ipc.CommandMoveToRoot, ipc.LayoutPayload{Stable: rootStable})
	},
}

var preselectCmd = &cobra.Command{
	Use:   "preselect <left|right|up|down|clear>",
	Short: "Choose where the next window is inserted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.EqualFold(args[0], "clear") {
			return sendLayout(ipc.CommandPreselect, ipc.LayoutPayload{Clear: true})
		}
		dir, err := platform.ParseDirection(args[0])
		if err != nil {
			return err
		}
		return sendLayout(ipc.CommandPreselect, ipc.LayoutPayload{Direction: dir.String()})
	},
}

func init() {
	layoutCmds := []*cobra.Command{
		directionCommand("focus", "Focus the neighbor in a direction", ipc.CommandFocus),
		directionCommand("move", "Move the selected window towards a direction", ipc.CommandMove),
		directionCommand("swap", "Swap the selected window with its neighbor", ipc.CommandSwap),
		resizeCmd,
		plainCommand("balance", "Reset all split ratios of the workspace", ipc.CommandBalance),
		plainCommand("orientation", "Toggle the orientation of the selected window's split", ipc.CommandToggleOrientation),
		plainCommand("fullscreen", "Toggle fullscreen for the selected window", ipc.CommandToggleFullscreen),
		ratioCmd,
		moveToRootCmd,
		preselectCmd,
	}
	for _, c := range layoutCmds {
		c.Flags().StringVarP(&layoutWorkspace, "workspace", "w", "", "Target workspace (default: workspace of the focused monitor)")
		rootCmd.AddCommand(c)
	}
	resizeCmd.Flags().Float64Var(&resizeDelta, "delta", 0, "Split ratio step (default 0.1)")
	ratioCmd.Flags().BoolVar(&ratioBackward, "backward", false, "Cycle towards smaller ratios")
	moveToRootCmd.Flags().BoolVar(&rootStable, "stable", false, "Keep the window on its current side of the root")
}
