package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/tiling"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newClient().GetStatus()
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(st)
		}
		writeStatus(os.Stdout, st)
		return nil
	},
}

func writeStatus(w io.Writer, st *ipc.StatusData) {
	row := func(key string, value any) {
		keyColor.Fprintf(w, "%-18s", key+":")
		fmt.Fprintln(w, value)
	}
	row("Uptime", (time.Duration(st.UptimeSeconds) * time.Second).String())
	row("Windows", st.Windows)
	row("Workspaces", st.Workspaces)
	row("Monitors", st.Monitors)
	row("Focused monitor", orDash(st.FocusedMonitor))
	row("Active workspace", orDash(st.ActiveWorkspace))
	row("Focused window", orDash(st.FocusedWindow))
	row("Animating", st.Animating)
	row("Config", orDash(st.ConfigPath))
	row("Sessions", len(st.Sessions))
	for _, s := range st.Sessions {
		fmt.Fprintf(w, "  pid %-8d pending %d\n", s.PID, s.PendingJobs)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var treeCmd = &cobra.Command{
	Use:   "tree [workspace]",
	Short: "Print the split tree of a workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		tree, err := newClient().GetTree(name)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(tree)
		}
		keyColor.Fprintf(os.Stdout, "workspace %s\n", tree.Workspace)
		if tree.Root == nil {
			dimColor.Println("  (empty)")
			return nil
		}
		writeTree(os.Stdout, *tree.Root, 1)
		return nil
	},
}

func writeTree(w io.Writer, n tiling.NodeInfo, depth int) {
	indent := strings.Repeat("  ", depth)
	marker := ""
	if n.Selected {
		marker = successColor.Sprint(" *")
	}
	if n.Orientation != "" {
		fmt.Fprintf(w, "%s%s %.2f%s\n", indent, n.Orientation, n.Ratio, marker)
		for _, child := range n.Children {
			writeTree(w, child, depth+1)
		}
		return
	}
	label := dimColor.Sprint("(empty)")
	if n.Window != nil {
		label = n.Window.Short()
	}
	if n.Fullscreen {
		label += " [fullscreen]"
	}
	if n.Frame != nil {
		f := n.Frame
		label += fmt.Sprintf(" %gx%g+%g+%g", f.Width, f.Height, f.X, f.Y)
	}
	fmt.Fprintf(w, "%s%s%s\n", indent, label, marker)
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the daemon's configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Reload(); err != nil {
			return err
		}
		printOK("configuration reloaded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(reloadCmd)
}
