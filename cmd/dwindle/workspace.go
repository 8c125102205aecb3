package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace [name]",
	Short: "Summon a workspace onto the focused monitor",
	Long: `Summon a workspace onto the focused monitor, creating it if needed.

A workspace visible on another monitor swaps places with the focused
monitor's workspace. Without a name, the workspaces are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listWorkspaces()
		}
		name, err := workspace.ParseName(args[0])
		if err != nil {
			return err
		}
		ws, err := newClient().SummonWorkspace(name)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(ws)
		}
		printOK("workspace %s", ws.Name)
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listWorkspaces()
	},
}

var workspaceMoveCmd = &cobra.Command{
	Use:   "move-to-monitor <monitor> [workspace]",
	Short: "Show a workspace on a monitor",
	Long: `Show a workspace (default: the focused one) on a monitor.

The monitor is matched by exact name first, then by 1-based index, "main",
"secondary", or a pattern using * and ?.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		if err := newClient().MoveWorkspaceToMonitor(name, args[0]); err != nil {
			return err
		}
		printOK("workspace moved to %s", args[0])
		return nil
	},
}

func listWorkspaces() error {
	list, err := newClient().ListWorkspaces()
	if err != nil {
		return err
	}
	if wantJSON() {
		if list == nil {
			list = []ipc.WorkspaceInfo{}
		}
		return printJSON(list)
	}
	writeWorkspaces(os.Stdout, list)
	return nil
}

func writeWorkspaces(w io.Writer, list []ipc.WorkspaceInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, keyColor.Sprint("NAME")+"\t"+keyColor.Sprint("MONITOR")+"\t"+keyColor.Sprint("WINDOWS")+"\t"+keyColor.Sprint("FLAGS"))
	for _, ws := range list {
		name := ws.Name
		if ws.Visible {
			name = successColor.Sprint(name)
		}
		monitor := ws.Monitor
		if monitor == "" {
			monitor = dimColor.Sprint("-")
		}
		flags := ""
		if ws.Persistent {
			flags = "persistent"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, monitor, ws.Windows, flags)
	}
	tw.Flush()
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Inspect and focus monitors",
}

var monitorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListMonitors()
		if err != nil {
			return err
		}
		if wantJSON() {
			if list == nil {
				list = []ipc.MonitorInfo{}
			}
			return printJSON(list)
		}
		writeMonitors(os.Stdout, list)
		return nil
	},
}

var monitorWrap bool

var monitorFocusCmd = &cobra.Command{
	Use:   "focus <left|right|up|down>",
	Short: "Focus the monitor next to the focused one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := platform.ParseDirection(args[0])
		if err != nil {
			return err
		}
		mon, err := newClient().FocusMonitor(dir.String(), monitorWrap)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(mon)
		}
		printOK("monitor %s", mon.Name)
		return nil
	},
}

func writeMonitors(w io.Writer, list []ipc.MonitorInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, keyColor.Sprint("NAME")+"\t"+keyColor.Sprint("FRAME")+"\t"+keyColor.Sprint("WORKSPACE"))
	for _, m := range list {
		name := m.Name
		if m.Focused {
			name = successColor.Sprint("* " + name)
		}
		f := m.Frame
		fmt.Fprintf(tw, "%s\t%gx%g+%g+%g\t%s\n", name, f.Width, f.Height, f.X, f.Y, m.Workspace)
	}
	tw.Flush()
}

func init() {
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceMoveCmd)
	rootCmd.AddCommand(workspaceCmd)

	monitorFocusCmd.Flags().BoolVar(&monitorWrap, "wrap", false, "Wrap around at the edge")
	monitorCmd.AddCommand(monitorListCmd)
	monitorCmd.AddCommand(monitorFocusCmd)
	rootCmd.AddCommand(monitorCmd)
}
