package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/1broseidon/dwindle/internal/config"
	"github.com/1broseidon/dwindle/internal/ipc"
)

var (
	configPath string
	socketPath string
	jsonOutput bool
	noColor    bool

	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	keyColor     = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

var rootCmd = &cobra.Command{
	Use:   "dwindle",
	Short: "Dwindle tiling window manager",
	Long: `dwindle tiles application windows into a binary split tree per workspace.

Run 'dwindle daemon' once per session, then drive it with the commands below
(bind them to keys in your hotkey daemon).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: $XDG_CONFIG_HOME/dwindle/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/dwindle.sock)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func newClient() *ipc.Client {
	if socketPath != "" {
		return ipc.NewClientAt(socketPath)
	}
	return ipc.NewClient()
}

// resolveConfigPath returns the --config value or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultConfigPath()
}

// wantJSON reports whether data should be printed as JSON: on request, or
// when stdout is not a terminal.
func wantJSON() bool {
	return jsonOutput || !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printError(msg string) {
	if noColor {
		fmt.Fprintln(os.Stderr, "Error:", msg)
		return
	}
	errorColor.Fprint(os.Stderr, "✗ Error: ")
	fmt.Fprintln(os.Stderr, msg)
}

func printOK(format string, args ...any) {
	if wantJSON() {
		return
	}
	successColor.Print("✓ ")
	fmt.Printf(format+"\n", args...)
}

// parseLogLevel maps the config's log_level to a slog level.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}
