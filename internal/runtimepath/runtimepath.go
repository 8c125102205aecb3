// Package runtimepath locates the per-user runtime directory and the daemon
// socket inside it.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// SocketName is the file name of the daemon IPC socket.
const SocketName = "dwindle.sock"

// Dir returns the runtime directory used for the IPC socket. Priority:
// 1) the XDG runtime directory (XDG_RUNTIME_DIR or /run/user/<uid>), if it exists
// 2) /tmp/dwindle-runtime-<uid> (created)
func Dir() (string, error) {
	if dir := xdg.RuntimeDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}

	tmpDir := filepath.Join(os.TempDir(), fmt.Sprintf("dwindle-runtime-%d", os.Getuid()))
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, SocketName), nil
}
