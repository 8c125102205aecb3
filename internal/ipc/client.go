package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/dwindle/internal/runtimepath"
	"github.com/1broseidon/dwindle/internal/workspace"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at path.
func NewClientAt(path string) *Client {
	return &Client{
		socketPath: path,
		timeout:    DefaultRequestTimeout + time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// call sends command with payload and decodes the response data into out
// when out is non-nil.
func (c *Client) call(command CommandType, payload any, out any) error {
	req := &Request{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = raw
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Layout sends one of the layout commands.
func (c *Client) Layout(command CommandType, p LayoutPayload) error {
	if !command.IsLayout() {
		return fmt.Errorf("%s is not a layout command", command)
	}
	return c.call(command, p, nil)
}

// Focus moves focus to the neighbor in direction.
func (c *Client) Focus(direction string) error {
	return c.Layout(CommandFocus, LayoutPayload{Direction: direction})
}

// Reload asks the daemon to reread its configuration.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) ListWorkspaces() ([]WorkspaceInfo, error) {
	var list []WorkspaceInfo
	if err := c.call(CommandListWorkspaces, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ListMonitors() ([]MonitorInfo, error) {
	var list []MonitorInfo
	if err := c.call(CommandListMonitors, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetTree retrieves the split tree of a workspace ("" for the focused one).
func (c *Client) GetTree(ws string) (*TreeData, error) {
	var tree TreeData
	if err := c.call(CommandGetTree, TreePayload{Workspace: ws}, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// SummonWorkspace shows the named workspace on the focused monitor.
func (c *Client) SummonWorkspace(name string) (*workspace.Workspace, error) {
	var ws workspace.Workspace
	if err := c.call(CommandSummonWorkspace, WorkspacePayload{Name: name}, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) MoveWorkspaceToMonitor(name, monitor string) error {
	return c.call(CommandMoveWorkspaceToMonitor, WorkspacePayload{Name: name, Monitor: monitor}, nil)
}

func (c *Client) FocusMonitor(direction string, wrap bool) (*workspace.Monitor, error) {
	var mon workspace.Monitor
	if err := c.call(CommandFocusMonitor, MonitorPayload{Direction: direction, Wrap: wrap}, &mon); err != nil {
		return nil, err
	}
	return &mon, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
