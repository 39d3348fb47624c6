package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// clientReply is one terminal answer to a script run.
type clientReply struct {
	value  string
	failed bool
}

// Client talks to a running shell from another process. It exports the reply
// object the shell calls back into, so one Client serves one script run at a
// time.
type Client struct {
	conn    *dbus.Conn
	shell   dbus.BusObject
	replies chan clientReply
	onPrint func(string)
}

// Dial connects to the shell at the given well-known name and object path.
// onPrint receives intermediate print output; it may be nil.
func Dial(name, path string, onPrint func(string)) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	c := &Client{
		conn:    conn,
		shell:   conn.Object(name, dbus.ObjectPath(path)),
		replies: make(chan clientReply, 1),
		onPrint: onPrint,
	}
	if err := conn.Export(&clientExport{c: c}, ClientPath, ClientInterface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export reply object: %w", err)
	}
	return c, nil
}

// Close drops the bus connection.
func (c *Client) Close() error { return c.conn.Close() }

// RunScript runs src in the shell and waits for its result. It blocks until
// the script settles or ctx is done; a script that never settles never
// replies.
func (c *Client) RunScript(ctx context.Context, src string) (string, error) {
	return c.run(ctx, "RunJs", src)
}

// RunFile asks the shell to run the script file at path. The path is
// resolved by the shell process, not the client.
func (c *Client) RunFile(ctx context.Context, path string) (string, error) {
	return c.run(ctx, "RunFile", path)
}

// RunPromise runs src wrapped in the legacy resolve/reject form.
func (c *Client) RunPromise(ctx context.Context, src string) (string, error) {
	return c.run(ctx, "RunPromise", src)
}

func (c *Client) run(ctx context.Context, method, arg string) (string, error) {
	call := c.shell.CallWithContext(ctx, ShellInterface+"."+method, 0, arg, c.identity(), ClientPath)
	if call.Err != nil {
		return "", fmt.Errorf("shell call failed: %w", call.Err)
	}
	select {
	case r := <-c.replies:
		if r.failed {
			return "", errors.New(r.value)
		}
		return r.value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Toggle flips the named window and returns the shell's diagnostic string.
func (c *Client) Toggle(ctx context.Context, name string) (string, error) {
	var result string
	call := c.shell.CallWithContext(ctx, ShellInterface+".ToggleWindow", 0, name)
	if call.Err != nil {
		return "", fmt.Errorf("shell call failed: %w", call.Err)
	}
	if err := call.Store(&result); err != nil {
		return "", err
	}
	return result, nil
}

// ListWindows returns the names of the shell's registered windows.
func (c *Client) ListWindows(ctx context.Context) ([]string, error) {
	var names []string
	call := c.shell.CallWithContext(ctx, ShellInterface+".ListWindows", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("shell call failed: %w", call.Err)
	}
	if err := call.Store(&names); err != nil {
		return nil, err
	}
	return names, nil
}

// Inspector opens the shell's interactive inspector.
func (c *Client) Inspector(ctx context.Context) error {
	return c.shell.CallWithContext(ctx, ShellInterface+".Inspector", 0).Err
}

// Quit asks the shell to shut down.
func (c *Client) Quit(ctx context.Context) error {
	return c.shell.CallWithContext(ctx, ShellInterface+".Quit", 0).Err
}

// identity is this connection's unique bus name.
func (c *Client) identity() string {
	if names := c.conn.Names(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// clientExport receives one-way replies from the shell.
type clientExport struct {
	c *Client
}

func (e *clientExport) Reply(value string) *dbus.Error {
	select {
	case e.c.replies <- clientReply{value: value}:
	default:
	}
	return nil
}

func (e *clientExport) Fail(message string) *dbus.Error {
	select {
	case e.c.replies <- clientReply{value: message, failed: true}:
	default:
	}
	return nil
}

func (e *clientExport) Print(text string) *dbus.Error {
	if e.c.onPrint != nil {
		e.c.onPrint(text)
	}
	return nil
}
