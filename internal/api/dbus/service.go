// Package dbus exposes the shell control surface on the session bus and
// implements the client side used by the command-line tool. Replies to
// remote script runs travel as one-way calls back to an object the caller
// exports, so a slow client can never stall the shell.
package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"go.uber.org/zap"

	"github.com/wrenshell/wren/internal/domain/bridge"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
	"github.com/wrenshell/wren/internal/infrastructure/monitoring"
)

const (
	// DefaultName is the well-known bus name the shell claims.
	DefaultName = "sh.wren.Shell"
	// DefaultPath is the object path the control interface lives at.
	DefaultPath = "/sh/wren/shell"

	// ShellInterface is the control interface exported by the daemon.
	ShellInterface = "sh.wren.Shell"
	// ClientInterface is the reply interface clients export.
	ClientInterface = "sh.wren.Client"

	// ClientPath is where the command-line client exports its reply object.
	ClientPath = "/sh/wren/client"
)

// Service owns the shell's session bus connection.
type Service struct {
	conn    *dbus.Conn
	name    string
	path    dbus.ObjectPath
	log     *logging.Logger
	metrics *monitoring.Metrics
	bridge  *bridge.Bridge
}

// Connect opens a session bus connection for the service. The well-known
// name is not claimed until Serve.
func Connect(name, path string, log *logging.Logger, metrics *monitoring.Metrics) (*Service, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Service{
		conn:    conn,
		name:    name,
		path:    dbus.ObjectPath(path),
		log:     log,
		metrics: metrics,
	}, nil
}

// Replier returns the bus-backed reply lane for the bridge. Replies are sent
// as one-way calls and never block.
func (s *Service) Replier() bridge.Replier {
	return &notifier{conn: s.conn, log: s.log}
}

// Serve exports the control interface and claims the well-known name.
// Claiming fails if another shell already owns it.
func (s *Service) Serve(b *bridge.Bridge) error {
	s.bridge = b

	export := &shellExport{svc: s}
	if err := s.conn.Export(export, s.path, ShellInterface); err != nil {
		return fmt.Errorf("failed to export shell object: %w", err)
	}
	if err := s.conn.Export(introspect.NewIntrospectable(introspection()), s.path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := s.conn.RequestName(s.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %q is already owned by another shell", s.name)
	}

	s.log.Info("listening on session bus",
		zap.String("name", s.name),
		zap.String("path", string(s.path)),
	)
	return nil
}

// Close releases the well-known name and drops the connection.
func (s *Service) Close() error {
	if _, err := s.conn.ReleaseName(s.name); err != nil {
		s.log.Warn("failed to release bus name", zap.Error(err))
	}
	return s.conn.Close()
}

// shellExport is the object godbus reflects the control interface from. Each
// handler runs on a godbus dispatch goroutine; anything touching shell state
// goes through the bridge, which posts onto the cooperative loop.
type shellExport struct {
	svc *Service
}

func (e *shellExport) RunJs(src, clientBus, clientPath string) *dbus.Error {
	e.svc.metrics.RecordBusCall("RunJs")
	e.svc.bridge.RunScript(src, bridge.Caller{Bus: clientBus, Path: clientPath})
	return nil
}

func (e *shellExport) RunFile(path, clientBus, clientPath string) *dbus.Error {
	e.svc.metrics.RecordBusCall("RunFile")
	e.svc.bridge.RunFile(path, bridge.Caller{Bus: clientBus, Path: clientPath})
	return nil
}

func (e *shellExport) RunPromise(src, clientBus, clientPath string) *dbus.Error {
	e.svc.metrics.RecordBusCall("RunPromise")
	e.svc.bridge.RunLegacyPromise(src, bridge.Caller{Bus: clientBus, Path: clientPath})
	return nil
}

func (e *shellExport) ToggleWindow(name string) (string, *dbus.Error) {
	e.svc.metrics.RecordBusCall("ToggleWindow")
	return e.svc.bridge.ToggleWindow(name), nil
}

func (e *shellExport) ListWindows() ([]string, *dbus.Error) {
	e.svc.metrics.RecordBusCall("ListWindows")
	return e.svc.bridge.ListWindows(), nil
}

func (e *shellExport) Inspector() *dbus.Error {
	e.svc.metrics.RecordBusCall("Inspector")
	e.svc.bridge.OpenInspector()
	return nil
}

func (e *shellExport) Quit() *dbus.Error {
	e.svc.metrics.RecordBusCall("Quit")
	e.svc.bridge.Quit()
	return nil
}

// notifier delivers bridge replies back to the caller's exported object.
type notifier struct {
	conn *dbus.Conn
	log  *logging.Logger
}

func (n *notifier) Reply(c bridge.Caller, value string)  { n.send(c, "Reply", value) }
func (n *notifier) Fail(c bridge.Caller, message string) { n.send(c, "Fail", message) }
func (n *notifier) Print(c bridge.Caller, text string)   { n.send(c, "Print", text) }

func (n *notifier) send(c bridge.Caller, method string, arg string) {
	obj := n.conn.Object(c.Bus, dbus.ObjectPath(c.Path))
	obj.Go(ClientInterface+"."+method, dbus.FlagNoReplyExpected, nil, arg)
}

func introspection() *introspect.Node {
	return &introspect.Node{
		Name: DefaultPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: ShellInterface,
				Methods: []introspect.Method{
					{Name: "RunJs", Args: []introspect.Arg{
						{Name: "src", Type: "s", Direction: "in"},
						{Name: "client_bus", Type: "s", Direction: "in"},
						{Name: "client_path", Type: "s", Direction: "in"},
					}},
					{Name: "RunFile", Args: []introspect.Arg{
						{Name: "path", Type: "s", Direction: "in"},
						{Name: "client_bus", Type: "s", Direction: "in"},
						{Name: "client_path", Type: "s", Direction: "in"},
					}},
					{Name: "RunPromise", Args: []introspect.Arg{
						{Name: "src", Type: "s", Direction: "in"},
						{Name: "client_bus", Type: "s", Direction: "in"},
						{Name: "client_path", Type: "s", Direction: "in"},
					}},
					{Name: "ToggleWindow", Args: []introspect.Arg{
						{Name: "name", Type: "s", Direction: "in"},
						{Name: "result", Type: "s", Direction: "out"},
					}},
					{Name: "ListWindows", Args: []introspect.Arg{
						{Name: "names", Type: "as", Direction: "out"},
					}},
					{Name: "Inspector"},
					{Name: "Quit"},
				},
			},
		},
	}
}
