// Package bridge is the remote execution surface of the shell: it accepts
// script text and window commands from bus callers, turns each script into
// an async unit of work on the shell loop, and routes the result back to the
// caller or to local output.
//
// The bridge deliberately executes arbitrary caller-supplied code with
// process privileges; the bus is presumed local and user-owned.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wrenshell/wren/internal/domain/registry"
	"github.com/wrenshell/wren/internal/domain/script"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
	"github.com/wrenshell/wren/internal/infrastructure/monitoring"
)

// Caller identifies the bus client awaiting a reply. The zero value selects
// the local output lane. Bus address and object path are both present or
// both absent; anything else is treated as local.
type Caller struct {
	Bus  string
	Path string
}

// Remote reports whether results should travel back over the bus.
func (c Caller) Remote() bool {
	return c.Bus != "" && c.Path != ""
}

// Replier delivers results to a remote caller. Implementations must not
// block: they are invoked from the shell loop.
type Replier interface {
	Reply(c Caller, value string)
	Fail(c Caller, message string)
	Print(c Caller, text string)
}

// Shell is the application surface the bridge drives. It is handed in
// explicitly; the bridge holds no ambient global state.
type Shell interface {
	// Post schedules work onto the cooperative loop.
	Post(fn func())
	// Toggle flips the window's visibility and returns the new logical state.
	Toggle(name string) (visible bool, code registry.Code)
	// Windows lists the registered window names.
	Windows() []string
	// OpenInspector enables the backend's interactive debugging overlay.
	OpenInspector() error
	// Quit terminates the process.
	Quit()
}

// Bridge routes bus calls into the shell.
type Bridge struct {
	shell   Shell
	engine  *script.Engine
	replier Replier
	log     *logging.Logger
	metrics *monitoring.Metrics

	// Local output lanes. Results go to stdout, errors to stderr.
	stdout io.Writer
	stderr io.Writer
}

// New creates a bridge. replier may be nil when no bus is connected; remote
// callers are then logged and dropped.
func New(shell Shell, engine *script.Engine, replier Replier, log *logging.Logger) *Bridge {
	return &Bridge{
		shell:   shell,
		engine:  engine,
		replier: replier,
		log:     log,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// WithMetrics adds metrics tracking to the bridge.
func (b *Bridge) WithMetrics(metrics *monitoring.Metrics) *Bridge {
	b.metrics = metrics
	return b
}

// WithOutput redirects the local output lanes. Used by tests.
func (b *Bridge) WithOutput(stdout, stderr io.Writer) *Bridge {
	b.stdout = stdout
	b.stderr = stderr
	return b
}

// RunScript compiles text as an async function body and schedules it on the
// loop. Compile errors are reported synchronously and execution does not
// proceed. The final result, a runtime error, or a rejection arrives later
// through the caller's reply lane.
func (b *Bridge) RunScript(text string, c Caller) {
	id := uuid.New().String()[:8]
	prog, err := b.engine.Prepare(text)
	if err != nil {
		b.metrics.RecordScript("compile_error")
		b.deliverError(id, c, err)
		return
	}
	b.shell.Post(func() {
		b.execute(id, prog, c)
	})
}

// RunFile reads path, strips a leading shebang line, and delegates to
// RunScript. Read failures are logged and the call completes without a
// reply.
// TODO: surface read failures to the bus caller; the current contract drops
// them.
func (b *Bridge) RunFile(path string, c Caller) {
	data, err := os.ReadFile(path)
	if err != nil {
		b.log.Error("failed to read script file",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	b.RunScript(stripShebang(string(data)), c)
}

// RunLegacyPromise compiles text as a raw promise executor with resolve and
// reject in scope. Deprecated alias retained for compatibility with older
// tooling; reply routing matches RunScript.
func (b *Bridge) RunLegacyPromise(text string, c Caller) {
	id := uuid.New().String()[:8]
	prog, err := b.engine.PreparePromise(text)
	if err != nil {
		b.metrics.RecordScript("compile_error")
		b.deliverError(id, c, err)
		return
	}
	b.shell.Post(func() {
		b.execute(id, prog, c)
	})
}

// ToggleWindow flips the named window and returns its new visibility as a
// string. This is the synchronous convenience lane; unlike RunScript there
// is no async reply.
func (b *Bridge) ToggleWindow(name string) string {
	visible, code := b.shell.Toggle(name)
	if code != registry.Ok {
		return fmt.Sprintf("window %q not found", name)
	}
	b.metrics.RecordToggle(name, visible)
	return strconv.FormatBool(visible)
}

// ListWindows returns the registered window names.
func (b *Bridge) ListWindows() []string {
	return b.shell.Windows()
}

// OpenInspector enables the backend's interactive debugging overlay.
func (b *Bridge) OpenInspector() {
	b.shell.Post(func() {
		if err := b.shell.OpenInspector(); err != nil {
			b.log.Warn("failed to open inspector", zap.Error(err))
		}
	})
}

// Quit terminates the process. Windows are destroyed by shell teardown.
func (b *Bridge) Quit() {
	b.shell.Quit()
}

// execute runs on the shell loop.
func (b *Bridge) execute(id string, prog *script.Program, c Caller) {
	print := func(text string) {
		if c.Remote() {
			if b.replier != nil {
				b.replier.Print(c, text)
			}
			return
		}
		fmt.Fprintln(b.stdout, text)
	}

	value, err := b.engine.Execute(prog, print)
	switch {
	case errors.Is(err, script.ErrPending):
		// Suspended on something that will never settle; the reply lane
		// stays open per the trust model.
		b.metrics.RecordScript("pending")
		b.log.Debug("script suspended without settling", zap.String("call", id))
	case err != nil:
		b.metrics.RecordScript("error")
		b.deliverError(id, c, err)
	default:
		b.metrics.RecordScript("ok")
		b.deliverResult(id, c, value)
	}
}

func (b *Bridge) deliverResult(id string, c Caller, value string) {
	if c.Remote() {
		if b.replier == nil {
			b.log.Error("no bus connection for remote reply", zap.String("call", id))
			return
		}
		b.replier.Reply(c, value)
		return
	}
	fmt.Fprintln(b.stdout, value)
}

func (b *Bridge) deliverError(id string, c Caller, err error) {
	b.log.Warn("script failed",
		zap.String("call", id),
		zap.Error(err),
	)
	if c.Remote() {
		if b.replier == nil {
			b.log.Error("no bus connection for remote reply", zap.String("call", id))
			return
		}
		b.replier.Fail(c, err.Error())
		return
	}
	fmt.Fprintln(b.stderr, err.Error())
}

// stripShebang removes a leading "#!" line so executable script files can be
// run directly.
func stripShebang(src string) string {
	if !strings.HasPrefix(src, "#!") {
		return src
	}
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		return src[i+1:]
	}
	return ""
}
