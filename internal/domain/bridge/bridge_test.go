package bridge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/wrenshell/wren/internal/domain/registry"
	"github.com/wrenshell/wren/internal/domain/script"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

// fakeShell runs posted work inline and records commands.
type fakeShell struct {
	posts     int
	visible   map[string]bool
	inspector bool
	quit      bool
}

func newFakeShell() *fakeShell {
	return &fakeShell{visible: map[string]bool{"bar": false}}
}

func (s *fakeShell) Post(fn func()) {
	s.posts++
	fn()
}

func (s *fakeShell) Toggle(name string) (bool, registry.Code) {
	v, ok := s.visible[name]
	if !ok {
		return false, registry.UnknownWindow
	}
	s.visible[name] = !v
	return !v, registry.Ok
}

func (s *fakeShell) Windows() []string {
	names := make([]string, 0, len(s.visible))
	for name := range s.visible {
		names = append(names, name)
	}
	return names
}

func (s *fakeShell) OpenInspector() error { s.inspector = true; return nil }
func (s *fakeShell) Quit()                { s.quit = true }

// recordingReplier captures the remote reply lane.
type recordingReplier struct {
	replies []string
	fails   []string
	prints  []string
}

func (r *recordingReplier) Reply(c Caller, value string)  { r.replies = append(r.replies, value) }
func (r *recordingReplier) Fail(c Caller, message string) { r.fails = append(r.fails, message) }
func (r *recordingReplier) Print(c Caller, text string)   { r.prints = append(r.prints, text) }

type fixture struct {
	shell   *fakeShell
	replier *recordingReplier
	bridge  *Bridge
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newFixture() *fixture {
	sh := newFakeShell()
	rep := &recordingReplier{}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	b := New(sh, script.New(logging.NewNop()), rep, logging.NewNop()).
		WithOutput(stdout, stderr)
	return &fixture{shell: sh, replier: rep, bridge: b, stdout: stdout, stderr: stderr}
}

var remote = Caller{Bus: ":1.42", Path: "/sh/wren/client"}

func TestRunScriptRemoteReply(t *testing.T) {
	f := newFixture()

	f.bridge.RunScript("1+1", remote)

	if len(f.replier.replies) != 1 || f.replier.replies[0] != "2" {
		t.Errorf("expected reply \"2\", got %v", f.replier.replies)
	}
	if len(f.replier.fails) != 0 {
		t.Errorf("unexpected failures: %v", f.replier.fails)
	}
}

func TestRunScriptErrorReply(t *testing.T) {
	f := newFixture()

	f.bridge.RunScript("throw new Error('x');", remote)

	if len(f.replier.fails) != 1 {
		t.Fatalf("expected 1 failure, got %v", f.replier.fails)
	}
	if len(f.replier.replies) != 0 {
		t.Errorf("error reply must be distinguishable from success, got replies %v", f.replier.replies)
	}
}

func TestCompileErrorSkipsExecution(t *testing.T) {
	f := newFixture()

	f.bridge.RunScript("const = ;", remote)

	if f.shell.posts != 0 {
		t.Error("compile failure must not schedule execution")
	}
	if len(f.replier.fails) != 1 {
		t.Fatalf("expected synchronous failure reply, got %v", f.replier.fails)
	}
}

func TestRunScriptLocalLanes(t *testing.T) {
	f := newFixture()

	f.bridge.RunScript("1+1", Caller{})
	if got := f.stdout.String(); got != "2\n" {
		t.Errorf("expected stdout \"2\\n\", got %q", got)
	}

	f.bridge.RunScript("throw new Error('x');", Caller{})
	if f.stderr.Len() == 0 {
		t.Error("runtime failure should reach local error output")
	}
	if len(f.replier.replies)+len(f.replier.fails) != 0 {
		t.Error("local calls must not travel over the bus")
	}
}

func TestPartialCallerIdentityIsLocal(t *testing.T) {
	f := newFixture()

	// Bus address without object path does not select the bus lane.
	f.bridge.RunScript("1+1", Caller{Bus: ":1.42"})

	if len(f.replier.replies) != 0 {
		t.Errorf("partial identity must use local output, got %v", f.replier.replies)
	}
	if got := f.stdout.String(); got != "2\n" {
		t.Errorf("expected stdout \"2\\n\", got %q", got)
	}
}

func TestPrintNotifications(t *testing.T) {
	f := newFixture()

	f.bridge.RunScript("print('one'); print('two'); return 'done';", remote)

	if len(f.replier.prints) != 2 || f.replier.prints[0] != "one" || f.replier.prints[1] != "two" {
		t.Errorf("expected print notifications, got %v", f.replier.prints)
	}
	if len(f.replier.replies) != 1 || f.replier.replies[0] != "done" {
		t.Errorf("expected final reply after prints, got %v", f.replier.replies)
	}
}

func TestPrintLocal(t *testing.T) {
	f := newFixture()

	f.bridge.RunScript("print('hello'); return 'ok';", Caller{})

	if got := f.stdout.String(); got != "hello\nok\n" {
		t.Errorf("expected print then result on stdout, got %q", got)
	}
}

func TestSuspendedScriptHoldsLane(t *testing.T) {
	f := newFixture()

	f.bridge.RunScript("return new Promise(function (resolve) { setTimeout(resolve, 5); });", remote)

	if len(f.replier.replies)+len(f.replier.fails) != 0 {
		t.Error("a never-settling script must not produce a reply")
	}
}

func TestRunFileStripsShebang(t *testing.T) {
	f := newFixture()

	path := filepath.Join(t.TempDir(), "script.js")
	if err := os.WriteFile(path, []byte("#!/usr/bin/env foo\n1+1"), 0o644); err != nil {
		t.Fatal(err)
	}

	f.bridge.RunFile(path, remote)

	if len(f.replier.replies) != 1 || f.replier.replies[0] != "2" {
		t.Errorf("expected reply \"2\", got %v", f.replier.replies)
	}
}

func TestRunFileReadFailure(t *testing.T) {
	f := newFixture()

	f.bridge.RunFile(filepath.Join(t.TempDir(), "missing.js"), remote)

	// Read failures are logged and not surfaced to the caller.
	if f.shell.posts != 0 {
		t.Error("nothing should be scheduled for an unreadable file")
	}
	if len(f.replier.replies)+len(f.replier.fails) != 0 {
		t.Errorf("expected no reply, got replies=%v fails=%v", f.replier.replies, f.replier.fails)
	}
}

func TestRunLegacyPromise(t *testing.T) {
	f := newFixture()

	f.bridge.RunLegacyPromise("resolve('legacy');", remote)
	if len(f.replier.replies) != 1 || f.replier.replies[0] != "legacy" {
		t.Errorf("expected reply \"legacy\", got %v", f.replier.replies)
	}

	f.bridge.RunLegacyPromise("reject('bad');", remote)
	if len(f.replier.fails) != 1 {
		t.Errorf("expected rejection reply, got %v", f.replier.fails)
	}
}

func TestToggleWindow(t *testing.T) {
	f := newFixture()

	if got := f.bridge.ToggleWindow("bar"); got != "true" {
		t.Errorf("expected \"true\", got %q", got)
	}
	if got := f.bridge.ToggleWindow("bar"); got != "false" {
		t.Errorf("expected \"false\", got %q", got)
	}
	if got := f.bridge.ToggleWindow("missing"); got != `window "missing" not found` {
		t.Errorf("unexpected diagnostic: %q", got)
	}
}

func TestInspectorAndQuit(t *testing.T) {
	f := newFixture()

	f.bridge.OpenInspector()
	if !f.shell.inspector {
		t.Error("inspector should be opened")
	}

	f.bridge.Quit()
	if !f.shell.quit {
		t.Error("quit should reach the shell")
	}
}
