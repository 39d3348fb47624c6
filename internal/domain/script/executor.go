// Package script executes caller-supplied source text inside the shell
// process.
//
// The engine is a narrow, pluggable capability: input is source text plus
// bound capabilities (a print function, optional extra parameters), output
// is a stringified result or a structured error. Scripts run with process
// privileges; the trust boundary is the bus, not this package.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

// Kind classifies script failures. The compile / runtime / rejection
// trichotomy is part of the external contract: tooling distinguishes a
// script that never ran from one that failed while running.
type Kind int

const (
	CompileError Kind = iota
	RuntimeError
	Rejection
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case CompileError:
		return "compile error"
	case RuntimeError:
		return "runtime error"
	case Rejection:
		return "rejection"
	default:
		return "unknown"
	}
}

// Error is a structured script failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrPending reports a script whose result promise never settled. The caller
// holds its reply lane open; no timeout is imposed on script bodies.
var ErrPending = errors.New("script result still pending")

// PrintFunc receives intermediate print output from a running script.
type PrintFunc func(text string)

// Program is compiled source ready for execution on the engine.
type Program struct {
	prog   *goja.Program
	legacy bool
	params []string
}

// Engine wraps a goja VM. The VM is loop-confined: Execute must only run on
// the cooperative shell loop. Prepare is pure compilation and may run on any
// goroutine, which is how compile errors are reported synchronously to the
// bus caller before execution is scheduled.
type Engine struct {
	vm  *goja.Runtime
	log *logging.Logger
}

// New creates a script engine.
func New(log *logging.Logger) *Engine {
	e := &Engine{
		vm:  goja.New(),
		log: log,
	}
	e.setupGlobals()
	return e
}

// Prepare compiles src as the body of an async function receiving print and
// any extra named parameters. Source without a statement separator is
// treated as a single expression whose value becomes the result.
func (e *Engine) Prepare(src string, params ...string) (*Program, error) {
	body := src
	if !strings.Contains(src, ";") {
		body = "return (" + src + ");"
	}

	args := append([]string{"print"}, params...)
	wrapped := "(async function (" + strings.Join(args, ", ") + ") {\n" + body + "\n})"

	prog, err := goja.Compile("script", wrapped, true)
	if err != nil {
		return nil, &Error{Kind: CompileError, Message: err.Error()}
	}
	return &Program{prog: prog, params: args}, nil
}

// PreparePromise compiles src as the body of a raw promise executor with
// resolve and reject in scope. Retained for compatibility; it offers no
// implicit-expression convenience.
func (e *Engine) PreparePromise(src string) (*Program, error) {
	wrapped := "new Promise(function (resolve, reject) {\n" + src + "\n})"

	prog, err := goja.Compile("script", wrapped, true)
	if err != nil {
		return nil, &Error{Kind: CompileError, Message: err.Error()}
	}
	return &Program{prog: prog, legacy: true}, nil
}

// Execute runs a prepared program with the given print capability and extra
// arguments (matching the parameters given to Prepare). It returns the
// stringified result, ErrPending when the result promise never settled, or a
// structured *Error.
func (e *Engine) Execute(p *Program, print PrintFunc, args ...interface{}) (string, error) {
	if print == nil {
		print = func(string) {}
	}

	val, err := e.vm.RunProgram(p.prog)
	if err != nil {
		return "", runtimeError(err)
	}

	if p.legacy {
		return e.settle(val)
	}

	fn, ok := goja.AssertFunction(val)
	if !ok {
		return "", &Error{Kind: RuntimeError, Message: "script did not compile to a callable"}
	}

	callArgs := make([]goja.Value, 0, len(args)+1)
	callArgs = append(callArgs, e.vm.ToValue(e.makePrint(print)))
	for _, a := range args {
		callArgs = append(callArgs, e.vm.ToValue(a))
	}

	res, err := fn(goja.Undefined(), callArgs...)
	if err != nil {
		return "", runtimeError(err)
	}
	return e.settle(res)
}

// settle inspects the produced value. Async bodies and legacy promise
// executors both yield a promise; goja drains its job queue before returning
// control, so anything that can settle has settled by now. A promise still
// pending is suspended on something that will never resolve here.
func (e *Engine) settle(val goja.Value) (string, error) {
	promise, ok := val.Export().(*goja.Promise)
	if !ok {
		return stringify(val), nil
	}

	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return stringify(promise.Result()), nil
	case goja.PromiseStateRejected:
		return "", &Error{Kind: Rejection, Message: stringify(promise.Result())}
	default:
		return "", ErrPending
	}
}

// setupGlobals removes module-system globals and installs inert timers, the
// same surface scripts would see in the original shell's runtime minus the
// toolkit bindings.
func (e *Engine) setupGlobals() {
	e.vm.Set("require", goja.Undefined())
	e.vm.Set("module", goja.Undefined())
	e.vm.Set("exports", goja.Undefined())

	// Timers are inert: the loop has no job queue to resume them on. A
	// script awaiting one simply never settles.
	e.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	e.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
}

// makePrint adapts a PrintFunc into a script-callable that joins its
// arguments with spaces.
func (e *Engine) makePrint(print PrintFunc) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		print(strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func runtimeError(err error) *Error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &Error{Kind: RuntimeError, Message: stringify(exc.Value())}
	}
	return &Error{Kind: RuntimeError, Message: err.Error()}
}

func stringify(val goja.Value) string {
	if val == nil || goja.IsUndefined(val) {
		return "undefined"
	}
	if goja.IsNull(val) {
		return "null"
	}
	return val.String()
}
