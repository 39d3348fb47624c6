// wrenctl drives a running shell from the command line: run scripts, toggle
// windows, open the inspector, or shut the shell down.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	shellbus "github.com/wrenshell/wren/internal/api/dbus"
	"github.com/wrenshell/wren/internal/infrastructure/config"
)

func main() {
	cfg := config.LoadOrDefault()

	var (
		runSrc     = flag.String("r", "", "run an inline script and print its result")
		runFile    = flag.String("f", "", "run a script file in the shell")
		runPromise = flag.String("p", "", "run a script in the legacy promise form")
		toggle     = flag.String("t", "", "toggle the named window")
		list       = flag.Bool("l", false, "list registered windows")
		inspector  = flag.Bool("inspector", false, "open the interactive inspector")
		quit       = flag.Bool("q", false, "ask the shell to quit")
		busName    = flag.String("bus-name", cfg.Bus.Name, "well-known name of the shell")
		timeout    = flag.Duration("timeout", 0, "give up waiting after this long (0 waits forever)")
	)
	flag.Parse()

	client, err := shellbus.Dial(*busName, cfg.Bus.ObjectPath, func(text string) {
		fmt.Println(text)
	})
	if err != nil {
		fatal(err)
	}
	defer client.Close()

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	switch {
	case *runSrc != "":
		report(client.RunScript(ctx, *runSrc))
	case *runFile != "":
		// The shell resolves the path in its own working directory.
		path, err := filepath.Abs(*runFile)
		if err != nil {
			fatal(err)
		}
		report(client.RunFile(ctx, path))
	case *runPromise != "":
		report(client.RunPromise(ctx, *runPromise))
	case *toggle != "":
		report(client.Toggle(ctx, *toggle))
	case *list:
		names, err := client.ListWindows(ctx)
		if err != nil {
			fatal(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case *inspector:
		if err := client.Inspector(ctx); err != nil {
			fatal(err)
		}
	case *quit:
		if err := client.Quit(ctx); err != nil {
			fatal(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func report(out string, err error) {
	if err != nil {
		fatal(err)
	}
	fmt.Println(out)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "wrenctl:", err)
	os.Exit(1)
}
