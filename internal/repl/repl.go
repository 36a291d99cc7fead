// Package repl is the interactive loop: each line compiles as a fresh
// top-level chunk and runs on one persistent VM, so globals, classes and
// functions survive across lines.
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"github.com/qalam-lang/qalam/internal/compiler"
	"github.com/qalam-lang/qalam/internal/config"
	"github.com/qalam-lang/qalam/internal/vm"
)

// Run starts the loop and returns when the input ends.
func Run(dialect config.Dialect, ext config.Extensions) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	machine := vm.New(vm.DefaultStdIO{}, dialect)
	colorize := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	fmt.Println("==== Qalam repl ====")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fn, cerr := compiler.Compile(line, dialect, ext)
		if cerr != nil {
			printError(colorize, cerr.Error())
			continue
		}
		if rerr := machine.Interpret(fn); rerr != nil {
			printError(colorize, rerr.Error())
			if re, ok := rerr.(*vm.RuntimeError); ok {
				fmt.Fprintln(os.Stderr, re.Backtrace)
			}
			machine.Reset()
		}
	}
}

func printError(colorize bool, msg string) {
	if colorize {
		fmt.Fprintf(os.Stderr, "\x1b[31m%s\x1b[0m\n", msg)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}
