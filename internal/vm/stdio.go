package vm

import (
	"fmt"
	"os"
)

// StdIO is the host output hook. The default writes to stdout; embedders
// (a WebAssembly host, the tests) supply their own.
type StdIO interface {
	Print(s string)
	Println(s string)
}

// DefaultStdIO writes to the process stdout.
type DefaultStdIO struct{}

func (DefaultStdIO) Print(s string) { fmt.Fprint(os.Stdout, s) }

func (DefaultStdIO) Println(s string) { fmt.Fprintln(os.Stdout, s) }
