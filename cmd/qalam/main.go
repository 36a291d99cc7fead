package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/qalam-lang/qalam/internal/bytecode"
	"github.com/qalam-lang/qalam/internal/compiler"
	"github.com/qalam-lang/qalam/internal/config"
	"github.com/qalam-lang/qalam/internal/repl"
	"github.com/qalam-lang/qalam/internal/vm"
)

func main() {
	app := &cli.Command{
		Name:  "qalam",
		Usage: "A bilingual (Latin/Arabic) scripting language",
		Commands: []*cli.Command{
			compileCommand(),
			replCommand(),
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "extension",
			Aliases: []string{"X"},
			Usage:   "Enable a work-in-progress language feature (lists, lambdas); repeatable",
		},
		&cli.StringFlag{
			Name:  "dialect",
			Usage: "Surface dialect: latin or arabic",
		},
	}
}

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile and run a source file",
		ArgsUsage: "<path>",
		Flags: append(sharedFlags(),
			&cli.BoolFlag{
				Name:  "dis",
				Usage: "Print the disassembly instead of running",
			},
		),
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("usage: qalam compile <path>")
			}
			if !config.HasSourceExt(path) {
				return fmt.Errorf("%s is not a source file (want %s)",
					path, strings.Join(config.SourceFileExtensions, " or "))
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			dialect, ext, err := resolveOptions(cmd, filepath.Dir(path))
			if err != nil {
				return err
			}

			fn, cerr := compiler.Compile(string(content), dialect, ext)
			if cerr != nil {
				return cerr
			}
			if cmd.Bool("dis") {
				fmt.Print(bytecode.Disassemble(fn.Chunk, "script"))
				return nil
			}

			machine := vm.New(vm.DefaultStdIO{}, dialect)
			if rerr := machine.Interpret(fn); rerr != nil {
				if re, ok := rerr.(*vm.RuntimeError); ok {
					return fmt.Errorf("%s\n%s", re.Message, re.Backtrace)
				}
				return rerr
			}
			return nil
		},
	}
}

func replCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Launch the read-eval-print loop",
		Flags: sharedFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			dialect, ext, err := resolveOptions(cmd, ".")
			if err != nil {
				return err
			}
			return repl.Run(dialect, ext)
		},
	}
}

// resolveOptions layers the command line over the optional qalam.yaml in
// dir: the file sets defaults, flags win.
func resolveOptions(cmd *cli.Command, dir string) (config.Dialect, config.Extensions, error) {
	file, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return config.Latin, config.Extensions{}, err
	}

	dialectName := file.Dialect
	if s := cmd.String("dialect"); s != "" {
		dialectName = s
	}
	dialect, err := config.ParseDialect(dialectName)
	if err != nil {
		return config.Latin, config.Extensions{}, err
	}

	ext := file.Extensions
	for _, name := range cmd.StringSlice("extension") {
		switch name {
		case "lists":
			ext.Lists = true
		case "lambdas":
			ext.Lambdas = true
		default:
			return dialect, ext, fmt.Errorf("unknown extension %q (want lists or lambdas)", name)
		}
	}
	return dialect, ext, nil
}
