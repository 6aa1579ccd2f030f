// Command esrun is the engine's CLI entry point: compile a source file (or
// an inline -e expression) and run it, or drop into the static bytecode
// disassembler with -disasm. Grounded on funxy's cmd/funxy/main.go's overall
// shape (a debug-flag check, an -e inline-expression mode, file-argument
// handling, a panic recovery wrapper printing a friendly message, stderr
// error reporting with a non-zero exit code) — funxy's own analyzer/
// typesystem/trait-resolution machinery and its tree-walk-vs-VM backend
// switch have no equivalent here, since this engine has one execution path.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ecmavm/engine/internal/config"
	"github.com/ecmavm/engine/internal/debug"
	"github.com/ecmavm/engine/internal/pipeline"
	"github.com/ecmavm/engine/internal/vm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	var (
		eval    = flag.String("e", "", "evaluate the given source string instead of a file")
		disasm  = flag.Bool("disasm", false, "compile the given source and open the static bytecode explorer instead of running it")
		version = flag.Bool("version", false, "print the engine version")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [script.js]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Println(engineVersion())
		return
	}

	sourcePath, src, err := readSource(*eval, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "esrun: %s\n", err)
		os.Exit(1)
	}

	desc, errs := pipeline.CompileSource(sourcePath, src)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "esrun: %s\n", e)
		}
		os.Exit(1)
	}

	if *disasm {
		cli := debug.NewCLI(desc)
		cli.Run()
		return
	}

	v := vm.New()
	_, ecmaErr := v.RunProgram(desc)
	if ecmaErr != nil {
		fmt.Fprintf(os.Stderr, "uncaught %s\n", ecmaErr.Error())
		os.Exit(1)
	}
}

// readSource resolves the script source: -e wins over a positional file
// argument, a lone "-" or no argument at all (when stdin isn't a terminal)
// reads stdin, matching the common "pipe a script in" CLI convention.
func readSource(inlineExpr string, args []string) (sourcePath, src string, err error) {
	if inlineExpr != "" {
		return "<eval>", inlineExpr, nil
	}
	if len(args) == 0 {
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return "", "", fmt.Errorf("no input: pass a script path, -e '<source>', or pipe source on stdin")
		}
		data, readErr := readAll(os.Stdin)
		if readErr != nil {
			return "", "", readErr
		}
		return "<stdin>", data, nil
	}
	path := args[0]
	if path == "-" {
		data, readErr := readAll(os.Stdin)
		if readErr != nil {
			return "", "", readErr
		}
		return "<stdin>", data, nil
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return "", "", readErr
	}
	return path, string(data), nil
}

func readAll(f *os.File) (string, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func engineVersion() string {
	return "esrun " + config.Version
}
