// Package debug implements the disassembler/static bytecode-explorer
// command-line surface (component table row H), grounded on funxy's
// internal/vm/debugger_cli.go: a bufio.Scanner-driven REPL reading commands
// from an io.Reader and writing to an io.Writer, so it works the same way
// whether wired to a real terminal or a test's in-memory buffers.
package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/ecmavm/engine/internal/bytecode"
)

// CLI is a small REPL over a compiled bytecode.Descriptor tree: "disasm"
// dumps the current descriptor (and "disasm N" a child by index), "list"
// shows the descriptor's name/child count, "cd N" descends into child N,
// "up" returns to the parent, "quit" exits. It does not single-step a
// running VM — internal/vm has no stepping hook to attach to (funxy's own
// Debugger.OnStop callback has no VM-side equivalent here) — so this is a
// static explorer over the compiled program, the same shape funxy's own
// "disasm" REPL command already is before a breakpoint is ever hit.
type CLI struct {
	root    *bytecode.Descriptor
	stack   []*bytecode.Descriptor
	input   io.Reader
	output  io.Writer
	scanner *bufio.Scanner
	color   bool
}

// NewCLI builds a debugger CLI rooted at desc, detecting color support via
// isatty the same way funxy's builtins_term.go's detectColorLevel does
// (NO_COLOR env var and "dumb" $TERM both force color off).
func NewCLI(desc *bytecode.Descriptor) *CLI {
	color := false
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		if _, noColor := os.LookupEnv("NO_COLOR"); !noColor && os.Getenv("TERM") != "dumb" {
			color = true
		}
	}
	return &CLI{
		root:   desc,
		stack:  []*bytecode.Descriptor{desc},
		input:  os.Stdin,
		output: os.Stdout,
		color:  color,
	}
}

func (c *CLI) SetInput(r io.Reader)  { c.input = r; c.scanner = bufio.NewScanner(r) }
func (c *CLI) SetOutput(w io.Writer) { c.output = w }

func (c *CLI) current() *bytecode.Descriptor { return c.stack[len(c.stack)-1] }

func (c *CLI) heading(s string) string {
	if !c.color {
		return s
	}
	return "\x1b[1m" + s + "\x1b[0m"
}

// Run drives the command loop until "quit" or EOF.
func (c *CLI) Run() {
	if c.scanner == nil {
		c.scanner = bufio.NewScanner(c.input)
	}
	fmt.Fprintln(c.output, "esrun debugger. Type 'help' for commands.")
	for {
		fmt.Fprint(c.output, "(esrun) ")
		if !c.scanner.Scan() {
			fmt.Fprintln(c.output)
			return
		}
		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}
		if !c.dispatch(strings.Fields(line)) {
			return
		}
	}
}

func (c *CLI) dispatch(parts []string) bool {
	switch parts[0] {
	case "help", "h":
		fmt.Fprintln(c.output, "commands: disasm [N], list, cd N, up, quit")
	case "quit", "q", "exit":
		return false
	case "list", "l":
		c.list()
	case "up":
		if len(c.stack) > 1 {
			c.stack = c.stack[:len(c.stack)-1]
		} else {
			fmt.Fprintln(c.output, "already at root")
		}
	case "cd":
		if len(parts) != 2 {
			fmt.Fprintln(c.output, "usage: cd N")
			break
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 || n >= len(c.current().Children) {
			fmt.Fprintln(c.output, "no such child")
			break
		}
		c.stack = append(c.stack, c.current().Children[n])
	case "disasm", "d":
		target := c.current()
		if len(parts) == 2 {
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 0 || n >= len(target.Children) {
				fmt.Fprintln(c.output, "no such child")
				break
			}
			target = target.Children[n]
		}
		fmt.Fprintln(c.output, c.heading(bytecode.Disassemble(target, target.Name)))
	default:
		fmt.Fprintf(c.output, "unknown command %q (try 'help')\n", parts[0])
	}
	return true
}

func (c *CLI) list() {
	d := c.current()
	fmt.Fprintf(c.output, "%s: %d params, %d children, %d bytes of code\n",
		c.heading(d.Name), d.ParamCount, len(d.Children), len(d.Code))
	for i, child := range d.Children {
		fmt.Fprintf(c.output, "  [%d] %s\n", i, child.Name)
	}
}
