// Command jstar wires a *vm.VM to a script or a REPL loop. No compiler
// front-end ships with this module, so "script" here primarily means a
// compiled bytecode file (pkg/bytecode's format); -e and REPL input are
// handed to vm.EvalSource, which requires a vm.Frontend this binary
// does not supply.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Michael0500/jstar/pkg/bytecode"
	"github.com/Michael0500/jstar/pkg/vm"
)

const (
	versionString = "J* Version 2.0.0 (jstar runtime core, Go port)"
	jstarPathEnv  = "JSTARPATH"
)

// Exit codes follow the sysexits convention: 64 for usage errors, 70
// for internal failures.
const (
	exitSuccess = 0
	exitUsage   = 64
	exitFailure = 70
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("jstar", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	showVersion := fs.Bool("v", false, "print version information and exit")
	fs.BoolVar(showVersion, "version", false, "print version information and exit")
	skipVersion := fs.Bool("V", false, "don't print version information when entering the REPL")
	execStmt := fs.String("e", "", "execute the given statement before any script")
	interactive := fs.Bool("i", false, "enter the REPL after executing the script and/or -e statement")
	ignoreEnv := fs.Bool("E", false, "ignore environment variables such as JSTARPATH")
	noColors := fs.Bool("C", false, "disable output coloring")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: jstar [options] [script [arguments...]]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return exitUsage
	}

	if *showVersion {
		fmt.Println(versionString)
		return exitSuccess
	}

	args := fs.Args()
	var script string
	if len(args) > 0 {
		script = args[0]
	}

	cfg := vm.DefaultConfig()
	cfg.ErrorCallback = func(kind, message string, stackTrace []string) {
		printError(*noColors, kind, message, stackTrace)
	}
	vmm := vm.New(cfg)
	initImportPaths(vmm, script, *ignoreEnv)
	vmm.SetCustomData(args)

	ranSomething := false
	code := exitSuccess

	if *execStmt != "" {
		ranSomething = true
		if _, ok := vmm.EvalSource("<string>", *execStmt); !ok {
			code = exitFailure
		}
	}
	if script != "" {
		ranSomething = true
		if ok := execScript(vmm, script); !ok {
			code = exitFailure
		}
	}

	if *interactive || !ranSomething {
		code = repl(vmm, *skipVersion, *noColors)
	}
	return code
}

// execScript runs a file that is either a compiled bytecode image
// (pkg/bytecode's format, the common case since no compiler ships with
// this binary) or raw source text handed to EvalSource as a fallback.
func execScript(vmm *vm.VM, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading script '%s': %s\n", path, err.Error())
		return false
	}
	if fn, err := bytecode.Decode(vmm, data); err == nil {
		fn.Module = vmm.MainModule()
		_, ok := vmm.Eval(fn)
		return ok
	}
	_, ok := vmm.EvalSource(path, string(data))
	return ok
}

// initImportPaths mirrors apps/jstar/cli.c's initImportPaths: the script's
// own directory (or "./" for -e/REPL-only sessions) goes first, then each
// JSTARPATH entry unless -E disabled the environment lookup.
func initImportPaths(vmm *vm.VM, script string, ignoreEnv bool) {
	base := "./"
	if script != "" {
		if i := strings.LastIndexByte(script, '/'); i >= 0 {
			base = script[:i+1]
		}
	}
	vmm.AddImportPath(base)

	if ignoreEnv {
		return
	}
	jstarPath := os.Getenv(jstarPathEnv)
	if jstarPath == "" {
		return
	}
	for _, p := range strings.Split(jstarPath, ":") {
		if p != "" {
			vmm.AddImportPath(p)
		}
	}
}

func repl(vmm *vm.VM, skipVersion, noColors bool) int {
	if !skipVersion {
		fmt.Println(versionString)
	}

	prompt := "J*>> "
	if !noColors {
		prompt = "\033[0;1;97mJ*>> \033[0m"
	}

	reader := bufio.NewReader(os.Stdin)
	lastCode := exitSuccess
	for {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			fmt.Println()
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := vmm.EvalSource("<stdin>", line); !ok {
			lastCode = exitFailure
		} else {
			lastCode = exitSuccess
		}
		if err != nil {
			break
		}
	}
	return lastCode
}

func printError(noColors bool, kind, message string, stackTrace []string) {
	prefix, reset := "", ""
	if !noColors {
		prefix, reset = "\033[0;31m", "\033[0m"
	}
	fmt.Fprintf(os.Stderr, "%s%s: %s%s\n", prefix, kind, message, reset)
	for _, frame := range stackTrace {
		fmt.Fprintf(os.Stderr, "    %s\n", frame)
	}
}
