package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/compile"
)

var (
	// Version info - set by ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	// Color output
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		outFlag     = flag.String("o", "", "Write AMM output to a file instead of stdout")
	)

	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	switch command := flag.Arg(0); command {
	case "compile":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: lnc compile <file.ln>")
			os.Exit(1)
		}
		compileFile(flag.Arg(1), *outFlag)

	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: lnc check <file.ln>")
			os.Exit(1)
		}
		checkFile(flag.Arg(1))

	case "repl":
		runREPL()

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func compileFile(path, out string) {
	text, err := compile.CompileFile(path)
	if err != nil {
		reportError(err)
		os.Exit(cerrors.ExitCode(err))
	}
	if out == "" {
		fmt.Print(text)
		return
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(2)
	}
	fmt.Printf("%s wrote %s\n", green("OK"), out)
}

func checkFile(path string) {
	if _, err := compile.CompileFile(path); err != nil {
		reportError(err)
		os.Exit(cerrors.ExitCode(err))
	}
	fmt.Printf("%s %s\n", green("OK"), path)
}

// reportError prints one primary message, the offending source excerpt
// when one is attached, and the position, all to stderr.
func reportError(err error) {
	rep, ok := cerrors.AsReport(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", red(string(rep.Code)+":"), rep.Message)
	if rep.Excerpt != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", yellow(rep.Excerpt))
	}
	if rep.Pos.File != "" {
		fmt.Fprintf(os.Stderr, "  at %s:%d:%d\n", rep.Pos.File, rep.Pos.Line, rep.Pos.Column)
	}
}

const historyFile = ".lnc_history"

// runREPL reads source lines until a blank line, compiles the
// accumulated buffer, and prints the resulting AMM or the error.
func runREPL() {
	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			rl.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			rl.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("%s %s — enter a program, blank line to compile, :quit to exit\n", bold("lnc repl"), Version)

	var buf []string
	for {
		prompt := "ln> "
		if len(buf) > 0 {
			prompt = "... "
		}
		input, err := rl.Prompt(prompt)
		if err != nil {
			fmt.Println()
			return
		}

		switch strings.TrimSpace(input) {
		case ":quit", ":q":
			return
		case ":reset":
			buf = nil
			continue
		case "":
			if len(buf) == 0 {
				continue
			}
			src := strings.Join(buf, "\n")
			buf = nil
			text, err := compile.CompileString(src)
			if err != nil {
				reportError(err)
				continue
			}
			fmt.Print(text)
			continue
		}
		rl.AppendHistory(input)
		buf = append(buf, input)
	}
}

func printVersion() {
	fmt.Printf("lnc %s (commit %s, built %s)\n", Version, Commit, BuildTime)
}

func printHelp() {
	fmt.Println(bold("lnc") + " — Ln compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lnc compile <file.ln> [-o out.amm]   Compile a program to AMM")
	fmt.Println("  lnc check <file.ln>                  Type-check without emitting")
	fmt.Println("  lnc repl                             Interactive compile loop")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
