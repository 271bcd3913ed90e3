// Rill CLI - compiles Rill source files to bytecode.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/rill-lang/rill/compiler"
	"github.com/rill-lang/rill/manifest"
	"github.com/rill-lang/rill/pkg/bytecode"
	"github.com/rill-lang/rill/pkg/cache"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("rill")

func main() {
	output := flag.String("o", "", "Output file (default: manifest build.output or <input>.rlbc)")
	disasm := flag.Bool("S", false, "Print disassembly to stdout instead of writing output")
	verbose := flag.Bool("v", false, "Verbose output")
	noCache := flag.Bool("no-cache", false, "Skip the compile cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rill [options] [file.rill]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles a .rill file, or the project described by rill.toml when no file is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rill main.rill          # Compile one file to main.rlbc\n")
		fmt.Fprintf(os.Stderr, "  rill -S main.rill       # Print the bytecode listing\n")
		fmt.Fprintf(os.Stderr, "  rill                    # Compile the enclosing rill.toml project\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	if err := run(flag.Args(), *output, *disasm, *noCache); err != nil {
		fail("%v", err)
	}
}

func run(args []string, output string, disasm, noCache bool) error {
	var (
		srcPath  string
		cacheDir string
	)

	switch len(args) {
	case 0:
		m, err := manifest.FindAndLoad(".")
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("no input file and no %s found", manifest.FileName)
		}
		log.Infof("project %s v%s", m.Project.Name, m.Project.Version)
		srcPath = m.EntryPath()
		cacheDir = m.CacheDir()
		if output == "" {
			output = m.OutputPath()
		}
	case 1:
		srcPath = args[0]
		if filepath.Ext(srcPath) != ".rill" {
			return fmt.Errorf("input %q is not a .rill file", srcPath)
		}
		cacheDir = filepath.Join(filepath.Dir(srcPath), ".rill", "cache")
		if output == "" {
			output = strings.TrimSuffix(srcPath, ".rill") + ".rlbc"
		}
	default:
		return fmt.Errorf("expected at most one input file, got %d", len(args))
	}

	source, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", srcPath, err)
	}

	var store *cache.Store
	if !noCache {
		store, err = cache.Open(filepath.Join(cacheDir, "programs.db"))
		if err != nil {
			// A broken cache never blocks a build.
			log.Errorf("cache unavailable: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	key := cache.Key(source)
	if store != nil {
		if e, err := store.Get(key, bytecode.FormatVersion); err == nil {
			log.Infof("cache hit for %s (build %s)", srcPath, e.BuildID)
			return emit(e.Data, output, disasm)
		}
	}

	data, buildID, err := compileFile(srcPath, string(source))
	if err != nil {
		return err
	}
	log.Infof("compiled %s (build %s)", srcPath, buildID)

	if store != nil {
		if err := store.Put(key, data, buildID, bytecode.FormatVersion); err != nil {
			log.Errorf("cache write failed: %v", err)
		}
	}

	return emit(data, output, disasm)
}

func compileFile(path, source string) ([]byte, string, error) {
	p := compiler.NewParser(source)
	stmts := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, "", fmt.Errorf("%s: parse failed:\n  %s", path, strings.Join(errs, "\n  "))
	}

	s := compiler.NewSession()
	prog, err := s.CompileProgram(stmts)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("%s: %d instructions, %d functions", path, prog.Len(), s.FunctionCount())

	f := &bytecode.File{
		Version:   bytecode.FormatVersion,
		BuildID:   s.ID(),
		CreatedAt: time.Now().Unix(),
		Program:   *prog,
	}
	data, err := bytecode.Marshal(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return data, s.ID(), nil
}

func emit(data []byte, output string, disasm bool) error {
	if disasm {
		f, err := bytecode.Unmarshal(data)
		if err != nil {
			return err
		}
		fmt.Print(f.Program.DisassembleWithName(output))
		return nil
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", output, err)
	}
	log.Infof("wrote %s (%d bytes)", output, len(data))
	return nil
}

func fail(format string, args ...any) {
	prefix := "error:"
	if isatty.IsTerminal(os.Stderr.Fd()) {
		prefix = "\x1b[31merror:\x1b[0m"
	}
	fmt.Fprintf(os.Stderr, prefix+" "+format+"\n", args...)
	os.Exit(1)
}
