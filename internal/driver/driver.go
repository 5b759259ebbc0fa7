// Package driver wires the compiler stages together: lex, parse, resolve
// includes, expand macros, analyze, fold constants, generate assembly,
// peephole-optimize it, and (unless asked to stop at assembly) hand the
// result to gcc for assembling and linking.
//
// Grounded on the teacher's cmd/main.go orchestration style (read
// sources, run a pipeline, report errors) and on original_source/c5c's
// top-level driver (main.py), which runs the same stage order and shells
// out to gcc for the final link. Operational logging uses zap;
// diagnostics meant for the C5 programmer
// (lexical/syntax/semantic errors) go through internal/diag instead,
// since they need the caret-pointing source-snippet rendering zap
// doesn't do.
package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/c5lang/c5c/ascii"
	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/codegen"
	"github.com/c5lang/c5c/internal/diag"
	"github.com/c5lang/c5c/internal/fold"
	"github.com/c5lang/c5c/internal/include"
	"github.com/c5lang/c5c/internal/lexer"
	"github.com/c5lang/c5c/internal/macro"
	"github.com/c5lang/c5c/internal/parser"
	"github.com/c5lang/c5c/internal/sema"
)

// Options configures a single compilation run, matching the CLI surface
// described in spec.md §6.
type Options struct {
	Inputs       []string
	Output       string
	EmitAssembly bool // -S: stop after assembly, don't invoke gcc
	IncludeDirs  []string
	Lib          bool // compile as a library: no main() required
	GCCPath      string
	Logger       *zap.Logger
}

// Result carries the outcome of a Run for callers (tests, CLI) that want
// it without re-parsing stdout/stderr.
type Result struct {
	AssemblyPaths []string
	Diagnostics   *diag.Set
}

// ErrDiagnostics is returned when compilation fails because of
// C5-program-level diagnostics (not a driver/tooling failure); the
// diagnostics themselves are rendered to stderr as they're discovered.
var ErrDiagnostics = fmt.Errorf("compilation failed with diagnostics")

// Run executes the full pipeline for opts and returns a Result. Stage
// errors that are really C5 lexical/syntax/semantic problems surface as
// ErrDiagnostics; semantic errors and include cycles are also recorded
// in Result.Diagnostics. Anything else (missing file, gcc not found)
// surfaces as a plain error.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.Inputs) == 0 {
		return nil, fmt.Errorf("no input files given")
	}

	res := &Result{Diagnostics: diag.NewSet()}
	var asmPaths []string

	for _, input := range opts.Inputs {
		log.Debug("compiling unit", zap.String("input", input))
		asmPath, err := compileUnit(input, opts, res.Diagnostics, log)
		if err != nil {
			return res, err
		}
		if asmPath != "" {
			asmPaths = append(asmPaths, asmPath)
		}
	}
	res.AssemblyPaths = asmPaths

	if res.Diagnostics.HasErrors() {
		return res, ErrDiagnostics
	}

	if opts.EmitAssembly {
		return res, nil
	}

	if err := link(ctx, opts, asmPaths, log); err != nil {
		return res, err
	}
	return res, nil
}

// compileUnit runs one source file through every stage up to and
// including codegen, writing (but not assembling) its .s output. It
// returns "" with no error if semantic or include-cycle diagnostics were
// raised and no assembly was produced; those diagnostics are already in
// diags and rendered. Lexical and syntax errors are printed to stderr,
// are not added to diags, and are returned as ErrDiagnostics.
func compileUnit(input string, opts Options, diags *diag.Set, log *zap.Logger) (string, error) {
	src, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", input, err)
	}
	sourceLines := strings.Split(string(src), "\n")

	toks, lexErr := lexer.Tokenize(string(src))
	if lexErr != nil {
		fmt.Fprintln(os.Stderr, lexErr.Error())
		return "", ErrDiagnostics
	}

	file, perr := parser.Parse(toks)
	if perr != nil {
		fmt.Fprintf(os.Stderr, "%s:%s\n", input, perr.Error())
		return "", ErrDiagnostics
	}

	resolver := include.NewResolver(opts.IncludeDirs)
	file, incErr := resolver.Resolve(input, file)
	if incErr != nil {
		if ce, ok := incErr.(*include.CycleError); ok {
			diags.Add(diag.Error(diag.EIncludeCycle, ce.Loc, incErr.Error()))
			fmt.Fprint(os.Stderr, diags.Render(input, sourceLines, ascii.DefaultTheme))
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", input, incErr)
	}

	file = macro.Expand(file)

	result := sema.Analyze(file, !opts.Lib)
	for _, d := range result.Diags.Sorted() {
		diags.Add(d)
	}
	if len(result.Diags.Sorted()) > 0 {
		fmt.Fprint(os.Stderr, diags.Render(input, sourceLines, ascii.DefaultTheme))
	}
	if result.Diags.HasErrors() {
		return "", nil
	}

	file = foldFile(file)
	asmText := codegen.Generate(file, result)

	asmPath := outputAssemblyPath(input, opts)
	if err := os.WriteFile(asmPath, []byte(asmText), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", asmPath, err)
	}
	log.Info("generated assembly", zap.String("input", input), zap.String("output", asmPath))
	return asmPath, nil
}

// foldFile constant-folds every function body and global initializer in
// file, mirroring optimizer.py's pre-codegen AST pass (internal/fold
// does the per-expression work; this just walks the top-level decls).
func foldFile(file *ast.File) *ast.File {
	for i, d := range file.Decls {
		switch n := d.(type) {
		case ast.FuncDecl:
			n.Body = fold.FoldBlock(n.Body)
			file.Decls[i] = n
		case ast.PubVarDecl:
			if n.Init != nil {
				n.Init = fold.FoldExpr(n.Init)
				file.Decls[i] = n
			}
		}
	}
	return file
}

func outputAssemblyPath(input string, opts Options) string {
	if opts.EmitAssembly && opts.Output != "" && len(opts.Inputs) == 1 {
		return opts.Output
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+".s")
}

// link assembles+links the generated .s files via gcc, producing
// opts.Output (default a.out).
func link(ctx context.Context, opts Options, asmPaths []string, log *zap.Logger) error {
	gcc := opts.GCCPath
	if gcc == "" {
		gcc = "gcc"
	}
	out := opts.Output
	if out == "" {
		out = "a.out"
	}
	args := append([]string{}, asmPaths...)
	args = append(args, "-o", out)
	cmd := exec.CommandContext(ctx, gcc, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Debug("invoking gcc", zap.String("gcc", gcc), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gcc failed: %w", err)
	}
	return nil
}
