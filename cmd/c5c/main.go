// Command c5c is the C5 compiler driver: lex, parse, resolve includes,
// expand macros, analyze, fold, generate x86-64 assembly, and invoke gcc
// to assemble and link.
//
// The CLI surface is cobra+pflag, matching the example pack's Go CLI
// convention rather than the teacher's own stdlib flag-based CLI:
// spec.md §6 describes a multi-flag, multi-input-file surface (-o, -S,
// -I repeated, --lib, --setup-libs) that maps directly onto cobra's
// flag/arg model.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/c5lang/c5c/internal/driver"
)

var (
	flagOutput      string
	flagEmitAsm     bool
	flagIncludeDirs []string
	flagLib         bool
	flagSetupLibs   bool
	flagVerbose     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "c5c [inputs...]",
		Short:         "Compile C5 source files to a native executable",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompile,
	}

	flags := cmd.Flags()
	flags.StringVarP(&flagOutput, "output", "o", "", "Output path (executable, or assembly file with -S)")
	flags.BoolVarP(&flagEmitAsm, "S", "S", false, "Emit assembly only, skip assembling and linking")
	flags.StringArrayVarP(&flagIncludeDirs, "include-dir", "I", nil, "Additional include search directory (repeatable)")
	flags.BoolVar(&flagLib, "lib", false, "Compile as a library: no main() required")
	flags.BoolVar(&flagSetupLibs, "setup-libs", false, "Install the global include root (~/.c5/include) and exit")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug-level operational logging")
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(name)
	})

	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	if flagSetupLibs {
		return setupLibs()
	}
	if len(args) == 0 {
		return fmt.Errorf("no input files given")
	}

	logger := newLogger(flagVerbose)
	defer logger.Sync()

	opts := driver.Options{
		Inputs:       args,
		Output:       flagOutput,
		EmitAssembly: flagEmitAsm,
		IncludeDirs:  flagIncludeDirs,
		Lib:          flagLib,
		Logger:       logger,
	}

	_, err := driver.Run(context.Background(), opts)
	if err != nil {
		if err == driver.ErrDiagnostics {
			return fmt.Errorf("compilation failed")
		}
		return err
	}
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.CallerKey = ""
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func setupLibs() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locating home directory: %w", err)
	}
	root := home + "/.c5/include"
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", root, err)
	}
	fmt.Fprintf(os.Stdout, "installed global include root at %s\n", root)
	return nil
}
