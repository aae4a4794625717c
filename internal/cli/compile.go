package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/promotions/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the normalized promotion document written by compile.
type CompilationResult struct {
	Promotions []ir.Promotion `json:"promotions"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>...",
		Short: "Compile promotion files to a JSON document",
		Long: `Compile CUE, YAML or JSON promotion files into one normalized JSON
document that "import" and "validate" accept.

Directories are walked for .cue, .yaml, .yml and .json files. The output
keeps evaluation order: files in the order given, promotions in
declaration order.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadPromotions(paths, LoadModeCollectAll)
	if loadResult == nil {
		code, message := firstLoadError(loadErrors)
		return outputCompileError(formatter, code, message)
	}

	formatter.VerboseLog("Found %d promotion file(s)", len(loadResult.Files))
	for _, p := range loadResult.Promotions {
		formatter.VerboseLog("Compiled promotion: %s", p.ID)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Promotions: loadResult.Promotions}

	if opts.Output != "" {
		if err := writeDocument(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d promotion(s)\n\n", len(result.Promotions))
	for _, p := range result.Promotions {
		fmt.Fprintf(formatter.Writer, "  %s: %d guard(s), %d action(s)\n",
			p.ID, len(p.When), len(p.Then))
	}
	if len(result.Promotions) > 0 {
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote promotions to %s\n", outputFile)
	}
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := firstLoadError([]error{err})
		cliErrors[i] = CLIError{Code: code, Message: message}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %v\n", err)
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeDocument writes promotions as an indented JSON document that
// compiler.ParseDocument reads back.
func writeDocument(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling promotions: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// loadForCommand loads promotions for commands that need a clean set,
// reporting load failures through the formatter.
func loadForCommand(formatter *OutputFormatter, paths []string) ([]ir.Promotion, error) {
	loadResult, loadErrors := LoadPromotions(paths, LoadModeCollectAll)
	if loadResult == nil {
		code, message := firstLoadError(loadErrors)
		return nil, outputCompileError(formatter, code, message)
	}
	if len(loadErrors) > 0 {
		return nil, outputCompileErrors(formatter, loadErrors)
	}
	return loadResult.Promotions, nil
}
